package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
	"github.com/Sabbir9535/BlinkChat/internal/security"
)

// AuthService handles registration, login and token authentication.
type AuthService struct {
	users  domain.UserRepository
	tokens *security.TokenService
	hash   *security.PasswordHasher
}

func NewAuthService(users domain.UserRepository, tokens *security.TokenService, hash *security.PasswordHasher) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hash:   hash,
	}
}

type RegisterInput struct {
	Username string
	FullName string
	Password string
	Bio      *string
}

type LoginInput struct {
	Username string
	Password string
}

type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

var ErrBadCredentials = errors.New("incorrect username or password")

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*TokenResponse, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, fmt.Errorf("username and password are required: %w", domain.ErrInvalidInput)
	}

	hashed, err := s.hash.Hash(in.Password)
	if err != nil {
		if errors.Is(err, security.ErrWeakPassword) {
			return nil, fmt.Errorf("%s: %w", err.Error(), domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("hash password: %w", err)
	}

	fullName := strings.TrimSpace(in.FullName)
	if fullName == "" {
		fullName = username
	}
	user := &domain.User{
		Username:       username,
		FullName:       fullName,
		Bio:            in.Bio,
		HashedPassword: hashed,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("username already registered: %w", domain.ErrConflict)
		}
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*TokenResponse, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("user account is inactive: %w", domain.ErrForbidden)
	}
	if !s.hash.Matches(in.Password, user.HashedPassword) {
		return nil, ErrBadCredentials
	}
	return s.issue(user)
}

// Authenticate resolves a bearer token to its active user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	user, err := s.users.GetByUsername(ctx, claims.Username())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	// A recreated account with the same username does not inherit old tokens.
	if user.ID != claims.UserID() || !user.IsActive {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (s *AuthService) issue(user *domain.User) (*TokenResponse, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expires,
		User:        user,
	}, nil
}
