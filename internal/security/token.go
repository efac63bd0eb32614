package security

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

const tokenIssuer = "blinkchat"

var ErrInvalidToken = errors.New("invalid access token")

// AccessClaims is what a bearer token says about its holder: the username
// as subject and the numeric account id alongside it.
type AccessClaims struct {
	jwt.RegisteredClaims
}

// UserID returns the account id carried in the token id claim.
func (c *AccessClaims) UserID() int64 {
	id, _ := strconv.ParseInt(c.ID, 10, 64)
	return id
}

// Username is the subject the token was issued to.
func (c *AccessClaims) Username() string {
	return c.Subject
}

// TokenService signs and verifies HS256 access tokens for chat accounts.
type TokenService struct {
	key    []byte
	ttl    time.Duration
	parser *jwt.Parser
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	return &TokenService{
		key:    []byte(secret),
		ttl:    ttl,
		parser: parser,
	}
}

// Issue signs a token for user that expires after the configured TTL.
func (t *TokenService) Issue(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(t.ttl)
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.Username,
			ID:        strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString(t.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expires, nil
}

// Verify checks signature, issuer and expiry. Every failure wraps
// ErrInvalidToken.
func (t *TokenService) Verify(token string) (*AccessClaims, error) {
	var claims AccessClaims
	if _, err := t.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.key, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Username() == "" || claims.UserID() <= 0 {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return &claims, nil
}
