// Package chatclient is the consumer side of the chat: an HTTP client for
// the REST surface, a websocket channel for pushes and a Session that keeps
// the selected conversation and the unseen counters in sync.
package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sabbir9535/BlinkChat/internal/domain"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type AuthResult struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *domain.User `json:"user"`
}

type Sidebar struct {
	Users        []*domain.User       `json:"users"`
	Counterparts []domain.Counterpart `json:"counterparts"`
	Unseen       map[int64]int        `json:"unseen"`
}

// SendRequest carries ciphertext text and an optional image data URL or URL.
type SendRequest struct {
	Text  *string `json:"text,omitempty"`
	Image *string `json:"image,omitempty"`
}

// API talks to the REST endpoints. It is safe for concurrent use.
type API struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *API) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.token
}

// Register creates an account and keeps the returned token.
func (a *API) Register(ctx context.Context, username, password string) (*AuthResult, error) {
	return a.authenticate(ctx, "/api/auth/register", username, password)
}

// Login keeps the returned token for subsequent calls.
func (a *API) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	return a.authenticate(ctx, "/api/auth/login", username, password)
}

func (a *API) authenticate(ctx context.Context, path, username, password string) (*AuthResult, error) {
	var res AuthResult
	body := map[string]string{"username": username, "password": password}
	if err := a.do(ctx, http.MethodPost, path, body, &res); err != nil {
		return nil, err
	}
	a.SetToken(res.AccessToken)
	return &res, nil
}

func (a *API) Sidebar(ctx context.Context) (*Sidebar, error) {
	var res Sidebar
	if err := a.do(ctx, http.MethodGet, "/api/conversations", nil, &res); err != nil {
		return nil, err
	}
	if res.Unseen == nil {
		res.Unseen = make(map[int64]int)
	}
	return &res, nil
}

func (a *API) Conversation(ctx context.Context, otherID int64) ([]*domain.Message, error) {
	var res []*domain.Message
	if err := a.do(ctx, http.MethodGet, "/api/conversation/"+strconv.FormatInt(otherID, 10), nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

func (a *API) Send(ctx context.Context, otherID int64, req SendRequest) (*domain.Message, error) {
	var res domain.Message
	if err := a.do(ctx, http.MethodPost, "/api/conversation/"+strconv.FormatInt(otherID, 10)+"/send", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (a *API) MarkSeen(ctx context.Context, messageID int64) error {
	return a.do(ctx, http.MethodPut, "/api/message/"+strconv.FormatInt(messageID, 10)+"/seen", nil, nil)
}

func (a *API) Online(ctx context.Context) ([]int64, error) {
	var res struct {
		UserIDs []int64 `json:"user_ids"`
	}
	if err := a.do(ctx, http.MethodGet, "/api/users/online", nil, &res); err != nil {
		return nil, err
	}
	return res.UserIDs, nil
}

func (a *API) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := a.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &e) != nil || e.Error == "" {
			e.Error = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
