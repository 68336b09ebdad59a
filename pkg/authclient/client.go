// authclient — HTTP-клиент REST API auth-service для клиентских приложений.
//
// Классификация ошибок:
//   - ErrUnauthorized — сервер авторитетно отверг токен (HTTP 401);
//   - *StatusError и сетевые ошибки — временные, токен не трогаем.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pribylovaa/propertia-auth/internal/models"
)

// ErrUnauthorized — сервер ответил 401.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError — неожиданный ответ сервера (не 2xx и не 401).
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("auth service returned %d: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("auth service returned %d", e.Code)
}

// Client ходит в auth-service по базовому URL вместе с base path,
// например http://localhost:4000/api/users.
type Client struct {
	baseURL string
	http    *http.Client
}

// New создаёт клиента. timeout <= 0 — без собственного таймаута
// (дедлайн задаёт контекст вызова).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient подменяет транспорт (для тестов).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.http = hc
	}
	return c
}

// Login выполняет вход пользователя.
func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	return c.login(ctx, "/login", email, password)
}

// AdminLogin выполняет вход в административную консоль.
func (c *Client) AdminLogin(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	return c.login(ctx, "/admin-login", email, password)
}

func (c *Client) login(ctx context.Context, path, email, password string) (*models.AuthResponse, error) {
	const op = "authclient.login"

	var out models.AuthResponse
	if err := c.do(ctx, http.MethodPost, path, "", models.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Verify спрашивает сервер, действителен ли токен.
// (false, nil) — сервер ответил valid=false; 401 тоже сводится к false.
func (c *Client) Verify(ctx context.Context, token string) (bool, error) {
	const op = "authclient.Verify"

	var out models.VerifyResponse
	err := c.do(ctx, http.MethodGet, "/verify-token", token, nil, &out)
	switch {
	case err == nil:
		return out.Valid, nil
	case errors.Is(err, ErrUnauthorized):
		return false, nil
	default:
		return false, fmt.Errorf("%s: %w", op, err)
	}
}

// Me возвращает профиль владельца токена.
func (c *Client) Me(ctx context.Context, token string) (*models.Profile, error) {
	const op = "authclient.Me"

	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/me", token, nil, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &out, nil
}

// Logout отзывает токен на сервере.
func (c *Client) Logout(ctx context.Context, token string) error {
	const op = "authclient.Logout"

	if err := c.do(ctx, http.MethodPost, "/logout", token, nil, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return ErrUnauthorized
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(&msg)
		return &StatusError{Code: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
