package client

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

	"dsa-tracker/internal/domain"
)

// TokenKey is the durable storage key holding the bearer token.
const TokenKey = "token"

// TokenStore is the slice of durable storage the client needs.
type TokenStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type SignupPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// APIError is a non-2xx response. Message holds the server's "error" field, if any.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("api request failed with status %d: %s", e.StatusCode, e.Message)
}

// MessageOr returns the server-provided message carried by err, or fallback.
func MessageOr(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// Client is the typed boundary to the tracker backend. It does not retry.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

func New(baseURL string, timeout time.Duration, tokens TokenStore) *Client {
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout}, tokens)
}

func NewWithHTTPClient(baseURL string, httpClient *http.Client, tokens TokenStore) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		tokens:  tokens,
	}
}

// Signup creates an account and persists the returned token.
func (c *Client) Signup(ctx context.Context, payload SignupPayload) (TokenResponse, error) {
	return c.authenticate(ctx, "/auth/signup", payload)
}

// Login exchanges credentials for a token and persists it.
func (c *Client) Login(ctx context.Context, payload LoginPayload) (TokenResponse, error) {
	return c.authenticate(ctx, "/auth/login", payload)
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (TokenResponse, error) {
	var resp TokenResponse
	if err := c.do(ctx, http.MethodPost, path, payload, false, &resp); err != nil {
		return TokenResponse{}, err
	}
	if resp.Token != "" {
		if err := c.tokens.Set(ctx, TokenKey, resp.Token); err != nil {
			return resp, fmt.Errorf("persist token: %w", err)
		}
	}
	return resp, nil
}

// GetUserData fetches the user behind the currently stored token.
func (c *Client) GetUserData(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, true, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// GetTopics fetches the full topic catalog.
func (c *Client) GetTopics(ctx context.Context) ([]domain.Topic, error) {
	var topics []domain.Topic
	if err := c.do(ctx, http.MethodGet, "/topics", nil, true, &topics); err != nil {
		return nil, err
	}
	return topics, nil
}

// MarkTopicAsComplete records the desired completion state; the response body is ignored.
func (c *Client) MarkTopicAsComplete(ctx context.Context, completion domain.Completion) error {
	return c.do(ctx, http.MethodPost, "/completed/mark", completion, true, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, authed bool, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		// Re-read on every call so a login or logout takes effect immediately.
		token, ok, err := c.tokens.Get(ctx, TokenKey)
		if err != nil {
			return fmt.Errorf("read token: %w", err)
		}
		if ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
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

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error json.RawMessage `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && len(body.Error) > 0 {
		// Only string messages are surfaced; structured errors fall back to the caller's text.
		var msg string
		if json.Unmarshal(body.Error, &msg) == nil {
			apiErr.Message = msg
		}
	}
	return apiErr
}
