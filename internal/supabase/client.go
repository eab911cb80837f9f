// Package supabase is the narrow REST client for the managed identity provider
// (GoTrue) and its object storage. Only the calls the handlers need are
// exposed; everything else stays on the Supabase side of the boundary.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// User is the identity subset the API echoes back to clients.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session carries the token pair issued on sign-in or refresh.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// UpstreamError preserves the provider's status and message for server-side
// logging. Handlers must not forward Message to clients verbatim beyond the
// generic auth failure bodies.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("supabase: upstream status %d: %s", e.Status, e.Message)
}

// Client talks to one Supabase project.
type Client struct {
	baseURL        string
	anonKey        string
	serviceRoleKey string
	httpClient     *http.Client
}

// Config identifies the Supabase project and keys.
type Config struct {
	URL            string
	Key            string
	ServiceRoleKey string
	// Timeout bounds each outbound call in addition to the request context.
	Timeout time.Duration
}

// New builds a client; URL and anon key are mandatory, the service role key is
// only needed for storage downloads.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, errors.New("supabase: url and key required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.URL, "/"),
		anonKey:        cfg.Key,
		serviceRoleKey: cfg.ServiceRoleKey,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// SignIn exchanges credentials for a session via the password grant.
func (c *Client) SignIn(ctx context.Context, email, password string) (Session, error) {
	var session Session
	err := c.postJSON(ctx, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, c.anonKey, &session)
	return session, err
}

// SignUp registers a new user. Depending on project settings the response may
// or may not include a session; only the user identity is returned.
func (c *Client) SignUp(ctx context.Context, email, password string) (User, error) {
	var payload struct {
		User
		Wrapped *User `json:"user"`
	}
	err := c.postJSON(ctx, "/auth/v1/signup",
		map[string]string{"email": email, "password": password}, c.anonKey, &payload)
	if err != nil {
		return User{}, err
	}
	// GoTrue returns the bare user when confirmation is pending and a session
	// envelope when autoconfirm is on.
	if payload.Wrapped != nil {
		return *payload.Wrapped, nil
	}
	return payload.User, nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.postJSON(ctx, "/auth/v1/logout", nil, accessToken, nil)
}

// Refresh exchanges a refresh token for a fresh session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	var session Session
	err := c.postJSON(ctx, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refreshToken}, c.anonKey, &session)
	return session, err
}

// DownloadObject fetches an object from storage using the service role key.
func (c *Client) DownloadObject(ctx context.Context, bucket, path string) ([]byte, error) {
	if c.serviceRoleKey == "" {
		return nil, errors.New("supabase: service role key required for storage access")
	}
	endpoint := fmt.Sprintf("/storage/v1/object/%s/%s", url.PathEscape(bucket), escapeObjectPath(path))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: build storage request: %w", err)
	}
	c.setHeaders(req, c.serviceRoleKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: storage download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, readUpstreamError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase: read storage body: %w", err)
	}
	return body, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body any, bearer string, dest any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("supabase: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("supabase: build request: %w", err)
	}
	c.setHeaders(req, bearer)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("supabase: %s: %w", endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readUpstreamError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("supabase: decode response: %w", err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request, bearer string) {
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
}

func readUpstreamError(resp *http.Response) error {
	var parsed struct {
		Message          string `json:"message"`
		Msg              string `json:"msg"`
		ErrorDescription string `json:"error_description"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(body, &parsed)
	message := parsed.Message
	if message == "" {
		message = parsed.Msg
	}
	if message == "" {
		message = parsed.ErrorDescription
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	return &UpstreamError{Status: resp.StatusCode, Message: message}
}

func escapeObjectPath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
