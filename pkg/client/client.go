// Package client provides a typed HTTP client for the Steve API.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/steveos/steve-mcp/pkg/types"
)

const (
	defaultTimeout = 30 * time.Second

	tasksPath  = "/tasks/"
	usersPath  = "/users/me"
	healthPath = "/health"
)

// ErrUnavailable indicates the Steve API could not be reached or did not
// answer in time.
var ErrUnavailable = errors.New("steve api unavailable")

// APIError carries a non-success Steve API response. The upstream's decision
// is preserved verbatim; callers map it to their own error taxonomy.
type APIError struct {
	StatusCode int
	Detail     string
}

// Error implements error.
func (e *APIError) Error() string {
	detail := strings.TrimSpace(e.Detail)
	if detail == "" {
		return fmt.Sprintf("steve api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("steve api returned status %d: %s", e.StatusCode, detail)
}

// Config holds Steve API client configuration.
type Config struct {
	// BaseURL is the root URL of the Steve API (for example:
	// https://api.steve.example/api/v1).
	BaseURL string
	// Timeout is the per-request timeout. Defaults to 30s.
	Timeout time.Duration
}

// Client is the typed HTTP client for the Steve API. Tokens are attached
// per call so one client serves all sessions.
type Client struct {
	http *resty.Client
}

// New creates a Steve API client. Requests are never retried; retry policy
// belongs to the caller.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: httpClient}, nil
}

// CurrentUser resolves the user a token belongs to via GET /users/me.
func (c *Client) CurrentUser(ctx context.Context, token string) (types.User, error) {
	var user types.User
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&user).
		Get(usersPath)
	if err != nil {
		return types.User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return types.User{}, responseError(resp)
	}
	return user, nil
}

// CreateTask creates a task via POST /tasks/ with the caller's credential
// attached. The API owns validation; its verdict is returned unreinterpreted.
func (c *Client) CreateTask(ctx context.Context, token string, req types.TaskCreateRequest) (types.Task, error) {
	var created types.Task
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(req).
		SetResult(&created).
		Post(tasksPath)
	if err != nil {
		return types.Task{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return types.Task{}, responseError(resp)
	}
	return created, nil
}

// Health probes the Steve API health endpoint.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.IsError() {
		return responseError(resp)
	}
	return nil
}

func responseError(resp *resty.Response) error {
	return &APIError{
		StatusCode: resp.StatusCode(),
		Detail:     problemDetail(resp.Body()),
	}
}

// problemDetail extracts a human-readable message from a JSON error body,
// falling back to the raw text.
func problemDetail(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return trimmed
	}
	for _, key := range []string{"detail", "error", "message"} {
		if value, ok := payload[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return trimmed
}
