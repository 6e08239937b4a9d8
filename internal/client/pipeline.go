package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rewrz/word-soul/internal/model"
)

// ErrAuthRejected means the server refused the credentials for a reason a
// refresh cannot fix. The pipeline has already cleared the store and run
// the logout hook by the time a caller sees this.
var ErrAuthRejected = errors.New("authentication rejected")

// APIError is a structured non-2xx response body
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("server error (%d): %s", e.Status, e.Message)
}

// Client talks to the word-soul API. Authenticated calls go through a
// pipeline that injects the bearer token and recovers transparently from
// access-token expiry: one shared refresh, one replay, never more.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *CredentialStore

	// refresh collapses concurrent expiry recoveries into one network call.
	refresh singleflight.Group

	onLogout func()
}

// New creates a client against baseURL (no trailing slash)
func New(baseURL string, creds *CredentialStore) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 120 * time.Second},
		creds:   creds,
	}
}

// OnLogout registers a hook invoked after a forced logout, so the
// presentation layer can drop back to the login view.
func (c *Client) OnLogout(fn func()) {
	c.onLogout = fn
}

// call issues one authenticated request and decodes a 2xx body into out.
// On 401 token_expired it runs the refresh protocol and replays the call
// exactly once; a second 401 of any kind forces logout instead of looping.
func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	status, payload, err := c.attempt(ctx, method, path, body, true)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized {
		if errorKind(payload) != model.ErrKindTokenExpired || !c.refreshAccess(ctx) {
			c.forceLogout()
			return ErrAuthRejected
		}

		status, payload, err = c.attempt(ctx, method, path, body, true)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.forceLogout()
			return ErrAuthRejected
		}
	}

	return decodeResponse(status, payload, out)
}

// attempt performs a single HTTP exchange. The bearer token is read fresh
// from the store on every attempt, never cached on the request path.
func (c *Client) attempt(ctx context.Context, method, path string, body interface{}, authed bool) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authed {
		if cred := c.creds.Get(); cred.AccessToken != "" {
			req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, payload, nil
}

// refreshAccess runs the refresh protocol. Concurrent callers share one
// outcome through the singleflight group; only the first expired call
// reaches the network. This call deliberately bypasses the authed
// pipeline so it can never trigger itself.
func (c *Client) refreshAccess(ctx context.Context) bool {
	ok, _, _ := c.refresh.Do("refresh", func() (interface{}, error) {
		cred := c.creds.Get()
		if cred.RefreshToken == "" {
			return false, nil
		}

		status, payload, err := c.attempt(ctx, http.MethodPost, "/api/refresh",
			model.RefreshRequest{RefreshToken: cred.RefreshToken}, false)
		if err != nil || status != http.StatusOK {
			return false, nil
		}

		var resp model.RefreshResponse
		if json.Unmarshal(payload, &resp) != nil || resp.AccessToken == "" {
			return false, nil
		}
		if c.creds.SetAccessToken(resp.AccessToken) != nil {
			return false, nil
		}
		return true, nil
	})
	return ok.(bool)
}

func (c *Client) forceLogout() {
	c.creds.Clear()
	if c.onLogout != nil {
		c.onLogout()
	}
}

func decodeResponse(status int, payload []byte, out interface{}) error {
	if status < 200 || status > 299 {
		apiErr := &APIError{Status: status, Message: "request failed"}
		var er model.ErrorResponse
		if json.Unmarshal(payload, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.Details = er.Details
		}
		return apiErr
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func errorKind(payload []byte) string {
	var er model.ErrorResponse
	if json.Unmarshal(payload, &er) != nil {
		return ""
	}
	return er.Error
}
