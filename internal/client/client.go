package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rewrz/word-soul/internal/model"
)

// Register creates a new account
func (c *Client) Register(ctx context.Context, username, password string) error {
	status, payload, err := c.attempt(ctx, http.MethodPost, "/api/register",
		model.RegisterRequest{Username: username, Password: password}, false)
	if err != nil {
		return err
	}
	return decodeResponse(status, payload, nil)
}

// Login authenticates and stores the resulting token pair
func (c *Client) Login(ctx context.Context, username, password string) error {
	status, payload, err := c.attempt(ctx, http.MethodPost, "/api/login",
		model.LoginRequest{Username: username, Password: password}, false)
	if err != nil {
		return err
	}

	var resp model.LoginResponse
	if err := decodeResponse(status, payload, &resp); err != nil {
		return err
	}
	if err := c.creds.SetCredential(resp.AccessToken, resp.RefreshToken); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// Logout revokes the refresh token server-side and clears local
// credentials regardless of the server's answer.
func (c *Client) Logout(ctx context.Context) error {
	cred := c.creds.Get()
	if cred.RefreshToken != "" {
		c.attempt(ctx, http.MethodPost, "/api/logout",
			model.LogoutRequest{RefreshToken: cred.RefreshToken}, false)
	}
	return c.creds.Clear()
}

// Sessions lists the user's game sessions, most recent first
func (c *Client) Sessions(ctx context.Context) ([]model.SessionSummary, error) {
	var out []model.SessionSummary
	if err := c.call(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Session loads one session for playing
func (c *Client) Session(ctx context.Context, id int64) (*model.SessionDetail, error) {
	var out model.SessionDetail
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/sessions/%d", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteSession removes a session permanently
func (c *Client) DeleteSession(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/sessions/%d", id), nil, nil)
}

// TakeAction submits one player action and returns the narrator's turn
func (c *Client) TakeAction(ctx context.Context, id int64, action string) (*model.ActionResponse, error) {
	var out model.ActionResponse
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%d/action", id),
		model.ActionRequest{Action: action}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SetAIConfig pins the session to one of the user's AI configs; nil
// reverts to the global default.
func (c *Client) SetAIConfig(ctx context.Context, id int64, configID *int64) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%d/set-ai-config", id),
		model.SetAIConfigRequest{ConfigID: configID}, nil)
}

// UpdateNarrative rewrites one narrator entry, addressed by its server
// index (0 = newest).
func (c *Client) UpdateNarrative(ctx context.Context, id int64, narrative string, historyIndex int) error {
	return c.call(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%d/update_narrative", id),
		model.UpdateNarrativeRequest{Narrative: narrative, HistoryIndex: historyIndex}, nil)
}

// CreateWorld submits the creation form and returns the new world's first
// session id.
func (c *Client) CreateWorld(ctx context.Context, req *model.CreateWorldRequest) (*model.CreateWorldResponse, error) {
	var out model.CreateWorldResponse
	if err := c.call(ctx, http.MethodPost, "/api/worlds", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssistWorld asks the AI to complete a partial creation form
func (c *Client) AssistWorld(ctx context.Context, req *model.AssistWorldRequest) (*model.AssistWorldResponse, error) {
	var out model.AssistWorldResponse
	if err := c.call(ctx, http.MethodPost, "/api/worlds/assist", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AIConfigs lists the user's narrator configurations
func (c *Client) AIConfigs(ctx context.Context) ([]model.AIConfig, error) {
	var out []model.AIConfig
	if err := c.call(ctx, http.MethodGet, "/api/ai-configs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAIConfig adds a narrator configuration
func (c *Client) CreateAIConfig(ctx context.Context, req *model.AIConfigRequest) error {
	return c.call(ctx, http.MethodPost, "/api/ai-configs", req, nil)
}

// UpdateAIConfig patches a narrator configuration
func (c *Client) UpdateAIConfig(ctx context.Context, id int64, req *model.AIConfigRequest) error {
	return c.call(ctx, http.MethodPut, fmt.Sprintf("/api/ai-configs/%d", id), req, nil)
}

// DeleteAIConfig removes a narrator configuration
func (c *Client) DeleteAIConfig(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/ai-configs/%d", id), nil, nil)
}
