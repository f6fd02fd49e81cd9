package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/playperu/starhunt/internal/starhunt"
)

// Decided is the server's answer to an admin decision.
type Decided struct {
	Request starhunt.VerificationRequest `json:"request"`
	Team    *starhunt.TeamProfile        `json:"team,omitempty"`
}

// Requests lists the verification queue, newest first. An empty status
// lists everything.
func (c *Client) Requests(ctx context.Context, status starhunt.Status) ([]starhunt.VerificationRequest, error) {
	path := "/api/admin/requests"
	if status != "" {
		path += "?" + url.Values{"status": {string(status)}}.Encode()
	}
	var out []starhunt.VerificationRequest
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Decide approves or rejects a pending request.
func (c *Client) Decide(ctx context.Context, requestID string, d starhunt.Decision) (Decided, error) {
	wctx, cancel := c.detach(ctx)
	defer cancel()

	var out Decided
	body := map[string]starhunt.Decision{"decision": d}
	err := c.do(wctx, http.MethodPost, "/api/admin/requests/"+url.PathEscape(requestID)+"/decision", body, &out)
	return out, err
}

// Teams returns the leaderboard.
func (c *Client) Teams(ctx context.Context) ([]starhunt.TeamProfile, error) {
	var out []starhunt.TeamProfile
	err := c.do(ctx, http.MethodGet, "/api/admin/teams", nil, &out)
	return out, err
}

// SetConfig replaces the global unlock switches.
func (c *Client) SetConfig(ctx context.Context, cfg starhunt.GameConfig) (starhunt.GameConfig, error) {
	wctx, cancel := c.detach(ctx)
	defer cancel()

	var out starhunt.GameConfig
	if err := c.do(wctx, http.MethodPut, "/api/admin/config", cfg, &out); err != nil {
		return out, err
	}
	c.setConfig(out)
	return out, nil
}
