package client

import (
	"context"
	"net/http"

	"github.com/playperu/starhunt/internal/session"
	"github.com/playperu/starhunt/internal/starhunt"
)

type loginResponse struct {
	Token   string               `json:"token"`
	Profile starhunt.TeamProfile `json:"profile"`
}

// Register creates a team. The player still has to log in afterwards.
func (c *Client) Register(ctx context.Context, name, pin, confirmPin string) (starhunt.TeamProfile, error) {
	// Reject locally what the server would reject anyway.
	if _, err := starhunt.ValidateRegistration(name, pin, confirmPin); err != nil {
		return starhunt.TeamProfile{}, err
	}
	var out struct {
		Profile starhunt.TeamProfile `json:"profile"`
	}
	body := map[string]string{"name": name, "pin": pin, "confirmPin": confirmPin}
	if err := c.do(ctx, http.MethodPost, "/api/register", body, &out); err != nil {
		return starhunt.TeamProfile{}, err
	}
	return out.Profile, nil
}

// Login authenticates a team and starts a session on the section screen.
func (c *Client) Login(ctx context.Context, name, pin string) (session.State, error) {
	var out loginResponse
	body := map[string]string{"name": name, "pin": pin}
	if err := c.do(ctx, http.MethodPost, "/api/login", body, &out); err != nil {
		return c.session.State(), err
	}
	return c.startSession(ctx, out, session.ScreenSections)
}

// AdminLogin authenticates the admin console.
func (c *Client) AdminLogin(ctx context.Context, pin string) (session.State, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "/api/admin/login", map[string]string{"pin": pin}, &out); err != nil {
		return c.session.State(), err
	}
	return c.startSession(ctx, out, session.ScreenAdmin)
}

func (c *Client) startSession(ctx context.Context, l loginResponse, screen session.Screen) (session.State, error) {
	st, err := c.session.Update(ctx, func(st *session.State) error {
		p := l.Profile
		st.Profile = &p
		st.Token = l.Token
		st.Screen = screen
		return nil
	})
	if err != nil {
		return st, err
	}
	if cfg, err := c.FetchConfig(ctx); err == nil {
		c.setConfig(cfg)
	}
	return st, nil
}

// Logout ends the server session and clears the local one. The local
// session is cleared even if the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	path := "/api/logout"
	if c.session.State().Screen == session.ScreenAdmin {
		path = "/api/admin/logout"
	}
	remoteErr := c.do(ctx, http.MethodPost, path, nil, nil)
	if remoteErr != nil {
		c.logger.Warn("logout request failed", "error", remoteErr)
	}
	return c.session.Reset(ctx)
}

// ForgotPassword checks whether the one-time warning can be issued for a
// team and, with confirm, issues it. It returns the warning text.
func (c *Client) ForgotPassword(ctx context.Context, name string, confirm bool) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	body := map[string]any{"name": name, "confirm": confirm}
	if err := c.do(ctx, http.MethodPost, "/api/forgot-password", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// FetchConfig reads the global unlock switches.
func (c *Client) FetchConfig(ctx context.Context) (starhunt.GameConfig, error) {
	var cfg starhunt.GameConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
