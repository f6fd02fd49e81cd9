// Package client talks to the starhunt server on behalf of one player or the
// admin. Player progress is applied locally first and saved to the session
// before the durable write is sent; a failed write is logged and the
// optimistic state is kept until the feed or the next refresh reconciles it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/playperu/starhunt/internal/session"
	"github.com/playperu/starhunt/internal/starhunt"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

type Options struct {
	HTTPClient *http.Client
	// Timeout bounds every remote call.
	Timeout time.Duration
	Catalog *starhunt.Catalog
	Now     func() time.Time
}

type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	session *session.Store
	catalog *starhunt.Catalog
	logger  *slog.Logger
	now     func() time.Time

	mu     sync.Mutex
	config starhunt.GameConfig
}

func New(baseURL string, sess *session.Store, logger *slog.Logger, opts Options) *Client {
	c := &Client{
		base:    strings.TrimRight(baseURL, "/"),
		http:    opts.HTTPClient,
		timeout: opts.Timeout,
		session: sess,
		catalog: opts.Catalog,
		logger:  logger,
		now:     opts.Now,
		config:  starhunt.GameConfig{Sections12Unlocked: true},
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.catalog == nil {
		c.catalog = starhunt.DefaultCatalog()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Session exposes the local session state.
func (c *Client) Session() session.State {
	return c.session.State()
}

// Config returns the last game config seen from the server.
func (c *Client) Config() starhunt.GameConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

func (c *Client) setConfig(cfg starhunt.GameConfig) {
	c.mu.Lock()
	c.config = cfg
	c.mu.Unlock()
}

// detach bounds a durable write without tying it to the caller's
// cancellation.
func (c *Client) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
}

// do sends a JSON request with the session token and decodes a 2xx body
// into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.State().Token; token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s: %w", method, path, err)
	}
	return nil
}

// mergeProfile takes an authoritative profile from the server while keeping
// the fields only the client holds.
func mergeProfile(st *session.State, remote starhunt.TeamProfile) {
	if st.Profile != nil {
		remote.CurrentSection = st.Profile.CurrentSection
		remote.HasRequestedPointing = remote.HasRequestedPointing || st.Profile.HasRequestedPointing
	}
	st.Profile = &remote
}
