package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/session"
	"github.com/playperu/starhunt/internal/starhunt"
)

// GameState is the server's view of the logged-in team.
type GameState struct {
	Profile  starhunt.TeamProfile `json:"profile"`
	Config   starhunt.GameConfig  `json:"config"`
	Sections map[int]bool         `json:"sections"`
}

// Riddle is a riddle as served to players, with the team's progress on it.
type Riddle struct {
	Index     int      `json:"index"`
	Subject   string   `json:"subject"`
	Name      string   `json:"name,omitempty"`
	Prompt    string   `json:"prompt"`
	ImageURLs []string `json:"imageUrls,omitempty"`
	Hints     []string `json:"hints,omitempty"`
	Telescope bool     `json:"telescope,omitempty"`
	Solved    bool     `json:"solved"`
	Attempts  int      `json:"attempts"`
	Locked    bool     `json:"locked"`
}

// Refresh replaces the local profile and config with the server's.
func (c *Client) Refresh(ctx context.Context) (GameState, error) {
	if !c.session.State().LoggedIn() {
		return GameState{}, session.ErrLoggedOut
	}
	var gs GameState
	if err := c.do(ctx, http.MethodGet, "/api/game/state", nil, &gs); err != nil {
		return gs, err
	}
	c.setConfig(gs.Config)
	_, err := c.session.Update(ctx, func(st *session.State) error {
		mergeProfile(st, gs.Profile)
		return nil
	})
	return gs, err
}

// SectionUnlocked evaluates the gate on the local session and the last seen
// config.
func (c *Client) SectionUnlocked(section int) (bool, error) {
	st := c.session.State()
	if !st.LoggedIn() {
		return false, session.ErrLoggedOut
	}
	return c.catalog.SectionUnlocked(section, *st.Profile, c.Config())
}

// SelectSection enters a section. The server checks the gate on the
// authoritative profile; on success the session moves to the riddle screen.
func (c *Client) SelectSection(ctx context.Context, section int) ([]Riddle, error) {
	if !c.session.State().LoggedIn() {
		return nil, session.ErrLoggedOut
	}
	var out struct {
		Profile starhunt.TeamProfile `json:"profile"`
		Riddles []Riddle             `json:"riddles"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/game/sections/%d", section), nil, &out); err != nil {
		return nil, err
	}
	// The gate may have opened by admin override; keep the local copy in step.
	if cfg, err := c.FetchConfig(ctx); err == nil {
		c.setConfig(cfg)
	}
	_, err := c.session.Update(ctx, func(st *session.State) error {
		mergeProfile(st, out.Profile)
		st.Profile.CurrentSection = section
		st.Screen = session.ScreenRiddles
		return nil
	})
	return out.Riddles, err
}

// Back returns from the riddle screen to section selection.
func (c *Client) Back(ctx context.Context) error {
	_, err := c.session.Update(ctx, func(st *session.State) error {
		if !st.LoggedIn() {
			return session.ErrLoggedOut
		}
		st.Profile.CurrentSection = 0
		st.Screen = session.ScreenSections
		return nil
	})
	return err
}

// Submit evaluates an answer locally, saves the result to the session and
// then sends the durable write. The returned result is the local one. A
// failed write is returned as an error but the local progress is kept.
func (c *Client) Submit(ctx context.Context, section, index int, answer string) (starhunt.Result, error) {
	var local starhunt.Result
	_, err := c.session.Update(ctx, func(st *session.State) error {
		if !st.LoggedIn() {
			return session.ErrLoggedOut
		}
		ok, err := c.catalog.SectionUnlocked(section, *st.Profile, c.Config())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: section %d", starhunt.ErrSectionLocked, section)
		}
		sub := starhunt.Submission{
			Position: starhunt.Position{Section: section, Index: index},
			Answer:   answer,
			At:       c.now(),
		}
		res, err := starhunt.Submit(*st.Profile, c.catalog, sub)
		if err != nil {
			return err
		}
		local = res
		c.apply(st, feed.Event{Op: feed.OpUpdate, Origin: feed.OriginLocal, Team: &res.Profile})
		return nil
	})
	if err != nil {
		return local, err
	}
	if local.Request == nil {
		return local, nil
	}

	wctx, cancel := c.detach(ctx)
	defer cancel()

	var remote starhunt.Result
	body := map[string]any{"section": section, "index": index, "answer": answer}
	if err := c.do(wctx, http.MethodPost, "/api/game/answer", body, &remote); err != nil {
		c.logger.Error("answer not saved, keeping local progress", "section", section, "index", index, "error", err)
		return local, fmt.Errorf("saving answer: %w", err)
	}
	if _, err := c.session.Update(ctx, func(st *session.State) error {
		mergeProfile(st, remote.Profile)
		return nil
	}); err != nil {
		c.logger.Error("saving confirmed profile", "error", err)
	}
	return local, nil
}

// RequestPointing nominates a solved section 1 star, by slug, for telescope
// verification. The one-shot flag is set locally before the request is
// sent and is not rolled back on failure.
func (c *Client) RequestPointing(ctx context.Context, subject string) (starhunt.VerificationRequest, error) {
	var req starhunt.VerificationRequest
	_, err := c.session.Update(ctx, func(st *session.State) error {
		if !st.LoggedIn() {
			return session.ErrLoggedOut
		}
		next, r, err := starhunt.RequestPointing(*st.Profile, c.catalog, subject, c.now())
		if err != nil {
			return err
		}
		req = r
		c.apply(st, feed.Event{Op: feed.OpUpdate, Origin: feed.OriginLocal, Team: &next})
		return nil
	})
	if err != nil {
		return req, err
	}

	wctx, cancel := c.detach(ctx)
	defer cancel()

	var out struct {
		Request starhunt.VerificationRequest `json:"request"`
	}
	if err := c.do(wctx, http.MethodPost, "/api/game/pointing", map[string]string{"subject": subject}, &out); err != nil {
		c.logger.Error("pointing request not saved", "subject", subject, "error", err)
		return req, fmt.Errorf("requesting pointing: %w", err)
	}
	return out.Request, nil
}
