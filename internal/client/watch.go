package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/session"
)

// apply folds ev into the session through the feed reducer. It must run
// inside session.Update.
func (c *Client) apply(st *session.State, ev feed.Event) {
	snap := feed.Reduce(feed.Snapshot{Profile: st.Profile, Config: c.Config()}, ev)
	st.Profile = snap.Profile
	c.setConfig(snap.Config)
}

func (c *Client) feedURL(token string) (string, error) {
	u, err := url.Parse(c.base + "/api/events/ws")
	if err != nil {
		return "", fmt.Errorf("parsing server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// Watch subscribes to the live feed and folds every event into the session
// until ctx ends or the connection drops. Players re-fetch their state once
// subscribed so nothing committed before the subscription is missed.
// onEvent, if non-nil, sees each event after it was applied.
func (c *Client) Watch(ctx context.Context, onEvent func(feed.Event)) error {
	st := c.session.State()
	if !st.LoggedIn() {
		return session.ErrLoggedOut
	}
	wsURL, err := c.feedURL(st.Token)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{HTTPClient: c.http})
	cancel()
	if err != nil {
		return fmt.Errorf("connecting to feed: %w", err)
	}
	defer conn.CloseNow()

	if st.Screen != session.ScreenAdmin {
		if _, err := c.Refresh(ctx); err != nil {
			c.logger.Warn("refreshing state after subscribe", "error", err)
		}
	}

	for {
		var ev feed.Event
		if err := wsjson.Read(ctx, conn, &ev); err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("reading feed: %w", err)
		}

		if _, err := c.session.Update(ctx, func(st *session.State) error {
			c.apply(st, ev)
			return nil
		}); err != nil {
			c.logger.Error("applying feed event", "topic", ev.Topic, "error", err)
		}
		c.logger.Debug("feed event", "topic", ev.Topic, "kind", ev.Kind(), "op", ev.Op)
		if onEvent != nil {
			onEvent(ev)
		}
	}
}

