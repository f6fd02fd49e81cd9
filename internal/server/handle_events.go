package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/metrics"
	"github.com/playperu/starhunt/internal/starhunt"
)

const pingInterval = 30 * time.Second

// subscription is one feed connection: the topics it listens on and, for
// players, the exact team name its team events must carry.
type subscription struct {
	ch     chan feed.Event
	topics []string
	team   string
}

func (s subscription) wants(ev feed.Event) bool {
	if s.team == "" || ev.Team == nil || ev.Topic == feed.TopicConfig {
		return true
	}
	return ev.Team.Name == s.team
}

// subscribe authenticates the stream and registers it with the broker.
// Players get their team topic and the config topic; admins get the admin
// topic and the config topic.
func subscribe(ctx context.Context, svc *hunt.Service, broker *feed.Broker, token string) (subscription, error) {
	sess, err := svc.Authenticate(ctx, token)
	if err != nil {
		return subscription{}, err
	}

	var sub subscription
	if sess.Role == starhunt.RoleAdmin {
		sub.topics = []string{feed.TopicAdmin, feed.TopicConfig}
	} else {
		state, err := svc.State(ctx, sess.TeamID)
		if err != nil {
			return subscription{}, err
		}
		sub.team = state.Profile.Name
		sub.topics = []string{feed.TeamTopic(sub.team), feed.TopicConfig}
	}

	sub.ch = broker.Subscribe(sub.topics...)
	metrics.FeedSubscribers.Inc()
	return sub, nil
}

func unsubscribe(broker *feed.Broker, sub subscription) {
	broker.Unsubscribe(sub.ch, sub.topics...)
	metrics.FeedSubscribers.Dec()
}

func handleEvents(svc *hunt.Service, broker *feed.Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := streamToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "token query parameter required")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		sub, err := subscribe(r.Context(), svc, broker, token)
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		defer unsubscribe(broker, sub)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev := <-sub.ch:
				if !sub.wants(ev) {
					continue
				}
				data, err := json.Marshal(ev)
				if err != nil {
					logger.Error("encoding feed event", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind(), data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

func handleEventsWS(svc *hunt.Service, broker *feed.Broker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub, err := subscribe(r.Context(), svc, broker, streamToken(r))
		if err != nil {
			writeServiceError(w, logger, err)
			return
		}
		defer unsubscribe(broker, sub)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// The feed is one-way; CloseRead handles control frames and cancels
		// ctx once the client goes away.
		ctx := conn.CloseRead(r.Context())

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-sub.ch:
				if !sub.wants(ev) {
					continue
				}
				if err := wsjson.Write(ctx, conn, ev); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				if err := conn.Ping(ctx); err != nil {
					return
				}
			}
		}
	}
}
