package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisChannel is the pub/sub channel shared by all server instances.
const RedisChannel = "starhunt:feed"

type envelope struct {
	Instance string `json:"instance"`
	Event    Event  `json:"event"`
}

// RedisBridge fans events out to other server instances. Publish delivers
// locally first, then forwards through Redis; Run delivers events from
// other instances into the local broker.
type RedisBridge struct {
	local    *Broker
	rdb      *redis.Client
	instance string
	logger   *slog.Logger
}

func NewRedisBridge(local *Broker, rdb *redis.Client, logger *slog.Logger) *RedisBridge {
	return &RedisBridge{
		local:    local,
		rdb:      rdb,
		instance: uuid.NewString(),
		logger:   logger,
	}
}

func (r *RedisBridge) Publish(ctx context.Context, ev Event) {
	r.local.Publish(ctx, ev)

	payload, err := json.Marshal(envelope{Instance: r.instance, Event: ev})
	if err != nil {
		r.logger.Error("encoding feed event", "topic", ev.Topic, "error", err)
		return
	}
	if err := r.rdb.Publish(ctx, RedisChannel, payload).Err(); err != nil {
		r.logger.Error("publishing feed event to redis", "topic", ev.Topic, "error", err)
	}
}

// Run relays events from other instances until ctx is done.
func (r *RedisBridge) Run(ctx context.Context) error {
	pubsub := r.rdb.Subscribe(ctx, RedisChannel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", RedisChannel, err)
	}
	r.logger.Info("feed bridge subscribed", "channel", RedisChannel, "instance", r.instance)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.relay(ctx, msg.Payload)
		}
	}
}

func (r *RedisBridge) relay(ctx context.Context, payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		r.logger.Warn("dropping malformed feed message", "error", err)
		return
	}
	if env.Instance == r.instance {
		return
	}
	r.local.Publish(ctx, env.Event)
}
