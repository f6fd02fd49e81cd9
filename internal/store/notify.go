package store

import (
	"context"

	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/starhunt"
)

// Notifying wraps a Store and publishes a feed event after every
// committed write. Reads pass straight through.
type Notifying struct {
	Store
	pub feed.Publisher
}

// WithFeed returns s with change notification to pub.
func WithFeed(s Store, pub feed.Publisher) *Notifying {
	return &Notifying{Store: s, pub: pub}
}

func (n *Notifying) publishTeam(ctx context.Context, op feed.Op, p starhunt.TeamProfile) {
	for _, ev := range feed.TeamEvents(op, p) {
		n.pub.Publish(ctx, ev)
	}
}

func (n *Notifying) CreateTeam(ctx context.Context, name, passwordHash string, role starhunt.Role) (starhunt.TeamProfile, error) {
	p, err := n.Store.CreateTeam(ctx, name, passwordHash, role)
	if err == nil {
		n.publishTeam(ctx, feed.OpInsert, p)
	}
	return p, err
}

func (n *Notifying) SaveProgress(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error) {
	saved, err := n.Store.SaveProgress(ctx, p)
	if err == nil {
		n.publishTeam(ctx, feed.OpUpdate, saved)
	}
	return saved, err
}

func (n *Notifying) SaveProgressIf(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error) {
	saved, err := n.Store.SaveProgressIf(ctx, p)
	if err == nil {
		n.publishTeam(ctx, feed.OpUpdate, saved)
	}
	return saved, err
}

func (n *Notifying) MarkForgotPassword(ctx context.Context, name string) (starhunt.TeamProfile, bool, error) {
	p, changed, err := n.Store.MarkForgotPassword(ctx, name)
	if err == nil && changed {
		n.publishTeam(ctx, feed.OpUpdate, p)
	}
	return p, changed, err
}

func (n *Notifying) AddRequest(ctx context.Context, req starhunt.VerificationRequest) (starhunt.VerificationRequest, error) {
	saved, err := n.Store.AddRequest(ctx, req)
	if err == nil {
		n.pub.Publish(ctx, feed.RequestEvent(feed.OpInsert, saved))
	}
	return saved, err
}

func (n *Notifying) DecideRequest(ctx context.Context, id string, status starhunt.Status) (starhunt.VerificationRequest, error) {
	r, err := n.Store.DecideRequest(ctx, id, status)
	if err == nil {
		n.pub.Publish(ctx, feed.RequestEvent(feed.OpUpdate, r))
	}
	return r, err
}

func (n *Notifying) SetConfig(ctx context.Context, cfg starhunt.GameConfig) (starhunt.GameConfig, error) {
	saved, err := n.Store.SetConfig(ctx, cfg)
	if err == nil {
		n.pub.Publish(ctx, feed.ConfigEvent(saved))
	}
	return saved, err
}

var _ Store = (*Notifying)(nil)
