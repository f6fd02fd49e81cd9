// Package feed is the push channel between the authoritative store and
// connected clients. Writes are published as typed change events on named
// topics; clients fold them into their local state with Reduce.
package feed

import (
	"strings"

	"github.com/playperu/starhunt/internal/starhunt"
)

type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Origin tags who produced the state an event carries. Events from the
// server are always remote; local events are a client's own optimistic
// results fed through the same reducer.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginRemote Origin = "remote"
)

const (
	TopicConfig = "game_config"
	TopicAdmin  = "admin"

	teamTopicPrefix = "team_sync_"
)

// TeamTopic returns the channel name for a team. Anything outside
// [a-zA-Z0-9] becomes an underscore, so distinct names may share a topic;
// subscribers filter on the exact name.
func TeamTopic(name string) string {
	var b strings.Builder
	b.Grow(len(teamTopicPrefix) + len(name))
	b.WriteString(teamTopicPrefix)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Event is one committed change. Exactly one of Team, Config and Request
// is set.
type Event struct {
	Topic   string                        `json:"topic"`
	Op      Op                            `json:"op"`
	Origin  Origin                        `json:"origin"`
	Team    *starhunt.TeamProfile         `json:"team,omitempty"`
	Config  *starhunt.GameConfig          `json:"config,omitempty"`
	Request *starhunt.VerificationRequest `json:"request,omitempty"`
}

// Kind names the payload for transports that label frames, such as SSE.
func (e Event) Kind() string {
	switch {
	case e.Team != nil:
		return "team"
	case e.Config != nil:
		return "config"
	case e.Request != nil:
		return "request"
	}
	return "unknown"
}

// TeamEvents builds the events for a team row change: one on the team's
// own topic and one on the admin topic for the leaderboard.
func TeamEvents(op Op, p starhunt.TeamProfile) []Event {
	own := p.Clone()
	admin := p.Clone()
	return []Event{
		{Topic: TeamTopic(p.Name), Op: op, Origin: OriginRemote, Team: &own},
		{Topic: TopicAdmin, Op: op, Origin: OriginRemote, Team: &admin},
	}
}

// ConfigEvent builds the event for a config change.
func ConfigEvent(cfg starhunt.GameConfig) Event {
	return Event{Topic: TopicConfig, Op: OpUpdate, Origin: OriginRemote, Config: &cfg}
}

// RequestEvent builds the admin-topic event for a verification queue change.
func RequestEvent(op Op, req starhunt.VerificationRequest) Event {
	return Event{Topic: TopicAdmin, Op: op, Origin: OriginRemote, Request: &req}
}
