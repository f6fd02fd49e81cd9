package feed

import "github.com/playperu/starhunt/internal/starhunt"

// Snapshot is what a client renders from: its own profile, if logged in,
// and the latest game config.
type Snapshot struct {
	Profile *starhunt.TeamProfile
	Config  starhunt.GameConfig
}

// Reduce folds one event into s and returns the next snapshot.
//
// A local event replaces the profile outright. A remote team event for the
// same team overwrites only the fields the store carries. Current section
// and the pointing flag are client-held and survive every remote update.
// Deletes and events for other teams are ignored.
func Reduce(s Snapshot, ev Event) Snapshot {
	if ev.Config != nil && ev.Op != OpDelete {
		s.Config = *ev.Config
	}
	if ev.Team == nil || ev.Op == OpDelete || s.Profile == nil {
		return s
	}
	if ev.Team.Name != s.Profile.Name {
		return s
	}

	next := s.Profile.Clone()
	incoming := ev.Team.Clone()
	switch ev.Origin {
	case OriginLocal:
		next = incoming
	default:
		next.Points = incoming.Points
		next.StarsFound = incoming.StarsFound
		next.SolvedIndices = incoming.SolvedIndices
		next.Attempts = incoming.Attempts
		next.TabletDiscovered = incoming.TabletDiscovered
		next.ForgotPasswordIssued = incoming.ForgotPasswordIssued
		next.Version = incoming.Version
	}
	s.Profile = &next
	return s
}
