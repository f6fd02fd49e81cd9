package hunt

import (
	"context"
	"fmt"

	"github.com/playperu/starhunt/internal/metrics"
	"github.com/playperu/starhunt/internal/starhunt"
)

// Decided is the result of an admin decision. Team is set when an approval changed it.
type Decided struct {
	Request starhunt.VerificationRequest `json:"request"`
	Team    *starhunt.TeamProfile        `json:"team,omitempty"`
}

// Decide applies an admin decision to a pending request. The terminal
// status is written first and only once; on approval the team is then
// re-fetched from the store and the award merged into that fresh copy.
func (s *Service) Decide(ctx context.Context, requestID string, d starhunt.Decision) (Decided, error) {
	status, err := d.Status()
	if err != nil {
		return Decided{}, err
	}

	wctx, cancel := detach(ctx)
	defer cancel()

	req, err := s.store.DecideRequest(wctx, requestID, status)
	if err != nil {
		return Decided{}, err
	}
	metrics.Decisions.WithLabelValues(string(d)).Inc()
	s.logger.Info("request decided", "id", req.ID, "team", req.TeamName, "type", req.Kind, "status", req.Status)

	if d != starhunt.DecisionApprove {
		return Decided{Request: req}, nil
	}

	latest, err := s.store.TeamByName(wctx, req.TeamName)
	if err != nil {
		s.logger.Error("approval merge: loading team", "team", req.TeamName, "id", req.ID, "error", err)
		return Decided{Request: req}, fmt.Errorf("loading team %q: %w", req.TeamName, err)
	}
	next := starhunt.ApplyApproval(latest, req, s.catalog)
	saved, err := s.saveTeam(wctx, next, func(latest starhunt.TeamProfile) (starhunt.TeamProfile, error) {
		return starhunt.ApplyApproval(latest, req, s.catalog), nil
	})
	if err != nil {
		metrics.WriteFailures.WithLabelValues("approval").Inc()
		s.logger.Error("approval merge: saving team", "team", req.TeamName, "id", req.ID, "error", err)
		return Decided{Request: req}, fmt.Errorf("saving team %q: %w", req.TeamName, err)
	}
	return Decided{Request: req, Team: &saved}, nil
}

// ListRequests returns the queue newest first, optionally by status.
func (s *Service) ListRequests(ctx context.Context, status starhunt.Status) ([]starhunt.VerificationRequest, error) {
	switch status {
	case "", starhunt.StatusPending, starhunt.StatusApproved, starhunt.StatusAutoVerified, starhunt.StatusRejected:
	default:
		return nil, &starhunt.ValidationError{Message: fmt.Sprintf("unknown status %q", status)}
	}
	return s.store.ListRequests(ctx, status)
}

// Leaderboard returns player teams by points, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]starhunt.TeamProfile, error) {
	return s.store.ListTeams(ctx)
}

func (s *Service) Config(ctx context.Context) (starhunt.GameConfig, error) {
	return s.store.Config(ctx)
}

func (s *Service) SetConfig(ctx context.Context, cfg starhunt.GameConfig) (starhunt.GameConfig, error) {
	saved, err := s.store.SetConfig(ctx, cfg)
	if err != nil {
		return saved, err
	}
	s.logger.Info("game config updated", "sections_1_2_unlocked", saved.Sections12Unlocked, "section_3_unlocked", saved.Section3Unlocked)
	return saved, nil
}
