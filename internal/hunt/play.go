package hunt

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/starhunt/internal/metrics"
	"github.com/playperu/starhunt/internal/starhunt"
)

// State is everything a player screen renders from.
type State struct {
	Profile  starhunt.TeamProfile `json:"profile"`
	Config   starhunt.GameConfig  `json:"config"`
	Sections map[int]bool         `json:"sections"`
}

// withPointingFlag fills the client-held pointing flag from the queue.
func (s *Service) withPointingFlag(ctx context.Context, p starhunt.TeamProfile) (starhunt.TeamProfile, error) {
	has, err := s.store.HasPointingRequest(ctx, p.Name)
	if err != nil {
		return p, fmt.Errorf("checking pointing requests: %w", err)
	}
	p.HasRequestedPointing = has
	return p, nil
}

func (s *Service) load(ctx context.Context, teamID string) (starhunt.TeamProfile, starhunt.GameConfig, error) {
	p, err := s.store.TeamByID(ctx, teamID)
	if err != nil {
		return p, starhunt.GameConfig{}, err
	}
	p, err = s.withPointingFlag(ctx, p)
	if err != nil {
		return p, starhunt.GameConfig{}, err
	}
	cfg, err := s.store.Config(ctx)
	if err != nil {
		return p, cfg, fmt.Errorf("loading config: %w", err)
	}
	return p, cfg, nil
}

func (s *Service) State(ctx context.Context, teamID string) (State, error) {
	p, cfg, err := s.load(ctx, teamID)
	if err != nil {
		return State{}, err
	}
	return State{Profile: p, Config: cfg, Sections: s.catalog.SectionGates(p, cfg)}, nil
}

// SelectSection checks the gate for section and returns the profile
// positioned on it. The current section is client-held and not stored.
func (s *Service) SelectSection(ctx context.Context, teamID string, section int) (starhunt.TeamProfile, error) {
	p, cfg, err := s.load(ctx, teamID)
	if err != nil {
		return p, err
	}
	ok, err := s.catalog.SectionUnlocked(section, p, cfg)
	if err != nil {
		return p, err
	}
	if !ok {
		return p, fmt.Errorf("%w: section %d", starhunt.ErrSectionLocked, section)
	}
	p.CurrentSection = section
	return p, nil
}

// Submit evaluates an answer on the stored team and persists the result.
// The team write and the queue entry are issued together; both must
// succeed for Submit to succeed.
func (s *Service) Submit(ctx context.Context, teamID string, pos starhunt.Position, answer string) (starhunt.Result, error) {
	p, cfg, err := s.load(ctx, teamID)
	if err != nil {
		return starhunt.Result{}, err
	}
	ok, err := s.catalog.SectionUnlocked(pos.Section, p, cfg)
	if err != nil {
		return starhunt.Result{}, err
	}
	if !ok {
		return starhunt.Result{}, fmt.Errorf("%w: section %d", starhunt.ErrSectionLocked, pos.Section)
	}

	sub := starhunt.Submission{Position: pos, Answer: answer, At: s.now()}
	res, err := starhunt.Submit(p, s.catalog, sub)
	if err != nil {
		return starhunt.Result{}, err
	}
	metrics.Submissions.WithLabelValues(strconv.Itoa(pos.Section), string(res.Outcome)).Inc()
	if res.Request == nil {
		return res, nil
	}

	wctx, cancel := detach(ctx)
	defer cancel()

	if s.cas {
		return s.submitCAS(wctx, res, sub)
	}

	// A plain group: one write failing must not cancel the other.
	var (
		saved starhunt.TeamProfile
		g     errgroup.Group
	)
	g.Go(func() error {
		var err error
		saved, err = s.store.SaveProgress(wctx, res.Profile)
		if err != nil {
			metrics.WriteFailures.WithLabelValues("team").Inc()
			return fmt.Errorf("saving team: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		req, err := s.store.AddRequest(wctx, *res.Request)
		if err != nil {
			metrics.WriteFailures.WithLabelValues("request").Inc()
			return fmt.Errorf("queueing request: %w", err)
		}
		res.Request = &req
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("submit write failed", "team", p.Name, "section", pos.Section, "index", pos.Index, "error", err)
		return res, err
	}

	res.Profile = carryClientFields(saved, res.Profile)
	s.logger.Info("answer submitted", "team", p.Name, "section", pos.Section, "index", pos.Index, "outcome", res.Outcome)
	return res, nil
}

// submitCAS saves the team first, recomputing on version conflicts, and
// only queues the entry of the result that was actually written.
func (s *Service) submitCAS(ctx context.Context, res starhunt.Result, sub starhunt.Submission) (starhunt.Result, error) {
	final := res
	saved, err := s.saveTeam(ctx, res.Profile, func(latest starhunt.TeamProfile) (starhunt.TeamProfile, error) {
		latest.HasRequestedPointing = res.Profile.HasRequestedPointing
		r, err := starhunt.Submit(latest, s.catalog, sub)
		if err != nil {
			return latest, err
		}
		final = r
		return r.Profile, nil
	})
	if err != nil {
		metrics.WriteFailures.WithLabelValues("team").Inc()
		s.logger.Error("submit write failed", "team", res.Profile.Name, "error", err)
		return final, fmt.Errorf("saving team: %w", err)
	}
	final.Profile = carryClientFields(saved, final.Profile)
	if final.Request == nil {
		return final, nil
	}
	req, err := s.store.AddRequest(ctx, *final.Request)
	if err != nil {
		metrics.WriteFailures.WithLabelValues("request").Inc()
		s.logger.Error("queueing request failed", "team", res.Profile.Name, "error", err)
		return final, fmt.Errorf("queueing request: %w", err)
	}
	final.Request = &req
	return final, nil
}

// carryClientFields copies the fields the store does not hold from the
// computed profile onto the saved one.
func carryClientFields(saved, computed starhunt.TeamProfile) starhunt.TeamProfile {
	saved.CurrentSection = computed.CurrentSection
	saved.HasRequestedPointing = computed.HasRequestedPointing
	return saved
}

// RequestPointing nominates a solved section-1 subject for telescope
// verification. A team gets one pointing request for the whole hunt.
func (s *Service) RequestPointing(ctx context.Context, teamID, subject string) (starhunt.TeamProfile, starhunt.VerificationRequest, error) {
	p, _, err := s.load(ctx, teamID)
	if err != nil {
		return p, starhunt.VerificationRequest{}, err
	}
	next, req, err := starhunt.RequestPointing(p, s.catalog, subject, s.now())
	if err != nil {
		return p, starhunt.VerificationRequest{}, err
	}

	wctx, cancel := detach(ctx)
	defer cancel()
	saved, err := s.store.AddRequest(wctx, req)
	if err != nil {
		metrics.WriteFailures.WithLabelValues("request").Inc()
		s.logger.Error("queueing pointing request failed", "team", p.Name, "error", err)
		return p, req, fmt.Errorf("queueing pointing request: %w", err)
	}
	s.logger.Info("pointing requested", "team", p.Name, "subject", saved.SubjectName)
	return next, saved, nil
}
