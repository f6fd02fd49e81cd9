// Package hunt runs the progression engine against the authoritative store:
// team accounts, answer submission, pointing requests, section selection
// and the admin verification workflow.
package hunt

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/playperu/starhunt/internal/metrics"
	"github.com/playperu/starhunt/internal/starhunt"
	"github.com/playperu/starhunt/internal/store"
)

// AdminName is the reserved team name of the admin account.
const AdminName = "Admin"

// writeTimeout bounds durable writes, which run detached from the caller.
const writeTimeout = 10 * time.Second

// maxCASAttempts bounds compare-and-swap retries on version conflicts.
const maxCASAttempts = 5

var ErrWarningIssued = errors.New("forgot-password warning already issued")

type Options struct {
	// CompareAndSwap makes team writes conditional on the version that was
	// read, retrying on conflict. Off means last write wins.
	CompareAndSwap bool
	// Now overrides the clock used for request timestamps.
	Now func() time.Time
}

type Service struct {
	store   store.Store
	catalog *starhunt.Catalog
	logger  *slog.Logger
	cas     bool
	now     func() time.Time
}

func New(st store.Store, catalog *starhunt.Catalog, logger *slog.Logger, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:   st,
		catalog: catalog,
		logger:  logger,
		cas:     opts.CompareAndSwap,
		now:     now,
	}
}

func (s *Service) Catalog() *starhunt.Catalog {
	return s.catalog
}

// detach returns a context for durable writes that survives the caller
// going away but is still bounded.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
}

// saveTeam persists next. With compare-and-swap enabled, a version
// conflict re-fetches the team and recomputes next with recompute.
func (s *Service) saveTeam(ctx context.Context, next starhunt.TeamProfile, recompute func(latest starhunt.TeamProfile) (starhunt.TeamProfile, error)) (starhunt.TeamProfile, error) {
	if !s.cas {
		return s.store.SaveProgress(ctx, next)
	}
	for attempt := 1; ; attempt++ {
		saved, err := s.store.SaveProgressIf(ctx, next)
		if !errors.Is(err, store.ErrConflict) || attempt == maxCASAttempts {
			return saved, err
		}
		metrics.CASRetries.Inc()
		s.logger.Debug("team write conflict, retrying", "team", next.Name, "attempt", attempt)

		latest, err := s.store.TeamByID(ctx, next.ID)
		if err != nil {
			return starhunt.TeamProfile{}, err
		}
		if next, err = recompute(latest); err != nil {
			return starhunt.TeamProfile{}, err
		}
	}
}
