package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/you/padel-booking/pkg/clock"
	"github.com/you/padel-booking/pkg/events"
	"github.com/you/padel-booking/pkg/obs"
	"github.com/you/padel-booking/services/booking-service/internal/repository"
)

// DefaultHoldTTL is how long a pending hold keeps its slot.
const DefaultHoldTTL = 30 * time.Minute

// EventPublisher is satisfied by *mq.Publisher. A nil EventPublisher disables
// events.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Sweeper deletes pending holds older than the hold window. Callers run it
// before any occupancy read or write, so a stale hold is visible for at most
// one request.
type Sweeper struct {
	repo   *repository.ReservationRepo
	clock  clock.Clock
	window time.Duration
	pub    EventPublisher
	log    *slog.Logger
}

func NewSweeper(repo *repository.ReservationRepo, clk clock.Clock, window time.Duration, pub EventPublisher, logger *slog.Logger) *Sweeper {
	if clk == nil {
		clk = clock.Real()
	}
	if window <= 0 {
		window = DefaultHoldTTL
	}
	if logger == nil {
		logger = obs.Discard()
	}
	return &Sweeper{
		repo:   repo,
		clock:  clk,
		window: window,
		pub:    pub,
		log:    logger.With("component", "sweeper"),
	}
}

// Cutoff is the creation time before which a pending hold is dead.
func (s *Sweeper) Cutoff() time.Time {
	return s.clock.Now().Add(-s.window)
}

func (s *Sweeper) Now() time.Time { return s.clock.Now() }

func (s *Sweeper) Sweep(ctx context.Context, scope repository.Scope) (int64, error) {
	n, err := s.repo.Sweep(ctx, s.Cutoff(), scope)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired holds removed", "count", n, "court_id", scope.CourtID, "date", scope.Date)
		publish(ctx, s.pub, s.log, events.RKBookingExpired, events.HoldsExpired{
			Count:   n,
			CourtID: scope.CourtID,
			Date:    scope.Date,
		})
	}
	return n, nil
}

// Run sweeps the whole table every interval until ctx is done. It is optional;
// readers already sweep what they touch. A non-positive interval returns
// immediately.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := s.Sweep(ctx, repository.Scope{}); err != nil {
				s.log.Error("background sweep failed", "err", err)
			}
		}
	}
}

func publish(ctx context.Context, pub EventPublisher, log *slog.Logger, key string, v any) {
	if pub == nil {
		return
	}
	if err := pub.PublishJSON(ctx, key, v); err != nil {
		log.Warn("publish failed", "key", key, "err", err)
	}
}
