// Package maintenance removes rows whose expiry plus a grace period has
// passed. The cutoff is always in the past relative to anything still
// consumable, so sweeps are safe alongside live traffic and each other.
package maintenance

import (
	"context"
	"log/slog"
	"time"
)

// Stores is the slice of the persistence layer the sweeper needs.
type Stores interface {
	DeleteExpiredMagicLinks(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredBookingTokens(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredPricingSessions(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteExpiredBookingSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

type Sweeper struct {
	stores   Stores
	log      *slog.Logger
	interval time.Duration
	grace    time.Duration
	now      func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewSweeper(stores Stores, log *slog.Logger, interval, grace time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if grace < 0 {
		grace = 0
	}
	return &Sweeper{
		stores:   stores,
		log:      log,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut down.
func (s *Sweeper) Start() {
	go s.run()
	s.log.Info("maintenance sweeper started", "interval", s.interval, "grace", s.grace)
}

// Stop blocks until any in-progress sweep finishes.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.log.Info("maintenance sweeper stopped")
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Sweep once on startup, then on the interval.
	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes everything past expiry + grace. Each table is independent;
// one failure doesn't stop the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	cutoff := s.now().Add(-s.grace)

	var total int64
	for _, step := range []struct {
		name string
		fn   func(context.Context, time.Time) (int64, error)
	}{
		{"magic_links", s.stores.DeleteExpiredMagicLinks},
		{"booking_tokens", s.stores.DeleteExpiredBookingTokens},
		{"pricing_sessions", s.stores.DeleteExpiredPricingSessions},
		{"booking_sessions", s.stores.DeleteExpiredBookingSessions},
	} {
		n, err := step.fn(ctx, cutoff)
		if err != nil {
			s.log.Error("sweep step failed", "table", step.name, "error", err)
			continue
		}
		total += n
	}

	s.log.Info("sweep completed", "deleted", total, "cutoff", cutoff)
}
