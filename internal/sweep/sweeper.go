// Package sweep implements the periodic expiry job for the booking and
// consent lifecycle. Each pass cancels holds past their expiry, expires
// overdue RFPs, and expires offers whose validity window has closed.
//
// Every individual expiry is a conditional update ("still in hold AND past
// expiry") paired with its audit row in one transaction. Racing a legitimate
// confirmation makes the update affect zero rows; the sweep treats that as
// the expected outcome and moves on. Batches are capped and paced with a
// token-bucket limiter so a large backlog cannot monopolize the store.
package sweep

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/goaguide/go-trip-backend/internal/domain"
	"github.com/goaguide/go-trip-backend/internal/metrics"
	"github.com/goaguide/go-trip-backend/internal/repo"
)

const (
	defaultInterval = time.Minute
	defaultBatch    = 100
	defaultRPS      = 50
)

// Stats summarizes one sweep pass.
type Stats struct {
	HoldsCancelled int
	RFPsExpired    int
	OffersExpired  int
	Races          int
}

// Sweeper runs expiry passes against the store.
type Sweeper struct {
	DB  *gorm.DB
	Log zerolog.Logger

	// Interval is the pause between passes in Run.
	Interval time.Duration
	// Batch caps how many rows of each kind one pass touches.
	Batch int
	// Limiter paces individual expiry transactions.
	Limiter *rate.Limiter

	// Now returns the current instant; injectable for tests.
	Now func() time.Time

	mu      sync.Mutex
	running bool
}

// New constructs a Sweeper with production defaults.
func New(db *gorm.DB, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		DB:       db,
		Log:      log,
		Interval: defaultInterval,
		Batch:    defaultBatch,
		Limiter:  rate.NewLimiter(rate.Limit(defaultRPS), defaultBatch),
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run executes passes on the configured interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.Log.Error().Err(err).Msg("sweep pass failed")
			}
		}
	}
}

// SweepOnce runs one full pass. Overlapping passes are skipped rather than
// stacked; only one sweep touches the store at a time.
func (s *Sweeper) SweepOnce(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.Log.Debug().Msg("sweep already running, skipping pass")
		return Stats{}, nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	var stats Stats

	// One snapshot per pass; every audit row the pass writes records it.
	snap, err := repo.LoadFlagSnapshot(ctx, s.DB)
	if err == nil {
		err = s.sweepHolds(ctx, snap, &stats)
	}
	if err == nil {
		err = s.sweepRFPs(ctx, snap, &stats)
	}
	if err == nil {
		err = s.sweepOffers(ctx, snap, &stats)
	}

	metrics.SweepDuration.Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.SweepRunsTotal.WithLabelValues(outcome).Inc()

	s.Log.Info().
		Int("holds_cancelled", stats.HoldsCancelled).
		Int("rfps_expired", stats.RFPsExpired).
		Int("offers_expired", stats.OffersExpired).
		Int("races", stats.Races).
		Dur("took", time.Since(start)).
		Msg("sweep pass complete")
	return stats, err
}

func (s *Sweeper) sweepHolds(ctx context.Context, snap domain.FlagSnapshot, stats *Stats) error {
	now := s.Now()
	holds, err := repo.ListExpiredHolds(ctx, s.DB, now, s.Batch)
	if err != nil {
		return err
	}
	for i := range holds {
		b := holds[i]
		if err := s.wait(ctx); err != nil {
			return err
		}
		before := b
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.ExpireHold(ctx, tx, b.ID, now); err != nil {
				return err
			}
			b.Status = domain.BookingStatusCancelled
			b.CancelledAt = &now
			b.CancelReason = "hold expired"
			return appendSweepAudit(ctx, tx, domain.AuditBookingExpired, "booking", b.ID, before, b, snap)
		})
		if err == repo.ErrNotFound {
			// Confirmed (or cancelled) underneath us; the expected race.
			stats.Races++
			metrics.SweepRacesTotal.Inc()
			continue
		}
		if err != nil {
			return err
		}
		stats.HoldsCancelled++
		metrics.SweepExpiredTotal.WithLabelValues("booking").Inc()
		metrics.TransitionsTotal.WithLabelValues("booking", domain.AuditBookingExpired).Inc()
	}
	return nil
}

func (s *Sweeper) sweepRFPs(ctx context.Context, snap domain.FlagSnapshot, stats *Stats) error {
	now := s.Now()
	rfps, err := repo.ListExpiredRFPs(ctx, s.DB, now, s.Batch)
	if err != nil {
		return err
	}
	for i := range rfps {
		r := rfps[i]
		if err := s.wait(ctx); err != nil {
			return err
		}
		before := r
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.ExpireRFP(ctx, tx, r.ID, now); err != nil {
				return err
			}
			r.Status = domain.RFPStatusExpired
			return appendSweepAudit(ctx, tx, domain.AuditRFPExpired, "rfp", r.ID, before, r, snap)
		})
		if err == repo.ErrNotFound {
			stats.Races++
			metrics.SweepRacesTotal.Inc()
			continue
		}
		if err != nil {
			return err
		}
		stats.RFPsExpired++
		metrics.SweepExpiredTotal.WithLabelValues("rfp").Inc()
		metrics.TransitionsTotal.WithLabelValues("rfp", domain.AuditRFPExpired).Inc()
	}
	return nil
}

func (s *Sweeper) sweepOffers(ctx context.Context, snap domain.FlagSnapshot, stats *Stats) error {
	now := s.Now()
	offers, err := repo.ListExpiredOffers(ctx, s.DB, now, s.Batch)
	if err != nil {
		return err
	}
	for i := range offers {
		o := offers[i]
		if err := s.wait(ctx); err != nil {
			return err
		}
		before := o
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.ExpireOffer(ctx, tx, o.ID, now); err != nil {
				return err
			}
			o.Status = domain.OfferStatusExpired
			return appendSweepAudit(ctx, tx, domain.AuditOfferExpired, "offer", o.ID, before, o, snap)
		})
		if err == repo.ErrNotFound {
			stats.Races++
			metrics.SweepRacesTotal.Inc()
			continue
		}
		if err != nil {
			return err
		}
		stats.OffersExpired++
		metrics.SweepExpiredTotal.WithLabelValues("offer").Inc()
		metrics.TransitionsTotal.WithLabelValues("offer", domain.AuditOfferExpired).Inc()
	}
	return nil
}

func (s *Sweeper) wait(ctx context.Context) error {
	if s.Limiter == nil {
		return nil
	}
	return s.Limiter.Wait(ctx)
}
