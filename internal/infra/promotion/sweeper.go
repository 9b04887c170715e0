package promotion

import (
	"context"
	"log/slog"
	"time"

	"venuebook/internal/domain/user"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/pkg/clock"
	"venuebook/internal/pkg/config"
	"venuebook/internal/pkg/metrics"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
)

const sweepBatchSize = 100

// Sweeper is the clock-driven complement to the lazy expiry checks: it
// reaps lapsed offers that nobody has touched, so stale offers cannot
// pin capacity indefinitely.
type Sweeper struct {
	uow    shared.UnitOfWork
	engine *Engine
	clock  clock.Clock
	cfg    config.BookingConfig
	logger *slog.Logger

	done chan struct{}
}

func NewSweeper(uow shared.UnitOfWork, engine *Engine, clk clock.Clock, cfg config.BookingConfig, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		uow:    uow,
		engine: engine,
		clock:  clk,
		cfg:    cfg,
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	close(s.done)
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				s.logger.Error("offer sweep failed", "error", err.Error())
			}
		}
	}
}

// SweepOnce expires one batch of lapsed offers and re-offers the freed
// slots. Exported so tests can drive the worker without the ticker.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	freed := map[uuid.UUID]struct{}{}

	err := s.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := s.clock.Now()
		entries, err := tx.Reads().ExpiredOfferEntries(ctx, now, sweepBatchSize)
		if err != nil {
			return err
		}

		for _, e := range entries {
			ok, err := tx.Waitlist().ExpireOffer(ctx, e.ID(), now)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			ev := waitlist.NewEvent(e, waitlist.EventOfferExpired, user.RoleSystem, uuid.Nil, map[string]any{
				"expired_at": now,
				"path":       "sweep",
			})
			if err := tx.Events().Append(ctx, ev); err != nil {
				return err
			}
			metrics.OffersExpired.WithLabelValues("sweep").Inc()
			freed[e.SlotID()] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for slotID := range freed {
		if err := s.engine.Promote(ctx, slotID, waitlist.ReasonOfferExpiredSweep); err != nil {
			s.logger.Error("post-sweep promotion failed", "slot_id", slotID, "error", err.Error())
		}
	}
	return nil
}
