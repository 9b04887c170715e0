package promotion

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"venuebook/internal/domain/user"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/pkg/clock"
	"venuebook/internal/pkg/config"
	"venuebook/internal/pkg/errs"
	"venuebook/internal/pkg/metrics"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
)

const dispatchTimeout = 10 * time.Second

// Engine hands freed capacity to the next queue candidate. It is
// deliberately best-effort: Dispatch never blocks or fails the caller,
// and a missed run is healed by the sweep or the next capacity event.
type Engine struct {
	uow    shared.UnitOfWork
	locker Locker
	clock  clock.Clock
	cfg    config.BookingConfig
	logger *slog.Logger
}

func NewEngine(uow shared.UnitOfWork, locker Locker, clk clock.Clock, cfg config.BookingConfig, logger *slog.Logger) *Engine {
	return &Engine{
		uow:    uow,
		locker: locker,
		clock:  clk,
		cfg:    cfg,
		logger: logger,
	}
}

var _ shared.Promoter = (*Engine)(nil)

// Dispatch runs the promotion asynchronously on a detached context so it
// survives the request that triggered it.
func (e *Engine) Dispatch(slotID uuid.UUID, actorRole user.Role, actorUserID uuid.UUID, reason waitlist.PromotionReason) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()

		if err := e.Promote(ctx, slotID, reason); err != nil {
			e.logger.Error("promotion run failed",
				"slot_id", slotID,
				"reason", reason,
				"actor_role", actorRole,
				"actor_user_id", actorUserID,
				"error", err.Error(),
			)
		}
	}()
}

// Promote offers the slot's freed capacity to the oldest fitting
// candidate. Two guards keep it single-shot: the per-slot lock collapses
// concurrent runs, and the open-offer check inside the transaction stops
// a second offer even if the lock was lost to a crash.
func (e *Engine) Promote(ctx context.Context, slotID uuid.UUID, reason waitlist.PromotionReason) error {
	acquired, release, err := e.locker.Acquire(ctx, slotID)
	if err != nil {
		return errs.Wrap(err, "failed to acquire promotion lock")
	}
	if !acquired {
		metrics.WaitlistPromotions.WithLabelValues("skipped").Inc()
		return nil
	}
	defer release()

	var offered bool

	err = e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		reads := tx.Reads()
		now := e.clock.Now()

		open, err := reads.OpenOfferExists(ctx, slotID, now)
		if err != nil {
			return err
		}
		if open {
			return nil
		}

		s, err := reads.SlotByID(ctx, slotID)
		if err != nil {
			return err
		}
		occupied, err := reads.Occupied(ctx, slotID)
		if err != nil {
			return err
		}
		remaining := s.Remaining(occupied)
		if remaining != nil && *remaining <= 0 {
			return nil
		}

		entry, err := reads.NextCandidate(ctx, slotID, remaining)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return nil
			}
			return err
		}

		expiresAt := now.Add(e.cfg.OfferTTL)
		if err := tx.Waitlist().MarkOfferSent(ctx, entry.ID(), now, expiresAt); err != nil {
			if infra.IsKind(err, infra.KindConflict) {
				return nil
			}
			return err
		}

		ev := waitlist.NewEvent(entry, waitlist.EventOfferSent, user.RoleSystem, uuid.Nil, map[string]any{
			"reason":     reason,
			"expires_at": expiresAt,
		})
		if err := tx.Events().Append(ctx, ev); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]any{
			"entry_id":         entry.ID(),
			"reservation_id":   entry.ReservationID(),
			"slot_id":          slotID,
			"user_id":          entry.UserID(),
			"offer_expires_at": expiresAt,
		})
		if err := tx.Outbox().CreateJob(ctx, shared.JobConsumerNotification, "waitlist.offer_sent", payload, now); err != nil {
			return err
		}

		offered = true
		return nil
	})
	if err != nil {
		return err
	}

	if offered {
		metrics.WaitlistPromotions.WithLabelValues("offered").Inc()
		e.logger.Info("waitlist offer sent", "slot_id", slotID, "reason", reason)
	} else {
		metrics.WaitlistPromotions.WithLabelValues("no_candidate").Inc()
	}
	return nil
}
