package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"venuebook/internal/domain/booking"
	"venuebook/internal/domain/user"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/pkg/clock"
	"venuebook/internal/pkg/config"
	"venuebook/internal/pkg/errs"
	"venuebook/internal/pkg/metrics"
	"venuebook/internal/usecase/queries"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrWaitlistEntryNotFound = errs.New("waitlist entry not found")
	ErrWaitlistDuplicate     = errs.New("active waitlist entry already exists")
	ErrSlotNotFull           = errs.New("slot still has capacity")
	ErrAlreadyConverted      = errs.New("entry already converted to booking")
	ErrEntryNotActionable    = errs.New("entry is not in an actionable state")
)

// WaitlistDuplicateError carries the identifiers of the pre-existing
// active entry so handlers can point the caller at it. It matches
// ErrWaitlistDuplicate under errors.Is.
type WaitlistDuplicateError struct {
	EntryID       uuid.UUID
	ReservationID uuid.UUID
}

func (e *WaitlistDuplicateError) Error() string {
	return fmt.Sprintf("active waitlist entry %s already exists", e.EntryID)
}

func (e *WaitlistDuplicateError) Is(target error) bool {
	return target == ErrWaitlistDuplicate
}

type CreateEntryParams struct {
	SlotID    uuid.UUID
	PartySize int32
	Notes     *string
}

type WaitlistCommands interface {
	// CreateEntry joins the queue explicitly. The slot must actually be
	// full for the party, or already carry an active waitlist.
	CreateEntry(ctx context.Context, params CreateEntryParams, userID uuid.UUID) (*queries.WaitlistEntryView, error)
	// List returns the user's entries after lazily expiring any of them
	// whose offer deadline has passed.
	List(ctx context.Context, userID uuid.UUID, filter queries.WaitlistFilter) ([]*queries.WaitlistEntryView, error)
	Cancel(ctx context.Context, entryID, userID uuid.UUID) error
	AcceptOffer(ctx context.Context, entryID, userID uuid.UUID) (*queries.ReservationView, error)
	RefuseOffer(ctx context.Context, entryID, userID uuid.UUID) error
}

type waitlistCommandsImpl struct {
	uow          shared.UnitOfWork
	reservations queries.ReservationQueries
	entries      queries.WaitlistQueries
	promoter     shared.Promoter
	clock        clock.Clock
	cfg          config.BookingConfig
	logger       *slog.Logger
}

func NewWaitlistCommands(
	uow shared.UnitOfWork,
	reservations queries.ReservationQueries,
	entries queries.WaitlistQueries,
	promoter shared.Promoter,
	clk clock.Clock,
	cfg config.BookingConfig,
	logger *slog.Logger,
) WaitlistCommands {
	return &waitlistCommandsImpl{
		uow:          uow,
		reservations: reservations,
		entries:      entries,
		promoter:     promoter,
		clock:        clk,
		cfg:          cfg,
		logger:       logger,
	}
}

func (w *waitlistCommandsImpl) CreateEntry(
	ctx context.Context,
	params CreateEntryParams,
	userID uuid.UUID,
) (*queries.WaitlistEntryView, error) {
	if params.PartySize == 0 {
		params.PartySize = 1
	}
	if params.PartySize < 1 {
		return nil, ErrInvalidPartySize
	}

	var entryID uuid.UUID

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		reads := tx.Reads()

		s, err := reads.SlotByID(ctx, params.SlotID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrSlotNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		existing, err := reads.ActiveEntryForUserSlot(ctx, userID, params.SlotID)
		if err != nil && !infra.IsKind(err, infra.KindNotFound) {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if existing != nil {
			return &WaitlistDuplicateError{
				EntryID:       existing.ID(),
				ReservationID: existing.ReservationID(),
			}
		}

		occupied, err := reads.Occupied(ctx, params.SlotID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		active, err := reads.ActiveWaitlistExists(ctx, params.SlotID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		// Joining is only allowed once capacity is gone for this party or
		// others are already queued; otherwise the caller should just book.
		if s.FitsParty(occupied, params.PartySize) && !active {
			return ErrSlotNotFull
		}

		_, id, err := persistWaitlisted(ctx, tx, w.clock.Now(), CreateReservationParams{
			EstablishmentID: s.EstablishmentID(),
			SlotID:          &params.SlotID,
			StartsAt:        s.StartsAt(),
			EndsAt:          s.EndsAt(),
			PartySize:       params.PartySize,
			PaymentStatus:   booking.PaymentNone,
			Notes:           params.Notes,
		}, userID)
		if err != nil {
			return err
		}
		entryID = id
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateSlotBooking) {
			return nil, w.duplicateFromRace(ctx, userID, params.SlotID)
		}
		return nil, err
	}

	metrics.WaitlistJoins.Inc()

	view, err := w.findEntryView(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (w *waitlistCommandsImpl) List(
	ctx context.Context,
	userID uuid.UUID,
	filter queries.WaitlistFilter,
) ([]*queries.WaitlistEntryView, error) {
	expired, err := w.expireUserOffers(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, slotID := range expired {
		w.promoter.Dispatch(slotID, user.RoleSystem, userID, waitlist.ReasonOfferExpiredLazy)
	}

	views, err := w.entries.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return views, nil
}

// expireUserOffers flips the user's lapsed offers to offer_expired and
// returns the slots that regained capacity. Listing is the cheapest
// moment to reconcile deadlines without a clock-driven scan.
func (w *waitlistCommandsImpl) expireUserOffers(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var freed []uuid.UUID

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		entries, err := tx.Reads().EntriesByUser(ctx, userID)
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		now := w.clock.Now()
		for _, e := range entries {
			if !e.HasExpiredOffer(now) {
				continue
			}
			ok, err := tx.Waitlist().ExpireOffer(ctx, e.ID(), now)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if !ok {
				continue
			}
			ev := waitlist.NewEvent(e, waitlist.EventOfferExpired, user.RoleSystem, uuid.Nil, map[string]any{
				"expired_at": now,
				"path":       "lazy",
			})
			if err := tx.Events().Append(ctx, ev); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			freed = append(freed, e.SlotID())
			metrics.OffersExpired.WithLabelValues("lazy").Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return freed, nil
}

func (w *waitlistCommandsImpl) Cancel(ctx context.Context, entryID, userID uuid.UUID) error {
	var slotID uuid.UUID

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		entry, err := w.loadOwnedEntry(ctx, tx, entryID, userID)
		if err != nil {
			return err
		}

		switch entry.Status() {
		case waitlist.StatusConvertedToBooking, waitlist.StatusAccepted:
			return ErrAlreadyConverted
		}
		if entry.Status().IsTerminal() {
			return ErrEntryNotActionable
		}

		if err := tx.Waitlist().UpdateStatus(ctx, entryID, waitlist.StatusCancelled); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := tx.Reservations().UpdateStatus(ctx, entry.ReservationID(), booking.StatusCancelledUser); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		ev := waitlist.NewEvent(entry, waitlist.EventCancelled, user.RoleConsumer, userID, nil)
		if err := tx.Events().Append(ctx, ev); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		// Every cancel hands the slot to the promoter: a live offer
		// releases its hold, and a waiting exit can unblock a queue whose
		// head never fit the remaining room. The engine's guards turn the
		// redundant calls into no-ops.
		slotID = entry.SlotID()
		return nil
	})
	if err != nil {
		return err
	}

	if slotID != uuid.Nil {
		w.promoter.Dispatch(slotID, user.RoleConsumer, userID, waitlist.ReasonCancelWaitlist)
	}
	return nil
}

func (w *waitlistCommandsImpl) AcceptOffer(ctx context.Context, entryID, userID uuid.UUID) (*queries.ReservationView, error) {
	var (
		reservationID uuid.UUID
		expiredSlot   uuid.UUID
	)

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		entry, err := w.loadOwnedEntry(ctx, tx, entryID, userID)
		if err != nil {
			return err
		}

		now := w.clock.Now()
		if err := entry.ValidateOfferResponse(now); err != nil {
			if errors.Is(err, waitlist.ErrOfferExpired) {
				// The expiry must commit even though the call fails, so it
				// is recorded here and the sentinel is raised after the
				// transaction.
				return w.expireInPlace(ctx, tx, entry, now, &expiredSlot)
			}
			return errs.Mark(err, ErrEntryNotActionable)
		}

		res, err := tx.Reads().ReservationByID(ctx, entry.ReservationID())
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		var quote booking.Quote
		if res.SlotID() != nil {
			s, err := tx.Reads().SlotByID(ctx, *res.SlotID())
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			quote = booking.ResolvePrice(s.BasePrice(), res.PartySize())
		}

		next, err := booking.NextStatus(res.Status(), booking.ActionWaitlistAcceptOffer, quote.RequiresDeposit(), res.IsPaid())
		if err != nil {
			return err
		}

		if err := tx.Reservations().Convert(ctx, res.ID(), next, quote); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		if err := tx.Waitlist().UpdateStatus(ctx, entryID, waitlist.StatusConvertedToBooking); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		ev := waitlist.NewEvent(entry, waitlist.EventOfferAccepted, user.RoleConsumer, userID, map[string]any{
			"next_status": next,
		})
		if err := tx.Events().Append(ctx, ev); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		payload, _ := json.Marshal(map[string]any{
			"reservation_id": res.ID(),
			"slot_id":        entry.SlotID(),
			"user_id":        userID,
			"status":         next,
		})
		if err := tx.Outbox().CreateJob(ctx, shared.JobVenueNotification, "waitlist.offer_accepted", payload, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		reservationID = res.ID()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expiredSlot != uuid.Nil {
		w.promoter.Dispatch(expiredSlot, user.RoleSystem, userID, waitlist.ReasonOfferExpiredLazy)
		return nil, waitlist.ErrOfferExpired
	}

	view, err := w.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}

func (w *waitlistCommandsImpl) RefuseOffer(ctx context.Context, entryID, userID uuid.UUID) error {
	var (
		slotID      uuid.UUID
		expiredSlot uuid.UUID
	)

	err := w.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		entry, err := w.loadOwnedEntry(ctx, tx, entryID, userID)
		if err != nil {
			return err
		}

		now := w.clock.Now()
		if err := entry.ValidateOfferResponse(now); err != nil {
			if errors.Is(err, waitlist.ErrOfferExpired) {
				return w.expireInPlace(ctx, tx, entry, now, &expiredSlot)
			}
			return errs.Mark(err, ErrEntryNotActionable)
		}

		if err := tx.Waitlist().UpdateStatus(ctx, entryID, waitlist.StatusDeclined); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		res, err := tx.Reads().ReservationByID(ctx, entry.ReservationID())
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		next, err := booking.NextStatus(res.Status(), booking.ActionWaitlistRefuseOffer, res.HasDeposit(), res.IsPaid())
		if err != nil {
			return err
		}
		if err := tx.Reservations().UpdateStatus(ctx, res.ID(), next); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		ev := waitlist.NewEvent(entry, waitlist.EventOfferRefused, user.RoleConsumer, userID, nil)
		if err := tx.Events().Append(ctx, ev); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		slotID = entry.SlotID()
		return nil
	})
	if err != nil {
		return err
	}
	if expiredSlot != uuid.Nil {
		w.promoter.Dispatch(expiredSlot, user.RoleSystem, userID, waitlist.ReasonOfferExpiredLazy)
		return waitlist.ErrOfferExpired
	}

	w.promoter.Dispatch(slotID, user.RoleConsumer, userID, waitlist.ReasonRefuseOffer)
	return nil
}

// expireInPlace records the lapsed offer the moment the owner touches it.
// It returns nil so the expiry write commits; the caller raises
// ErrOfferExpired and hands the slot to the promoter after the commit.
func (w *waitlistCommandsImpl) expireInPlace(
	ctx context.Context,
	tx shared.Tx,
	entry *waitlist.Entry,
	now time.Time,
	freedSlot *uuid.UUID,
) error {
	ok, err := tx.Waitlist().ExpireOffer(ctx, entry.ID(), now)
	if err != nil {
		return errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if ok {
		ev := waitlist.NewEvent(entry, waitlist.EventOfferExpired, user.RoleSystem, uuid.Nil, map[string]any{
			"expired_at": now,
			"path":       "lazy",
		})
		if err := tx.Events().Append(ctx, ev); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		metrics.OffersExpired.WithLabelValues("lazy").Inc()
	}
	// Dispatch even when another caller won the flip; promotion is
	// idempotent per slot.
	*freedSlot = entry.SlotID()
	return nil
}

func (w *waitlistCommandsImpl) loadOwnedEntry(
	ctx context.Context,
	tx shared.Tx,
	entryID, userID uuid.UUID,
) (*waitlist.Entry, error) {
	entry, err := tx.Reads().EntryByID(ctx, entryID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrWaitlistEntryNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	if entry.UserID() != userID {
		// Ownership failures read as absence to the caller.
		return nil, ErrWaitlistEntryNotFound
	}
	return entry, nil
}

// duplicateFromRace resolves a lost concurrent-join race into the same
// duplicate contract as the pre-check. The losing insert aborted its
// transaction, so the winner's entry is read back outside of it.
func (w *waitlistCommandsImpl) duplicateFromRace(ctx context.Context, userID, slotID uuid.UUID) error {
	views, err := w.entries.ListByUser(ctx, userID, queries.FilterActive)
	if err == nil {
		for _, v := range views {
			if v.SlotID == slotID {
				return &WaitlistDuplicateError{EntryID: v.ID, ReservationID: v.ReservationID}
			}
		}
	}
	return ErrWaitlistDuplicate
}

func (w *waitlistCommandsImpl) findEntryView(ctx context.Context, userID, entryID uuid.UUID) (*queries.WaitlistEntryView, error) {
	views, err := w.entries.ListByUser(ctx, userID, queries.FilterActive)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	for _, v := range views {
		if v.ID == entryID {
			return v, nil
		}
	}
	return nil, ErrWaitlistEntryNotFound
}
