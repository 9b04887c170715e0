package commands

import (
	"context"
	"encoding/json"
	"errors"
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
	ErrInvalidEstablishment        = errs.New("invalid establishment")
	ErrInvalidStartsAt             = errs.New("invalid starts_at")
	ErrInvalidPartySize            = errs.New("invalid party size")
	ErrReservationDateInPast       = errs.New("reservation date in past")
	ErrReservationDateTooFarFuture = errs.New("reservation date too far in future")
	ErrSlotNotFound                = errs.New("slot not found")
	ErrSlotStartsAtMismatch        = errs.New("slot starts_at mismatch")
	ErrDuplicateSlotBooking        = errs.New("duplicate booking for slot")
	ErrOverlappingReservation      = errs.New("overlapping reservation")
	ErrBookingReferenceConflict    = errs.New("booking reference owned by another user")
	ErrReservationNotFound         = errs.New("reservation not found")
	ErrDatabaseOperationFailed     = errs.New("database operation failed")
)

type CreateReservationParams struct {
	EstablishmentID  uuid.UUID
	SlotID           *uuid.UUID
	StartsAt         time.Time
	EndsAt           *time.Time
	PartySize        int32
	BookingReference *string
	PaymentStatus    booking.PaymentStatus
	ClientAmounts    booking.ClientAmounts
	Notes            *string
}

type CreateReservationResult struct {
	Reservation *queries.ReservationView
	// IsReplayed is true when the booking reference matched an existing
	// reservation and the call collapsed into an update-in-place.
	IsReplayed bool
}

type BookingCommands interface {
	CreateReservation(ctx context.Context, params CreateReservationParams, userID uuid.UUID) (*CreateReservationResult, error)
	// UpdateReservationStatus executes a typed transition against the
	// reservation's status machine. The waitlist offer actions are
	// rejected here; they go through WaitlistCommands, which validates
	// the entry before feeding the same machine.
	UpdateReservationStatus(ctx context.Context, reservationID uuid.UUID, tr booking.Transition) (*queries.ReservationView, error)
}

type bookingCommandsImpl struct {
	uow          shared.UnitOfWork
	reservations queries.ReservationQueries
	promoter     shared.Promoter
	clock        clock.Clock
	cfg          config.BookingConfig
	logger       *slog.Logger
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	reservations queries.ReservationQueries,
	promoter shared.Promoter,
	clk clock.Clock,
	cfg config.BookingConfig,
	logger *slog.Logger,
) BookingCommands {
	return &bookingCommandsImpl{
		uow:          uow,
		reservations: reservations,
		promoter:     promoter,
		clock:        clk,
		cfg:          cfg,
		logger:       logger,
	}
}

func (b *bookingCommandsImpl) CreateReservation(
	ctx context.Context,
	params CreateReservationParams,
	userID uuid.UUID,
) (*CreateReservationResult, error) {
	params = normalizeParams(params)
	if err := b.validateParams(params); err != nil {
		return nil, err
	}

	var (
		reservationID uuid.UUID
		decision      booking.Decision
		replayed      bool
	)

	err := b.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		reads := tx.Reads()

		// Idempotent replay: a known booking reference turns the whole
		// call into an update of the existing record.
		if params.BookingReference != nil {
			existing, err := reads.ReservationByReference(ctx, userID, *params.BookingReference)
			if err != nil && !infra.IsKind(err, infra.KindNotFound) {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if existing != nil {
				id, err := b.replayExisting(ctx, tx, existing, params)
				if err != nil {
					return err
				}
				reservationID = id
				replayed = true
				return nil
			}
		}

		input, err := b.buildAdmissionInput(ctx, reads, params, userID)
		if err != nil {
			return err
		}

		decision, err = booking.Admit(input)
		if err != nil {
			return mapAdmissionErr(err)
		}

		if decision == booking.DecisionDirect {
			id, diverted, err := b.persistDirect(ctx, tx, input, params, userID)
			if err != nil {
				return err
			}
			if diverted {
				decision = booking.DecisionWaitlist
			}
			reservationID = id
			return nil
		}

		id, _, err := persistWaitlisted(ctx, tx, b.clock.Now(), params, userID)
		if err != nil {
			return err
		}
		reservationID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		metrics.ReservationsCreated.WithLabelValues(string(decision)).Inc()
	}

	view, err := b.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return &CreateReservationResult{Reservation: view, IsReplayed: replayed}, nil
}

func normalizeParams(params CreateReservationParams) CreateReservationParams {
	if params.PartySize == 0 {
		params.PartySize = 1
	}
	if params.PaymentStatus == "" {
		params.PaymentStatus = booking.PaymentNone
	}
	return params
}

func (b *bookingCommandsImpl) validateParams(params CreateReservationParams) error {
	if params.EstablishmentID == uuid.Nil {
		return ErrInvalidEstablishment
	}
	if params.StartsAt.IsZero() {
		return ErrInvalidStartsAt
	}
	if params.PartySize < 1 {
		return ErrInvalidPartySize
	}
	now := b.clock.Now()
	if params.StartsAt.Before(now.Add(-b.cfg.PastGrace)) {
		return ErrReservationDateInPast
	}
	if params.StartsAt.After(now.Add(b.cfg.MaxAdvance)) {
		return ErrReservationDateTooFarFuture
	}
	return nil
}

func (b *bookingCommandsImpl) buildAdmissionInput(
	ctx context.Context,
	reads shared.CommandReads,
	params CreateReservationParams,
	userID uuid.UUID,
) (booking.AdmissionInput, error) {
	input := booking.AdmissionInput{
		Request: booking.AdmissionRequest{
			EstablishmentID: params.EstablishmentID,
			SlotID:          params.SlotID,
			UserID:          userID,
			StartsAt:        params.StartsAt,
			EndsAt:          params.EndsAt,
			PartySize:       params.PartySize,
		},
	}

	if params.SlotID != nil {
		s, err := reads.SlotByID(ctx, *params.SlotID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return input, ErrSlotNotFound
			}
			return input, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		input.Slot = s

		occupied, err := reads.Occupied(ctx, *params.SlotID)
		if err != nil {
			return input, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		input.Occupied = occupied

		active, err := reads.ActiveWaitlistExists(ctx, *params.SlotID)
		if err != nil {
			return input, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		input.ActiveWaitlistExists = active
	}

	// The fetch window brackets the candidate's assumed interval, not just
	// its start: a long booking must still collide with reservations that
	// begin near its end.
	assumedEnd := params.StartsAt.Add(booking.DefaultAssumedDuration)
	if params.EndsAt != nil && params.EndsAt.After(params.StartsAt) {
		assumedEnd = *params.EndsAt
	}
	from := params.StartsAt.Add(-b.cfg.OverlapWindow)
	to := assumedEnd.Add(b.cfg.OverlapWindow)
	others, err := reads.UserReservationsInWindow(ctx, userID, from, to)
	if err != nil {
		return input, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	input.UserReservations = others

	return input, nil
}

// persistDirect resolves the price and inserts through the conditional
// capacity write. A false insert means a concurrent booking consumed the
// remaining room between the admission read and the write; the request is
// then diverted to the waitlist inside the same transaction so capacity
// is never exceeded.
func (b *bookingCommandsImpl) persistDirect(
	ctx context.Context,
	tx shared.Tx,
	input booking.AdmissionInput,
	params CreateReservationParams,
	userID uuid.UUID,
) (uuid.UUID, bool, error) {
	var quote booking.Quote
	if input.Slot != nil {
		quote = booking.ResolvePrice(input.Slot.BasePrice(), params.PartySize)
	}

	res, err := booking.NewDirect(booking.NewReservationParams{
		EstablishmentID:  params.EstablishmentID,
		UserID:           userID,
		SlotID:           params.SlotID,
		StartsAt:         params.StartsAt,
		EndsAt:           params.EndsAt,
		PartySize:        params.PartySize,
		PaymentStatus:    params.PaymentStatus,
		BookingReference: params.BookingReference,
		Meta:             metaFromNotes(params.Notes),
	}, quote)
	if err != nil {
		return uuid.Nil, false, err
	}

	if !quote.MatchesClient(params.ClientAmounts) {
		// Audit-only: the computed amounts always win.
		b.logger.Warn("client amounts disagree with computed price",
			"reservation_id", res.ID(),
			"user_id", userID,
			"computed_total", deref(quote.AmountTotal),
		)
		res.AnnotateClientAmounts(params.ClientAmounts)
	}

	if params.SlotID == nil {
		if err := tx.Reservations().Create(ctx, res); err != nil {
			return uuid.Nil, false, mapCreateErr(err, params)
		}
		if err := b.enqueueBookingJobs(ctx, tx, res); err != nil {
			return uuid.Nil, false, err
		}
		return res.ID(), false, nil
	}

	ok, err := tx.Reservations().CreateIfCapacity(ctx, res)
	if err != nil {
		return uuid.Nil, false, mapCreateErr(err, params)
	}
	if !ok {
		// Lost the race on the last seats: divert instead of overbooking.
		id, _, err := persistWaitlisted(ctx, tx, b.clock.Now(), params, userID)
		return id, true, err
	}

	if err := b.enqueueBookingJobs(ctx, tx, res); err != nil {
		return uuid.Nil, false, err
	}
	return res.ID(), false, nil
}

// persistWaitlisted creates the companion waitlist reservation plus its
// queue entry and audit event. Shared by the intake diversion path and
// the explicit waitlist command.
func persistWaitlisted(
	ctx context.Context,
	tx shared.Tx,
	now time.Time,
	params CreateReservationParams,
	userID uuid.UUID,
) (uuid.UUID, uuid.UUID, error) {
	if params.SlotID == nil {
		return uuid.Nil, uuid.Nil, ErrSlotNotFound
	}

	res, err := booking.NewWaitlisted(booking.NewReservationParams{
		EstablishmentID:  params.EstablishmentID,
		UserID:           userID,
		SlotID:           params.SlotID,
		StartsAt:         params.StartsAt,
		EndsAt:           params.EndsAt,
		PartySize:        params.PartySize,
		PaymentStatus:    params.PaymentStatus,
		BookingReference: params.BookingReference,
		Meta:             metaFromNotes(params.Notes),
	})
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}

	if err := tx.Reservations().Create(ctx, res); err != nil {
		return uuid.Nil, uuid.Nil, mapCreateErr(err, params)
	}

	pos, err := tx.Reads().MaxQueuePosition(ctx, *params.SlotID)
	if err != nil {
		return uuid.Nil, uuid.Nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	entry := waitlist.NewEntry(res.ID(), *params.SlotID, userID, pos+1)
	if err := tx.Waitlist().Create(ctx, entry); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			return uuid.Nil, uuid.Nil, ErrDuplicateSlotBooking
		}
		return uuid.Nil, uuid.Nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	ev := waitlist.NewEvent(entry, waitlist.EventCreated, user.RoleConsumer, userID, map[string]any{
		"party_size": params.PartySize,
	})
	if err := tx.Events().Append(ctx, ev); err != nil {
		return uuid.Nil, uuid.Nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	payload, _ := json.Marshal(map[string]any{
		"reservation_id": res.ID(),
		"entry_id":       entry.ID(),
		"slot_id":        *params.SlotID,
		"user_id":        userID,
	})
	if err := tx.Outbox().CreateJob(ctx, shared.JobConsumerNotification, "waitlist.joined", payload, now); err != nil {
		return uuid.Nil, uuid.Nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return res.ID(), entry.ID(), nil
}

// replayExisting applies the retried payload to the already-persisted
// reservation. The second submission mutates, never duplicates.
func (b *bookingCommandsImpl) replayExisting(
	ctx context.Context,
	tx shared.Tx,
	existing *booking.Reservation,
	params CreateReservationParams,
) (uuid.UUID, error) {
	quote := booking.Quote{AmountTotal: existing.AmountTotal(), AmountDeposit: existing.AmountDeposit()}
	if existing.SlotID() != nil && existing.Status() != booking.StatusWaitlist {
		s, err := tx.Reads().SlotByID(ctx, *existing.SlotID())
		if err == nil {
			quote = booking.ResolvePrice(s.BasePrice(), params.PartySize)
		}
	}

	updated := booking.Reconstruct(
		existing.ID(), existing.EstablishmentID(), existing.UserID(),
		existing.SlotID(),
		params.StartsAt, params.EndsAt, params.PartySize,
		existing.Status(), existing.PaymentStatus(),
		quote.AmountTotal, quote.AmountDeposit,
		existing.BookingReference(), existing.IsFromWaitlist(),
		existing.Meta(),
		existing.CreatedAt(), b.clock.Now(),
	)

	if err := tx.Reservations().UpdateBookingFields(ctx, updated); err != nil {
		return uuid.Nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return existing.ID(), nil
}

func (b *bookingCommandsImpl) UpdateReservationStatus(
	ctx context.Context,
	reservationID uuid.UUID,
	tr booking.Transition,
) (*queries.ReservationView, error) {
	// Offer responses carry entry-level rules (live offer, deadline,
	// conversion) that only the waitlist commands enforce. Letting them
	// through here would confirm a waiting reservation past the queue.
	if tr.Action == booking.ActionWaitlistAcceptOffer || tr.Action == booking.ActionWaitlistRefuseOffer {
		return nil, booking.ErrInvalidTransition
	}

	var freedSlot *uuid.UUID

	err := b.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		res, err := tx.Reads().ReservationByID(ctx, reservationID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrReservationNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if tr.ActorRole == user.RoleConsumer && res.UserID() != tr.ActorUserID {
			return ErrReservationNotFound
		}

		next, err := booking.NextStatus(res.Status(), tr.Action, res.HasDeposit(), res.IsPaid())
		if err != nil {
			return err
		}

		if err := tx.Reservations().UpdateStatus(ctx, reservationID, next); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		// A booking that stops occupying capacity frees room for the queue.
		if res.SlotID() != nil && res.Status().IsOccupying() && !next.IsOccupying() {
			freedSlot = res.SlotID()
		}

		payload, _ := json.Marshal(map[string]any{
			"reservation_id": reservationID,
			"status":         next,
			"action":         tr.Action,
		})
		if err := tx.Outbox().CreateJob(ctx, shared.JobVenueNotification, "reservation.status_changed", payload, b.clock.Now()); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if freedSlot != nil {
		b.promoter.Dispatch(*freedSlot, tr.ActorRole, tr.ActorUserID, waitlist.ReasonReservationCancelled)
	}

	view, err := b.reservations.FindByID(ctx, reservationID)
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}
	return view, nil
}

// enqueueBookingJobs persists the side-effect intents transactionally
// with the booking. Delivery happens out of band; its failure never
// touches the reservation.
func (b *bookingCommandsImpl) enqueueBookingJobs(ctx context.Context, tx shared.Tx, res *booking.Reservation) error {
	payload, err := json.Marshal(map[string]any{
		"reservation_id":   res.ID(),
		"establishment_id": res.EstablishmentID(),
		"user_id":          res.UserID(),
		"starts_at":        res.StartsAt(),
		"party_size":       res.PartySize(),
		"status":           res.Status(),
	})
	if err != nil {
		return errs.Wrap(err, "failed to marshal booking payload")
	}

	now := b.clock.Now()
	jobs := []struct {
		kind  string
		topic string
	}{
		{shared.JobVenueNotification, "reservation.created"},
		{shared.JobPlatformNotification, "reservation.created"},
		{shared.JobConsumerNotification, "reservation.created"},
	}
	for _, j := range jobs {
		if err := tx.Outbox().CreateJob(ctx, j.kind, j.topic, payload, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
	}

	if res.IsPaid() && res.HasDeposit() {
		if err := tx.Outbox().CreateJob(ctx, shared.JobEscrowHold, "payment.hold_requested", payload, now); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
	}
	return nil
}

func mapAdmissionErr(err error) error {
	switch {
	case errors.Is(err, booking.ErrSlotNotFound):
		return ErrSlotNotFound
	case errors.Is(err, booking.ErrSlotStartsAtMismatch):
		return ErrSlotStartsAtMismatch
	case errors.Is(err, booking.ErrDuplicateSlotBooking):
		return ErrDuplicateSlotBooking
	case errors.Is(err, booking.ErrOverlappingReservation):
		return ErrOverlappingReservation
	default:
		return err
	}
}

func mapCreateErr(err error, params CreateReservationParams) error {
	if infra.IsKind(err, infra.KindDuplicateKey) && params.BookingReference != nil {
		// Reference collision with a row this user cannot replay.
		return ErrBookingReferenceConflict
	}
	return errs.Mark(err, ErrDatabaseOperationFailed)
}

func metaFromNotes(notes *string) map[string]any {
	meta := map[string]any{}
	if notes != nil && *notes != "" {
		meta["notes"] = *notes
	}
	return meta
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
