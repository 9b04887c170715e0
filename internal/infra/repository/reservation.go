package repository

import (
	"context"
	"encoding/json"

	"venuebook/internal/domain/booking"
	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ReservationRepository struct {
	db db.DBTX
}

func NewReservationRepository(dbtx db.DBTX) *ReservationRepository {
	return &ReservationRepository{db: dbtx}
}

const insertReservationSQL = `
INSERT INTO reservations (
    id, establishment_id, user_id, slot_id,
    starts_at, ends_at, party_size,
    status, payment_status,
    amount_total, amount_deposit,
    booking_reference, is_from_waitlist, meta
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

func (r *ReservationRepository) Create(ctx context.Context, res *booking.Reservation) error {
	meta, err := json.Marshal(res.Meta())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal reservation meta", err)
	}

	_, err = r.db.Exec(ctx, insertReservationSQL,
		pgconv.UUIDToPgtype(res.ID()),
		pgconv.UUIDToPgtype(res.EstablishmentID()),
		pgconv.UUIDToPgtype(res.UserID()),
		pgconv.UUIDPtrToPgtype(res.SlotID()),
		pgconv.TimeToPgtype(res.StartsAt()),
		pgconv.TimePtrToPgtype(res.EndsAt()),
		res.PartySize(),
		string(res.Status()),
		string(res.PaymentStatus()),
		pgconv.Int64PtrToPgtype(res.AmountTotal()),
		pgconv.Int64PtrToPgtype(res.AmountDeposit()),
		pgconv.StringPtrToPgtype(res.BookingReference()),
		res.IsFromWaitlist(),
		meta,
	)
	if err != nil {
		return classify("failed to create reservation", err)
	}
	return nil
}

// Concurrent bookings serialize on the slot row. Under read committed a
// writer's uncommitted rows are invisible to another statement's
// snapshot, so without the lock two inserts for the last seats would
// both pass the capacity check. The queued statement takes a fresh
// snapshot once the lock holder commits.
const lockSlotSQL = `SELECT id FROM slots WHERE id = $1 FOR UPDATE`

// createIfCapacitySQL admits the row only while the slot still has room
// for the party. It runs with the slot row locked, so the sum over
// occupying rows is current and the loser of a race inserts nothing.
const createIfCapacitySQL = `
INSERT INTO reservations (
    id, establishment_id, user_id, slot_id,
    starts_at, ends_at, party_size,
    status, payment_status,
    amount_total, amount_deposit,
    booking_reference, is_from_waitlist, meta
)
SELECT $1, $2, $3, s.id, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
FROM slots s
WHERE s.id = $4
  AND (
    s.capacity IS NULL
    OR s.capacity - COALESCE((
        SELECT SUM(r.party_size)
        FROM reservations r
        WHERE r.slot_id = s.id
          AND r.status = ANY($15)
    ), 0) >= $7
  )
RETURNING id`

func (r *ReservationRepository) CreateIfCapacity(ctx context.Context, res *booking.Reservation) (bool, error) {
	if res.SlotID() == nil {
		return false, infra.WrapRepoErr("conditional insert requires a slot", nil, infra.KindConflict)
	}
	meta, err := json.Marshal(res.Meta())
	if err != nil {
		return false, infra.WrapRepoErr("failed to marshal reservation meta", err)
	}

	var lockedID pgtype.UUID
	if err := r.db.QueryRow(ctx, lockSlotSQL, pgconv.UUIDToPgtype(*res.SlotID())).Scan(&lockedID); err != nil {
		if pgconv.IsNoRows(err) {
			return false, infra.WrapRepoErr("slot not found", err, infra.KindNotFound)
		}
		return false, classify("failed to lock slot", err)
	}

	var id pgtype.UUID
	err = r.db.QueryRow(ctx, createIfCapacitySQL,
		pgconv.UUIDToPgtype(res.ID()),
		pgconv.UUIDToPgtype(res.EstablishmentID()),
		pgconv.UUIDToPgtype(res.UserID()),
		pgconv.UUIDPtrToPgtype(res.SlotID()),
		pgconv.TimeToPgtype(res.StartsAt()),
		pgconv.TimePtrToPgtype(res.EndsAt()),
		res.PartySize(),
		string(res.Status()),
		string(res.PaymentStatus()),
		pgconv.Int64PtrToPgtype(res.AmountTotal()),
		pgconv.Int64PtrToPgtype(res.AmountDeposit()),
		pgconv.StringPtrToPgtype(res.BookingReference()),
		res.IsFromWaitlist(),
		meta,
		booking.OccupyingStatuses(),
	).Scan(&id)
	if err != nil {
		if pgconv.IsNoRows(err) {
			// Capacity check failed at write time.
			return false, nil
		}
		return false, classify("failed to create reservation with capacity check", err)
	}
	return true, nil
}

const updateBookingFieldsSQL = `
UPDATE reservations
SET starts_at = $2,
    ends_at = $3,
    party_size = $4,
    amount_total = $5,
    amount_deposit = $6,
    meta = $7,
    updated_at = now()
WHERE id = $1`

func (r *ReservationRepository) UpdateBookingFields(ctx context.Context, res *booking.Reservation) error {
	meta, err := json.Marshal(res.Meta())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal reservation meta", err)
	}

	tag, err := r.db.Exec(ctx, updateBookingFieldsSQL,
		pgconv.UUIDToPgtype(res.ID()),
		pgconv.TimeToPgtype(res.StartsAt()),
		pgconv.TimePtrToPgtype(res.EndsAt()),
		res.PartySize(),
		pgconv.Int64PtrToPgtype(res.AmountTotal()),
		pgconv.Int64PtrToPgtype(res.AmountDeposit()),
		meta,
	)
	if err != nil {
		return classify("failed to update reservation fields", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return nil
}

const updateReservationStatusSQL = `
UPDATE reservations SET status = $2, updated_at = now() WHERE id = $1`

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error {
	tag, err := r.db.Exec(ctx, updateReservationStatusSQL,
		pgconv.UUIDToPgtype(id),
		string(status),
	)
	if err != nil {
		return classify("failed to update reservation status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation not found", nil, infra.KindNotFound)
	}
	return nil
}

const convertReservationSQL = `
UPDATE reservations
SET status = $2,
    amount_total = $3,
    amount_deposit = $4,
    updated_at = now()
WHERE id = $1 AND status = 'waitlist'`

// Convert flips a waitlist companion into an occupying booking. The
// status guard makes the conversion single-shot.
func (r *ReservationRepository) Convert(ctx context.Context, id uuid.UUID, status booking.Status, quote booking.Quote) error {
	tag, err := r.db.Exec(ctx, convertReservationSQL,
		pgconv.UUIDToPgtype(id),
		string(status),
		pgconv.Int64PtrToPgtype(quote.AmountTotal),
		pgconv.Int64PtrToPgtype(quote.AmountDeposit),
	)
	if err != nil {
		return classify("failed to convert waitlist reservation", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("reservation is not convertible", nil, infra.KindConflict)
	}
	return nil
}
