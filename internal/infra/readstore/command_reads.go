package readstore

import (
	"context"
	"encoding/json"
	"time"

	"venuebook/internal/domain/booking"
	"venuebook/internal/domain/slot"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/pgconv"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// CommandReads backs the validation reads commands make inside their
// transactions. Handed a pgx.Tx it reads at the transaction's snapshot;
// handed the pool it reads with implicit single-statement transactions.
type CommandReads struct {
	db db.DBTX
}

func NewCommandReads(dbtx db.DBTX) shared.CommandReads {
	return &CommandReads{db: dbtx}
}

const slotByIDSQL = `
SELECT id, establishment_id, starts_at, ends_at, capacity, base_price, created_at, updated_at
FROM slots
WHERE id = $1`

func (r *CommandReads) SlotByID(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	var (
		slotID, estID        pgtype.UUID
		startsAt             pgtype.Timestamptz
		endsAt               pgtype.Timestamptz
		capacity             pgtype.Int4
		basePrice            int64
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := r.db.QueryRow(ctx, slotByIDSQL, pgconv.UUIDToPgtype(id)).Scan(
		&slotID, &estID, &startsAt, &endsAt, &capacity, &basePrice, &createdAt, &updatedAt,
	)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("slot not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find slot", err)
	}

	return slot.Reconstruct(
		uuid.UUID(slotID.Bytes), uuid.UUID(estID.Bytes),
		pgconv.TimeFromPgtype(startsAt),
		pgconv.TimePtrFromPgtype(endsAt),
		pgconv.Int32PtrFromPgtype(capacity),
		basePrice,
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimeFromPgtype(updatedAt),
	), nil
}

const occupiedSQL = `
SELECT COALESCE(SUM(party_size), 0)
FROM reservations
WHERE slot_id = $1 AND status = ANY($2)`

func (r *CommandReads) Occupied(ctx context.Context, slotID uuid.UUID) (int32, error) {
	var occupied int64
	err := r.db.QueryRow(ctx, occupiedSQL,
		pgconv.UUIDToPgtype(slotID),
		booking.OccupyingStatuses(),
	).Scan(&occupied)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to sum occupied capacity", err)
	}
	return int32(occupied), nil
}

const activeWaitlistExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM waitlist_entries
    WHERE slot_id = $1 AND status = ANY($2)
)`

func (r *CommandReads) ActiveWaitlistExists(ctx context.Context, slotID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, activeWaitlistExistsSQL,
		pgconv.UUIDToPgtype(slotID),
		waitlist.ActiveStatuses(),
	).Scan(&exists)
	if err != nil {
		return false, infra.WrapRepoErr("failed to check active waitlist", err)
	}
	return exists, nil
}

const entryColumns = `
id, reservation_id, slot_id, user_id, status, position,
offer_sent_at, offer_expires_at, created_at, updated_at`

const activeEntryForUserSlotSQL = `
SELECT ` + entryColumns + `
FROM waitlist_entries
WHERE user_id = $1 AND slot_id = $2 AND status = ANY($3)
LIMIT 1`

func (r *CommandReads) ActiveEntryForUserSlot(ctx context.Context, userID, slotID uuid.UUID) (*waitlist.Entry, error) {
	row := r.db.QueryRow(ctx, activeEntryForUserSlotSQL,
		pgconv.UUIDToPgtype(userID),
		pgconv.UUIDToPgtype(slotID),
		waitlist.ActiveStatuses(),
	)
	entry, err := scanEntry(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("active entry not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find active entry", err)
	}
	return entry, nil
}

const userReservationsInWindowSQL = `
SELECT slot_id, starts_at, ends_at, status
FROM reservations
WHERE user_id = $1 AND starts_at >= $2 AND starts_at < $3`

func (r *CommandReads) UserReservationsInWindow(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]booking.ExistingReservation, error) {
	rows, err := r.db.Query(ctx, userReservationsInWindowSQL,
		pgconv.UUIDToPgtype(userID),
		pgconv.TimeToPgtype(from),
		pgconv.TimeToPgtype(to),
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservations in window", err)
	}
	defer rows.Close()

	var result []booking.ExistingReservation
	for rows.Next() {
		var (
			slotID   pgtype.UUID
			startsAt pgtype.Timestamptz
			endsAt   pgtype.Timestamptz
			status   string
		)
		if err := rows.Scan(&slotID, &startsAt, &endsAt, &status); err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation row", err)
		}
		result = append(result, booking.ExistingReservation{
			SlotID:   pgconv.UUIDPtrFromPgtype(slotID),
			StartsAt: pgconv.TimeFromPgtype(startsAt),
			EndsAt:   pgconv.TimePtrFromPgtype(endsAt),
			Status:   booking.Status(status),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read reservation rows", err)
	}
	return result, nil
}

const reservationColumns = `
id, establishment_id, user_id, slot_id, starts_at, ends_at, party_size,
status, payment_status, amount_total, amount_deposit,
booking_reference, is_from_waitlist, meta, created_at, updated_at`

const reservationByIDSQL = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE id = $1`

func (r *CommandReads) ReservationByID(ctx context.Context, id uuid.UUID) (*booking.Reservation, error) {
	row := r.db.QueryRow(ctx, reservationByIDSQL, pgconv.UUIDToPgtype(id))
	res, err := scanReservation(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation", err)
	}
	return res, nil
}

const reservationByReferenceSQL = `
SELECT ` + reservationColumns + `
FROM reservations
WHERE user_id = $1 AND booking_reference = $2`

func (r *CommandReads) ReservationByReference(ctx context.Context, userID uuid.UUID, reference string) (*booking.Reservation, error) {
	row := r.db.QueryRow(ctx, reservationByReferenceSQL,
		pgconv.UUIDToPgtype(userID),
		reference,
	)
	res, err := scanReservation(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation not found by reference", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by reference", err)
	}
	return res, nil
}

const entryByIDSQL = `
SELECT ` + entryColumns + `
FROM waitlist_entries
WHERE id = $1`

func (r *CommandReads) EntryByID(ctx context.Context, id uuid.UUID) (*waitlist.Entry, error) {
	row := r.db.QueryRow(ctx, entryByIDSQL, pgconv.UUIDToPgtype(id))
	entry, err := scanEntry(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("waitlist entry not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find waitlist entry", err)
	}
	return entry, nil
}

const entriesByUserSQL = `
SELECT ` + entryColumns + `
FROM waitlist_entries
WHERE user_id = $1
ORDER BY created_at DESC`

func (r *CommandReads) EntriesByUser(ctx context.Context, userID uuid.UUID) ([]*waitlist.Entry, error) {
	rows, err := r.db.Query(ctx, entriesByUserSQL, pgconv.UUIDToPgtype(userID))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list waitlist entries", err)
	}
	defer rows.Close()

	var entries []*waitlist.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan waitlist entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read waitlist entries", err)
	}
	return entries, nil
}

// nextCandidateSQL orders by creation time, not by the advisory position
// column. FOR UPDATE SKIP LOCKED keeps two promoters from picking the
// same entry.
const nextCandidateSQL = `
SELECT w.id, w.reservation_id, w.slot_id, w.user_id, w.status, w.position,
       w.offer_sent_at, w.offer_expires_at, w.created_at, w.updated_at
FROM waitlist_entries w
JOIN reservations r ON r.id = w.reservation_id
WHERE w.slot_id = $1
  AND w.status IN ('waiting', 'queued')
  AND ($2::int IS NULL OR r.party_size <= $2)
ORDER BY w.created_at ASC
LIMIT 1
FOR UPDATE OF w SKIP LOCKED`

func (r *CommandReads) NextCandidate(ctx context.Context, slotID uuid.UUID, remaining *int32) (*waitlist.Entry, error) {
	row := r.db.QueryRow(ctx, nextCandidateSQL,
		pgconv.UUIDToPgtype(slotID),
		pgconv.Int32PtrToPgtype(remaining),
	)
	entry, err := scanEntry(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("no promotable entry", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find next candidate", err)
	}
	return entry, nil
}

const openOfferExistsSQL = `
SELECT EXISTS (
    SELECT 1 FROM waitlist_entries
    WHERE slot_id = $1 AND status = 'offer_sent' AND offer_expires_at > $2
)`

func (r *CommandReads) OpenOfferExists(ctx context.Context, slotID uuid.UUID, now time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, openOfferExistsSQL,
		pgconv.UUIDToPgtype(slotID),
		pgconv.TimeToPgtype(now),
	).Scan(&exists)
	if err != nil {
		return false, infra.WrapRepoErr("failed to check open offer", err)
	}
	return exists, nil
}

const expiredOfferEntriesSQL = `
SELECT ` + entryColumns + `
FROM waitlist_entries
WHERE status = 'offer_sent' AND offer_expires_at <= $1
ORDER BY offer_expires_at ASC
LIMIT $2`

func (r *CommandReads) ExpiredOfferEntries(ctx context.Context, now time.Time, limit int32) ([]*waitlist.Entry, error) {
	rows, err := r.db.Query(ctx, expiredOfferEntriesSQL,
		pgconv.TimeToPgtype(now),
		limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list expired offers", err)
	}
	defer rows.Close()

	var entries []*waitlist.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan expired offer entry", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read expired offer entries", err)
	}
	return entries, nil
}

const maxQueuePositionSQL = `
SELECT COALESCE(MAX(position), 0) FROM waitlist_entries WHERE slot_id = $1`

func (r *CommandReads) MaxQueuePosition(ctx context.Context, slotID uuid.UUID) (int32, error) {
	var pos int32
	err := r.db.QueryRow(ctx, maxQueuePositionSQL, pgconv.UUIDToPgtype(slotID)).Scan(&pos)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to read max queue position", err)
	}
	return pos, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*waitlist.Entry, error) {
	var (
		id, reservationID, slotID, userID pgtype.UUID
		status                            string
		position                          int32
		offerSentAt, offerExpiresAt       pgtype.Timestamptz
		createdAt, updatedAt              pgtype.Timestamptz
	)
	if err := row.Scan(
		&id, &reservationID, &slotID, &userID, &status, &position,
		&offerSentAt, &offerExpiresAt, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}
	return waitlist.ReconstructEntry(
		uuid.UUID(id.Bytes), uuid.UUID(reservationID.Bytes),
		uuid.UUID(slotID.Bytes), uuid.UUID(userID.Bytes),
		waitlist.Status(status),
		position,
		pgconv.TimePtrFromPgtype(offerSentAt),
		pgconv.TimePtrFromPgtype(offerExpiresAt),
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimeFromPgtype(updatedAt),
	), nil
}

func scanReservation(row rowScanner) (*booking.Reservation, error) {
	var (
		id, estID, userID          pgtype.UUID
		slotID                     pgtype.UUID
		startsAt, endsAt           pgtype.Timestamptz
		partySize                  int32
		status, paymentStatus      string
		amountTotal, amountDeposit pgtype.Int8
		bookingReference           pgtype.Text
		isFromWaitlist             bool
		metaRaw                    []byte
		createdAt, updatedAt       pgtype.Timestamptz
	)
	if err := row.Scan(
		&id, &estID, &userID, &slotID, &startsAt, &endsAt, &partySize,
		&status, &paymentStatus, &amountTotal, &amountDeposit,
		&bookingReference, &isFromWaitlist, &metaRaw, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	meta := map[string]any{}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			return nil, err
		}
	}

	return booking.Reconstruct(
		uuid.UUID(id.Bytes), uuid.UUID(estID.Bytes), uuid.UUID(userID.Bytes),
		pgconv.UUIDPtrFromPgtype(slotID),
		pgconv.TimeFromPgtype(startsAt),
		pgconv.TimePtrFromPgtype(endsAt),
		partySize,
		booking.Status(status),
		booking.PaymentStatus(paymentStatus),
		pgconv.Int64PtrFromPgtype(amountTotal),
		pgconv.Int64PtrFromPgtype(amountDeposit),
		pgconv.StringPtrFromPgtype(bookingReference),
		isFromWaitlist,
		meta,
		pgconv.TimeFromPgtype(createdAt),
		pgconv.TimeFromPgtype(updatedAt),
	), nil
}
