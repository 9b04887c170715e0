package readstore

import (
	"context"

	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/pgconv"
	"venuebook/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// ReservationReadStore serves the reservation read models. Waitlisted
// rows come back with their live queue entry joined in so clients see
// position and offer deadline without a second call.
type ReservationReadStore struct {
	db db.DBTX
}

func NewReservationReadStore(dbtx db.DBTX) *ReservationReadStore {
	return &ReservationReadStore{db: dbtx}
}

var _ queries.ReservationQueries = (*ReservationReadStore)(nil)

const reservationViewColumns = `
r.id, r.establishment_id, r.user_id, r.slot_id, r.starts_at, r.ends_at,
r.party_size, r.status, r.payment_status, r.amount_total, r.amount_deposit,
r.booking_reference, r.is_from_waitlist, r.created_at, r.updated_at,
w.id, w.status, w.position, w.offer_sent_at, w.offer_expires_at`

const reservationViewByIDSQL = `
SELECT ` + reservationViewColumns + `
FROM reservations r
LEFT JOIN waitlist_entries w
    ON w.reservation_id = r.id
   AND w.status IN ('waiting', 'queued', 'offer_sent')
WHERE r.id = $1`

func (r *ReservationReadStore) FindByID(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	row := r.db.QueryRow(ctx, reservationViewByIDSQL, pgconv.UUIDToPgtype(id))
	view, err := scanReservationView(row)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation view", err)
	}
	return view, nil
}

const reservationViewsByUserSQL = `
SELECT ` + reservationViewColumns + `
FROM reservations r
LEFT JOIN waitlist_entries w
    ON w.reservation_id = r.id
   AND w.status IN ('waiting', 'queued', 'offer_sent')
WHERE r.user_id = $1
ORDER BY r.created_at DESC, r.id DESC`

func (r *ReservationReadStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*queries.ReservationView, error) {
	rows, err := r.db.Query(ctx, reservationViewsByUserSQL, pgconv.UUIDToPgtype(userID))
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list reservation views", err)
	}
	defer rows.Close()

	var views []*queries.ReservationView
	for rows.Next() {
		view, err := scanReservationView(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan reservation view", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read reservation views", err)
	}
	return views, nil
}

func scanReservationView(row rowScanner) (*queries.ReservationView, error) {
	var (
		id, estID, userID           pgtype.UUID
		slotID                      pgtype.UUID
		startsAt, endsAt            pgtype.Timestamptz
		partySize                   int32
		status, paymentStatus       string
		amountTotal, amountDeposit  pgtype.Int8
		bookingReference            pgtype.Text
		isFromWaitlist              bool
		createdAt, updatedAt        pgtype.Timestamptz
		entryID                     pgtype.UUID
		entryStatus                 pgtype.Text
		entryPosition               pgtype.Int4
		offerSentAt, offerExpiresAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&id, &estID, &userID, &slotID, &startsAt, &endsAt,
		&partySize, &status, &paymentStatus, &amountTotal, &amountDeposit,
		&bookingReference, &isFromWaitlist, &createdAt, &updatedAt,
		&entryID, &entryStatus, &entryPosition, &offerSentAt, &offerExpiresAt,
	); err != nil {
		return nil, err
	}

	view := &queries.ReservationView{
		ID:               uuid.UUID(id.Bytes),
		EstablishmentID:  uuid.UUID(estID.Bytes),
		UserID:           uuid.UUID(userID.Bytes),
		SlotID:           pgconv.UUIDPtrFromPgtype(slotID),
		StartsAt:         pgconv.TimeFromPgtype(startsAt),
		EndsAt:           pgconv.TimePtrFromPgtype(endsAt),
		PartySize:        partySize,
		Status:           status,
		PaymentStatus:    paymentStatus,
		AmountTotal:      pgconv.Int64PtrFromPgtype(amountTotal),
		AmountDeposit:    pgconv.Int64PtrFromPgtype(amountDeposit),
		BookingReference: pgconv.StringPtrFromPgtype(bookingReference),
		IsFromWaitlist:   isFromWaitlist,
		CreatedAt:        pgconv.TimeFromPgtype(createdAt),
		UpdatedAt:        pgconv.TimeFromPgtype(updatedAt),
	}

	if entryID.Valid {
		var position int32
		if entryPosition.Valid {
			position = entryPosition.Int32
		}
		view.WaitlistOffer = &queries.WaitlistOfferView{
			EntryID:        uuid.UUID(entryID.Bytes),
			Status:         entryStatus.String,
			Position:       position,
			OfferSentAt:    pgconv.TimePtrFromPgtype(offerSentAt),
			OfferExpiresAt: pgconv.TimePtrFromPgtype(offerExpiresAt),
		}
	}

	return view, nil
}
