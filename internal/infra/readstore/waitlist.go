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

type WaitlistReadStore struct {
	db db.DBTX
}

func NewWaitlistReadStore(dbtx db.DBTX) *WaitlistReadStore {
	return &WaitlistReadStore{db: dbtx}
}

var _ queries.WaitlistQueries = (*WaitlistReadStore)(nil)

const waitlistViewsByUserSQL = `
SELECT w.id, w.reservation_id, w.slot_id, w.user_id, r.establishment_id,
       w.status, w.position, r.starts_at, r.ends_at, r.party_size,
       w.offer_sent_at, w.offer_expires_at, w.created_at, w.updated_at
FROM waitlist_entries w
JOIN reservations r ON r.id = w.reservation_id
WHERE w.user_id = $1
  AND (
      ($2 = 'active' AND w.status IN ('waiting', 'queued', 'offer_sent'))
   OR ($2 = 'expired' AND w.status = 'offer_expired')
   OR ($2 = 'all')
  )
ORDER BY w.created_at DESC`

func (r *WaitlistReadStore) ListByUser(ctx context.Context, userID uuid.UUID, filter queries.WaitlistFilter) ([]*queries.WaitlistEntryView, error) {
	rows, err := r.db.Query(ctx, waitlistViewsByUserSQL,
		pgconv.UUIDToPgtype(userID),
		string(filter),
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list waitlist views", err)
	}
	defer rows.Close()

	var views []*queries.WaitlistEntryView
	for rows.Next() {
		var (
			id, reservationID, slotID, uid pgtype.UUID
			estID                          pgtype.UUID
			status                         string
			position                       int32
			startsAt, endsAt               pgtype.Timestamptz
			partySize                      int32
			offerSentAt, offerExpiresAt    pgtype.Timestamptz
			createdAt, updatedAt           pgtype.Timestamptz
		)
		if err := rows.Scan(
			&id, &reservationID, &slotID, &uid, &estID,
			&status, &position, &startsAt, &endsAt, &partySize,
			&offerSentAt, &offerExpiresAt, &createdAt, &updatedAt,
		); err != nil {
			return nil, infra.WrapRepoErr("failed to scan waitlist view", err)
		}
		views = append(views, &queries.WaitlistEntryView{
			ID:              uuid.UUID(id.Bytes),
			ReservationID:   uuid.UUID(reservationID.Bytes),
			SlotID:          uuid.UUID(slotID.Bytes),
			UserID:          uuid.UUID(uid.Bytes),
			EstablishmentID: uuid.UUID(estID.Bytes),
			Status:          status,
			Position:        position,
			StartsAt:        pgconv.TimeFromPgtype(startsAt),
			EndsAt:          pgconv.TimePtrFromPgtype(endsAt),
			PartySize:       partySize,
			OfferSentAt:     pgconv.TimePtrFromPgtype(offerSentAt),
			OfferExpiresAt:  pgconv.TimePtrFromPgtype(offerExpiresAt),
			CreatedAt:       pgconv.TimeFromPgtype(createdAt),
			UpdatedAt:       pgconv.TimeFromPgtype(updatedAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read waitlist views", err)
	}
	return views, nil
}
