package repository

import (
	"context"
	"time"

	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type WaitlistRepository struct {
	db db.DBTX
}

func NewWaitlistRepository(dbtx db.DBTX) *WaitlistRepository {
	return &WaitlistRepository{db: dbtx}
}

const insertEntrySQL = `
INSERT INTO waitlist_entries (
    id, reservation_id, slot_id, user_id, status, position
) VALUES ($1, $2, $3, $4, $5, $6)`

// Create relies on the partial unique index over (user_id, slot_id) for
// active statuses; a second active entry surfaces as DUPLICATE_KEY.
func (r *WaitlistRepository) Create(ctx context.Context, e *waitlist.Entry) error {
	_, err := r.db.Exec(ctx, insertEntrySQL,
		pgconv.UUIDToPgtype(e.ID()),
		pgconv.UUIDToPgtype(e.ReservationID()),
		pgconv.UUIDToPgtype(e.SlotID()),
		pgconv.UUIDToPgtype(e.UserID()),
		string(e.Status()),
		e.Position(),
	)
	if err != nil {
		return classify("failed to create waitlist entry", err)
	}
	return nil
}

const updateEntryStatusSQL = `
UPDATE waitlist_entries SET status = $2, updated_at = now() WHERE id = $1`

func (r *WaitlistRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status waitlist.Status) error {
	tag, err := r.db.Exec(ctx, updateEntryStatusSQL,
		pgconv.UUIDToPgtype(id),
		string(status),
	)
	if err != nil {
		return classify("failed to update waitlist entry status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("waitlist entry not found", nil, infra.KindNotFound)
	}
	return nil
}

const markOfferSentSQL = `
UPDATE waitlist_entries
SET status = 'offer_sent',
    offer_sent_at = $2,
    offer_expires_at = $3,
    updated_at = now()
WHERE id = $1 AND status IN ('waiting', 'queued')`

func (r *WaitlistRepository) MarkOfferSent(ctx context.Context, id uuid.UUID, sentAt, expiresAt time.Time) error {
	tag, err := r.db.Exec(ctx, markOfferSentSQL,
		pgconv.UUIDToPgtype(id),
		pgconv.TimeToPgtype(sentAt),
		pgconv.TimeToPgtype(expiresAt),
	)
	if err != nil {
		return classify("failed to mark offer sent", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("entry is not awaiting an offer", nil, infra.KindConflict)
	}
	return nil
}

const expireOfferSQL = `
UPDATE waitlist_entries
SET status = 'offer_expired', updated_at = now()
WHERE id = $1 AND status = 'offer_sent' AND offer_expires_at <= $2`

// ExpireOffer is conditional so the lazy check and the sweep can both
// call it for the same entry; only one flip ever happens.
func (r *WaitlistRepository) ExpireOffer(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, expireOfferSQL,
		pgconv.UUIDToPgtype(id),
		pgconv.TimeToPgtype(now),
	)
	if err != nil {
		return false, classify("failed to expire offer", err)
	}
	return tag.RowsAffected() > 0, nil
}
