package repository

import (
	"context"
	"encoding/json"

	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type EventRepository struct {
	db db.DBTX
}

func NewEventRepository(dbtx db.DBTX) *EventRepository {
	return &EventRepository{db: dbtx}
}

const appendEventSQL = `
INSERT INTO waitlist_events (
    id, entry_id, reservation_id, event_type, actor_role, actor_user_id, metadata
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *EventRepository) Append(ctx context.Context, ev waitlist.Event) error {
	metadata, err := json.Marshal(ev.Metadata)
	if err != nil {
		return infra.WrapRepoErr("failed to marshal event metadata", err)
	}

	// System-originated events carry no actor id.
	actor := pgtype.UUID{}
	if ev.ActorUserID != uuid.Nil {
		actor = pgconv.UUIDToPgtype(ev.ActorUserID)
	}

	_, err = r.db.Exec(ctx, appendEventSQL,
		pgconv.UUIDToPgtype(ev.ID),
		pgconv.UUIDToPgtype(ev.EntryID),
		pgconv.UUIDToPgtype(ev.ReservationID),
		string(ev.EventType),
		string(ev.ActorRole),
		actor,
		metadata,
	)
	if err != nil {
		return classify("failed to append waitlist event", err)
	}
	return nil
}
