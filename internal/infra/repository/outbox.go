package repository

import (
	"context"
	"time"

	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/pgconv"

	"github.com/google/uuid"
)

type OutboxRepository struct {
	db db.DBTX
}

func NewOutboxRepository(dbtx db.DBTX) *OutboxRepository {
	return &OutboxRepository{db: dbtx}
}

const insertJobSQL = `
INSERT INTO outbox_jobs (
    id, kind, topic, payload, status, attempts, run_at
) VALUES ($1, $2, $3, $4, 'pending', 0, $5)`

// CreateJob records the side-effect intent in the same transaction as
// the domain write. The worker picks it up after commit.
func (r *OutboxRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx, insertJobSQL,
		pgconv.UUIDToPgtype(uuid.New()),
		kind,
		topic,
		payload,
		pgconv.TimeToPgtype(runAt),
	)
	if err != nil {
		return classify("failed to create outbox job", err)
	}
	return nil
}
