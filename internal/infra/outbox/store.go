package outbox

import (
	"context"
	"time"

	"venuebook/internal/infra"
	"venuebook/internal/pkg/pgconv"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Job is one pending side effect claimed from the outbox table.
type Job struct {
	ID       uuid.UUID
	Kind     string
	Topic    string
	Payload  []byte
	Attempts int32
	RunAt    time.Time
}

// JobStore is the worker's view of the outbox table.
type JobStore interface {
	// ClaimDue locks up to limit due jobs for this worker. Claims use
	// SKIP LOCKED so concurrent workers never double-deliver.
	ClaimDue(ctx context.Context, tx shared.Tx, now time.Time, limit int32) ([]Job, error)
	MarkDone(ctx context.Context, tx shared.Tx, id uuid.UUID) error
	Reschedule(ctx context.Context, tx shared.Tx, id uuid.UUID, runAt time.Time) error
	MarkFailed(ctx context.Context, tx shared.Tx, id uuid.UUID) error
}

type jobStore struct{}

func NewJobStore() JobStore {
	return &jobStore{}
}

const claimDueSQL = `
SELECT id, kind, topic, payload, attempts, run_at
FROM outbox_jobs
WHERE status = 'pending' AND run_at <= $1
ORDER BY run_at ASC
LIMIT $2
FOR UPDATE SKIP LOCKED`

func (s *jobStore) ClaimDue(ctx context.Context, tx shared.Tx, now time.Time, limit int32) ([]Job, error) {
	rows, err := tx.DB().Query(ctx, claimDueSQL, pgconv.TimeToPgtype(now), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim outbox jobs", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			id      pgtype.UUID
			job     Job
			runAt   pgtype.Timestamptz
			payload []byte
		)
		if err := rows.Scan(&id, &job.Kind, &job.Topic, &payload, &job.Attempts, &runAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan outbox job", err)
		}
		job.ID = uuid.UUID(id.Bytes)
		job.Payload = payload
		job.RunAt = pgconv.TimeFromPgtype(runAt)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to read outbox jobs", err)
	}
	return jobs, nil
}

const markDoneSQL = `
UPDATE outbox_jobs SET status = 'done', updated_at = now() WHERE id = $1`

func (s *jobStore) MarkDone(ctx context.Context, tx shared.Tx, id uuid.UUID) error {
	if _, err := tx.DB().Exec(ctx, markDoneSQL, pgconv.UUIDToPgtype(id)); err != nil {
		return infra.WrapRepoErr("failed to mark outbox job done", err)
	}
	return nil
}

const rescheduleSQL = `
UPDATE outbox_jobs
SET attempts = attempts + 1, run_at = $2, updated_at = now()
WHERE id = $1`

func (s *jobStore) Reschedule(ctx context.Context, tx shared.Tx, id uuid.UUID, runAt time.Time) error {
	if _, err := tx.DB().Exec(ctx, rescheduleSQL, pgconv.UUIDToPgtype(id), pgconv.TimeToPgtype(runAt)); err != nil {
		return infra.WrapRepoErr("failed to reschedule outbox job", err)
	}
	return nil
}

const markFailedSQL = `
UPDATE outbox_jobs
SET status = 'failed', attempts = attempts + 1, updated_at = now()
WHERE id = $1`

func (s *jobStore) MarkFailed(ctx context.Context, tx shared.Tx, id uuid.UUID) error {
	if _, err := tx.DB().Exec(ctx, markFailedSQL, pgconv.UUIDToPgtype(id)); err != nil {
		return infra.WrapRepoErr("failed to mark outbox job failed", err)
	}
	return nil
}
