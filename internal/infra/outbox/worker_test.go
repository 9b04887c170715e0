//go:build unit

package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/clock"
	"venuebook/internal/pkg/config"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTx struct{}

func (stubTx) Reservations() shared.ReservationRepository { return nil }
func (stubTx) Waitlist() shared.WaitlistRepository        { return nil }
func (stubTx) Events() shared.EventRepository             { return nil }
func (stubTx) Outbox() shared.OutboxRepository            { return nil }
func (stubTx) Reads() shared.CommandReads                 { return nil }
func (stubTx) DB() db.DBTX                                { return nil }

type stubUoW struct{}

func (stubUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, stubTx{})
}

func (stubUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (stubUoW) CommandReads() shared.CommandReads { return nil }

type fakeJobStore struct {
	due         []Job
	done        []uuid.UUID
	rescheduled map[uuid.UUID]time.Time
	failed      []uuid.UUID
}

func newFakeJobStore(due ...Job) *fakeJobStore {
	return &fakeJobStore{due: due, rescheduled: map[uuid.UUID]time.Time{}}
}

func (f *fakeJobStore) ClaimDue(_ context.Context, _ shared.Tx, _ time.Time, _ int32) ([]Job, error) {
	return f.due, nil
}

func (f *fakeJobStore) MarkDone(_ context.Context, _ shared.Tx, id uuid.UUID) error {
	f.done = append(f.done, id)
	return nil
}

func (f *fakeJobStore) Reschedule(_ context.Context, _ shared.Tx, id uuid.UUID, runAt time.Time) error {
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeJobStore) MarkFailed(_ context.Context, _ shared.Tx, id uuid.UUID) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(_ context.Context, _, topic string, _ []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, topic)
	return nil
}

func testWorker(store JobStore, pub Publisher, clk clock.Clock, maxAttempts int) *Worker {
	cfg := config.BookingConfig{
		OutboxInterval:    time.Second,
		OutboxBatchSize:   50,
		OutboxMaxAttempts: maxAttempts,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewWorker(stubUoW{}, store, pub, clk, cfg, logger)
}

func TestDrainOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("successful publish marks the job done", func(t *testing.T) {
		job := Job{ID: uuid.New(), Kind: "consumer_notification", Topic: "waitlist.joined"}
		store := newFakeJobStore(job)
		pub := &fakePublisher{}
		w := testWorker(store, pub, clock.NewMockClock(now), 10)

		require.NoError(t, w.DrainOnce(ctx))

		assert.Equal(t, []string{"waitlist.joined"}, pub.published)
		assert.Equal(t, []uuid.UUID{job.ID}, store.done)
		assert.Empty(t, store.rescheduled)
		assert.Empty(t, store.failed)
	})

	t.Run("failed publish reschedules with backoff", func(t *testing.T) {
		job := Job{ID: uuid.New(), Topic: "reservation.created", Attempts: 2}
		store := newFakeJobStore(job)
		pub := &fakePublisher{err: errors.New("broker unreachable")}
		w := testWorker(store, pub, clock.NewMockClock(now), 10)

		require.NoError(t, w.DrainOnce(ctx))

		assert.Empty(t, store.done)
		require.Contains(t, store.rescheduled, job.ID)
		assert.Equal(t, now.Add(2*time.Minute), store.rescheduled[job.ID])
	})

	t.Run("exhausted attempts abandon the job", func(t *testing.T) {
		job := Job{ID: uuid.New(), Topic: "reservation.created", Attempts: 4}
		store := newFakeJobStore(job)
		pub := &fakePublisher{err: errors.New("broker unreachable")}
		w := testWorker(store, pub, clock.NewMockClock(now), 5)

		require.NoError(t, w.DrainOnce(ctx))

		assert.Equal(t, []uuid.UUID{job.ID}, store.failed)
		assert.Empty(t, store.rescheduled)
	})

	t.Run("one bad job does not block the batch", func(t *testing.T) {
		bad := Job{ID: uuid.New(), Topic: "bad"}
		good := Job{ID: uuid.New(), Topic: "good"}
		store := newFakeJobStore(bad, good)
		w := testWorker(store, &selectivePublisher{failTopic: "bad"}, clock.NewMockClock(now), 10)

		require.NoError(t, w.DrainOnce(ctx))

		require.Contains(t, store.rescheduled, bad.ID)
		assert.Equal(t, []uuid.UUID{good.ID}, store.done)
	})
}

type selectivePublisher struct {
	failTopic string
}

func (p *selectivePublisher) Publish(_ context.Context, _, topic string, _ []byte) error {
	if topic == p.failTopic {
		return errors.New("broker rejected message")
	}
	return nil
}

func TestBackoff(t *testing.T) {
	cases := []struct {
		attempts int32
		want     time.Duration
	}{
		{attempts: 0, want: 30 * time.Second},
		{attempts: 1, want: time.Minute},
		{attempts: 4, want: 8 * time.Minute},
		{attempts: 6, want: 32 * time.Minute},
		{attempts: 7, want: time.Hour},
		{attempts: 40, want: time.Hour},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, backoff(tc.attempts), "attempts=%d", tc.attempts)
	}
}
