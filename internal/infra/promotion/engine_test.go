//go:build unit

package promotion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"venuebook/internal/domain/slot"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/clock"
	"venuebook/internal/pkg/config"
	"venuebook/internal/usecase/shared"
	"venuebook/tests/common/builder"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The fakes embed the interfaces they stand in for; only the methods the
// engine touches are overridden.

type fakeReads struct {
	shared.CommandReads
	openOffer bool
	slot      *slot.Slot
	occupied  int32
	candidate *waitlist.Entry
}

func (f *fakeReads) OpenOfferExists(context.Context, uuid.UUID, time.Time) (bool, error) {
	return f.openOffer, nil
}

func (f *fakeReads) SlotByID(context.Context, uuid.UUID) (*slot.Slot, error) {
	return f.slot, nil
}

func (f *fakeReads) Occupied(context.Context, uuid.UUID) (int32, error) {
	return f.occupied, nil
}

func (f *fakeReads) NextCandidate(context.Context, uuid.UUID, *int32) (*waitlist.Entry, error) {
	if f.candidate == nil {
		return nil, infra.WrapRepoErr("not found", errors.New("no rows"), infra.KindNotFound)
	}
	return f.candidate, nil
}

type fakeWaitlistRepo struct {
	shared.WaitlistRepository
	conflict bool
	offers   map[uuid.UUID]time.Time
}

func (f *fakeWaitlistRepo) MarkOfferSent(_ context.Context, id uuid.UUID, _, expiresAt time.Time) error {
	if f.conflict {
		return infra.WrapRepoErr("offer race lost", errors.New("zero rows"), infra.KindConflict)
	}
	f.offers[id] = expiresAt
	return nil
}

type fakeEventRepo struct {
	events []waitlist.Event
}

func (f *fakeEventRepo) Append(_ context.Context, ev waitlist.Event) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeOutboxRepo struct {
	topics []string
}

func (f *fakeOutboxRepo) CreateJob(_ context.Context, _, topic string, _ []byte, _ time.Time) error {
	f.topics = append(f.topics, topic)
	return nil
}

type fakeTx struct {
	reads    *fakeReads
	entries  *fakeWaitlistRepo
	events   *fakeEventRepo
	outbox   *fakeOutboxRepo
}

func (t *fakeTx) Reservations() shared.ReservationRepository { return nil }
func (t *fakeTx) Waitlist() shared.WaitlistRepository        { return t.entries }
func (t *fakeTx) Events() shared.EventRepository             { return t.events }
func (t *fakeTx) Outbox() shared.OutboxRepository            { return t.outbox }
func (t *fakeTx) Reads() shared.CommandReads                 { return t.reads }
func (t *fakeTx) DB() db.DBTX                                { return nil }

type fakeUoW struct {
	tx *fakeTx
}

func (u *fakeUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, u.tx)
}

func (u *fakeUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (u *fakeUoW) CommandReads() shared.CommandReads { return u.tx.reads }

type deniedLocker struct{}

func (deniedLocker) Acquire(context.Context, uuid.UUID) (bool, func(), error) {
	return false, func() {}, nil
}

type engineFixture struct {
	tx     *fakeTx
	clock  *clock.MockClock
	engine *Engine
}

func newEngineFixture(locker Locker) *engineFixture {
	tx := &fakeTx{
		reads:   &fakeReads{},
		entries: &fakeWaitlistRepo{offers: map[uuid.UUID]time.Time{}},
		events:  &fakeEventRepo{},
		outbox:  &fakeOutboxRepo{},
	}
	clk := clock.NewMockClock(time.Now().UTC())
	cfg := config.BookingConfig{OfferTTL: 30 * time.Minute}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &engineFixture{
		tx:     tx,
		clock:  clk,
		engine: NewEngine(&fakeUoW{tx: tx}, locker, clk, cfg, logger),
	}
}

func TestPromote(t *testing.T) {
	ctx := context.Background()

	t.Run("offers freed capacity to the next candidate", func(t *testing.T) {
		fx := newEngineFixture(NoopLocker{})
		sb := builder.NewSlotBuilder().WithCapacity(4)
		entry := builder.NewWaitlistEntryBuilder().Build()
		fx.tx.reads.slot = sb.Build()
		fx.tx.reads.occupied = 3
		fx.tx.reads.candidate = entry

		require.NoError(t, fx.engine.Promote(ctx, sb.ID, waitlist.ReasonReservationCancelled))

		expiry, marked := fx.tx.entries.offers[entry.ID()]
		require.True(t, marked)
		assert.Equal(t, fx.clock.Now().Add(30*time.Minute), expiry)
		require.Len(t, fx.tx.events.events, 1)
		assert.Equal(t, waitlist.EventOfferSent, fx.tx.events.events[0].EventType)
		assert.Equal(t, []string{"waitlist.offer_sent"}, fx.tx.outbox.topics)
	})

	t.Run("an open offer blocks a second one", func(t *testing.T) {
		fx := newEngineFixture(NoopLocker{})
		fx.tx.reads.openOffer = true

		require.NoError(t, fx.engine.Promote(ctx, uuid.New(), waitlist.ReasonRefuseOffer))
		assert.Empty(t, fx.tx.entries.offers)
		assert.Empty(t, fx.tx.events.events)
	})

	t.Run("no remaining capacity is a no-op", func(t *testing.T) {
		fx := newEngineFixture(NoopLocker{})
		sb := builder.NewSlotBuilder().WithCapacity(4)
		fx.tx.reads.slot = sb.Build()
		fx.tx.reads.occupied = 4
		fx.tx.reads.candidate = builder.NewWaitlistEntryBuilder().Build()

		require.NoError(t, fx.engine.Promote(ctx, sb.ID, waitlist.ReasonCancelWaitlist))
		assert.Empty(t, fx.tx.entries.offers)
	})

	t.Run("empty queue is a no-op", func(t *testing.T) {
		fx := newEngineFixture(NoopLocker{})
		sb := builder.NewSlotBuilder()
		fx.tx.reads.slot = sb.Build()

		require.NoError(t, fx.engine.Promote(ctx, sb.ID, waitlist.ReasonOfferExpiredSweep))
		assert.Empty(t, fx.tx.entries.offers)
	})

	t.Run("losing the offer write race is tolerated", func(t *testing.T) {
		fx := newEngineFixture(NoopLocker{})
		sb := builder.NewSlotBuilder()
		fx.tx.reads.slot = sb.Build()
		fx.tx.reads.candidate = builder.NewWaitlistEntryBuilder().Build()
		fx.tx.entries.conflict = true

		require.NoError(t, fx.engine.Promote(ctx, sb.ID, waitlist.ReasonReservationCancelled))
		assert.Empty(t, fx.tx.events.events)
	})

	t.Run("contended lock skips the run", func(t *testing.T) {
		fx := newEngineFixture(deniedLocker{})
		fx.tx.reads.candidate = builder.NewWaitlistEntryBuilder().Build()

		require.NoError(t, fx.engine.Promote(ctx, uuid.New(), waitlist.ReasonReservationCancelled))
		assert.Empty(t, fx.tx.entries.offers)
	})
}
