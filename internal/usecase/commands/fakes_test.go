//go:build unit

package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"venuebook/internal/domain/booking"
	"venuebook/internal/domain/slot"
	"venuebook/internal/domain/user"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra"
	"venuebook/internal/infra/db"
	"venuebook/internal/pkg/config"
	"venuebook/internal/usecase/queries"
	"venuebook/internal/usecase/shared"

	"github.com/google/uuid"
)

func notFoundErr() error {
	return infra.WrapRepoErr("not found", errors.New("no rows in result set"), infra.KindNotFound)
}

func duplicateKeyErr() error {
	return infra.WrapRepoErr("duplicate key", errors.New("unique violation"), infra.KindDuplicateKey)
}

func testConfig() config.BookingConfig {
	return config.BookingConfig{
		OfferTTL:      30 * time.Minute,
		OverlapWindow: 6 * time.Hour,
		MaxAdvance:    365 * 24 * time.Hour,
		PastGrace:     5 * time.Minute,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeReads stubs the command-side point reads. Unset functions fall back
// to empty results or a not-found error where an entity is expected.
type fakeReads struct {
	SlotByIDFn                 func(ctx context.Context, id uuid.UUID) (*slot.Slot, error)
	OccupiedFn                 func(ctx context.Context, slotID uuid.UUID) (int32, error)
	ActiveWaitlistExistsFn     func(ctx context.Context, slotID uuid.UUID) (bool, error)
	ActiveEntryForUserSlotFn   func(ctx context.Context, userID, slotID uuid.UUID) (*waitlist.Entry, error)
	UserReservationsInWindowFn func(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]booking.ExistingReservation, error)
	ReservationByIDFn          func(ctx context.Context, id uuid.UUID) (*booking.Reservation, error)
	ReservationByReferenceFn   func(ctx context.Context, userID uuid.UUID, reference string) (*booking.Reservation, error)
	EntryByIDFn                func(ctx context.Context, id uuid.UUID) (*waitlist.Entry, error)
	EntriesByUserFn            func(ctx context.Context, userID uuid.UUID) ([]*waitlist.Entry, error)
	NextCandidateFn            func(ctx context.Context, slotID uuid.UUID, remaining *int32) (*waitlist.Entry, error)
	OpenOfferExistsFn          func(ctx context.Context, slotID uuid.UUID, now time.Time) (bool, error)
	ExpiredOfferEntriesFn      func(ctx context.Context, now time.Time, limit int32) ([]*waitlist.Entry, error)
	MaxQueuePositionFn         func(ctx context.Context, slotID uuid.UUID) (int32, error)
}

func (f *fakeReads) SlotByID(ctx context.Context, id uuid.UUID) (*slot.Slot, error) {
	if f.SlotByIDFn != nil {
		return f.SlotByIDFn(ctx, id)
	}
	return nil, notFoundErr()
}

func (f *fakeReads) Occupied(ctx context.Context, slotID uuid.UUID) (int32, error) {
	if f.OccupiedFn != nil {
		return f.OccupiedFn(ctx, slotID)
	}
	return 0, nil
}

func (f *fakeReads) ActiveWaitlistExists(ctx context.Context, slotID uuid.UUID) (bool, error) {
	if f.ActiveWaitlistExistsFn != nil {
		return f.ActiveWaitlistExistsFn(ctx, slotID)
	}
	return false, nil
}

func (f *fakeReads) ActiveEntryForUserSlot(ctx context.Context, userID, slotID uuid.UUID) (*waitlist.Entry, error) {
	if f.ActiveEntryForUserSlotFn != nil {
		return f.ActiveEntryForUserSlotFn(ctx, userID, slotID)
	}
	return nil, notFoundErr()
}

func (f *fakeReads) UserReservationsInWindow(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]booking.ExistingReservation, error) {
	if f.UserReservationsInWindowFn != nil {
		return f.UserReservationsInWindowFn(ctx, userID, from, to)
	}
	return nil, nil
}

func (f *fakeReads) ReservationByID(ctx context.Context, id uuid.UUID) (*booking.Reservation, error) {
	if f.ReservationByIDFn != nil {
		return f.ReservationByIDFn(ctx, id)
	}
	return nil, notFoundErr()
}

func (f *fakeReads) ReservationByReference(ctx context.Context, userID uuid.UUID, reference string) (*booking.Reservation, error) {
	if f.ReservationByReferenceFn != nil {
		return f.ReservationByReferenceFn(ctx, userID, reference)
	}
	return nil, notFoundErr()
}

func (f *fakeReads) EntryByID(ctx context.Context, id uuid.UUID) (*waitlist.Entry, error) {
	if f.EntryByIDFn != nil {
		return f.EntryByIDFn(ctx, id)
	}
	return nil, notFoundErr()
}

func (f *fakeReads) EntriesByUser(ctx context.Context, userID uuid.UUID) ([]*waitlist.Entry, error) {
	if f.EntriesByUserFn != nil {
		return f.EntriesByUserFn(ctx, userID)
	}
	return nil, nil
}

func (f *fakeReads) NextCandidate(ctx context.Context, slotID uuid.UUID, remaining *int32) (*waitlist.Entry, error) {
	if f.NextCandidateFn != nil {
		return f.NextCandidateFn(ctx, slotID, remaining)
	}
	return nil, notFoundErr()
}

func (f *fakeReads) OpenOfferExists(ctx context.Context, slotID uuid.UUID, now time.Time) (bool, error) {
	if f.OpenOfferExistsFn != nil {
		return f.OpenOfferExistsFn(ctx, slotID, now)
	}
	return false, nil
}

func (f *fakeReads) ExpiredOfferEntries(ctx context.Context, now time.Time, limit int32) ([]*waitlist.Entry, error) {
	if f.ExpiredOfferEntriesFn != nil {
		return f.ExpiredOfferEntriesFn(ctx, now, limit)
	}
	return nil, nil
}

func (f *fakeReads) MaxQueuePosition(ctx context.Context, slotID uuid.UUID) (int32, error) {
	if f.MaxQueuePositionFn != nil {
		return f.MaxQueuePositionFn(ctx, slotID)
	}
	return 0, nil
}

// fakeReservationRepo records writes and lets tests script conditional
// insert outcomes.
type fakeReservationRepo struct {
	Created            []*booking.Reservation
	Updated            []*booking.Reservation
	StatusUpdates      map[uuid.UUID]booking.Status
	Converted          map[uuid.UUID]booking.Status
	CapacityAvailable  bool
	CreateErr          error
	CreateIfCapacityFn func(ctx context.Context, res *booking.Reservation) (bool, error)
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{
		StatusUpdates:     map[uuid.UUID]booking.Status{},
		Converted:         map[uuid.UUID]booking.Status{},
		CapacityAvailable: true,
	}
}

func (f *fakeReservationRepo) Create(_ context.Context, res *booking.Reservation) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Created = append(f.Created, res)
	return nil
}

func (f *fakeReservationRepo) CreateIfCapacity(ctx context.Context, res *booking.Reservation) (bool, error) {
	if f.CreateIfCapacityFn != nil {
		return f.CreateIfCapacityFn(ctx, res)
	}
	if !f.CapacityAvailable {
		return false, nil
	}
	f.Created = append(f.Created, res)
	return true, nil
}

func (f *fakeReservationRepo) UpdateBookingFields(_ context.Context, res *booking.Reservation) error {
	f.Updated = append(f.Updated, res)
	return nil
}

func (f *fakeReservationRepo) UpdateStatus(_ context.Context, id uuid.UUID, status booking.Status) error {
	f.StatusUpdates[id] = status
	return nil
}

func (f *fakeReservationRepo) Convert(_ context.Context, id uuid.UUID, status booking.Status, _ booking.Quote) error {
	f.Converted[id] = status
	return nil
}

type fakeWaitlistRepo struct {
	Created       []*waitlist.Entry
	StatusUpdates map[uuid.UUID]waitlist.Status
	OffersMarked  map[uuid.UUID]time.Time
	Expired       []uuid.UUID
	CreateErr     error
	ExpireOfferFn func(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

func newFakeWaitlistRepo() *fakeWaitlistRepo {
	return &fakeWaitlistRepo{
		StatusUpdates: map[uuid.UUID]waitlist.Status{},
		OffersMarked:  map[uuid.UUID]time.Time{},
	}
}

func (f *fakeWaitlistRepo) Create(_ context.Context, e *waitlist.Entry) error {
	if f.CreateErr != nil {
		return f.CreateErr
	}
	f.Created = append(f.Created, e)
	return nil
}

func (f *fakeWaitlistRepo) UpdateStatus(_ context.Context, id uuid.UUID, status waitlist.Status) error {
	f.StatusUpdates[id] = status
	return nil
}

func (f *fakeWaitlistRepo) MarkOfferSent(_ context.Context, id uuid.UUID, _, expiresAt time.Time) error {
	f.OffersMarked[id] = expiresAt
	return nil
}

func (f *fakeWaitlistRepo) ExpireOffer(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	if f.ExpireOfferFn != nil {
		return f.ExpireOfferFn(ctx, id, now)
	}
	f.Expired = append(f.Expired, id)
	return true, nil
}

type fakeEventRepo struct {
	Events []waitlist.Event
}

func (f *fakeEventRepo) Append(_ context.Context, ev waitlist.Event) error {
	f.Events = append(f.Events, ev)
	return nil
}

func (f *fakeEventRepo) typesSeen() []waitlist.EventType {
	types := make([]waitlist.EventType, 0, len(f.Events))
	for _, ev := range f.Events {
		types = append(types, ev.EventType)
	}
	return types
}

type outboxJob struct {
	Kind  string
	Topic string
}

type fakeOutboxRepo struct {
	Jobs []outboxJob
}

func (f *fakeOutboxRepo) CreateJob(_ context.Context, kind, topic string, _ []byte, _ time.Time) error {
	f.Jobs = append(f.Jobs, outboxJob{Kind: kind, Topic: topic})
	return nil
}

func (f *fakeOutboxRepo) topics() []string {
	topics := make([]string, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		topics = append(topics, j.Topic)
	}
	return topics
}

type fakeTx struct {
	reads        *fakeReads
	reservations *fakeReservationRepo
	waitlist     *fakeWaitlistRepo
	events       *fakeEventRepo
	outbox       *fakeOutboxRepo
}

func newFakeTx() *fakeTx {
	return &fakeTx{
		reads:        &fakeReads{},
		reservations: newFakeReservationRepo(),
		waitlist:     newFakeWaitlistRepo(),
		events:       &fakeEventRepo{},
		outbox:       &fakeOutboxRepo{},
	}
}

func (t *fakeTx) Reservations() shared.ReservationRepository { return t.reservations }
func (t *fakeTx) Waitlist() shared.WaitlistRepository        { return t.waitlist }
func (t *fakeTx) Events() shared.EventRepository             { return t.events }
func (t *fakeTx) Outbox() shared.OutboxRepository            { return t.outbox }
func (t *fakeTx) Reads() shared.CommandReads                 { return t.reads }
func (t *fakeTx) DB() db.DBTX                                { return nil }

// fakeUoW runs the closure against a single fake transaction. An error
// from the closure stands in for a rollback, so tests must not assert on
// recorded writes after a failed call.
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

type dispatched struct {
	SlotID uuid.UUID
	Reason waitlist.PromotionReason
}

type fakePromoter struct {
	Calls []dispatched
}

func (f *fakePromoter) Dispatch(slotID uuid.UUID, _ user.Role, _ uuid.UUID, reason waitlist.PromotionReason) {
	f.Calls = append(f.Calls, dispatched{SlotID: slotID, Reason: reason})
}

type fakeReservationQueries struct {
	FindByIDFn   func(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error)
	ListByUserFn func(ctx context.Context, userID uuid.UUID) ([]*queries.ReservationView, error)
}

func (f *fakeReservationQueries) FindByID(ctx context.Context, id uuid.UUID) (*queries.ReservationView, error) {
	if f.FindByIDFn != nil {
		return f.FindByIDFn(ctx, id)
	}
	return &queries.ReservationView{ID: id}, nil
}

func (f *fakeReservationQueries) ListByUser(ctx context.Context, userID uuid.UUID) ([]*queries.ReservationView, error) {
	if f.ListByUserFn != nil {
		return f.ListByUserFn(ctx, userID)
	}
	return nil, nil
}

type fakeWaitlistQueries struct {
	ListByUserFn func(ctx context.Context, userID uuid.UUID, filter queries.WaitlistFilter) ([]*queries.WaitlistEntryView, error)
}

func (f *fakeWaitlistQueries) ListByUser(ctx context.Context, userID uuid.UUID, filter queries.WaitlistFilter) ([]*queries.WaitlistEntryView, error) {
	if f.ListByUserFn != nil {
		return f.ListByUserFn(ctx, userID, filter)
	}
	return nil, nil
}

var (
	_ shared.CommandReads          = (*fakeReads)(nil)
	_ shared.ReservationRepository = (*fakeReservationRepo)(nil)
	_ shared.WaitlistRepository    = (*fakeWaitlistRepo)(nil)
	_ shared.EventRepository       = (*fakeEventRepo)(nil)
	_ shared.OutboxRepository      = (*fakeOutboxRepo)(nil)
	_ shared.Tx                    = (*fakeTx)(nil)
	_ shared.UnitOfWork            = (*fakeUoW)(nil)
	_ shared.Promoter              = (*fakePromoter)(nil)
	_ queries.ReservationQueries   = (*fakeReservationQueries)(nil)
	_ queries.WaitlistQueries      = (*fakeWaitlistQueries)(nil)
)
