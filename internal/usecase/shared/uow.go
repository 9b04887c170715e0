package shared

import (
	"context"
	"time"

	"venuebook/internal/domain/booking"
	"venuebook/internal/domain/slot"
	"venuebook/internal/domain/waitlist"
	"venuebook/internal/infra/db"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: full transaction for write operations with retry on
	// serialization failures.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: single query operations using implicit transactions.
	WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
	// CommandReads: direct access to command reads outside transactions.
	CommandReads() CommandReads
}

type Tx interface {
	Reservations() ReservationRepository
	Waitlist() WaitlistRepository
	Events() EventRepository
	Outbox() OutboxRepository
	Reads() CommandReads
	DB() db.DBTX
}

// CommandReads are the point reads commands need for validation. All of
// them are point-in-time snapshots; consistency under concurrency comes
// from the conditional writes, not from these reads.
type CommandReads interface {
	SlotByID(ctx context.Context, id uuid.UUID) (*slot.Slot, error)
	// Occupied sums party_size over the slot's reservations in occupying
	// statuses (the capacity ledger).
	Occupied(ctx context.Context, slotID uuid.UUID) (int32, error)
	ActiveWaitlistExists(ctx context.Context, slotID uuid.UUID) (bool, error)
	ActiveEntryForUserSlot(ctx context.Context, userID, slotID uuid.UUID) (*waitlist.Entry, error)
	// UserReservationsInWindow returns the user's reservations, across all
	// establishments, whose starts_at falls inside [from, to).
	UserReservationsInWindow(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]booking.ExistingReservation, error)
	ReservationByID(ctx context.Context, id uuid.UUID) (*booking.Reservation, error)
	ReservationByReference(ctx context.Context, userID uuid.UUID, reference string) (*booking.Reservation, error)
	EntryByID(ctx context.Context, id uuid.UUID) (*waitlist.Entry, error)
	EntriesByUser(ctx context.Context, userID uuid.UUID) ([]*waitlist.Entry, error)
	// NextCandidate returns the oldest waiting/queued entry for the slot
	// whose reservation's party size fits the remaining capacity.
	NextCandidate(ctx context.Context, slotID uuid.UUID, remaining *int32) (*waitlist.Entry, error)
	// OpenOfferExists guards against double-offering: true when the slot
	// has an offer_sent entry that has not expired yet.
	OpenOfferExists(ctx context.Context, slotID uuid.UUID, now time.Time) (bool, error)
	// ExpiredOfferEntries lists offer_sent entries past their deadline,
	// oldest first, for the sweep worker.
	ExpiredOfferEntries(ctx context.Context, now time.Time, limit int32) ([]*waitlist.Entry, error)
	MaxQueuePosition(ctx context.Context, slotID uuid.UUID) (int32, error)
}

type ReservationRepository interface {
	// Create inserts unconditionally (waitlist companions, bookings not
	// bound to a slot).
	Create(ctx context.Context, res *booking.Reservation) error
	// CreateIfCapacity inserts only while the slot still has room for the
	// party in one conditional statement; false means the capacity check
	// failed at write time.
	CreateIfCapacity(ctx context.Context, res *booking.Reservation) (bool, error)
	// UpdateBookingFields is the idempotent update-in-place applied when a
	// booking reference is replayed.
	UpdateBookingFields(ctx context.Context, res *booking.Reservation) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status booking.Status) error
	// Convert moves a waitlist companion into an occupying booking with
	// its resolved amounts.
	Convert(ctx context.Context, id uuid.UUID, status booking.Status, quote booking.Quote) error
}

type WaitlistRepository interface {
	Create(ctx context.Context, e *waitlist.Entry) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status waitlist.Status) error
	MarkOfferSent(ctx context.Context, id uuid.UUID, sentAt, expiresAt time.Time) error
	// ExpireOffer conditionally flips offer_sent -> offer_expired; false
	// means another caller got there first (safe to call redundantly).
	ExpireOffer(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)
}

type EventRepository interface {
	Append(ctx context.Context, ev waitlist.Event) error
}

// OutboxRepository persists side-effect intents transactionally with the
// primary write; an independent worker drains them.
type OutboxRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}
