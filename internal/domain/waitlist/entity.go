package waitlist

import (
	"time"

	"venuebook/internal/domain/user"
	"venuebook/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrNotOfferSent = errs.New("waitlist entry has no open offer")
	ErrOfferExpired = errs.New("waitlist offer has expired")
)

// Entry is a position in the queue for a specific slot. It is 1:1 with a
// Reservation created in waitlist status and is only ever terminated
// logically, never deleted.
type Entry struct {
	id             uuid.UUID
	reservationID  uuid.UUID
	slotID         uuid.UUID
	userID         uuid.UUID
	status         Status
	position       int32 // advisory, not authoritative ordering
	offerSentAt    *time.Time
	offerExpiresAt *time.Time
	createdAt      time.Time
	updatedAt      time.Time
}

func NewEntry(reservationID, slotID, userID uuid.UUID, position int32) *Entry {
	return &Entry{
		id:            uuid.New(),
		reservationID: reservationID,
		slotID:        slotID,
		userID:        userID,
		status:        StatusWaiting,
		position:      position,
	}
}

func ReconstructEntry(
	id, reservationID, slotID, userID uuid.UUID,
	status Status,
	position int32,
	offerSentAt, offerExpiresAt *time.Time,
	createdAt, updatedAt time.Time,
) *Entry {
	return &Entry{
		id:             id,
		reservationID:  reservationID,
		slotID:         slotID,
		userID:         userID,
		status:         status,
		position:       position,
		offerSentAt:    offerSentAt,
		offerExpiresAt: offerExpiresAt,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
	}
}

func (e *Entry) ID() uuid.UUID              { return e.id }
func (e *Entry) ReservationID() uuid.UUID   { return e.reservationID }
func (e *Entry) SlotID() uuid.UUID          { return e.slotID }
func (e *Entry) UserID() uuid.UUID          { return e.userID }
func (e *Entry) Status() Status             { return e.status }
func (e *Entry) Position() int32            { return e.position }
func (e *Entry) OfferSentAt() *time.Time    { return e.offerSentAt }
func (e *Entry) OfferExpiresAt() *time.Time { return e.offerExpiresAt }
func (e *Entry) CreatedAt() time.Time       { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time       { return e.updatedAt }

// HasExpiredOffer reports whether the entry nominally holds an offer
// whose deadline has passed. Expiry is detected lazily on reads and by
// the sweep worker, both funnelling into the same transition.
func (e *Entry) HasExpiredOffer(now time.Time) bool {
	return e.status == StatusOfferSent &&
		e.offerExpiresAt != nil &&
		now.After(*e.offerExpiresAt)
}

// HasLiveOffer reports whether the entry holds an offer that can still be
// accepted or refused.
func (e *Entry) HasLiveOffer(now time.Time) bool {
	return e.status == StatusOfferSent &&
		e.offerExpiresAt != nil &&
		!now.After(*e.offerExpiresAt)
}

// ValidateOfferResponse checks that accept/refuse is currently allowed.
func (e *Entry) ValidateOfferResponse(now time.Time) error {
	if e.status != StatusOfferSent {
		return ErrNotOfferSent
	}
	if e.offerExpiresAt == nil || now.After(*e.offerExpiresAt) {
		return ErrOfferExpired
	}
	return nil
}

// Event is one immutable record in the waitlist audit log, the
// authoritative history used for support and fraud investigation.
type Event struct {
	ID            uuid.UUID
	EntryID       uuid.UUID
	ReservationID uuid.UUID
	EventType     EventType
	ActorRole     user.Role
	ActorUserID   uuid.UUID
	Metadata      map[string]any
	CreatedAt     time.Time
}

func NewEvent(entry *Entry, eventType EventType, actorRole user.Role, actorUserID uuid.UUID, metadata map[string]any) Event {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return Event{
		ID:            uuid.New(),
		EntryID:       entry.ID(),
		ReservationID: entry.ReservationID(),
		EventType:     eventType,
		ActorRole:     actorRole,
		ActorUserID:   actorUserID,
		Metadata:      metadata,
	}
}
