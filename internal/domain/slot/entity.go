package slot

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a bookable time window at an establishment. It is owned by the
// establishment and read-only from the booking core's perspective.
type Slot struct {
	id              uuid.UUID
	establishmentID uuid.UUID
	startsAt        time.Time
	endsAt          *time.Time
	capacity        *int32 // nil = unlimited
	basePrice       int64  // minor currency unit, 0 = free / no deposit
	createdAt       time.Time
	updatedAt       time.Time
}

func Reconstruct(
	id, establishmentID uuid.UUID,
	startsAt time.Time,
	endsAt *time.Time,
	capacity *int32,
	basePrice int64,
	createdAt, updatedAt time.Time,
) *Slot {
	return &Slot{
		id:              id,
		establishmentID: establishmentID,
		startsAt:        startsAt,
		endsAt:          endsAt,
		capacity:        capacity,
		basePrice:       basePrice,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

func (s *Slot) ID() uuid.UUID              { return s.id }
func (s *Slot) EstablishmentID() uuid.UUID { return s.establishmentID }
func (s *Slot) StartsAt() time.Time        { return s.startsAt }
func (s *Slot) EndsAt() *time.Time         { return s.endsAt }
func (s *Slot) Capacity() *int32           { return s.capacity }
func (s *Slot) BasePrice() int64           { return s.basePrice }

func (s *Slot) IsUnlimited() bool {
	return s.capacity == nil
}

// Remaining returns capacity minus occupied, or nil for unlimited slots.
// The raw arithmetic is preserved: the result can be negative when the
// slot is overbooked.
func (s *Slot) Remaining(occupied int32) *int32 {
	if s.capacity == nil {
		return nil
	}
	r := *s.capacity - occupied
	return &r
}

// RemainingDisplay clamps negative remaining to 0 for presentation.
func (s *Slot) RemainingDisplay(occupied int32) *int32 {
	r := s.Remaining(occupied)
	if r == nil {
		return nil
	}
	if *r < 0 {
		zero := int32(0)
		return &zero
	}
	return r
}

// FitsParty reports whether a party of the given size fits in the
// remaining capacity. Unlimited slots always fit.
func (s *Slot) FitsParty(occupied, partySize int32) bool {
	r := s.Remaining(occupied)
	if r == nil {
		return true
	}
	return *r > 0 && partySize <= *r
}
