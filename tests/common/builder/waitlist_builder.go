//go:build unit || e2e

package builder

import (
	"time"

	"venuebook/internal/domain/waitlist"

	"github.com/google/uuid"
)

type WaitlistEntryBuilder struct {
	ID             uuid.UUID
	ReservationID  uuid.UUID
	SlotID         uuid.UUID
	UserID         uuid.UUID
	Status         waitlist.Status
	Position       int32
	OfferSentAt    *time.Time
	OfferExpiresAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func NewWaitlistEntryBuilder() *WaitlistEntryBuilder {
	now := time.Now().UTC()
	return &WaitlistEntryBuilder{
		ID:            uuid.New(),
		ReservationID: uuid.New(),
		SlotID:        uuid.New(),
		UserID:        uuid.New(),
		Status:        waitlist.StatusWaiting,
		Position:      1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (b *WaitlistEntryBuilder) With(mutate func(*WaitlistEntryBuilder)) *WaitlistEntryBuilder {
	mutate(b)
	return b
}

func (b *WaitlistEntryBuilder) WithStatus(status waitlist.Status) *WaitlistEntryBuilder {
	b.Status = status
	return b
}

// WithLiveOffer marks the entry offer_sent with an offer expiring at the
// given time.
func (b *WaitlistEntryBuilder) WithLiveOffer(expiresAt time.Time) *WaitlistEntryBuilder {
	sent := expiresAt.Add(-24 * time.Hour)
	b.Status = waitlist.StatusOfferSent
	b.OfferSentAt = &sent
	b.OfferExpiresAt = &expiresAt
	return b
}

func (b *WaitlistEntryBuilder) Build() *waitlist.Entry {
	return waitlist.ReconstructEntry(
		b.ID, b.ReservationID, b.SlotID, b.UserID,
		b.Status, b.Position,
		b.OfferSentAt, b.OfferExpiresAt,
		b.CreatedAt, b.UpdatedAt,
	)
}
