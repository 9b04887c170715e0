//go:build unit || e2e

package builder

import (
	"time"

	"venuebook/internal/domain/booking"
	"venuebook/internal/usecase/commands"

	"github.com/google/uuid"
)

type ReservationBuilder struct {
	EstablishmentID  uuid.UUID
	UserID           uuid.UUID
	SlotID           *uuid.UUID
	StartsAt         time.Time
	EndsAt           *time.Time
	PartySize        int32
	PaymentStatus    booking.PaymentStatus
	BookingReference *string
	Notes            *string
}

func NewReservationBuilder() *ReservationBuilder {
	starts := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	ends := starts.Add(2 * time.Hour)
	slotID := uuid.New()
	return &ReservationBuilder{
		EstablishmentID: uuid.New(),
		UserID:          uuid.New(),
		SlotID:          &slotID,
		StartsAt:        starts,
		EndsAt:          &ends,
		PartySize:       2,
		PaymentStatus:   booking.PaymentNone,
	}
}

func (b *ReservationBuilder) With(mutate func(*ReservationBuilder)) *ReservationBuilder {
	mutate(b)
	return b
}

func (b *ReservationBuilder) ForSlot(s *SlotBuilder) *ReservationBuilder {
	b.EstablishmentID = s.EstablishmentID
	b.SlotID = &s.ID
	b.StartsAt = s.StartsAt
	b.EndsAt = s.EndsAt
	return b
}

func (b *ReservationBuilder) WithoutSlot() *ReservationBuilder {
	b.SlotID = nil
	return b
}

func (b *ReservationBuilder) WithPartySize(n int32) *ReservationBuilder {
	b.PartySize = n
	return b
}

func (b *ReservationBuilder) WithReference(ref string) *ReservationBuilder {
	b.BookingReference = &ref
	return b
}

func (b *ReservationBuilder) BuildAdmissionRequest() booking.AdmissionRequest {
	return booking.AdmissionRequest{
		EstablishmentID: b.EstablishmentID,
		SlotID:          b.SlotID,
		UserID:          b.UserID,
		StartsAt:        b.StartsAt,
		EndsAt:          b.EndsAt,
		PartySize:       b.PartySize,
	}
}

func (b *ReservationBuilder) BuildDomainParams() booking.NewReservationParams {
	return booking.NewReservationParams{
		EstablishmentID:  b.EstablishmentID,
		UserID:           b.UserID,
		SlotID:           b.SlotID,
		StartsAt:         b.StartsAt,
		EndsAt:           b.EndsAt,
		PartySize:        b.PartySize,
		PaymentStatus:    b.PaymentStatus,
		BookingReference: b.BookingReference,
	}
}

func (b *ReservationBuilder) BuildCommandParams() commands.CreateReservationParams {
	return commands.CreateReservationParams{
		EstablishmentID:  b.EstablishmentID,
		SlotID:           b.SlotID,
		StartsAt:         b.StartsAt,
		EndsAt:           b.EndsAt,
		PartySize:        b.PartySize,
		BookingReference: b.BookingReference,
		PaymentStatus:    b.PaymentStatus,
		Notes:            b.Notes,
	}
}
