package request

import (
	"strings"
	"time"

	"venuebook/internal/domain/booking"
	"venuebook/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateReservationRequest struct {
	EstablishmentID  uuid.UUID  `json:"establishment_id" binding:"required"`
	SlotID           *uuid.UUID `json:"slot_id,omitempty"`
	StartsAt         time.Time  `json:"starts_at" binding:"required"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	PartySize        int32      `json:"party_size"`
	BookingReference *string    `json:"booking_reference,omitempty"`
	PaymentStatus    string     `json:"payment_status,omitempty"`
	AmountTotal      *int64     `json:"amount_total,omitempty"`
	AmountDeposit    *int64     `json:"amount_deposit,omitempty"`
	Notes            *string    `json:"notes,omitempty"`
}

func (r CreateReservationRequest) GetBookingReference() *string {
	if r.BookingReference == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*r.BookingReference)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (r CreateReservationRequest) ToParams() commands.CreateReservationParams {
	return commands.CreateReservationParams{
		EstablishmentID:  r.EstablishmentID,
		SlotID:           r.SlotID,
		StartsAt:         r.StartsAt,
		EndsAt:           r.EndsAt,
		PartySize:        r.PartySize,
		BookingReference: r.GetBookingReference(),
		PaymentStatus:    booking.PaymentStatus(r.PaymentStatus),
		ClientAmounts: booking.ClientAmounts{
			Total:   r.AmountTotal,
			Deposit: r.AmountDeposit,
		},
		Notes: r.Notes,
	}
}

// UpdateReservationStatusRequest carries the transition to execute. The
// allowed actions depend on the caller's role; unknown actions fail as
// invalid transitions.
type UpdateReservationStatusRequest struct {
	Action string `json:"action" binding:"required"`
}
