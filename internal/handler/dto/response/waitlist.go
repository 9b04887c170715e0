package response

import (
	"time"

	"venuebook/internal/usecase/queries"

	"github.com/google/uuid"
)

type WaitlistEntryResponse struct {
	ID              uuid.UUID  `json:"id"`
	ReservationID   uuid.UUID  `json:"reservationId"`
	SlotID          uuid.UUID  `json:"slotId"`
	EstablishmentID uuid.UUID  `json:"establishmentId"`
	Status          string     `json:"status"`
	Position        int32      `json:"position"`
	StartsAt        time.Time  `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt,omitempty"`
	PartySize       int32      `json:"partySize"`
	OfferSentAt     *time.Time `json:"offerSentAt,omitempty"`
	OfferExpiresAt  *time.Time `json:"offerExpiresAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

func FromWaitlistEntryView(rm *queries.WaitlistEntryView) *WaitlistEntryResponse {
	return &WaitlistEntryResponse{
		ID:              rm.ID,
		ReservationID:   rm.ReservationID,
		SlotID:          rm.SlotID,
		EstablishmentID: rm.EstablishmentID,
		Status:          rm.Status,
		Position:        rm.Position,
		StartsAt:        rm.StartsAt,
		EndsAt:          rm.EndsAt,
		PartySize:       rm.PartySize,
		OfferSentAt:     rm.OfferSentAt,
		OfferExpiresAt:  rm.OfferExpiresAt,
		CreatedAt:       rm.CreatedAt,
	}
}

func FromWaitlistEntryViews(rms []*queries.WaitlistEntryView) []*WaitlistEntryResponse {
	result := make([]*WaitlistEntryResponse, len(rms))
	for i, rm := range rms {
		result[i] = FromWaitlistEntryView(rm)
	}
	return result
}
