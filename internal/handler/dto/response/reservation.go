package response

import (
	"time"

	"venuebook/internal/usecase/queries"

	"github.com/google/uuid"
)

type ReservationResponse struct {
	ID               uuid.UUID              `json:"id"`
	EstablishmentID  uuid.UUID              `json:"establishmentId"`
	UserID           uuid.UUID              `json:"userId"`
	SlotID           *uuid.UUID             `json:"slotId,omitempty"`
	StartsAt         time.Time              `json:"startsAt"`
	EndsAt           *time.Time             `json:"endsAt,omitempty"`
	PartySize        int32                  `json:"partySize"`
	Status           string                 `json:"status"`
	PaymentStatus    string                 `json:"paymentStatus"`
	AmountTotal      *int64                 `json:"amountTotal,omitempty"`
	AmountDeposit    *int64                 `json:"amountDeposit,omitempty"`
	BookingReference *string                `json:"bookingReference,omitempty"`
	IsFromWaitlist   bool                   `json:"isFromWaitlist"`
	WaitlistOffer    *WaitlistOfferResponse `json:"waitlistOffer,omitempty"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

type WaitlistOfferResponse struct {
	EntryID        uuid.UUID  `json:"entryId"`
	Status         string     `json:"status"`
	Position       int32      `json:"position"`
	OfferSentAt    *time.Time `json:"offerSentAt,omitempty"`
	OfferExpiresAt *time.Time `json:"offerExpiresAt,omitempty"`
}

func FromReservationView(rm *queries.ReservationView) *ReservationResponse {
	resp := &ReservationResponse{
		ID:               rm.ID,
		EstablishmentID:  rm.EstablishmentID,
		UserID:           rm.UserID,
		SlotID:           rm.SlotID,
		StartsAt:         rm.StartsAt,
		EndsAt:           rm.EndsAt,
		PartySize:        rm.PartySize,
		Status:           rm.Status,
		PaymentStatus:    rm.PaymentStatus,
		AmountTotal:      rm.AmountTotal,
		AmountDeposit:    rm.AmountDeposit,
		BookingReference: rm.BookingReference,
		IsFromWaitlist:   rm.IsFromWaitlist,
		CreatedAt:        rm.CreatedAt,
		UpdatedAt:        rm.UpdatedAt,
	}
	if rm.WaitlistOffer != nil {
		resp.WaitlistOffer = &WaitlistOfferResponse{
			EntryID:        rm.WaitlistOffer.EntryID,
			Status:         rm.WaitlistOffer.Status,
			Position:       rm.WaitlistOffer.Position,
			OfferSentAt:    rm.WaitlistOffer.OfferSentAt,
			OfferExpiresAt: rm.WaitlistOffer.OfferExpiresAt,
		}
	}
	return resp
}

func FromReservationViews(rms []*queries.ReservationView) []*ReservationResponse {
	result := make([]*ReservationResponse, len(rms))
	for i, rm := range rms {
		result[i] = FromReservationView(rm)
	}
	return result
}
