package queries

import (
	"time"

	"venuebook/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrInvalidFilter = errs.New("invalid waitlist filter")

// Read models (DTO for read side)

type ReservationView struct {
	ID               uuid.UUID          `json:"id"`
	EstablishmentID  uuid.UUID          `json:"establishment_id"`
	UserID           uuid.UUID          `json:"user_id"`
	SlotID           *uuid.UUID         `json:"slot_id,omitempty"`
	StartsAt         time.Time          `json:"starts_at"`
	EndsAt           *time.Time         `json:"ends_at,omitempty"`
	PartySize        int32              `json:"party_size"`
	Status           string             `json:"status"`
	PaymentStatus    string             `json:"payment_status"`
	AmountTotal      *int64             `json:"amount_total,omitempty"`
	AmountDeposit    *int64             `json:"amount_deposit,omitempty"`
	BookingReference *string            `json:"booking_reference,omitempty"`
	IsFromWaitlist   bool               `json:"is_from_waitlist"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
	WaitlistOffer    *WaitlistOfferView `json:"waitlist_offer,omitempty"`
}

// WaitlistOfferView is the live offer attached to a waitlisted
// reservation in list responses.
type WaitlistOfferView struct {
	EntryID        uuid.UUID  `json:"entry_id"`
	Status         string     `json:"status"`
	Position       int32      `json:"position"`
	OfferSentAt    *time.Time `json:"offer_sent_at,omitempty"`
	OfferExpiresAt *time.Time `json:"offer_expires_at,omitempty"`
}

type WaitlistEntryView struct {
	ID              uuid.UUID  `json:"id"`
	ReservationID   uuid.UUID  `json:"reservation_id"`
	SlotID          uuid.UUID  `json:"slot_id"`
	UserID          uuid.UUID  `json:"user_id"`
	EstablishmentID uuid.UUID  `json:"establishment_id"`
	Status          string     `json:"status"`
	Position        int32      `json:"position"`
	StartsAt        time.Time  `json:"starts_at"`
	EndsAt          *time.Time `json:"ends_at,omitempty"`
	PartySize       int32      `json:"party_size"`
	OfferSentAt     *time.Time `json:"offer_sent_at,omitempty"`
	OfferExpiresAt  *time.Time `json:"offer_expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type WaitlistFilter string

const (
	FilterActive  WaitlistFilter = "active"
	FilterExpired WaitlistFilter = "expired"
	FilterAll     WaitlistFilter = "all"
)

func ParseWaitlistFilter(s string) (WaitlistFilter, error) {
	switch WaitlistFilter(s) {
	case FilterActive, FilterExpired, FilterAll:
		return WaitlistFilter(s), nil
	case "":
		return FilterActive, nil
	default:
		return "", ErrInvalidFilter
	}
}
