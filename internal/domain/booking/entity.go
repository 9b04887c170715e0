package booking

import (
	"time"

	"venuebook/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidPartySize = errs.New("party size must be at least 1")
	ErrInvalidStartsAt  = errs.New("starts_at is required")
)

// Reservation is a booking attempt. Amounts are always derived
// server-side from the slot's base price; client-submitted amounts are
// retained only inside Meta as an audit annotation.
type Reservation struct {
	id               uuid.UUID
	establishmentID  uuid.UUID
	userID           uuid.UUID
	slotID           *uuid.UUID
	startsAt         time.Time
	endsAt           *time.Time
	partySize        int32
	status           Status
	paymentStatus    PaymentStatus
	amountTotal      *int64
	amountDeposit    *int64
	bookingReference *string
	isFromWaitlist   bool
	meta             map[string]any
	createdAt        time.Time
	updatedAt        time.Time
}

type NewReservationParams struct {
	EstablishmentID  uuid.UUID
	UserID           uuid.UUID
	SlotID           *uuid.UUID
	StartsAt         time.Time
	EndsAt           *time.Time
	PartySize        int32
	PaymentStatus    PaymentStatus
	BookingReference *string
	Meta             map[string]any
}

// NewDirect builds a reservation admitted directly against capacity.
func NewDirect(p NewReservationParams, quote Quote) (*Reservation, error) {
	r, err := newReservation(p)
	if err != nil {
		return nil, err
	}
	r.amountTotal = quote.AmountTotal
	r.amountDeposit = quote.AmountDeposit
	r.status = InitialStatus(quote, p.PaymentStatus)
	return r, nil
}

// NewWaitlisted builds the companion reservation for a waitlist entry.
// It never occupies capacity and carries no amounts until conversion.
func NewWaitlisted(p NewReservationParams) (*Reservation, error) {
	r, err := newReservation(p)
	if err != nil {
		return nil, err
	}
	r.status = StatusWaitlist
	r.isFromWaitlist = true
	return r, nil
}

func newReservation(p NewReservationParams) (*Reservation, error) {
	if p.StartsAt.IsZero() {
		return nil, ErrInvalidStartsAt
	}
	if p.PartySize < 1 {
		return nil, ErrInvalidPartySize
	}
	payment := p.PaymentStatus
	if payment == "" {
		payment = PaymentNone
	}
	meta := p.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	return &Reservation{
		id:               uuid.New(),
		establishmentID:  p.EstablishmentID,
		userID:           p.UserID,
		slotID:           p.SlotID,
		startsAt:         p.StartsAt,
		endsAt:           p.EndsAt,
		partySize:        p.PartySize,
		paymentStatus:    payment,
		bookingReference: p.BookingReference,
		meta:             meta,
	}, nil
}

func Reconstruct(
	id, establishmentID, userID uuid.UUID,
	slotID *uuid.UUID,
	startsAt time.Time,
	endsAt *time.Time,
	partySize int32,
	status Status,
	paymentStatus PaymentStatus,
	amountTotal, amountDeposit *int64,
	bookingReference *string,
	isFromWaitlist bool,
	meta map[string]any,
	createdAt, updatedAt time.Time,
) *Reservation {
	return &Reservation{
		id:               id,
		establishmentID:  establishmentID,
		userID:           userID,
		slotID:           slotID,
		startsAt:         startsAt,
		endsAt:           endsAt,
		partySize:        partySize,
		status:           status,
		paymentStatus:    paymentStatus,
		amountTotal:      amountTotal,
		amountDeposit:    amountDeposit,
		bookingReference: bookingReference,
		isFromWaitlist:   isFromWaitlist,
		meta:             meta,
		createdAt:        createdAt,
		updatedAt:        updatedAt,
	}
}

func (r *Reservation) ID() uuid.UUID               { return r.id }
func (r *Reservation) EstablishmentID() uuid.UUID  { return r.establishmentID }
func (r *Reservation) UserID() uuid.UUID           { return r.userID }
func (r *Reservation) SlotID() *uuid.UUID          { return r.slotID }
func (r *Reservation) StartsAt() time.Time         { return r.startsAt }
func (r *Reservation) EndsAt() *time.Time          { return r.endsAt }
func (r *Reservation) PartySize() int32            { return r.partySize }
func (r *Reservation) Status() Status              { return r.status }
func (r *Reservation) PaymentStatus() PaymentStatus {
	return r.paymentStatus
}
func (r *Reservation) AmountTotal() *int64      { return r.amountTotal }
func (r *Reservation) AmountDeposit() *int64    { return r.amountDeposit }
func (r *Reservation) BookingReference() *string { return r.bookingReference }
func (r *Reservation) IsFromWaitlist() bool      { return r.isFromWaitlist }
func (r *Reservation) Meta() map[string]any      { return r.meta }
func (r *Reservation) CreatedAt() time.Time      { return r.createdAt }
func (r *Reservation) UpdatedAt() time.Time      { return r.updatedAt }

func (r *Reservation) IsPaid() bool {
	return r.paymentStatus == PaymentPaid
}

func (r *Reservation) HasDeposit() bool {
	return r.amountDeposit != nil && *r.amountDeposit > 0
}

// AnnotateClientAmounts records the caller's self-reported amounts in the
// audit meta when they disagree with the computed quote.
func (r *Reservation) AnnotateClientAmounts(c ClientAmounts) {
	ann := map[string]any{}
	if c.Total != nil {
		ann["client_amount_total"] = *c.Total
	}
	if c.Deposit != nil {
		ann["client_amount_deposit"] = *c.Deposit
	}
	if len(ann) > 0 {
		r.meta["client_amount_mismatch"] = ann
	}
}
