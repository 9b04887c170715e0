package waitlist

type Status string

const (
	StatusWaiting            Status = "waiting"
	StatusQueued             Status = "queued"
	StatusOfferSent          Status = "offer_sent"
	StatusOfferExpired       Status = "offer_expired"
	StatusAccepted           Status = "accepted"
	StatusConvertedToBooking Status = "converted_to_booking"
	StatusCancelled          Status = "cancelled"
	StatusDeclined           Status = "declined"
	StatusRemoved            Status = "removed"
)

func (s Status) String() string {
	return string(s)
}

// IsActive reports whether the entry still holds a position in the queue.
// At most one active entry may exist per (user, slot).
func (s Status) IsActive() bool {
	switch s {
	case StatusWaiting, StatusQueued, StatusOfferSent:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusAccepted, StatusConvertedToBooking, StatusCancelled, StatusDeclined, StatusRemoved:
		return true
	default:
		return false
	}
}

// ActiveStatuses in the form repositories pass to ANY($1) filters.
func ActiveStatuses() []string {
	return []string{
		string(StatusWaiting),
		string(StatusQueued),
		string(StatusOfferSent),
	}
}

// EventType labels the append-only audit trail of waitlist mutations.
type EventType string

const (
	EventCreated       EventType = "waitlist_created"
	EventOfferSent     EventType = "waitlist_offer_sent"
	EventOfferExpired  EventType = "waitlist_offer_expired"
	EventOfferAccepted EventType = "waitlist_offer_accepted"
	EventOfferRefused  EventType = "waitlist_offer_refused"
	EventCancelled     EventType = "waitlist_cancelled"
)

// PromotionReason tags a promotion hand-off with the capacity-freeing
// event that triggered it.
type PromotionReason string

const (
	ReasonCancelWaitlist       PromotionReason = "cancel_waitlist"
	ReasonRefuseOffer          PromotionReason = "refuse_offer"
	ReasonOfferExpiredLazy     PromotionReason = "offer_expired_lazy_check"
	ReasonOfferExpiredSweep    PromotionReason = "offer_expired_sweep"
	ReasonReservationCancelled PromotionReason = "reservation_cancelled"
)
