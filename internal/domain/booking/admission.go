package booking

import (
	"time"

	"venuebook/internal/domain/slot"
	"venuebook/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound           = errs.New("slot not found")
	ErrSlotStartsAtMismatch   = errs.New("slot starts_at mismatch")
	ErrDuplicateSlotBooking   = errs.New("duplicate booking for slot")
	ErrOverlappingReservation = errs.New("overlapping reservation")
)

// DefaultAssumedDuration is the conservative interval length assumed for
// reservations without a known end time.
const DefaultAssumedDuration = 2 * time.Hour

type Decision string

const (
	DecisionDirect   Decision = "direct"
	DecisionWaitlist Decision = "waitlist"
)

// AdmissionRequest is the candidate booking under evaluation.
type AdmissionRequest struct {
	EstablishmentID uuid.UUID
	SlotID          *uuid.UUID
	UserID          uuid.UUID
	StartsAt        time.Time
	EndsAt          *time.Time
	PartySize       int32
}

// ExistingReservation is the minimal view of another reservation used by
// the duplicate and overlap guards.
type ExistingReservation struct {
	SlotID   *uuid.UUID
	StartsAt time.Time
	EndsAt   *time.Time
	Status   Status
}

// AdmissionInput is a snapshot of everything the guard needs. The caller
// fetches it; Admit itself performs no I/O.
type AdmissionInput struct {
	Request AdmissionRequest
	// Slot is nil when the request carries no slot id.
	Slot *slot.Slot
	// Occupied is the capacity ledger's figure for the slot at read time.
	Occupied int32
	// ActiveWaitlistExists is true when any entry in {waiting, offer_sent,
	// queued} exists for the slot.
	ActiveWaitlistExists bool
	// UserReservations are the user's reservations whose startsAt falls
	// within the fetch window around the candidate interval, across all
	// establishments.
	UserReservations []ExistingReservation
}

// Admit decides whether the request becomes a direct reservation or is
// diverted to the waitlist. Checks run in a fixed order: slot integrity,
// duplicate, overlap, waitlist priority, capacity.
func Admit(in AdmissionInput) (Decision, error) {
	req := in.Request

	if req.SlotID != nil {
		if in.Slot == nil || in.Slot.EstablishmentID() != req.EstablishmentID {
			return "", ErrSlotNotFound
		}
		// Stale client data pointing at the wrong slot.
		if !in.Slot.StartsAt().Equal(req.StartsAt) {
			return "", ErrSlotStartsAtMismatch
		}

		for _, r := range in.UserReservations {
			if r.SlotID != nil && *r.SlotID == *req.SlotID && r.Status.BlocksRebooking() {
				return "", ErrDuplicateSlotBooking
			}
		}
	}

	candidate := interval(req.StartsAt, req.EndsAt)
	for _, r := range in.UserReservations {
		if !r.Status.IsOccupying() && r.Status != StatusWaitlist {
			continue
		}
		if candidate.overlaps(interval(r.StartsAt, r.EndsAt)) {
			return "", ErrOverlappingReservation
		}
	}

	if req.SlotID == nil {
		// Non-slot-bound bookings carry no capacity to contend for.
		return DecisionDirect, nil
	}

	// The queue has priority over newcomers even when capacity looks free.
	if in.ActiveWaitlistExists {
		return DecisionWaitlist, nil
	}

	if !in.Slot.FitsParty(in.Occupied, req.PartySize) {
		return DecisionWaitlist, nil
	}

	return DecisionDirect, nil
}

type timeRange struct {
	start time.Time
	end   time.Time
}

func interval(start time.Time, end *time.Time) timeRange {
	if end != nil && end.After(start) {
		return timeRange{start: start, end: *end}
	}
	return timeRange{start: start, end: start.Add(DefaultAssumedDuration)}
}

// overlaps treats ranges as half-open [start, end).
func (t timeRange) overlaps(other timeRange) bool {
	return t.start.Before(other.end) && other.start.Before(t.end)
}
