package booking

import (
	"venuebook/internal/domain/user"
	"venuebook/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition   = errs.New("invalid status transition")
	ErrPaymentNotConfirmed = errs.New("payment not confirmed for guaranteed booking")
)

// Action is a typed status-transition command. The waitlist offer
// operations and the general status update both construct Actions and
// hand them to the same executor, so the legality rules live in one
// place.
type Action string

const (
	ActionConfirm             Action = "confirm"
	ActionCancelUser          Action = "cancel_user"
	ActionCancelPro           Action = "cancel_pro"
	ActionCheckIn             Action = "check_in"
	ActionNoShow              Action = "no_show"
	ActionComplete            Action = "complete"
	ActionWaitlistAcceptOffer Action = "waitlist_accept_offer"
	ActionWaitlistRefuseOffer Action = "waitlist_refuse_offer"
)

// Transition is an action plus the actor that requested it, as recorded
// on audit events.
type Transition struct {
	Action      Action
	ActorRole   user.Role
	ActorUserID uuid.UUID
}

// NextStatus executes a transition against the current status.
// hasDeposit and paid couple the machine to payment state: a guaranteed
// reservation never reaches confirmed unless payment is confirmed.
func NextStatus(current Status, action Action, hasDeposit, paid bool) (Status, error) {
	switch action {
	case ActionWaitlistAcceptOffer:
		if current != StatusWaitlist {
			return "", errs.Mark(errs.New("accept offer requires waitlist status"), ErrInvalidTransition)
		}
		if hasDeposit && !paid {
			return StatusPendingProValidation, nil
		}
		return StatusConfirmed, nil

	case ActionWaitlistRefuseOffer:
		if current != StatusWaitlist {
			return "", errs.Mark(errs.New("refuse offer requires waitlist status"), ErrInvalidTransition)
		}
		return StatusCancelledUser, nil

	case ActionConfirm:
		if current != StatusPendingProValidation && current != StatusRequested {
			return "", ErrInvalidTransition
		}
		if hasDeposit && !paid {
			return "", ErrPaymentNotConfirmed
		}
		return StatusConfirmed, nil

	case ActionCancelUser:
		if current.IsTerminal() {
			return "", ErrInvalidTransition
		}
		return StatusCancelledUser, nil

	case ActionCancelPro:
		switch current {
		case StatusPendingProValidation, StatusRequested, StatusConfirmed:
			return StatusCancelledPro, nil
		}
		return "", ErrInvalidTransition

	case ActionCheckIn:
		if current != StatusConfirmed {
			return "", ErrInvalidTransition
		}
		return StatusCheckedIn, nil

	case ActionNoShow:
		if current != StatusConfirmed {
			return "", ErrInvalidTransition
		}
		return StatusNoShow, nil

	case ActionComplete:
		if current != StatusConfirmed && current != StatusCheckedIn {
			return "", ErrInvalidTransition
		}
		return StatusCompleted, nil
	}

	return "", ErrInvalidTransition
}

// InitialStatus picks the status a fresh direct reservation is persisted
// with: a guaranteed (deposit-backed) booking is confirmed only when the
// payment is already captured, otherwise it awaits venue validation.
func InitialStatus(quote Quote, payment PaymentStatus) Status {
	if quote.RequiresDeposit() && payment != PaymentPaid {
		return StatusPendingProValidation
	}
	return StatusConfirmed
}
