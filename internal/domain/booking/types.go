package booking

type Status string

const (
	StatusWaitlist             Status = "waitlist"
	StatusPendingProValidation Status = "pending_pro_validation"
	StatusRequested            Status = "requested"
	StatusConfirmed            Status = "confirmed"
	StatusCheckedIn            Status = "checked_in"
	StatusCancelledUser        Status = "cancelled_user"
	StatusCancelledPro         Status = "cancelled_pro"
	StatusNoShow               Status = "no_show"
	StatusCompleted            Status = "completed"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusWaitlist, StatusPendingProValidation, StatusRequested,
		StatusConfirmed, StatusCheckedIn, StatusCancelledUser,
		StatusCancelledPro, StatusNoShow, StatusCompleted:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledUser, StatusCancelledPro, StatusNoShow:
		return true
	default:
		return false
	}
}

// IsOccupying reports whether the status counts against slot capacity.
// Only active or honored bookings reserve inventory; cancellations and
// waitlist entries do not.
func (s Status) IsOccupying() bool {
	switch s {
	case StatusConfirmed, StatusPendingProValidation, StatusRequested,
		StatusCheckedIn, StatusCompleted:
		return true
	default:
		return false
	}
}

// OccupyingStatuses is the fixed set counted by the capacity ledger,
// in the form repositories pass to ANY($1) filters.
func OccupyingStatuses() []string {
	return []string{
		string(StatusConfirmed),
		string(StatusPendingProValidation),
		string(StatusRequested),
		string(StatusCheckedIn),
		string(StatusCompleted),
	}
}

// BlocksRebooking reports whether an existing reservation on the same
// slot forbids the same user from booking it again.
func (s Status) BlocksRebooking() bool {
	switch s {
	case StatusConfirmed, StatusPendingProValidation, StatusRequested, StatusWaitlist:
		return true
	default:
		return false
	}
}

type PaymentStatus string

const (
	PaymentNone     PaymentStatus = "none"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (p PaymentStatus) String() string {
	return string(p)
}

func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentNone, PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	default:
		return false
	}
}
