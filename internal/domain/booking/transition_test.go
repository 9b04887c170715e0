//go:build unit

package booking_test

import (
	"testing"

	"venuebook/internal/domain/booking"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transitionCase struct {
	name       string
	current    booking.Status
	action     booking.Action
	hasDeposit bool
	paid       bool
	want       booking.Status
	errIs      error
}

func runTransitionCases(t *testing.T, cases []transitionCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, err := booking.NextStatus(tc.current, tc.action, tc.hasDeposit, tc.paid)
			if tc.errIs != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tc.errIs)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, next)
		})
	}
}

func TestNextStatus(t *testing.T) {
	t.Run("waitlist offer actions", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name:    "accept without deposit confirms",
				current: booking.StatusWaitlist,
				action:  booking.ActionWaitlistAcceptOffer,
				want:    booking.StatusConfirmed,
			},
			{
				name:       "accept with unpaid deposit awaits validation",
				current:    booking.StatusWaitlist,
				action:     booking.ActionWaitlistAcceptOffer,
				hasDeposit: true,
				want:       booking.StatusPendingProValidation,
			},
			{
				name:       "accept with paid deposit confirms",
				current:    booking.StatusWaitlist,
				action:     booking.ActionWaitlistAcceptOffer,
				hasDeposit: true,
				paid:       true,
				want:       booking.StatusConfirmed,
			},
			{
				name:    "accept requires waitlist status",
				current: booking.StatusConfirmed,
				action:  booking.ActionWaitlistAcceptOffer,
				errIs:   booking.ErrInvalidTransition,
			},
			{
				name:    "refuse cancels the companion reservation",
				current: booking.StatusWaitlist,
				action:  booking.ActionWaitlistRefuseOffer,
				want:    booking.StatusCancelledUser,
			},
			{
				name:    "refuse requires waitlist status",
				current: booking.StatusRequested,
				action:  booking.ActionWaitlistRefuseOffer,
				errIs:   booking.ErrInvalidTransition,
			},
		})
	})

	t.Run("confirm", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name:    "from pending validation",
				current: booking.StatusPendingProValidation,
				action:  booking.ActionConfirm,
				want:    booking.StatusConfirmed,
			},
			{
				name:    "from requested",
				current: booking.StatusRequested,
				action:  booking.ActionConfirm,
				want:    booking.StatusConfirmed,
			},
			{
				name:       "guaranteed booking needs captured payment",
				current:    booking.StatusPendingProValidation,
				action:     booking.ActionConfirm,
				hasDeposit: true,
				errIs:      booking.ErrPaymentNotConfirmed,
			},
			{
				name:       "guaranteed booking with payment confirms",
				current:    booking.StatusPendingProValidation,
				action:     booking.ActionConfirm,
				hasDeposit: true,
				paid:       true,
				want:       booking.StatusConfirmed,
			},
			{
				name:    "already confirmed cannot re-confirm",
				current: booking.StatusConfirmed,
				action:  booking.ActionConfirm,
				errIs:   booking.ErrInvalidTransition,
			},
		})
	})

	t.Run("cancellation", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name:    "user cancels a confirmed booking",
				current: booking.StatusConfirmed,
				action:  booking.ActionCancelUser,
				want:    booking.StatusCancelledUser,
			},
			{
				name:    "user cancels a waitlist entry",
				current: booking.StatusWaitlist,
				action:  booking.ActionCancelUser,
				want:    booking.StatusCancelledUser,
			},
			{
				name:    "terminal booking cannot be cancelled",
				current: booking.StatusCompleted,
				action:  booking.ActionCancelUser,
				errIs:   booking.ErrInvalidTransition,
			},
			{
				name:    "venue cancels a confirmed booking",
				current: booking.StatusConfirmed,
				action:  booking.ActionCancelPro,
				want:    booking.StatusCancelledPro,
			},
			{
				name:    "venue cannot cancel a checked-in booking",
				current: booking.StatusCheckedIn,
				action:  booking.ActionCancelPro,
				errIs:   booking.ErrInvalidTransition,
			},
		})
	})

	t.Run("attendance lifecycle", func(t *testing.T) {
		runTransitionCases(t, []transitionCase{
			{
				name:    "check in from confirmed",
				current: booking.StatusConfirmed,
				action:  booking.ActionCheckIn,
				want:    booking.StatusCheckedIn,
			},
			{
				name:    "check in requires confirmed",
				current: booking.StatusRequested,
				action:  booking.ActionCheckIn,
				errIs:   booking.ErrInvalidTransition,
			},
			{
				name:    "no-show from confirmed",
				current: booking.StatusConfirmed,
				action:  booking.ActionNoShow,
				want:    booking.StatusNoShow,
			},
			{
				name:    "complete from confirmed",
				current: booking.StatusConfirmed,
				action:  booking.ActionComplete,
				want:    booking.StatusCompleted,
			},
			{
				name:    "complete from checked in",
				current: booking.StatusCheckedIn,
				action:  booking.ActionComplete,
				want:    booking.StatusCompleted,
			},
			{
				name:    "complete requires an honored booking",
				current: booking.StatusWaitlist,
				action:  booking.ActionComplete,
				errIs:   booking.ErrInvalidTransition,
			},
		})
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := booking.NextStatus(booking.StatusConfirmed, booking.Action("teleport"), false, false)
		assert.ErrorIs(t, err, booking.ErrInvalidTransition)
	})
}

func TestInitialStatus(t *testing.T) {
	deposit := int64(5000)
	guaranteed := booking.Quote{AmountTotal: &deposit, AmountDeposit: &deposit}

	assert.Equal(t, booking.StatusConfirmed, booking.InitialStatus(booking.Quote{}, booking.PaymentNone))
	assert.Equal(t, booking.StatusPendingProValidation, booking.InitialStatus(guaranteed, booking.PaymentNone))
	assert.Equal(t, booking.StatusPendingProValidation, booking.InitialStatus(guaranteed, booking.PaymentPending))
	assert.Equal(t, booking.StatusConfirmed, booking.InitialStatus(guaranteed, booking.PaymentPaid))
}
