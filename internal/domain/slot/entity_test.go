//go:build unit

package slot_test

import (
	"testing"

	"venuebook/tests/common/builder"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemaining(t *testing.T) {
	t.Run("unlimited slot has no remaining figure", func(t *testing.T) {
		s := builder.NewSlotBuilder().WithUnlimitedCapacity().Build()
		assert.Nil(t, s.Remaining(100))
		assert.Nil(t, s.RemainingDisplay(100))
		assert.True(t, s.IsUnlimited())
	})

	t.Run("remaining is capacity minus occupied", func(t *testing.T) {
		s := builder.NewSlotBuilder().WithCapacity(10).Build()
		r := s.Remaining(3)
		require.NotNil(t, r)
		assert.Equal(t, int32(7), *r)
	})

	t.Run("overbooked slot goes negative", func(t *testing.T) {
		s := builder.NewSlotBuilder().WithCapacity(4).Build()
		r := s.Remaining(6)
		require.NotNil(t, r)
		assert.Equal(t, int32(-2), *r)

		display := s.RemainingDisplay(6)
		require.NotNil(t, display)
		assert.Equal(t, int32(0), *display)
	})
}

func TestFitsParty(t *testing.T) {
	cases := []struct {
		name      string
		capacity  *int32
		occupied  int32
		partySize int32
		fits      bool
	}{
		{name: "unlimited always fits", occupied: 9999, partySize: 50, fits: true},
		{name: "party within remaining", capacity: int32Ptr(10), occupied: 5, partySize: 5, fits: true},
		{name: "party exceeds remaining", capacity: int32Ptr(10), occupied: 5, partySize: 6, fits: false},
		{name: "zero remaining never fits", capacity: int32Ptr(10), occupied: 10, partySize: 1, fits: false},
		{name: "overbooked never fits", capacity: int32Ptr(4), occupied: 6, partySize: 1, fits: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := builder.NewSlotBuilder()
			if tc.capacity == nil {
				b.WithUnlimitedCapacity()
			} else {
				b.WithCapacity(*tc.capacity)
			}
			assert.Equal(t, tc.fits, b.Build().FitsParty(tc.occupied, tc.partySize))
		})
	}
}

func int32Ptr(v int32) *int32 { return &v }
