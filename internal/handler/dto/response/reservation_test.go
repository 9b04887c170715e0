//go:build unit

package response_test

import (
	"testing"
	"time"

	"venuebook/internal/handler/dto/response"
	"venuebook/internal/usecase/queries"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFromReservationView(t *testing.T) {
	now := time.Now().UTC()
	ends := now.Add(2 * time.Hour)
	total := int64(5000)
	slotID := uuid.New()
	offerExpiry := now.Add(30 * time.Minute)

	view := &queries.ReservationView{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		UserID:          uuid.New(),
		SlotID:          &slotID,
		StartsAt:        now,
		EndsAt:          &ends,
		PartySize:       4,
		Status:          "waitlist",
		PaymentStatus:   "none",
		AmountTotal:     &total,
		AmountDeposit:   &total,
		IsFromWaitlist:  true,
		CreatedAt:       now,
		UpdatedAt:       now,
		WaitlistOffer: &queries.WaitlistOfferView{
			EntryID:        uuid.New(),
			Status:         "offer_sent",
			Position:       2,
			OfferSentAt:    &now,
			OfferExpiresAt: &offerExpiry,
		},
	}

	got := response.FromReservationView(view)

	want := &response.ReservationResponse{
		ID:              view.ID,
		EstablishmentID: view.EstablishmentID,
		UserID:          view.UserID,
		SlotID:          &slotID,
		StartsAt:        now,
		EndsAt:          &ends,
		PartySize:       4,
		Status:          "waitlist",
		PaymentStatus:   "none",
		AmountTotal:     &total,
		AmountDeposit:   &total,
		IsFromWaitlist:  true,
		CreatedAt:       now,
		UpdatedAt:       now,
		WaitlistOffer: &response.WaitlistOfferResponse{
			EntryID:        view.WaitlistOffer.EntryID,
			Status:         "offer_sent",
			Position:       2,
			OfferSentAt:    &now,
			OfferExpiresAt: &offerExpiry,
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestFromReservationViewWithoutOffer(t *testing.T) {
	view := &queries.ReservationView{
		ID:     uuid.New(),
		Status: "confirmed",
	}
	got := response.FromReservationView(view)
	assert.Nil(t, got.WaitlistOffer)
	assert.Equal(t, "confirmed", got.Status)
}

func TestFromReservationViews(t *testing.T) {
	views := []*queries.ReservationView{
		{ID: uuid.New(), Status: "confirmed"},
		{ID: uuid.New(), Status: "waitlist"},
	}
	got := response.FromReservationViews(views)
	assert.Len(t, got, 2)
	assert.Equal(t, views[0].ID, got[0].ID)
	assert.Equal(t, views[1].ID, got[1].ID)

	assert.Empty(t, response.FromReservationViews(nil))
}
