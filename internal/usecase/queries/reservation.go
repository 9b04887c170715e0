package queries

import (
	"context"

	"github.com/google/uuid"
)

type ReservationQueries interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ReservationView, error)
	// ListByUser returns the user's reservations, newest first, each with
	// its live waitlist offer attached when one exists.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*ReservationView, error)
}

type WaitlistQueries interface {
	ListByUser(ctx context.Context, userID uuid.UUID, filter WaitlistFilter) ([]*WaitlistEntryView, error)
}
