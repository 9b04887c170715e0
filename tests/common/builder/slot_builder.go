//go:build unit || e2e

package builder

import (
	"time"

	domslot "venuebook/internal/domain/slot"

	"github.com/google/uuid"
)

type SlotBuilder struct {
	ID              uuid.UUID
	EstablishmentID uuid.UUID
	StartsAt        time.Time
	EndsAt          *time.Time
	Capacity        *int32
	BasePrice       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewSlotBuilder() *SlotBuilder {
	now := time.Now().UTC()
	starts := now.Add(48 * time.Hour).Truncate(time.Hour)
	ends := starts.Add(2 * time.Hour)
	capacity := int32(10)
	return &SlotBuilder{
		ID:              uuid.New(),
		EstablishmentID: uuid.New(),
		StartsAt:        starts,
		EndsAt:          &ends,
		Capacity:        &capacity,
		BasePrice:       2500,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (b *SlotBuilder) With(mutate func(*SlotBuilder)) *SlotBuilder {
	mutate(b)
	return b
}

func (b *SlotBuilder) WithCapacity(capacity int32) *SlotBuilder {
	b.Capacity = &capacity
	return b
}

func (b *SlotBuilder) WithUnlimitedCapacity() *SlotBuilder {
	b.Capacity = nil
	return b
}

func (b *SlotBuilder) WithBasePrice(price int64) *SlotBuilder {
	b.BasePrice = price
	return b
}

func (b *SlotBuilder) Build() *domslot.Slot {
	return domslot.Reconstruct(
		b.ID, b.EstablishmentID,
		b.StartsAt, b.EndsAt,
		b.Capacity, b.BasePrice,
		b.CreatedAt, b.UpdatedAt,
	)
}
