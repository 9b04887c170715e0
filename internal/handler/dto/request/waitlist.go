package request

import (
	"github.com/google/uuid"
)

type CreateWaitlistEntryRequest struct {
	SlotID    uuid.UUID `json:"slot_id" binding:"required"`
	PartySize int32     `json:"party_size"`
	Notes     *string   `json:"notes,omitempty"`
}
