package shared

import (
	"venuebook/internal/domain/user"
	"venuebook/internal/domain/waitlist"

	"github.com/google/uuid"
)

// Promoter is the promotion hand-off consumed by the lifecycle commands:
// asynchronous, best-effort, idempotent. Dispatch never blocks the caller
// and never surfaces an error; redundant calls for the same slot must not
// double-offer capacity.
type Promoter interface {
	Dispatch(slotID uuid.UUID, actorRole user.Role, actorUserID uuid.UUID, reason waitlist.PromotionReason)
}

// Outbox job kinds drained by the side-effect worker.
const (
	JobVenueNotification    = "venue_notification"
	JobPlatformNotification = "platform_admin_notification"
	JobConsumerNotification = "consumer_notification"
	JobEscrowHold           = "escrow_hold"
)
