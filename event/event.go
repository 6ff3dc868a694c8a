package event

import (
	"encoding/json"
	"time"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Event is one accepted inbound payload. Events are immutable after
// creation; their delivery lifecycle lives entirely in the attempt ledger.
type Event struct {
	entity.Entity

	// ID is the unique TypeID for this event, generated at acceptance.
	ID id.ID `json:"id"`

	// SubscriptionID references the owning subscription.
	SubscriptionID id.ID `json:"subscription_id"`

	// Payload is the accepted body, stored in compact serialization so the
	// delivered bytes (and their signature) match what was signed.
	Payload json.RawMessage `json:"payload"`

	// ReceivedAt is when the gateway accepted the payload.
	ReceivedAt time.Time `json:"received_at"`
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Offset int
	Limit  int
	From   *time.Time
	To     *time.Time
}
