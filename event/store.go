package event

import (
	"context"
	"errors"

	"github.com/xraph/conduit/id"
)

// ErrNotFound is returned when an event cannot be found.
var ErrNotFound = errors.New("conduit: event not found")

// Store defines the persistence contract for events.
type Store interface {
	// CreateEvent persists an event. Must be durable before returning;
	// the gateway acks acceptance, not delivery.
	CreateEvent(ctx context.Context, evt *Event) error

	// GetEvent returns an event by ID. It returns ErrNotFound when no
	// event with that ID exists.
	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// ListEvents returns events, newest first, optionally time-bounded.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)

	// ListEventsBySubscription returns a subscription's events, newest first.
	ListEventsBySubscription(ctx context.Context, subID id.ID, opts ListOpts) ([]*Event, error)
}
