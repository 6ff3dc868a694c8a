package subscription

import (
	"context"
	"errors"

	"github.com/xraph/conduit/id"
)

// ErrNotFound is returned when a subscription cannot be found.
var ErrNotFound = errors.New("conduit: subscription not found")

// Store defines the persistence contract for subscriptions.
//
// The delivery core only ever reads subscriptions; all mutation goes
// through the management Service.
type Store interface {
	// CreateSubscription persists a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns a subscription by ID. It returns ErrNotFound
	// when no subscription with that ID exists.
	GetSubscription(ctx context.Context, subID id.ID) (*Subscription, error)

	// UpdateSubscription modifies an existing subscription.
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// DeleteSubscription removes a subscription.
	DeleteSubscription(ctx context.Context, subID id.ID) error

	// ListSubscriptions returns subscriptions, newest first.
	ListSubscriptions(ctx context.Context, opts ListOpts) ([]*Subscription, error)
}
