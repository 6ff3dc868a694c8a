// Package store defines the composite Store interface for all Conduit
// persistence.
//
// Each subsystem defines its own store interface; the aggregate Store
// composes them all, so a backend implements one interface per concern and
// the root engine only ever sees the composite.
package store

import (
	"context"
	"errors"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/subscription"
)

var (
	// ErrClosed is returned when an operation is attempted on a closed store.
	ErrClosed = errors.New("conduit: store is closed")

	// ErrMigrationFailed wraps a failed schema migration.
	ErrMigrationFailed = errors.New("conduit: migration failed")
)

// Store is the aggregate persistence interface.
type Store interface {
	subscription.Store
	event.Store
	attempt.Store
	queue.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
