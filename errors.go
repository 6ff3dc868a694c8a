package conduit

import (
	"errors"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/store"
	"github.com/xraph/conduit/subscription"
)

// Sentinel errors returned by Conduit operations. The domain packages own
// the errors their own logic has to match on; they are re-exported here so
// callers can test everything with errors.Is against one package.
var (
	// ErrNoStore is returned when a Conduit is created without a store.
	ErrNoStore = errors.New("conduit: store is required")

	// ErrSubscriptionNotFound is returned when a subscription cannot be found.
	ErrSubscriptionNotFound = subscription.ErrNotFound

	// ErrEventNotFound is returned when an event cannot be found.
	ErrEventNotFound = event.ErrNotFound

	// ErrAttemptNotFound is returned when a delivery attempt cannot be found.
	ErrAttemptNotFound = attempt.ErrNotFound

	// ErrDuplicateAttempt is returned when an attempt row for the same
	// event and attempt number already exists. Redelivered queue jobs
	// surface this and are dropped.
	ErrDuplicateAttempt = attempt.ErrDuplicate

	// ErrInvalidPayload is returned when an inbound body is not valid JSON.
	ErrInvalidPayload = ingest.ErrInvalidPayload

	// ErrPayloadValidationFailed is returned when a payload is well-formed
	// JSON but fails the subscription's payload schema.
	ErrPayloadValidationFailed = ingest.ErrPayloadValidationFailed

	// ErrMissingSignature is returned when a subscription requires signing
	// but the request carried no signature header.
	ErrMissingSignature = ingest.ErrMissingSignature

	// ErrInvalidSignature is returned when signature verification fails.
	ErrInvalidSignature = ingest.ErrInvalidSignature

	// ErrStoreClosed is returned when a store operation is attempted after
	// the store is closed.
	ErrStoreClosed = store.ErrClosed

	// ErrMigrationFailed is returned when a database migration fails.
	ErrMigrationFailed = store.ErrMigrationFailed
)
