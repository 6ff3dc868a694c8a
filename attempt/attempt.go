package attempt

import (
	"time"
	"unicode/utf8"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
)

// Status represents the lifecycle state of a delivery attempt row.
type Status string

const (
	// StatusInProgress indicates the attempt has begun but not completed.
	// A crash between begin and complete leaves this state behind; it is an
	// audit artifact, not a liveness guarantee.
	StatusInProgress Status = "in_progress"

	// StatusSuccess indicates the target acknowledged with a 2xx.
	StatusSuccess Status = "success"

	// StatusFailed indicates a transport error or non-2xx response.
	StatusFailed Status = "failed"
)

// ExcerptLimit bounds stored error messages and response body excerpts,
// capping row size from adversarial or verbose targets.
const ExcerptLimit = 500

// Truncate clamps s to at most ExcerptLimit bytes, cutting on a rune
// boundary so a multi-byte character is dropped whole rather than split
// into invalid UTF-8.
func Truncate(s string) string {
	if len(s) <= ExcerptLimit {
		return s
	}
	cut := ExcerptLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Attempt is one outbound try for one event. Rows are written exactly
// twice: inserted as in_progress, then updated once to a terminal status.
// They are never deleted; an event's delivery lifecycle is fully
// reconstructable from its ordered attempt rows.
type Attempt struct {
	entity.Entity

	// ID is the unique TypeID for this attempt.
	ID id.ID `json:"id"`

	// EventID references the event being delivered.
	EventID id.ID `json:"event_id"`

	// SubscriptionID references the target subscription.
	SubscriptionID id.ID `json:"subscription_id"`

	// Number is the 1-based attempt number. Numbers for a given event form
	// a contiguous sequence with no gaps.
	Number int `json:"attempt_number"`

	// Status is the current attempt status.
	Status Status `json:"status"`

	// StatusCode is the HTTP status code, when a response was received.
	StatusCode int `json:"status_code,omitempty"`

	// ErrorMessage describes the failure, truncated to ExcerptLimit.
	ErrorMessage string `json:"error_message,omitempty"`

	// ResponseBody is an excerpt of the target's response, truncated to
	// ExcerptLimit.
	ResponseBody string `json:"response_body,omitempty"`

	// CompletedAt is when the attempt reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ListOpts configures filtering and pagination for attempt listing.
type ListOpts struct {
	Offset int
	Limit  int
	Status *Status
}
