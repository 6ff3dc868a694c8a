package subscription

import "encoding/json"

// Input is the allow-listed creation/update payload for subscriptions.
// Identifiers and timestamps are never settable through it.
type Input struct {
	// URL is the delivery target URL.
	URL string `json:"url"`

	// Description is a human-readable description.
	Description string `json:"description"`

	// Secret is the shared signing secret. Empty on create means the
	// subscription accepts unsigned payloads.
	Secret string `json:"secret"`

	// PayloadSchema is an optional JSON Schema for inbound payloads.
	PayloadSchema json.RawMessage `json:"payload_schema,omitempty"`

	// Headers are custom HTTP headers sent with each delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// Metadata holds user-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListOpts configures pagination for subscription listing.
type ListOpts struct {
	Offset int
	Limit  int
}
