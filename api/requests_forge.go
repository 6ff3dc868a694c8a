package api

import (
	"encoding/json"
)

// ---------------------------------------------------------------------------
// Subscription requests
// ---------------------------------------------------------------------------

// CreateSubscriptionForgeRequest binds the body for POST /subscriptions.
type CreateSubscriptionForgeRequest struct {
	URL           string            `description:"Delivery target URL"                 json:"url"`
	Description   string            `description:"Human-readable description"          json:"description,omitempty"`
	Secret        string            `description:"Shared HMAC signing secret"          json:"secret,omitempty"`
	PayloadSchema json.RawMessage   `description:"JSON Schema for payload validation"  json:"payload_schema,omitempty"`
	Headers       map[string]string `description:"Custom HTTP headers"                 json:"headers,omitempty"`
	Metadata      map[string]string `description:"Arbitrary key-value metadata"        json:"metadata,omitempty"`
}

// ListSubscriptionsForgeRequest binds query parameters for GET /subscriptions.
type ListSubscriptionsForgeRequest struct {
	Offset int `description:"Pagination offset"      query:"offset"`
	Limit  int `description:"Page size (default 50)" query:"limit"`
}

// GetSubscriptionForgeRequest binds the path for GET /subscriptions/:subscriptionId.
type GetSubscriptionForgeRequest struct {
	SubscriptionID string `description:"Subscription identifier" path:"subscriptionId"`
}

// UpdateSubscriptionForgeRequest binds path + body for PUT /subscriptions/:subscriptionId.
type UpdateSubscriptionForgeRequest struct {
	SubscriptionID string            `description:"Subscription identifier"            path:"subscriptionId"`
	URL            string            `description:"Delivery target URL"                 json:"url"`
	Description    string            `description:"Human-readable description"          json:"description,omitempty"`
	Secret         string            `description:"Shared HMAC signing secret"          json:"secret,omitempty"`
	PayloadSchema  json.RawMessage   `description:"JSON Schema for payload validation"  json:"payload_schema,omitempty"`
	Headers        map[string]string `description:"Custom HTTP headers"                 json:"headers,omitempty"`
	Metadata       map[string]string `description:"Arbitrary key-value metadata"        json:"metadata,omitempty"`
}

// DeleteSubscriptionForgeRequest binds the path for DELETE /subscriptions/:subscriptionId.
type DeleteSubscriptionForgeRequest struct {
	SubscriptionID string `description:"Subscription identifier" path:"subscriptionId"`
}

// SubscriptionActionForgeRequest binds the path for rotate-secret.
type SubscriptionActionForgeRequest struct {
	SubscriptionID string `description:"Subscription identifier" path:"subscriptionId"`
}

// ---------------------------------------------------------------------------
// Event requests
// ---------------------------------------------------------------------------

// ListEventsForgeRequest binds query parameters for GET /events.
type ListEventsForgeRequest struct {
	From   string `description:"Earliest received-at time (RFC3339)" query:"from"`
	To     string `description:"Latest received-at time (RFC3339)"   query:"to"`
	Offset int    `description:"Pagination offset"                   query:"offset"`
	Limit  int    `description:"Page size (default 50)"              query:"limit"`
}

// GetEventForgeRequest binds the path for GET /events/:eventId.
type GetEventForgeRequest struct {
	EventID string `description:"Event identifier" path:"eventId"`
}

// EventActionForgeRequest binds the path for attempts and replay routes.
type EventActionForgeRequest struct {
	EventID string `description:"Event identifier" path:"eventId"`
}

// ---------------------------------------------------------------------------
// Delivery log requests
// ---------------------------------------------------------------------------

// ListDeliveryLogsForgeRequest binds query parameters for GET /logs/deliverylogs.
type ListDeliveryLogsForgeRequest struct {
	Status string `description:"Filter by attempt status" query:"status"`
	Offset int    `description:"Pagination offset"        query:"offset"`
	Limit  int    `description:"Page size (default 50)"   query:"limit"`
}

// ---------------------------------------------------------------------------
// Signature requests
// ---------------------------------------------------------------------------

// SignPayloadForgeRequest binds the body for POST /ingest/getsignature.
type SignPayloadForgeRequest struct {
	Payload json.RawMessage `description:"Payload to sign"           json:"payload"`
	Secret  string          `description:"HMAC signing secret"       json:"secret"`
}

// SignPayloadForgeResponse is the response for POST /ingest/getsignature.
type SignPayloadForgeResponse struct {
	Signature string `json:"signature"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// SecretForgeResponse is the response for POST /subscriptions/:subscriptionId/rotate-secret.
type SecretForgeResponse struct {
	Secret string `json:"secret"`
}

// ReplayForgeResponse is the response for POST /events/:eventId/replay.
type ReplayForgeResponse struct {
	Status  string `json:"status"`
	Attempt int    `json:"attempt"`
}

// StatsForgeRequest is empty — GET /stats has no parameters.
type StatsForgeRequest struct{}

// PingForgeRequest is empty — GET /ping has no parameters.
type PingForgeRequest struct{}

// PingForgeResponse is the response for GET /ping.
type PingForgeResponse struct {
	Status string `json:"status"`
}
