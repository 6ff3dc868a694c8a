package subscription

import (
	"encoding/json"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/signature"
)

// Subscription represents a registered webhook receiver.
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID for this subscription.
	ID id.ID `json:"id"`

	// URL is the delivery target URL.
	URL string `json:"url"`

	// Description is a human-readable description of this subscription.
	Description string `json:"description,omitempty"`

	// Secret is the raw shared secret used for inbound verification and
	// outbound signing. Never serialized.
	Secret string `json:"-"`

	// SecretHash is the salted SHA-256 digest of Secret, safe to expose
	// on read surfaces. Empty iff Secret is empty.
	SecretHash string `json:"secret_hash,omitempty"`

	// Salt is the random salt used to compute SecretHash. Empty iff
	// Secret is empty.
	Salt string `json:"salt,omitempty"`

	// PayloadSchema is an optional JSON Schema; when set, inbound payloads
	// must validate against it to be accepted.
	PayloadSchema json.RawMessage `json:"payload_schema,omitempty"`

	// Headers are custom HTTP headers sent with each delivery.
	Headers map[string]string `json:"headers,omitempty"`

	// Metadata holds user-defined key-value pairs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SetSecret installs a new raw secret, regenerating the salt and salted
// hash. An empty secret clears all three fields; raw secret, hash, and
// salt are always set or cleared together.
func (s *Subscription) SetSecret(secret string) {
	if secret == "" {
		s.Secret = ""
		s.SecretHash = ""
		s.Salt = ""
		return
	}

	s.Secret = secret
	s.Salt = signature.GenerateSalt()
	s.SecretHash = signature.HashSecret(secret, s.Salt)
}

// HasSecret reports whether inbound payloads for this subscription must be
// signed. Subscriptions without a secret accept unsigned payloads.
func (s *Subscription) HasSecret() bool {
	return s.Secret != ""
}

// VerifySignature checks an inbound signature header against the raw body
// using this subscription's secret. Fails closed when no secret is set.
func (s *Subscription) VerifySignature(body []byte, header string) bool {
	return signature.Verify(body, header, s.Secret)
}
