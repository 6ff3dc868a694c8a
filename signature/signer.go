// Package signature provides HMAC-SHA256 webhook signing and verification.
//
// The wire format is the GitHub-style "sha256=<hex digest>" header value,
// computed over the raw request body keyed by the subscription's raw secret.
package signature

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Scheme is the literal prefix carried by every signature header.
const Scheme = "sha256="

// Sign computes the HMAC-SHA256 signature of payload keyed by secret and
// returns it in header form: "sha256=" + lowercase hex digest.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return Scheme + hex.EncodeToString(mac.Sum(nil))
}

// SignJSON signs the compact (no whitespace) serialization of raw JSON.
// Field order is preserved, so the digest matches whatever the caller
// will later send as the raw body. A JSON string value is signed as its
// unquoted contents rather than as a JSON document.
func SignJSON(raw json.RawMessage, secret string) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("signature: decode string payload: %w", err)
		}
		return Sign([]byte(s), secret), nil
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return "", fmt.Errorf("signature: compact payload: %w", err)
	}
	return Sign(buf.Bytes(), secret), nil
}
