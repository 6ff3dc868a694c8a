package signature

import (
	"crypto/hmac"
	"strings"
)

// Verify reports whether header carries a valid HMAC-SHA256 signature for
// body under secret. It fails closed: a header without the "sha256=" prefix,
// an empty secret, or any digest mismatch all return false. The comparison
// is constant-time.
//
// Verify is pure: no side effects, deterministic for identical inputs.
func Verify(body []byte, header, secret string) bool {
	if secret == "" {
		return false
	}
	if !strings.HasPrefix(header, Scheme) {
		return false
	}

	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(header))
}
