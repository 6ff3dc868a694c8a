package signature

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateSecret creates a cryptographically random signing secret.
// Format: "whsec_" + 32 bytes hex = 70 characters total.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("conduit: failed to generate random secret: " + err.Error())
	}
	return "whsec_" + hex.EncodeToString(b)
}

// GenerateSalt creates a random 32-byte hex salt for secret hashing.
func GenerateSalt() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("conduit: failed to generate random salt: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// HashSecret returns the salted SHA-256 digest of secret, hex encoded.
// The salted hash is what gets exposed on read surfaces; the raw secret
// stays server-side for HMAC computation. Returns "" for an empty secret.
func HashSecret(secret, salt string) string {
	if secret == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(secret))
	return hex.EncodeToString(h.Sum(nil))
}
