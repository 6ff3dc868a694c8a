package signature_test

import (
	"strings"
	"testing"

	"github.com/xraph/conduit/signature"
)

func TestGenerateSecretFormat(t *testing.T) {
	secret := signature.GenerateSecret()

	if !strings.HasPrefix(secret, "whsec_") {
		t.Errorf("expected prefix 'whsec_', got %q", secret)
	}

	// whsec_ (6) + 64 hex chars (32 bytes) = 70 total
	if len(secret) != 70 {
		t.Errorf("expected length 70, got %d for %q", len(secret), secret)
	}
}

func TestGenerateSecretUniqueness(t *testing.T) {
	a := signature.GenerateSecret()
	b := signature.GenerateSecret()
	if a == b {
		t.Errorf("two consecutive GenerateSecret() calls returned the same value: %q", a)
	}
}

func TestHashSecretDeterministic(t *testing.T) {
	salt := signature.GenerateSalt()

	a := signature.HashSecret("helloworld", salt)
	b := signature.HashSecret("helloworld", salt)
	if a != b {
		t.Error("same secret and salt must hash identically")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

func TestHashSecretSaltMatters(t *testing.T) {
	a := signature.HashSecret("helloworld", signature.GenerateSalt())
	b := signature.HashSecret("helloworld", signature.GenerateSalt())
	if a == b {
		t.Error("different salts must produce different hashes")
	}
}

func TestHashSecretEmpty(t *testing.T) {
	if got := signature.HashSecret("", "somesalt"); got != "" {
		t.Errorf("empty secret should hash to empty string, got %q", got)
	}
}
