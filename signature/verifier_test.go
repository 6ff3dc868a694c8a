package signature_test

import (
	"testing"

	"github.com/xraph/conduit/signature"
)

func TestVerifyRoundTrip(t *testing.T) {
	body := []byte(`{"invoice_id":"inv_01h2x","amount":9900}`)
	secret := "whsec_roundtripsecret"

	sig := signature.Sign(body, secret)
	if !signature.Verify(body, sig, secret) {
		t.Error("Verify() returned false for valid signature")
	}
}

func TestVerifyFlippedByte(t *testing.T) {
	body := []byte(goldenPayload)
	sig := signature.Sign(body, goldenSecret)

	// Flipping any single byte of the signature must invalidate it.
	for i := range sig {
		mutated := []byte(sig)
		mutated[i] ^= 0x01
		if signature.Verify(body, string(mutated), goldenSecret) {
			t.Fatalf("Verify() accepted signature with byte %d flipped", i)
		}
	}
}

func TestVerifyTamperedBody(t *testing.T) {
	body := []byte(`{"original":true}`)
	secret := "whsec_tampersecret"
	sig := signature.Sign(body, secret)

	if signature.Verify([]byte(`{"original":false}`), sig, secret) {
		t.Error("Verify() returned true for tampered body")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	body := []byte(`{"data":"value"}`)
	sig := signature.Sign(body, "whsec_correct")

	if signature.Verify(body, sig, "whsec_wrong") {
		t.Error("Verify() returned true for wrong secret")
	}
}

func TestVerifyMissingPrefix(t *testing.T) {
	body := []byte(`{}`)
	sig := signature.Sign(body, "s")

	// Strip the scheme prefix; header must fail closed.
	if signature.Verify(body, sig[len("sha256="):], "s") {
		t.Error("Verify() accepted header without sha256= prefix")
	}
}

func TestVerifyEmptySecret(t *testing.T) {
	body := []byte(`{}`)
	sig := signature.Sign(body, "")

	if signature.Verify(body, sig, "") {
		t.Error("Verify() accepted empty secret")
	}
}
