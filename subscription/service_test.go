package subscription_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/store/memory"
	"github.com/xraph/conduit/subscription"
)

func ctx() context.Context { return context.Background() }

func newService() *subscription.Service {
	s := memory.New()
	return subscription.NewService(s, nil)
}

func TestSubscriptionServiceCreate(t *testing.T) {
	svc := newService()

	sub, err := svc.Create(ctx(), subscription.Input{
		URL:    "https://example.com/webhook",
		Secret: "helloworld",
	})
	if err != nil {
		t.Fatal(err)
	}

	if sub.ID.String() == "" {
		t.Fatal("expected non-empty ID")
	}
	if !sub.HasSecret() {
		t.Fatal("expected secret to be set")
	}
	if sub.SecretHash == "" || sub.Salt == "" {
		t.Fatal("raw secret and its hash/salt must be set together")
	}
	if sub.SecretHash != signature.HashSecret("helloworld", sub.Salt) {
		t.Fatal("secret hash does not match salted digest of raw secret")
	}
}

func TestSubscriptionServiceCreateUnsigned(t *testing.T) {
	svc := newService()

	sub, err := svc.Create(ctx(), subscription.Input{URL: "https://example.com/hook"})
	if err != nil {
		t.Fatal(err)
	}

	if sub.HasSecret() {
		t.Fatal("expected no secret")
	}
	if sub.SecretHash != "" || sub.Salt != "" {
		t.Fatal("hash and salt must be empty when no secret is set")
	}
}

func TestSubscriptionServiceCreateValidation(t *testing.T) {
	svc := newService()

	if _, err := svc.Create(ctx(), subscription.Input{URL: "not a url"}); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestSubscriptionServiceGetUpdateDelete(t *testing.T) {
	svc := newService()

	sub, err := svc.Create(ctx(), subscription.Input{URL: "https://example.com/a"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.URL != "https://example.com/a" {
		t.Fatalf("unexpected URL %q", got.URL)
	}

	updated, err := svc.Update(ctx(), sub.ID, subscription.Input{
		URL:         "https://example.com/b",
		Description: "orders receiver",
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.URL != "https://example.com/b" {
		t.Fatalf("URL not updated: %q", updated.URL)
	}
	if updated.Description != "orders receiver" {
		t.Fatalf("description not updated: %q", updated.Description)
	}

	if err := svc.Delete(ctx(), sub.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx(), sub.ID); !errors.Is(err, conduit.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestSubscriptionServiceRotateSecret(t *testing.T) {
	svc := newService()

	sub, err := svc.Create(ctx(), subscription.Input{
		URL:    "https://example.com/hook",
		Secret: "original",
	})
	if err != nil {
		t.Fatal(err)
	}

	rotated, err := svc.RotateSecret(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(rotated, "whsec_") {
		t.Fatalf("expected generated secret, got %q", rotated)
	}

	got, err := svc.Get(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Secret != rotated {
		t.Fatal("stored secret does not match rotated value")
	}
	if got.SecretHash != signature.HashSecret(rotated, got.Salt) {
		t.Fatal("hash not regenerated on rotation")
	}
}

func TestSubscriptionServiceClearSecret(t *testing.T) {
	svc := newService()

	sub, err := svc.Create(ctx(), subscription.Input{
		URL:    "https://example.com/hook",
		Secret: "to-be-cleared",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.ClearSecret(ctx(), sub.ID); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Get(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.HasSecret() || got.SecretHash != "" || got.Salt != "" {
		t.Fatal("secret, hash, and salt must be cleared together")
	}
}
