package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/ingest"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/store/memory"
	"github.com/xraph/conduit/subscription"
)

func ctx() context.Context { return context.Background() }

func setup(t *testing.T, secret string) (*memory.Store, *ingest.Gateway, *subscription.Subscription) {
	t.Helper()

	store := memory.New()
	sub := &subscription.Subscription{
		Entity: entity.New(),
		ID:     id.NewSubscriptionID(),
		URL:    "https://example.com/hook",
	}
	if secret != "" {
		sub.SetSecret(secret)
	}
	if err := store.CreateSubscription(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	return store, ingest.NewGateway(store, nil, nil), sub
}

func TestIngestSignedPayload(t *testing.T) {
	store, gw, sub := setup(t, "helloworld")

	body := []byte(`{"event":"test_event","data":{"hello":"world"}}`)
	sig := signature.Sign(body, "helloworld")

	evt, err := gw.Ingest(ctx(), sub.ID, body, sig)
	if err != nil {
		t.Fatal(err)
	}
	if evt.SubscriptionID.String() != sub.ID.String() {
		t.Fatal("event bound to wrong subscription")
	}
	if evt.ReceivedAt.IsZero() {
		t.Fatal("ReceivedAt should be set")
	}

	// Durable before return.
	got, err := store.GetEvent(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Payload) != string(body) {
		t.Fatalf("stored payload %s", got.Payload)
	}

	// First attempt queued with zero delay.
	jobs, err := store.DequeueJobs(ctx(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(jobs))
	}
	if jobs[0].EventID.String() != evt.ID.String() || jobs[0].Attempt != 1 {
		t.Fatalf("unexpected job: %+v", jobs[0])
	}
}

func TestIngestCompactsPayload(t *testing.T) {
	store, gw, sub := setup(t, "")

	body := []byte("{\n  \"event\": \"test_event\",\n  \"data\": {\"hello\": \"world\"}\n}")
	evt, err := gw.Ingest(ctx(), sub.ID, body, "")
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.GetEvent(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"event":"test_event","data":{"hello":"world"}}`
	if string(got.Payload) != want {
		t.Fatalf("stored payload %s, want %s", got.Payload, want)
	}
}

func TestIngestMissingSignature(t *testing.T) {
	_, gw, sub := setup(t, "helloworld")

	_, err := gw.Ingest(ctx(), sub.ID, []byte(`{"a":1}`), "")
	if !errors.Is(err, conduit.ErrMissingSignature) {
		t.Fatalf("expected ErrMissingSignature, got %v", err)
	}
}

func TestIngestInvalidSignature(t *testing.T) {
	_, gw, sub := setup(t, "helloworld")

	body := []byte(`{"a":1}`)
	sig := signature.Sign(body, "wrong-secret")
	_, err := gw.Ingest(ctx(), sub.ID, body, sig)
	if !errors.Is(err, conduit.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}

	// Signature over a different body fails too.
	sig = signature.Sign([]byte(`{"a":2}`), "helloworld")
	_, err = gw.Ingest(ctx(), sub.ID, body, sig)
	if !errors.Is(err, conduit.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestIngestUnsignedSubscription(t *testing.T) {
	_, gw, sub := setup(t, "")

	if _, err := gw.Ingest(ctx(), sub.ID, []byte(`{"a":1}`), ""); err != nil {
		t.Fatal(err)
	}
}

func TestIngestInvalidJSON(t *testing.T) {
	_, gw, sub := setup(t, "")

	_, err := gw.Ingest(ctx(), sub.ID, []byte(`{broken`), "")
	if !errors.Is(err, conduit.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestIngestInvalidJSONPrecedesSignature(t *testing.T) {
	_, gw, sub := setup(t, "helloworld")

	// Malformed JSON is rejected as an invalid payload even when the
	// subscription has a secret and the signature header is absent.
	_, err := gw.Ingest(ctx(), sub.ID, []byte(`{not json`), "")
	if !errors.Is(err, conduit.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestIngestInvalidJSONPrecedesLookup(t *testing.T) {
	_, gw, _ := setup(t, "")

	_, err := gw.Ingest(ctx(), id.NewSubscriptionID(), []byte(`{broken`), "")
	if !errors.Is(err, conduit.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}

func TestIngestUnknownSubscription(t *testing.T) {
	_, gw, _ := setup(t, "")

	_, err := gw.Ingest(ctx(), id.NewSubscriptionID(), []byte(`{"a":1}`), "")
	if !errors.Is(err, conduit.ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestIngestSchemaValidation(t *testing.T) {
	store, gw, sub := setup(t, "")

	sub.PayloadSchema = json.RawMessage(`{
		"type": "object",
		"required": ["event"],
		"properties": {"event": {"type": "string"}}
	}`)
	if err := store.UpdateSubscription(ctx(), sub); err != nil {
		t.Fatal(err)
	}

	if _, err := gw.Ingest(ctx(), sub.ID, []byte(`{"event":"order.created"}`), ""); err != nil {
		t.Fatal(err)
	}

	_, err := gw.Ingest(ctx(), sub.ID, []byte(`{"event":42}`), "")
	if !errors.Is(err, conduit.ErrPayloadValidationFailed) {
		t.Fatalf("expected ErrPayloadValidationFailed, got %v", err)
	}

	_, err = gw.Ingest(ctx(), sub.ID, []byte(`{"other":"field"}`), "")
	if !errors.Is(err, conduit.ErrPayloadValidationFailed) {
		t.Fatalf("expected ErrPayloadValidationFailed, got %v", err)
	}
}

func TestIngestBypassSkipsSignature(t *testing.T) {
	store, gw, sub := setup(t, "helloworld")

	evt, err := gw.IngestBypass(ctx(), sub.ID, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetEvent(ctx(), evt.ID); err != nil {
		t.Fatal(err)
	}

	// Bypass still rejects malformed JSON.
	if _, err := gw.IngestBypass(ctx(), sub.ID, []byte(`not json`)); !errors.Is(err, conduit.ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
}
