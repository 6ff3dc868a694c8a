package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xraph/conduit/delivery"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/internal/entity"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/subscription"
)

func newTestSubscription(url string) *subscription.Subscription {
	sub := &subscription.Subscription{
		Entity: entity.New(),
		ID:     id.NewSubscriptionID(),
		URL:    url,
	}
	sub.SetSecret("whsec_test_secret_1234567890abcdef1234567890abcdef")
	return sub
}

func newTestEvent(subID id.ID) *event.Event {
	return &event.Event{
		Entity:         entity.New(),
		ID:             id.NewEventID(),
		SubscriptionID: subID,
		Payload:        json.RawMessage(`{"hello":"world"}`),
		ReceivedAt:     time.Now().UTC(),
	}
}

func TestSenderHappyPath(t *testing.T) {
	var receivedHeaders http.Header
	var receivedBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatal(err)
		}
		receivedBody = string(bodyBytes)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)
	sub.Headers = map[string]string{"X-Custom": "custom-value"}
	evt := newTestEvent(sub.ID)

	result := sender.Send(context.Background(), sub, evt, 1)

	if result.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", result.StatusCode)
	}
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Response != `{"ok":true}` {
		t.Fatalf("unexpected response: %s", result.Response)
	}
	if !result.OK() {
		t.Fatal("expected OK result")
	}

	// Body is the stored payload, byte for byte.
	if receivedBody != `{"hello":"world"}` {
		t.Fatalf("body: got %q", receivedBody)
	}

	// Standard headers.
	if receivedHeaders.Get("Content-Type") != "application/json" {
		t.Fatal("missing Content-Type")
	}
	if receivedHeaders.Get("User-Agent") != "Conduit/1.0" {
		t.Fatal("missing User-Agent")
	}
	if receivedHeaders.Get("X-Conduit-Event-ID") != evt.ID.String() {
		t.Fatal("missing X-Conduit-Event-ID")
	}
	if receivedHeaders.Get("X-Conduit-Attempt") != "1" {
		t.Fatal("missing X-Conduit-Attempt")
	}
	if receivedHeaders.Get("X-Custom") != "custom-value" {
		t.Fatal("missing custom subscription header")
	}

	// The signature verifies against the delivered body.
	sig := receivedHeaders.Get("X-Hub-Signature-256")
	if !strings.HasPrefix(sig, signature.Scheme) {
		t.Fatalf("signature %q should start with %q", sig, signature.Scheme)
	}
	if !signature.Verify([]byte(receivedBody), sig, sub.Secret) {
		t.Fatal("signature should verify against delivered body")
	}
}

func TestSenderUnsignedSubscription(t *testing.T) {
	var receivedHeaders http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := &subscription.Subscription{
		Entity: entity.New(),
		ID:     id.NewSubscriptionID(),
		URL:    srv.URL,
	}
	evt := newTestEvent(sub.ID)

	result := sender.Send(context.Background(), sub, evt, 1)
	if result.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", result.StatusCode)
	}
	if receivedHeaders.Get("X-Hub-Signature-256") != "" {
		t.Fatal("unsigned subscription should not get a signature header")
	}
}

func TestSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("try later"))
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)
	evt := newTestEvent(sub.ID)

	result := sender.Send(context.Background(), sub, evt, 1)
	if result.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", result.StatusCode)
	}
	if result.OK() {
		t.Fatal("503 should not be OK")
	}
	if result.Response != "try later" {
		t.Fatalf("unexpected response: %q", result.Response)
	}
}

func TestSenderConnectionError(t *testing.T) {
	sender := delivery.NewSender(time.Second)
	sub := newTestSubscription("http://127.0.0.1:1") // nothing listens here
	evt := newTestEvent(sub.ID)

	result := sender.Send(context.Background(), sub, evt, 1)
	if result.StatusCode != 0 {
		t.Fatalf("expected status 0, got %d", result.StatusCode)
	}
	if result.Error == "" {
		t.Fatal("expected a transport error")
	}
}

func TestSenderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := delivery.NewSender(50 * time.Millisecond)
	sub := newTestSubscription(srv.URL)
	evt := newTestEvent(sub.ID)

	result := sender.Send(context.Background(), sub, evt, 1)
	if result.StatusCode != 0 {
		t.Fatalf("expected status 0 on timeout, got %d", result.StatusCode)
	}
	if result.Error == "" {
		t.Fatal("expected a timeout error")
	}
}

func TestSenderCapsResponseBody(t *testing.T) {
	big := strings.Repeat("x", 8192)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(big))
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)
	evt := newTestEvent(sub.ID)

	result := sender.Send(context.Background(), sub, evt, 1)
	if len(result.Response) != 1024 {
		t.Fatalf("expected response capped at 1024 bytes, got %d", len(result.Response))
	}
}
