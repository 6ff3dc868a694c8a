package conduit_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/store/memory"
	"github.com/xraph/conduit/subscription"
)

func ctx() context.Context { return context.Background() }

func setup(t *testing.T) (*conduit.Conduit, *memory.Store) {
	t.Helper()
	s := memory.New()
	c, err := conduit.New(
		conduit.WithStore(s),
		conduit.WithPollInterval(20*time.Millisecond),
		conduit.WithRetrySchedule([]time.Duration{10 * time.Millisecond, 20 * time.Millisecond}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return c, s
}

func createSubscription(t *testing.T, c *conduit.Conduit, url, secret string) *subscription.Subscription {
	t.Helper()
	sub, err := c.Subscriptions().Create(ctx(), subscription.Input{
		URL:    url,
		Secret: secret,
	})
	if err != nil {
		t.Fatal(err)
	}
	return sub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for condition")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestNewRequiresStore(t *testing.T) {
	if _, err := conduit.New(); !errors.Is(err, conduit.ErrNoStore) {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestEndToEndDelivery(t *testing.T) {
	var received atomic.Int32
	var gotSig atomic.Value

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		gotSig.Store(r.Header.Get("X-Hub-Signature-256"))
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	c, s := setup(t)
	sub := createSubscription(t, c, target.URL, "helloworld")

	body := []byte(`{"event":"test_event","data":{"hello":"world"}}`)
	evt, err := c.Ingest(ctx(), sub.ID, body, signature.Sign(body, "helloworld"))
	if err != nil {
		t.Fatal(err)
	}

	c.Start(ctx())
	defer c.Stop(ctx())

	waitFor(t, func() bool { return received.Load() == 1 })

	atts, err := c.Attempts().ListByEvent(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 1 || atts[0].Status != attempt.StatusSuccess {
		t.Fatalf("unexpected attempts: %+v", atts)
	}

	// The outbound signature verifies against the stored payload.
	sig, _ := gotSig.Load().(string)
	if !signature.Verify(body, sig, "helloworld") {
		t.Fatalf("outbound signature %q should verify", sig)
	}

	pending, err := s.CountPendingJobs(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Fatalf("expected empty queue, got %d", pending)
	}
}

func TestEndToEndRetryUntilExhausted(t *testing.T) {
	var received atomic.Int32

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer target.Close()

	s := memory.New()
	c, err := conduit.New(
		conduit.WithStore(s),
		conduit.WithPollInterval(20*time.Millisecond),
		conduit.WithMaxAttempts(3),
		conduit.WithRetrySchedule([]time.Duration{10 * time.Millisecond, 10 * time.Millisecond}),
	)
	if err != nil {
		t.Fatal(err)
	}

	sub := createSubscription(t, c, target.URL, "")
	evt, err := c.Ingest(ctx(), sub.ID, []byte(`{"a":1}`), "")
	if err != nil {
		t.Fatal(err)
	}

	c.Start(ctx())
	waitFor(t, func() bool { return received.Load() == 3 })
	time.Sleep(100 * time.Millisecond)
	c.Stop(ctx())

	atts, err := c.Attempts().ListByEvent(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(atts))
	}
	for _, a := range atts {
		if a.Status != attempt.StatusFailed {
			t.Fatalf("attempt %d: status %s", a.Number, a.Status)
		}
		if a.StatusCode != http.StatusBadGateway {
			t.Fatalf("attempt %d: status code %d", a.Number, a.StatusCode)
		}
	}

	stats, err := c.Stats(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FailedAttempts != 3 || stats.PendingJobs != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestReplayAfterExhaustion(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	var received atomic.Int32

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer target.Close()

	s := memory.New()
	c, err := conduit.New(
		conduit.WithStore(s),
		conduit.WithPollInterval(20*time.Millisecond),
		conduit.WithMaxAttempts(2),
		conduit.WithRetrySchedule([]time.Duration{10 * time.Millisecond}),
	)
	if err != nil {
		t.Fatal(err)
	}

	sub := createSubscription(t, c, target.URL, "")
	evt, err := c.Ingest(ctx(), sub.ID, []byte(`{"a":1}`), "")
	if err != nil {
		t.Fatal(err)
	}

	c.Start(ctx())
	defer c.Stop(ctx())

	waitFor(t, func() bool { return received.Load() == 2 })

	// The target recovers; replay queues exactly one more attempt, numbered
	// after the failed ones.
	fail.Store(false)
	n, err := c.Replay(ctx(), evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected replay to queue attempt 3, got %d", n)
	}

	waitFor(t, func() bool { return received.Load() == 3 })
	waitFor(t, func() bool {
		atts, err := c.Attempts().ListByEvent(ctx(), evt.ID)
		if err != nil {
			t.Fatal(err)
		}
		return len(atts) == 3 && atts[0].Status == attempt.StatusSuccess
	})
}

func TestReplayUnknownEvent(t *testing.T) {
	c, _ := setup(t)

	if _, err := c.Replay(ctx(), id.NewEventID()); !errors.Is(err, conduit.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
