package delivery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/delivery"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/queue"
	"github.com/xraph/conduit/store/memory"
	"github.com/xraph/conduit/subscription"
)

func setupEngine(t *testing.T, handler http.Handler, maxAttempts int) (*memory.Store, *delivery.Engine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)

	store := memory.New()
	ledger := attempt.NewLedger(store, nil)
	cfg := delivery.EngineConfig{
		Concurrency:    2,
		PollInterval:   20 * time.Millisecond,
		BatchSize:      10,
		RequestTimeout: 5 * time.Second,
		MaxAttempts:    maxAttempts,
		RetrySchedule:  []time.Duration{10 * time.Millisecond, 20 * time.Millisecond},
	}

	engine := delivery.NewEngine(store, ledger, cfg, nil)
	return store, engine, srv
}

func createTestData(t *testing.T, store *memory.Store, url string) (*subscription.Subscription, *event.Event) {
	t.Helper()
	ctx := context.Background()

	sub := newTestSubscription(url)
	if err := store.CreateSubscription(ctx, sub); err != nil {
		t.Fatal(err)
	}

	evt := newTestEvent(sub.ID)
	if err := store.CreateEvent(ctx, evt); err != nil {
		t.Fatal(err)
	}

	if err := store.EnqueueJob(ctx, queue.Job{EventID: evt.ID, Attempt: 1}, 0); err != nil {
		t.Fatal(err)
	}

	return sub, evt
}

// waitForAttempts polls the ledger until the event has n attempts in the
// wanted terminal status, failing the test on timeout.
func waitForAttempts(t *testing.T, store *memory.Store, evtID id.ID, status attempt.Status, n int) []*attempt.Attempt {
	t.Helper()
	ctx := context.Background()

	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for %d %s attempts", n, status)
		default:
		}

		atts, err := store.ListAttemptsByEvent(ctx, evtID)
		if err != nil {
			t.Fatal(err)
		}
		var matched int
		for _, a := range atts {
			if a.Status == status {
				matched++
			}
		}
		if matched >= n {
			return atts
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestEngineDeliversSuccessfully(t *testing.T) {
	var delivered atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, 5)
	defer srv.Close()

	_, evt := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	atts := waitForAttempts(t, store, evt.ID, attempt.StatusSuccess, 1)
	engine.Stop(ctx)

	if delivered.Load() != 1 {
		t.Fatalf("expected 1 delivery, got %d", delivered.Load())
	}
	if len(atts) != 1 {
		t.Fatalf("expected 1 attempt row, got %d", len(atts))
	}
	if atts[0].Number != 1 || atts[0].StatusCode != 200 {
		t.Fatalf("unexpected attempt: %+v", atts[0])
	}
	if atts[0].CompletedAt == nil {
		t.Fatal("completed attempt should have CompletedAt set")
	}
}

func TestEngineRetriesAndSucceeds(t *testing.T) {
	var tries atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if tries.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, 5)
	defer srv.Close()

	_, evt := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	atts := waitForAttempts(t, store, evt.ID, attempt.StatusSuccess, 1)
	engine.Stop(ctx)

	if len(atts) != 3 {
		t.Fatalf("expected 3 attempt rows, got %d", len(atts))
	}

	// Newest first: 3 (success), 2 (failed), 1 (failed).
	for i, a := range atts {
		wantNumber := len(atts) - i
		if a.Number != wantNumber {
			t.Fatalf("attempt %d: got number %d, want %d", i, a.Number, wantNumber)
		}
	}
	if atts[0].Status != attempt.StatusSuccess {
		t.Fatalf("final attempt status %s", atts[0].Status)
	}
	if atts[1].Status != attempt.StatusFailed || atts[2].Status != attempt.StatusFailed {
		t.Fatal("earlier attempts should be failed")
	}
}

func TestEngineExhaustsRetries(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	store, engine, srv := setupEngine(t, handler, 3)
	defer srv.Close()

	_, evt := createTestData(t, store, srv.URL)

	ctx := context.Background()
	engine.Start(ctx)
	waitForAttempts(t, store, evt.ID, attempt.StatusFailed, 3)

	// Give the engine a couple more poll cycles to prove no fourth attempt
	// gets scheduled.
	time.Sleep(100 * time.Millisecond)
	engine.Stop(ctx)

	atts, err := store.ListAttemptsByEvent(ctx, evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(atts))
	}

	pending, err := store.CountPendingJobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Fatalf("expected no pending jobs after exhaustion, got %d", pending)
	}
}

func TestEngineDropsRedeliveredJob(t *testing.T) {
	var delivered atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, 5)
	defer srv.Close()

	_, evt := createTestData(t, store, srv.URL)

	// Simulate queue redelivery: the same attempt number lands twice.
	ctx := context.Background()
	if err := store.EnqueueJob(ctx, queue.Job{EventID: evt.ID, Attempt: 1}, 0); err != nil {
		t.Fatal(err)
	}

	engine.Start(ctx)
	waitForAttempts(t, store, evt.ID, attempt.StatusSuccess, 1)
	time.Sleep(100 * time.Millisecond)
	engine.Stop(ctx)

	if delivered.Load() != 1 {
		t.Fatalf("expected 1 delivery despite redelivery, got %d", delivered.Load())
	}
	atts, err := store.ListAttemptsByEvent(ctx, evt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(atts) != 1 {
		t.Fatalf("expected 1 attempt row, got %d", len(atts))
	}
}

func TestEngineDropsJobForMissingEvent(t *testing.T) {
	var delivered atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, 5)
	defer srv.Close()

	ctx := context.Background()
	if err := store.EnqueueJob(ctx, queue.Job{EventID: id.NewEventID(), Attempt: 1}, 0); err != nil {
		t.Fatal(err)
	}

	engine.Start(ctx)
	time.Sleep(150 * time.Millisecond)
	engine.Stop(ctx)

	if delivered.Load() != 0 {
		t.Fatal("no delivery expected for a missing event")
	}
	pending, err := store.CountPendingJobs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 0 {
		t.Fatalf("dropped job should not stay pending, got %d", pending)
	}
}

func TestEngineGracefulShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	store, engine, srv := setupEngine(t, handler, 5)
	defer srv.Close()

	ctx := context.Background()
	for range 5 {
		createTestData(t, store, srv.URL)
	}

	engine.Start(ctx)
	time.Sleep(200 * time.Millisecond)
	engine.Stop(ctx)

	// No attempt may be left open after Stop returns.
	open, err := store.CountAttemptsByStatus(ctx, attempt.StatusInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if open != 0 {
		t.Fatalf("expected no in-progress attempts after shutdown, got %d", open)
	}
}
