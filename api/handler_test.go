package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/api"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/store/memory"
)

// testServer creates a Handler backed by a memory store and returns the
// server plus the Conduit behind it.
func testServer(t *testing.T) (*httptest.Server, *conduit.Conduit) {
	t.Helper()

	s := memory.New()
	c, err := conduit.New(conduit.WithStore(s))
	if err != nil {
		t.Fatal(err)
	}

	h := api.NewHandler(c, nil)
	return httptest.NewServer(h), c
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func doRaw(t *testing.T, method, url, body string, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func createTestSubscription(t *testing.T, srvURL, secret string) string {
	t.Helper()
	resp := doJSON(t, "POST", srvURL+"/subscriptions", map[string]any{
		"url":    "https://example.com/hook",
		"secret": secret,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create subscription: expected 201, got %d", resp.StatusCode)
	}
	var sub struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &sub)
	return sub.ID
}

// --- Subscriptions ---

func TestSubscriptions_CRUD(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "helloworld")

	// Get
	resp := doJSON(t, "GET", srv.URL+"/subscriptions/"+subID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", resp.StatusCode)
	}
	var got map[string]any
	decodeBody(t, resp, &got)
	if got["url"] != "https://example.com/hook" {
		t.Fatalf("get: url %v", got["url"])
	}
	if _, leaked := got["secret"]; leaked {
		t.Fatal("secret must not appear in responses")
	}

	// Update
	resp = doJSON(t, "PUT", srv.URL+"/subscriptions/"+subID, map[string]any{
		"description": "orders hook",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: expected 200, got %d", resp.StatusCode)
	}

	// List
	resp = doJSON(t, "GET", srv.URL+"/subscriptions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	var subs []map[string]any
	decodeBody(t, resp, &subs)
	if len(subs) != 1 {
		t.Fatalf("list: expected 1 subscription, got %d", len(subs))
	}

	// Delete
	resp = doJSON(t, "DELETE", srv.URL+"/subscriptions/"+subID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/subscriptions/"+subID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubscriptions_Validation(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "POST", srv.URL+"/subscriptions", map[string]any{
		"url": "not a url",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestSubscriptions_RotateSecret(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "")

	resp := doJSON(t, "POST", srv.URL+"/subscriptions/"+subID+"/rotate-secret", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rotate: expected 200, got %d", resp.StatusCode)
	}
	var rotated struct {
		Secret string `json:"secret"`
	}
	decodeBody(t, resp, &rotated)
	if !strings.HasPrefix(rotated.Secret, "whsec_") {
		t.Fatalf("rotated secret %q", rotated.Secret)
	}
}

// --- Ingest ---

func TestIngest_Signed(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "helloworld")

	body := `{"event":"test_event","data":{"hello":"world"}}`
	resp := doRaw(t, "POST", srv.URL+"/ingest/"+subID, body, map[string]string{
		"Content-Type":         "application/json",
		api.SignatureHeader:    signature.Sign([]byte(body), "helloworld"),
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		Status  string `json:"status"`
		EventID string `json:"event_id"`
	}
	decodeBody(t, resp, &accepted)
	if accepted.Status != "accepted" || accepted.EventID == "" {
		t.Fatalf("unexpected response: %+v", accepted)
	}
}

func TestIngest_SignatureRejections(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "helloworld")
	body := `{"a":1}`

	// No header.
	resp := doRaw(t, "POST", srv.URL+"/ingest/"+subID, body, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing header: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Wrong signature.
	resp = doRaw(t, "POST", srv.URL+"/ingest/"+subID, body, map[string]string{
		api.SignatureHeader: signature.Sign([]byte(body), "wrong"),
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad signature: expected 401, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestIngest_BadRequests(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "")

	resp := doRaw(t, "POST", srv.URL+"/ingest/"+subID, `{broken`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad JSON: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRaw(t, "POST", srv.URL+"/ingest/not-a-typeid", `{"a":1}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad ID: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestIngest_UnknownSubscription(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doRaw(t, "POST", srv.URL+"/ingest/sub_00000000000000000000000000", `{"a":1}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestIngest_Bypass(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "helloworld")

	// Unsigned body lands fine through the bypass route.
	resp := doRaw(t, "POST", srv.URL+"/ingest/bypass-signature/"+subID, `{"a":1}`, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestGetSignature_GoldenVector(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doRaw(t, "POST", srv.URL+"/ingest/getsignature",
		`{"payload": {"event": "test_event", "data": {"hello": "world"}}, "secret": "helloworld"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var got struct {
		Signature string `json:"signature"`
	}
	decodeBody(t, resp, &got)

	want := "sha256=f546bbd7ae8b9c1797533f32836d67bf1bc1f325a3b2481a8dd0c804358f22ea"
	if got.Signature != want {
		t.Fatalf("signature %q, want %q", got.Signature, want)
	}
}

func TestGetSignature_MissingFields(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doRaw(t, "POST", srv.URL+"/ingest/getsignature", `{"secret":"s"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing payload: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doRaw(t, "POST", srv.URL+"/ingest/getsignature", `{"payload":{"a":1}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing secret: expected 400, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// --- Delivery logs, events, stats ---

func TestDeliveryLogs_EmptyIs404(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/logs/deliverylogs", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 on empty ledger, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestEventsAndReplay(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	subID := createTestSubscription(t, srv.URL, "")
	resp := doRaw(t, "POST", srv.URL+"/ingest/"+subID, `{"a":1}`, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("ingest: expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		EventID string `json:"event_id"`
	}
	decodeBody(t, resp, &accepted)

	resp = doJSON(t, "GET", srv.URL+"/events/"+accepted.EventID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get event: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/events/"+accepted.EventID+"/attempts", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list attempts: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "POST", srv.URL+"/events/"+accepted.EventID+"/replay", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("replay: expected 202, got %d", resp.StatusCode)
	}
	var replay struct {
		Attempt int `json:"attempt"`
	}
	decodeBody(t, resp, &replay)
	if replay.Attempt != 1 {
		t.Fatalf("replay attempt %d, want 1 (no prior attempts)", replay.Attempt)
	}
}

func TestStatsAndPing(t *testing.T) {
	srv, _ := testServer(t)
	defer srv.Close()

	resp := doJSON(t, "GET", srv.URL+"/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats: expected 200, got %d", resp.StatusCode)
	}
	var stats map[string]int64
	decodeBody(t, resp, &stats)
	if stats["pending_jobs"] != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	resp = doJSON(t, "GET", srv.URL+"/ping", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ping: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
