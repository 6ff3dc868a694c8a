package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/signature"
	"github.com/xraph/conduit/subscription"
)

const maxResponseBody = 1024 // 1KB cap on response body capture

// Sender performs HTTP webhook delivery.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts an event's payload to a subscription target and returns the
// result. The payload is delivered exactly as stored, so the signature a
// receiver computes over the raw body matches the one sent here.
func (s *Sender) Send(ctx context.Context, sub *subscription.Subscription, evt *event.Event, attemptNumber int) Result {
	body := []byte(evt.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	// Standard headers.
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Conduit/1.0")
	req.Header.Set("X-Conduit-Event-ID", evt.ID.String())
	req.Header.Set("X-Conduit-Attempt", strconv.Itoa(attemptNumber))

	// HMAC signature over the delivered body, for signed subscriptions.
	if sub.HasSecret() {
		req.Header.Set("X-Hub-Signature-256", signature.Sign(body, sub.Secret))
	}

	// Custom subscription headers.
	for k, v := range sub.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // G704: URL is a user-configured webhook destination; SSRF is by design.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}
