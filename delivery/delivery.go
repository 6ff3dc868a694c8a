// Package delivery implements the webhook delivery engine: an HTTP sender,
// a retry policy, and a worker pool that drains the pending-job queue and
// records every attempt in the ledger.
package delivery

// Result holds the outcome of a single HTTP delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// OK reports whether the attempt reached the target and got a 2xx back.
func (r Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
