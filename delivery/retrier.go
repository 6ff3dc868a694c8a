package delivery

import "time"

// Outcome is the decision taken after evaluating a delivery attempt.
type Outcome int

const (
	// Delivered means the attempt succeeded (2xx).
	Delivered Outcome = iota

	// Retry means the attempt failed and a later attempt is scheduled.
	Retry

	// Exhausted means the attempt failed and the retry budget is spent;
	// the event is a permanent failure.
	Exhausted
)

// String returns the outcome name for logs.
func (o Outcome) String() string {
	switch o {
	case Delivered:
		return "delivered"
	case Retry:
		return "retry"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Retrier decides what to do after a delivery attempt.
//
// Any non-2xx status and any transport error are treated alike: the target
// may recover, so every failure is retried until the attempt budget runs
// out. There is no fast-fail class of status codes.
type Retrier struct {
	schedule    []time.Duration
	maxAttempts int
}

// NewRetrier creates a retrier with the given backoff schedule and attempt
// budget. The first try counts against the budget.
func NewRetrier(schedule []time.Duration, maxAttempts int) *Retrier {
	return &Retrier{schedule: schedule, maxAttempts: maxAttempts}
}

// Decide evaluates the result of attempt number n.
//
//   - 2xx → Delivered
//   - anything else, n < maxAttempts → Retry
//   - anything else, n >= maxAttempts → Exhausted
func (r *Retrier) Decide(res Result, n int) Outcome {
	if res.OK() {
		return Delivered
	}
	if n < r.maxAttempts {
		return Retry
	}
	return Exhausted
}

// NextDelay returns the backoff to wait after attempt number n fails.
// Attempt numbers past the end of the schedule reuse the last interval.
func (r *Retrier) NextDelay(n int) time.Duration {
	if len(r.schedule) == 0 {
		return 0
	}
	idx := n - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.schedule) {
		idx = len(r.schedule) - 1
	}
	return r.schedule[idx]
}
