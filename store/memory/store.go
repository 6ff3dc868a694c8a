// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/queue"
	conduitstore "github.com/xraph/conduit/store"
	"github.com/xraph/conduit/subscription"
)

// compile-time interface check.
var _ conduitstore.Store = (*Store)(nil)

// pendingJob is a queued job with its claim state.
type pendingJob struct {
	job     queue.Job
	claimed bool
}

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	subscriptions map[string]*subscription.Subscription // keyed by ID string
	events        map[string]*event.Event               // keyed by ID string
	attempts      map[string]*attempt.Attempt           // keyed by ID string
	attemptNums   map[string]map[int]string             // event ID → attempt number → attempt ID
	jobs          []*pendingJob

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		subscriptions: make(map[string]*subscription.Subscription),
		events:        make(map[string]*event.Event),
		attempts:      make(map[string]*attempt.Attempt),
		attemptNums:   make(map[string]map[int]string),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports whether the store is still open.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return conduitstore.ErrClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// subscription.Store
// ──────────────────────────────────────────────────

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[sub.ID.String()] = sub
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(_ context.Context, subID id.ID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return sub, nil
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[sub.ID.String()]; !ok {
		return subscription.ErrNotFound
	}
	sub.UpdatedAt = time.Now().UTC()
	s.subscriptions[sub.ID.String()] = sub
	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(_ context.Context, subID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[subID.String()]; !ok {
		return subscription.ErrNotFound
	}
	delete(s.subscriptions, subID.String())
	return nil
}

// ListSubscriptions returns subscriptions, newest first.
func (s *Store) ListSubscriptions(_ context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		result = append(result, sub)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

// CreateEvent persists an event.
func (s *Store) CreateEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[evt.ID.String()] = evt
	return nil
}

// GetEvent returns an event by ID.
func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.events[evtID.String()]
	if !ok {
		return nil, event.ErrNotFound
	}
	return evt, nil
}

// ListEvents returns events, newest first, optionally time-bounded.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for _, evt := range s.events {
		if !matchEventOpts(evt, opts) {
			continue
		}
		result = append(result, evt)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ListEventsBySubscription returns a subscription's events, newest first.
func (s *Store) ListEventsBySubscription(_ context.Context, subID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for _, evt := range s.events {
		if evt.SubscriptionID.String() != subID.String() {
			continue
		}
		if !matchEventOpts(evt, opts) {
			continue
		}
		result = append(result, evt)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ──────────────────────────────────────────────────
// attempt.Store
// ──────────────────────────────────────────────────

// CreateAttempt inserts an attempt row, rejecting duplicate attempt numbers.
func (s *Store) CreateAttempt(_ context.Context, att *attempt.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	evtKey := att.EventID.String()
	nums, ok := s.attemptNums[evtKey]
	if !ok {
		nums = make(map[int]string)
		s.attemptNums[evtKey] = nums
	}
	if _, exists := nums[att.Number]; exists {
		return attempt.ErrDuplicate
	}

	nums[att.Number] = att.ID.String()
	s.attempts[att.ID.String()] = copyAttempt(att)
	return nil
}

// UpdateAttempt writes an attempt's terminal state.
func (s *Store) UpdateAttempt(_ context.Context, att *attempt.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attempts[att.ID.String()]; !ok {
		return attempt.ErrNotFound
	}
	s.attempts[att.ID.String()] = copyAttempt(att)
	return nil
}

// GetAttempt returns an attempt by ID.
func (s *Store) GetAttempt(_ context.Context, attID id.ID) (*attempt.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	att, ok := s.attempts[attID.String()]
	if !ok {
		return nil, attempt.ErrNotFound
	}
	return copyAttempt(att), nil
}

// ListAttemptsByEvent returns an event's attempts, newest first.
func (s *Store) ListAttemptsByEvent(_ context.Context, evtID id.ID) ([]*attempt.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*attempt.Attempt
	for _, att := range s.attempts {
		if att.EventID.String() != evtID.String() {
			continue
		}
		result = append(result, copyAttempt(att))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Number > result[j].Number
	})
	return result, nil
}

// ListAttemptsBySubscription returns a subscription's attempts, newest first.
func (s *Store) ListAttemptsBySubscription(_ context.Context, subID id.ID, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*attempt.Attempt, 0, len(s.attempts))
	for _, att := range s.attempts {
		if att.SubscriptionID.String() != subID.String() {
			continue
		}
		if opts.Status != nil && att.Status != *opts.Status {
			continue
		}
		result = append(result, copyAttempt(att))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// ListAttempts returns all attempts ordered by timestamp descending.
func (s *Store) ListAttempts(_ context.Context, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*attempt.Attempt, 0, len(s.attempts))
	for _, att := range s.attempts {
		if opts.Status != nil && att.Status != *opts.Status {
			continue
		}
		result = append(result, copyAttempt(att))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return applyPagination(result, opts.Offset, opts.Limit), nil
}

// LatestAttemptNumber returns the highest attempt number recorded for an event.
func (s *Store) LatestAttemptNumber(_ context.Context, evtID id.ID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest int
	for n := range s.attemptNums[evtID.String()] {
		if n > latest {
			latest = n
		}
	}
	return latest, nil
}

// CountAttemptsByStatus returns the number of attempts in a status.
func (s *Store) CountAttemptsByStatus(_ context.Context, status attempt.Status) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, att := range s.attempts {
		if att.Status == status {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// queue.Store
// ──────────────────────────────────────────────────

// EnqueueJob schedules a job to run no earlier than now plus delay.
func (s *Store) EnqueueJob(_ context.Context, job queue.Job, delay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job.RunAt = time.Now().UTC().Add(delay)
	s.jobs = append(s.jobs, &pendingJob{job: job})
	return nil
}

// DequeueJobs claims due jobs, oldest deadline first.
func (s *Store) DequeueJobs(_ context.Context, limit int) ([]queue.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	var due []*pendingJob
	for _, pj := range s.jobs {
		if pj.claimed || pj.job.RunAt.After(now) {
			continue
		}
		due = append(due, pj)
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].job.RunAt.Before(due[j].job.RunAt)
	})

	if limit > 0 && limit < len(due) {
		due = due[:limit]
	}

	result := make([]queue.Job, 0, len(due))
	for _, pj := range due {
		pj.claimed = true
		result = append(result, pj.job)
	}

	s.compactJobs()
	return result, nil
}

// CountPendingJobs returns the number of unclaimed jobs.
func (s *Store) CountPendingJobs(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, pj := range s.jobs {
		if !pj.claimed {
			count++
		}
	}
	return count, nil
}

// compactJobs drops claimed jobs from the slice. Callers hold the lock.
func (s *Store) compactJobs() {
	remaining := s.jobs[:0]
	for _, pj := range s.jobs {
		if !pj.claimed {
			remaining = append(remaining, pj)
		}
	}
	s.jobs = remaining
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

// copyAttempt returns a shallow copy so callers can mutate without a lock.
func copyAttempt(att *attempt.Attempt) *attempt.Attempt {
	cp := *att
	return &cp
}

func matchEventOpts(evt *event.Event, opts event.ListOpts) bool {
	if opts.From != nil && evt.ReceivedAt.Before(*opts.From) {
		return false
	}
	if opts.To != nil && evt.ReceivedAt.After(*opts.To) {
		return false
	}
	return true
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
