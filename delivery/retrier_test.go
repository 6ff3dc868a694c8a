package delivery_test

import (
	"testing"
	"time"

	"github.com/xraph/conduit/delivery"
)

var testSchedule = []time.Duration{
	10 * time.Second,
	30 * time.Second,
	60 * time.Second,
	5 * time.Minute,
	15 * time.Minute,
}

func TestDecide(t *testing.T) {
	r := delivery.NewRetrier(testSchedule, 5)

	cases := []struct {
		name    string
		result  delivery.Result
		attempt int
		want    delivery.Outcome
	}{
		{"200 first try", delivery.Result{StatusCode: 200}, 1, delivery.Delivered},
		{"204 last try", delivery.Result{StatusCode: 204}, 5, delivery.Delivered},
		{"500 retries", delivery.Result{StatusCode: 500}, 1, delivery.Retry},
		{"404 retries too", delivery.Result{StatusCode: 404}, 1, delivery.Retry},
		{"429 retries", delivery.Result{StatusCode: 429}, 3, delivery.Retry},
		{"timeout retries", delivery.Result{Error: "context deadline exceeded"}, 2, delivery.Retry},
		{"500 exhausts on last attempt", delivery.Result{StatusCode: 500}, 5, delivery.Exhausted},
		{"404 exhausts on last attempt", delivery.Result{StatusCode: 404}, 5, delivery.Exhausted},
		{"timeout exhausts past budget", delivery.Result{Error: "i/o timeout"}, 6, delivery.Exhausted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := r.Decide(tc.result, tc.attempt); got != tc.want {
				t.Fatalf("Decide(%+v, %d) = %s, want %s", tc.result, tc.attempt, got, tc.want)
			}
		})
	}
}

func TestNextDelay(t *testing.T) {
	r := delivery.NewRetrier(testSchedule, 5)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 10 * time.Second},
		{2, 30 * time.Second},
		{3, 60 * time.Second},
		{4, 5 * time.Minute},
		{5, 15 * time.Minute},
		{9, 15 * time.Minute}, // past the schedule reuses the last interval
		{0, 10 * time.Second},
	}

	for _, tc := range cases {
		if got := r.NextDelay(tc.attempt); got != tc.want {
			t.Fatalf("NextDelay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}
}

func TestNextDelayEmptySchedule(t *testing.T) {
	r := delivery.NewRetrier(nil, 5)
	if got := r.NextDelay(1); got != 0 {
		t.Fatalf("NextDelay with empty schedule = %s, want 0", got)
	}
}
