package attempt_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/store/memory"
)

func newLedger() *attempt.Ledger {
	return attempt.NewLedger(memory.New(), nil)
}

func TestLedgerBeginComplete(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger()
	evtID := id.NewEventID()
	subID := id.NewSubscriptionID()

	att, err := ledger.Begin(ctx, evtID, subID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if att.Status != attempt.StatusInProgress {
		t.Fatalf("expected in_progress, got %q", att.Status)
	}
	if att.Number != 1 {
		t.Fatalf("expected attempt number 1, got %d", att.Number)
	}

	if err := ledger.Complete(ctx, att, attempt.StatusSuccess, 200, "", `{"ok":true}`); err != nil {
		t.Fatal(err)
	}

	rows, err := ledger.ListByEvent(ctx, evtID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Status != attempt.StatusSuccess {
		t.Fatalf("expected success, got %q", rows[0].Status)
	}
	if rows[0].StatusCode != 200 {
		t.Fatalf("expected status code 200, got %d", rows[0].StatusCode)
	}
	if rows[0].CompletedAt == nil {
		t.Fatal("expected CompletedAt to be set")
	}
}

func TestLedgerDuplicateAttemptNumber(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger()
	evtID := id.NewEventID()
	subID := id.NewSubscriptionID()

	att, err := ledger.Begin(ctx, evtID, subID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Complete(ctx, att, attempt.StatusFailed, 0, "connection refused", ""); err != nil {
		t.Fatal(err)
	}

	// A redelivered queue job for the same attempt number must be rejected.
	if _, err := ledger.Begin(ctx, evtID, subID, 1); !errors.Is(err, conduit.ErrDuplicateAttempt) {
		t.Fatalf("expected ErrDuplicateAttempt, got %v", err)
	}
}

func TestLedgerContiguousNumbering(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger()
	evtID := id.NewEventID()
	subID := id.NewSubscriptionID()

	for n := 1; n <= 4; n++ {
		att, err := ledger.Begin(ctx, evtID, subID, n)
		if err != nil {
			t.Fatalf("begin attempt %d: %v", n, err)
		}
		if err := ledger.Complete(ctx, att, attempt.StatusFailed, 503, "upstream unavailable", ""); err != nil {
			t.Fatalf("complete attempt %d: %v", n, err)
		}
	}

	rows, err := ledger.ListByEvent(ctx, evtID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}

	// Newest first: 4, 3, 2, 1 with no gaps.
	for i, row := range rows {
		want := 4 - i
		if row.Number != want {
			t.Fatalf("row %d: expected number %d, got %d", i, want, row.Number)
		}
	}

	latest, err := ledger.LatestNumber(ctx, evtID)
	if err != nil {
		t.Fatal(err)
	}
	if latest != 4 {
		t.Fatalf("expected latest number 4, got %d", latest)
	}
}

func TestLedgerSingleInProgress(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger()
	evtID := id.NewEventID()
	subID := id.NewSubscriptionID()

	att, err := ledger.Begin(ctx, evtID, subID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Complete(ctx, att, attempt.StatusFailed, 500, "boom", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.Begin(ctx, evtID, subID, 2); err != nil {
		t.Fatal(err)
	}

	rows, err := ledger.ListByEvent(ctx, evtID)
	if err != nil {
		t.Fatal(err)
	}

	inProgress := 0
	for _, row := range rows {
		if row.Status == attempt.StatusInProgress {
			inProgress++
		}
	}
	if inProgress != 1 {
		t.Fatalf("expected exactly 1 in_progress row, got %d", inProgress)
	}
}

func TestLedgerTruncatesExcerpts(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger()

	att, err := ledger.Begin(ctx, id.NewEventID(), id.NewSubscriptionID(), 1)
	if err != nil {
		t.Fatal(err)
	}

	long := strings.Repeat("x", attempt.ExcerptLimit*3)
	if err := ledger.Complete(ctx, att, attempt.StatusFailed, 502, long, long); err != nil {
		t.Fatal(err)
	}

	if len(att.ErrorMessage) != attempt.ExcerptLimit {
		t.Fatalf("error message not truncated: %d chars", len(att.ErrorMessage))
	}
	if len(att.ResponseBody) != attempt.ExcerptLimit {
		t.Fatalf("response body not truncated: %d chars", len(att.ResponseBody))
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	// A multi-byte rune straddling the limit is dropped whole, never split
	// into invalid UTF-8.
	s := strings.Repeat("x", attempt.ExcerptLimit-1) + "世界"
	got := attempt.Truncate(s)

	if !utf8.ValidString(got) {
		t.Fatalf("truncated excerpt is not valid UTF-8: %q", got[len(got)-4:])
	}
	if len(got) != attempt.ExcerptLimit-1 {
		t.Fatalf("expected cut before the straddling rune, got %d bytes", len(got))
	}

	if short := attempt.Truncate("short"); short != "short" {
		t.Fatalf("short string changed: %q", short)
	}
}

func TestLedgerCompleteRejectsNonTerminal(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger()

	att, err := ledger.Begin(ctx, id.NewEventID(), id.NewSubscriptionID(), 1)
	if err != nil {
		t.Fatal(err)
	}

	if err := ledger.Complete(ctx, att, attempt.StatusInProgress, 0, "", ""); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}
