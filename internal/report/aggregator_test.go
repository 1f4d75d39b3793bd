package report

import (
	"context"
	"testing"
	"time"

	"github.com/mzito/mazao/internal/ledger"
)

func appendAt(t *testing.T, trades *ledger.InMemoryClient, at time.Time, label string, payload map[string]any) {
	t.Helper()
	trades.SetNow(func() time.Time { return at })
	if err := trades.Append(context.Background(), label, payload); err != nil {
		t.Fatalf("Append %s: %v", label, err)
	}
}

func TestRunReportAggregatesOneDay(t *testing.T) {
	trades := ledger.NewInMemoryClient(ledger.DefaultTopic)
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	// Day before, must be excluded.
	appendAt(t, trades, day.Add(-2*time.Hour), "delivery.stored", map[string]any{
		"sender": "+254700000009", "quantity": 500.0,
	})
	// Window start is inclusive.
	appendAt(t, trades, day, "intent.received", map[string]any{"sender": "+254700000001"})
	appendAt(t, trades, day.Add(time.Hour), "delivery.stored", map[string]any{
		"sender": "+254700000001", "quantity": 200.0,
	})
	appendAt(t, trades, day.Add(2*time.Hour), "release.enqueued", map[string]any{
		"sender": "+254700000002", "amount": 200.0,
	})
	appendAt(t, trades, day.Add(3*time.Hour), "escrow.released", map[string]any{
		"amount": 200.0,
	})
	// Next midnight is exclusive.
	appendAt(t, trades, day.Add(24*time.Hour), "delivery.stored", map[string]any{
		"sender": "+254700000003", "quantity": 75.0,
	})

	agg := NewAggregator(trades, ledger.DefaultTopic, 50, nil)
	agg.SetNow(func() time.Time { return day.Add(24*time.Hour + 5*time.Minute) })

	sum, err := agg.RunReport(context.Background(), day.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("RunReport: %v", err)
	}
	if sum.Day != "2024-05-10" {
		t.Fatalf("Day = %q", sum.Day)
	}
	if sum.Events != 4 {
		t.Fatalf("Events = %d, want 4", sum.Events)
	}
	if sum.Counts["delivery.stored"] != 1 || sum.Counts["escrow.released"] != 1 {
		t.Fatalf("Counts = %v", sum.Counts)
	}
	if sum.DeliveredQuantity != 200 {
		t.Fatalf("DeliveredQuantity = %v, want 200", sum.DeliveredQuantity)
	}
	if sum.ReleasedAmount != 200 {
		t.Fatalf("ReleasedAmount = %v, want 200", sum.ReleasedAmount)
	}
	if sum.UniqueSenders != 2 {
		t.Fatalf("UniqueSenders = %d, want 2", sum.UniqueSenders)
	}

	labels := trades.Labels()
	if labels[len(labels)-1] != "report.daily" {
		t.Fatalf("last label = %q, want report.daily", labels[len(labels)-1])
	}

	latest, ok := agg.Latest()
	if !ok || latest.Day != sum.Day {
		t.Fatalf("Latest = %+v, %v", latest, ok)
	}
}

func TestRunReportStopsPagingBeforeWindow(t *testing.T) {
	trades := ledger.NewInMemoryClient(ledger.DefaultTopic)
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	// A large tail of old history that must never be paged through.
	for i := 0; i < 50; i++ {
		appendAt(t, trades, day.Add(-72*time.Hour).Add(time.Duration(i)*time.Minute), "intent.received", map[string]any{
			"sender": "+254700000009",
		})
	}
	for i := 0; i < 4; i++ {
		appendAt(t, trades, day.Add(time.Duration(i)*time.Hour), "intent.received", map[string]any{
			"sender": "+254700000001",
		})
	}

	agg := NewAggregator(trades, ledger.DefaultTopic, 5, nil)
	sum, err := agg.RunReport(context.Background(), day)
	if err != nil {
		t.Fatalf("RunReport: %v", err)
	}
	if sum.Events != 4 {
		t.Fatalf("Events = %d, want 4", sum.Events)
	}
	// 4 in-window entries fit in the first page; the second page's
	// newest entry is old history and ends the walk.
	if sum.PagesScanned > 2 {
		t.Fatalf("PagesScanned = %d, want <= 2", sum.PagesScanned)
	}
}

func TestRunReportSkipsPriorReportEvents(t *testing.T) {
	trades := ledger.NewInMemoryClient(ledger.DefaultTopic)
	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	appendAt(t, trades, day.Add(time.Hour), "intent.received", map[string]any{"sender": "a"})

	agg := NewAggregator(trades, ledger.DefaultTopic, 50, nil)
	if _, err := agg.RunReport(context.Background(), day); err != nil {
		t.Fatalf("first RunReport: %v", err)
	}
	sum, err := agg.RunReport(context.Background(), day)
	if err != nil {
		t.Fatalf("second RunReport: %v", err)
	}
	if sum.Events != 1 {
		t.Fatalf("Events = %d, want 1 (report.daily must not count itself)", sum.Events)
	}
}
