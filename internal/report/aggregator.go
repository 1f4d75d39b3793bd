package report

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/observability"
)

// Summary aggregates one UTC day of trade activity.
type Summary struct {
	Day               string         `json:"day"`
	GeneratedAt       time.Time      `json:"generated_at"`
	Events            int            `json:"events"`
	Counts            map[string]int `json:"counts"`
	DeliveredQuantity float64        `json:"delivered_quantity"`
	ReleasedAmount    float64        `json:"released_amount"`
	UniqueSenders     int            `json:"unique_senders"`
	PagesScanned      int            `json:"pages_scanned"`
}

// Aggregator walks the trade ledger backwards and folds one day's events
// into a Summary. The walk stops as soon as a page's newest entry
// predates the window start, so old history is never paged through.
type Aggregator struct {
	mu       sync.RWMutex
	trades   ledger.Client
	topic    string
	pageSize int
	metrics  *observability.Metrics
	now      func() time.Time
	latest   *Summary
}

func NewAggregator(trades ledger.Client, topic string, pageSize int, metrics *observability.Metrics) *Aggregator {
	if topic == "" {
		topic = ledger.DefaultTopic
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Aggregator{
		trades:   trades,
		topic:    topic,
		pageSize: pageSize,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetNow overrides the aggregator clock. Tests only.
func (a *Aggregator) SetNow(now func() time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.now = now
}

// Latest returns the most recent summary, if any run has completed.
func (a *Aggregator) Latest() (Summary, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.latest == nil {
		return Summary{}, false
	}
	return *a.latest, true
}

// RunReport aggregates the UTC day containing the given instant. The
// window is inclusive of the day's first nanosecond and exclusive of the
// next day's.
func (a *Aggregator) RunReport(ctx context.Context, day time.Time) (Summary, error) {
	start := time.Date(day.UTC().Year(), day.UTC().Month(), day.UTC().Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	a.mu.RLock()
	now := a.now
	a.mu.RUnlock()

	summary := Summary{
		Day:         start.Format("2006-01-02"),
		GeneratedAt: now(),
		Counts:      make(map[string]int),
	}
	senders := make(map[string]struct{})

	runStart := time.Now()
	var before time.Time
	for {
		page, err := a.trades.Query(ctx, a.topic, before, a.pageSize)
		if err != nil {
			a.metrics.ObserveCollaboratorFailure("ledger")
			a.metrics.ReportRunOutcome("error")
			return Summary{}, err
		}
		if len(page.Entries) == 0 {
			break
		}
		summary.PagesScanned++

		for _, entry := range page.Entries {
			if !entry.Timestamp.Before(end) {
				continue
			}
			if entry.Timestamp.Before(start) {
				continue
			}
			if entry.Label == "report.daily" {
				continue
			}
			summary.Events++
			summary.Counts[entry.Label]++
			switch entry.Label {
			case "delivery.stored":
				qty := numField(entry.Payload, "quantity")
				if qty == 0 {
					qty = numField(entry.Payload, "qty")
				}
				summary.DeliveredQuantity += qty
			case "escrow.released":
				summary.ReleasedAmount += numField(entry.Payload, "amount")
			}
			for _, key := range []string{"sender", "producer", "counterparty"} {
				if id, ok := entry.Payload[key].(string); ok && id != "" {
					senders[id] = struct{}{}
				}
			}
		}

		// The newest entry of this page already predates the window, so
		// every following page does too.
		if page.Entries[0].Timestamp.Before(start) {
			break
		}
		if !page.HasMore {
			break
		}
		before = page.OldestTimestamp()
	}

	summary.UniqueSenders = len(senders)
	a.metrics.ObserveStage("report_run", time.Since(runStart))
	a.metrics.ReportRunOutcome("ok")

	if err := a.trades.Append(ctx, "report.daily", map[string]any{
		"day":                summary.Day,
		"events":             summary.Events,
		"delivered_quantity": summary.DeliveredQuantity,
		"released_amount":    summary.ReleasedAmount,
		"unique_senders":     summary.UniqueSenders,
		"counts":             countsPayload(summary.Counts),
	}); err != nil {
		log.Printf("report: ledger append report.daily failed: %v", err)
		a.metrics.ObserveCollaboratorFailure("ledger")
	}

	a.mu.Lock()
	snapshot := summary
	a.latest = &snapshot
	a.mu.Unlock()
	return summary, nil
}

// Run reports yesterday shortly after each UTC midnight until ctx is
// cancelled.
func (a *Aggregator) Run(ctx context.Context) {
	for {
		a.mu.RLock()
		now := a.now()
		a.mu.RUnlock()

		next := time.Date(now.Year(), now.Month(), now.Day(), 0, 5, 0, 0, time.UTC)
		if !next.After(now) {
			next = next.Add(24 * time.Hour)
		}
		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := a.RunReport(ctx, next.Add(-24*time.Hour)); err != nil {
			log.Printf("report: daily run failed: %v", err)
		}
	}
}

func numField(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

func countsPayload(counts map[string]int) map[string]any {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(map[string]any, len(counts))
	for _, k := range keys {
		out[k] = counts[k]
	}
	return out
}
