package ledger

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryAppendKeepsMonotonicOrder(t *testing.T) {
	c := NewInMemoryClient("")
	fixed := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	c.SetNow(func() time.Time { return fixed })

	for i := 0; i < 3; i++ {
		if err := c.Append(context.Background(), "delivery.stored", map[string]any{"n": i}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	page, err := c.Query(context.Background(), DefaultTopic, time.Time{}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(page.Entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(page.Entries))
	}
	for i := 1; i < len(page.Entries); i++ {
		if !page.Entries[i].Timestamp.Before(page.Entries[i-1].Timestamp) {
			t.Fatalf("entries not strictly newest-first at index %d", i)
		}
	}
}

func TestInMemoryQueryPagination(t *testing.T) {
	c := NewInMemoryClient("")
	base := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	i := 0
	c.SetNow(func() time.Time {
		ts := base.Add(time.Duration(i) * time.Minute)
		i++
		return ts
	})

	for n := 0; n < 5; n++ {
		if err := c.Append(context.Background(), "intent.received", nil); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	first, err := c.Query(context.Background(), DefaultTopic, time.Time{}, 2)
	if err != nil {
		t.Fatalf("Query(first) error = %v", err)
	}
	if len(first.Entries) != 2 || !first.HasMore {
		t.Fatalf("first page = %d entries, HasMore=%v; want 2, true", len(first.Entries), first.HasMore)
	}

	second, err := c.Query(context.Background(), DefaultTopic, first.OldestTimestamp(), 2)
	if err != nil {
		t.Fatalf("Query(second) error = %v", err)
	}
	if len(second.Entries) != 2 || !second.HasMore {
		t.Fatalf("second page = %d entries, HasMore=%v; want 2, true", len(second.Entries), second.HasMore)
	}
	if !second.Entries[0].Timestamp.Before(first.OldestTimestamp()) {
		t.Fatalf("second page newest entry not older than first page cursor")
	}

	last, err := c.Query(context.Background(), DefaultTopic, second.OldestTimestamp(), 2)
	if err != nil {
		t.Fatalf("Query(last) error = %v", err)
	}
	if len(last.Entries) != 1 || last.HasMore {
		t.Fatalf("last page = %d entries, HasMore=%v; want 1, false", len(last.Entries), last.HasMore)
	}
}

func TestInMemoryQueryFiltersTopic(t *testing.T) {
	c := NewInMemoryClient("market")
	if err := c.Append(context.Background(), "listing.created", nil); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	page, err := c.Query(context.Background(), "other", time.Time{}, 10)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(page.Entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0 for mismatched topic", len(page.Entries))
	}
}
