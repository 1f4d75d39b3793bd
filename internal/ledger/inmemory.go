package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryClient is the in-process ledger log for local/dev use and tests.
type InMemoryClient struct {
	mu      sync.RWMutex
	topic   string
	entries []Entry
	now     func() time.Time
}

func NewInMemoryClient(topic string) *InMemoryClient {
	if topic == "" {
		topic = DefaultTopic
	}
	return &InMemoryClient{topic: topic, now: time.Now}
}

// SetNow overrides the clock; tests use it to seed entries at fixed times.
func (c *InMemoryClient) SetNow(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *InMemoryClient) Append(_ context.Context, label string, payload map[string]any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.now().UTC()
	// Keep the order strictly monotonic even when appends share a clock tick.
	if n := len(c.entries); n > 0 && !ts.After(c.entries[n-1].Timestamp) {
		ts = c.entries[n-1].Timestamp.Add(time.Nanosecond)
	}
	c.entries = append(c.entries, Entry{
		ID:        uuid.NewString(),
		Timestamp: ts,
		Topic:     c.topic,
		Label:     label,
		Payload:   payload,
	})
	return nil
}

func (c *InMemoryClient) Query(_ context.Context, topic string, before time.Time, limit int) (Page, error) {
	if limit <= 0 {
		limit = 100
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, limit)
	more := false
	for i := len(c.entries) - 1; i >= 0; i-- {
		e := c.entries[i]
		if topic != "" && e.Topic != topic {
			continue
		}
		if !before.IsZero() && !e.Timestamp.Before(before) {
			continue
		}
		if len(out) == limit {
			more = true
			break
		}
		out = append(out, e)
	}
	return Page{Entries: out, HasMore: more}, nil
}

// Len reports the number of stored entries.
func (c *InMemoryClient) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Labels returns the labels of all stored entries in append order.
func (c *InMemoryClient) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Label)
	}
	return out
}

func (c *InMemoryClient) Close() error { return nil }
