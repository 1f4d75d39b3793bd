package ledger

import (
	"context"
	"time"
)

// DefaultTopic is the event topic used when no override is given.
const DefaultTopic = "trades"

// Entry is one append-only event on the ledger log.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Topic     string         `json:"topic"`
	Label     string         `json:"label"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Page is one slice of a query result, newest entry first.
type Page struct {
	Entries []Entry `json:"entries"`
	HasMore bool    `json:"has_more"`
}

// OldestTimestamp returns the timestamp of the last (oldest) entry in the
// page, or the zero time for an empty page.
func (p Page) OldestTimestamp() time.Time {
	if len(p.Entries) == 0 {
		return time.Time{}
	}
	return p.Entries[len(p.Entries)-1].Timestamp
}

// Client appends to and queries the external event log. Entries are
// monotonically ordered by timestamp; Query pages newest-first below the
// `before` cursor (zero cursor means "from the newest entry").
type Client interface {
	Append(ctx context.Context, label string, payload map[string]any) error
	Query(ctx context.Context, topic string, before time.Time, limit int) (Page, error)
	Close() error
}
