package ledger

import (
	"context"
	"strings"
)

// NewClient creates a postgres-backed ledger client when configured,
// otherwise in-memory.
func NewClient(ctx context.Context, databaseURL, topic string) (Client, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return NewInMemoryClient(topic), nil
	}
	return NewPostgresClient(ctx, databaseURL, topic)
}
