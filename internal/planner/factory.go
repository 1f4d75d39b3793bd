package planner

import (
	"context"
	"strings"
)

// NewStore returns a Postgres-backed store when a database URL is set,
// otherwise nil so the planner stays purely in memory.
func NewStore(ctx context.Context, databaseURL string) (Store, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, nil
	}
	return NewPostgresStore(ctx, databaseURL)
}
