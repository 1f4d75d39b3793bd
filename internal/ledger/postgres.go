package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresClient keeps the ledger log in a Postgres table. It preserves the
// same newest-first paging contract as the in-memory client.
type PostgresClient struct {
	pool  *pgxpool.Pool
	topic string
}

func NewPostgresClient(ctx context.Context, databaseURL, topic string) (*PostgresClient, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initLedgerSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresClient{pool: pool, topic: topic}, nil
}

func initLedgerSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ledger_events (
			id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			topic TEXT NOT NULL,
			label TEXT NOT NULL,
			payload JSONB NOT NULL DEFAULT '{}'::jsonb
		);`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_events_topic_ts ON ledger_events (topic, ts DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init ledger schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (c *PostgresClient) Append(ctx context.Context, label string, payload map[string]any) error {
	if payload == nil {
		payload = map[string]any{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal ledger payload: %w", err)
	}
	_, err = c.pool.Exec(ctx,
		`INSERT INTO ledger_events (id, ts, topic, label, payload) VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), time.Now().UTC(), c.topic, label, data,
	)
	if err != nil {
		return fmt.Errorf("append ledger event: %w", err)
	}
	return nil
}

func (c *PostgresClient) Query(ctx context.Context, topic string, before time.Time, limit int) (Page, error) {
	if limit <= 0 {
		limit = 100
	}
	if topic == "" {
		topic = c.topic
	}
	cursor := before
	if cursor.IsZero() {
		cursor = time.Now().UTC().Add(time.Hour)
	}

	// Fetch one extra row to learn whether another page exists.
	rows, err := c.pool.Query(ctx,
		`SELECT id, ts, topic, label, payload
		   FROM ledger_events
		  WHERE topic=$1 AND ts < $2
		  ORDER BY ts DESC
		  LIMIT $3`,
		topic, cursor, limit+1,
	)
	if err != nil {
		return Page{}, fmt.Errorf("query ledger events: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			e    Entry
			data []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Topic, &e.Label, &data); err != nil {
			return Page{}, fmt.Errorf("scan ledger event: %w", err)
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &e.Payload); err != nil {
				return Page{}, fmt.Errorf("decode ledger payload: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate ledger events: %w", err)
	}

	more := false
	if len(entries) > limit {
		entries = entries[:limit]
		more = true
	}
	return Page{Entries: entries, HasMore: more}, nil
}

func (c *PostgresClient) Close() error {
	c.pool.Close()
	return nil
}
