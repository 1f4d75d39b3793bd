package planner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, strings.TrimSpace(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initTaskSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{pool: pool}, nil
}

func initTaskSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS release_tasks (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			code TEXT NOT NULL,
			amount DOUBLE PRECISION NOT NULL,
			producer_id TEXT NOT NULL,
			counterparty_id TEXT NOT NULL,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			max_attempts INTEGER NOT NULL,
			retryable BOOLEAN NOT NULL DEFAULT FALSE,
			backoff_ms BIGINT NOT NULL DEFAULT 0,
			next_run_at TIMESTAMPTZ NOT NULL,
			last_error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			started_at TIMESTAMPTZ NULL,
			ended_at TIMESTAMPTZ NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_release_tasks_created ON release_tasks (created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init task schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) SaveTask(ctx context.Context, task Task) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO release_tasks (
			id, kind, code, amount, producer_id, counterparty_id, status, attempts,
			max_attempts, retryable, backoff_ms, next_run_at, last_error,
			created_at, updated_at, started_at, ended_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17
		)
		ON CONFLICT (id) DO UPDATE SET
			status=EXCLUDED.status,
			attempts=EXCLUDED.attempts,
			retryable=EXCLUDED.retryable,
			backoff_ms=EXCLUDED.backoff_ms,
			next_run_at=EXCLUDED.next_run_at,
			last_error=EXCLUDED.last_error,
			updated_at=EXCLUDED.updated_at,
			started_at=EXCLUDED.started_at,
			ended_at=EXCLUDED.ended_at`,
		task.ID,
		task.Kind,
		task.Payload.Code,
		task.Payload.Amount,
		task.Payload.ProducerID,
		task.Payload.CounterpartyID,
		string(task.Status),
		task.Attempts,
		task.MaxAttempts,
		task.Retryable,
		task.BackoffMS,
		task.NextRunAt,
		task.CreatedAt,
		task.UpdatedAt,
		task.StartedAt,
		task.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetTask(ctx context.Context, taskID string) (Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, kind, code, amount, producer_id, counterparty_id, status, attempts,
			max_attempts, retryable, backoff_ms, next_run_at, last_error,
			created_at, updated_at, started_at, ended_at
		FROM release_tasks WHERE id = $1`,
		strings.TrimSpace(taskID),
	)
	task, err := scanTask(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return Task{}, ErrStoreNotFound
		}
		return Task{}, fmt.Errorf("get task %s: %w", taskID, err)
	}
	return task, nil
}

func (s *PostgresStore) ListTasks(ctx context.Context, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, kind, code, amount, producer_id, counterparty_id, status, attempts,
			max_attempts, retryable, backoff_ms, next_run_at, last_error,
			created_at, updated_at, started_at, ended_at
		FROM release_tasks ORDER BY created_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanTask(row pgx.Row) (Task, error) {
	var (
		task      Task
		status    string
		startedAt *time.Time
		endedAt   *time.Time
	)
	err := row.Scan(
		&task.ID,
		&task.Kind,
		&task.Payload.Code,
		&task.Payload.Amount,
		&task.Payload.ProducerID,
		&task.Payload.CounterpartyID,
		&status,
		&task.Attempts,
		&task.MaxAttempts,
		&task.Retryable,
		&task.BackoffMS,
		&task.NextRunAt,
		&task.LastError,
		&task.CreatedAt,
		&task.UpdatedAt,
		&startedAt,
		&endedAt,
	)
	if err != nil {
		return Task{}, err
	}
	task.Status = TaskStatus(status)
	task.StartedAt = startedAt
	task.EndedAt = endedAt
	return task, nil
}
