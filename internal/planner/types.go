package planner

import "time"

type TaskStatus string

const (
	TaskStatusWaitingApproval TaskStatus = "waiting_approval"
	TaskStatusPending         TaskStatus = "pending"
	TaskStatusRunning         TaskStatus = "running"
	TaskStatusDone            TaskStatus = "done"
	TaskStatusFailed          TaskStatus = "failed"
)

const KindReleaseEscrow = "release_escrow"

// Payload carries everything the release executor needs to settle one
// confirmed delivery.
type Payload struct {
	Code           string  `json:"code"`
	Amount         float64 `json:"amount"`
	ProducerID     string  `json:"producer_id"`
	CounterpartyID string  `json:"counterparty_id"`
}

type Task struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Payload     Payload    `json:"payload"`
	Status      TaskStatus `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`

	// Retryable marks a failed task that the tick loop may pick up
	// again once NextRunAt has passed.
	Retryable bool       `json:"retryable"`
	BackoffMS int64      `json:"backoff_ms"`
	NextRunAt time.Time  `json:"next_run_at"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (t Task) Clone() Task {
	return t
}

func (t Task) Terminal() bool {
	switch t.Status {
	case TaskStatusDone:
		return true
	case TaskStatusFailed:
		return !t.Retryable
	default:
		return false
	}
}

// Eligible reports whether the tick loop may run the task now.
func (t Task) Eligible(now time.Time) bool {
	switch t.Status {
	case TaskStatusPending:
		return !t.NextRunAt.After(now)
	case TaskStatusFailed:
		return t.Retryable && !t.NextRunAt.After(now)
	default:
		return false
	}
}

type EventType string

const (
	EventTaskEnqueued        EventType = "task_enqueued"
	EventTaskWaitingApproval EventType = "task_waiting_approval"
	EventTaskApproved        EventType = "task_approved"
	EventTaskDenied          EventType = "task_denied"
	EventTaskStarted         EventType = "task_started"
	EventTaskDone            EventType = "task_done"
	EventTaskFailed          EventType = "task_failed"
	EventTaskRetryScheduled  EventType = "task_retry_scheduled"
)

type Event struct {
	Type      EventType  `json:"type"`
	TaskID    string     `json:"task_id"`
	Code      string     `json:"code,omitempty"`
	Status    TaskStatus `json:"status,omitempty"`
	Attempts  int        `json:"attempts,omitempty"`
	NextRunAt *time.Time `json:"next_run_at,omitempty"`
	Detail    string     `json:"detail,omitempty"`
	At        time.Time  `json:"at"`
}
