package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/observability"
	"github.com/mzito/mazao/internal/reliability"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrInvalidTaskState = errors.New("invalid task state")
)

// Executor performs the side effect of one task. A returned error marks
// the attempt failed and leaves retry scheduling to the planner.
type Executor interface {
	Execute(ctx context.Context, task Task) error
}

type ExecutorFunc func(ctx context.Context, task Task) error

func (f ExecutorFunc) Execute(ctx context.Context, task Task) error {
	return f(ctx, task)
}

type Options struct {
	ApprovalRequired bool
	AutoReleaseDelay time.Duration
	TickInterval     time.Duration
	MaxAttempts      int
	BackoffStart     time.Duration
	BackoffCap       time.Duration
}

func (o *Options) applyDefaults() {
	if o.AutoReleaseDelay < 0 {
		o.AutoReleaseDelay = 0
	}
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.BackoffStart <= 0 {
		o.BackoffStart = 1500 * time.Millisecond
	}
	if o.BackoffCap < o.BackoffStart {
		o.BackoffCap = 60 * time.Second
	}
}

// Planner owns the task queue. All mutation goes through its methods and
// the tick loop runs at most one task per invocation, in arrival order.
type Planner struct {
	mu sync.RWMutex

	// runMu serializes Tick so overlapping invocations cannot run the
	// same task twice.
	runMu sync.Mutex

	opts     Options
	executor Executor
	store    Store
	trades   ledger.Client
	metrics  *observability.Metrics
	now      func() time.Time

	tasks map[string]*Task
	order []string

	subscribers map[int]chan Event
	nextSubID   int
}

func New(executor Executor, opts Options) *Planner {
	opts.applyDefaults()
	return &Planner{
		opts:        opts,
		executor:    executor,
		now:         func() time.Time { return time.Now().UTC() },
		tasks:       make(map[string]*Task),
		subscribers: make(map[int]chan Event),
	}
}

func (p *Planner) SetStore(store Store) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.store = store
}

func (p *Planner) SetLedger(client ledger.Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trades = client
}

func (p *Planner) SetMetrics(m *observability.Metrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
}

// SetNow overrides the planner clock. Tests only.
func (p *Planner) SetNow(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = now
}

func (p *Planner) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 256)
	p.mu.Lock()
	p.nextSubID++
	id := p.nextSubID
	p.subscribers[id] = ch
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if c, ok := p.subscribers[id]; ok {
			delete(p.subscribers, id)
			close(c)
		}
	}
}

// Enqueue adds a release task for a confirmed delivery. The task starts
// waiting for approval when the planner was configured that way,
// otherwise it becomes runnable once the auto release delay has passed.
func (p *Planner) Enqueue(ctx context.Context, payload Payload) (Task, error) {
	payload.Code = strings.TrimSpace(payload.Code)
	payload.ProducerID = strings.TrimSpace(payload.ProducerID)
	payload.CounterpartyID = strings.TrimSpace(payload.CounterpartyID)
	if payload.Code == "" {
		return Task{}, errors.New("code is required")
	}
	if payload.Amount <= 0 {
		return Task{}, fmt.Errorf("amount must be positive, got %v", payload.Amount)
	}
	if payload.ProducerID == "" || payload.CounterpartyID == "" {
		return Task{}, errors.New("producer and counterparty are required")
	}

	p.mu.Lock()
	now := p.now()
	task := &Task{
		ID:          uuid.NewString(),
		Kind:        KindReleaseEscrow,
		Payload:     payload,
		Status:      TaskStatusPending,
		MaxAttempts: p.opts.MaxAttempts,
		NextRunAt:   now.Add(p.opts.AutoReleaseDelay),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.opts.ApprovalRequired {
		task.Status = TaskStatusWaitingApproval
		task.NextRunAt = now
	}
	p.tasks[task.ID] = task
	p.order = append(p.order, task.ID)

	evt := Event{
		Type:   EventTaskEnqueued,
		TaskID: task.ID,
		Code:   payload.Code,
		Status: task.Status,
		At:     now,
	}
	p.publishLocked(evt)
	if task.Status == TaskStatusWaitingApproval {
		evt.Type = EventTaskWaitingApproval
		evt.Detail = fmt.Sprintf("Release of %.2f for %s needs operator approval.", payload.Amount, payload.Code)
		p.publishLocked(evt)
	}
	snapshot := task.Clone()
	p.mu.Unlock()

	p.metrics.ObserveTaskTransition(string(snapshot.Status))
	p.updateQueueDepth()
	p.persistTask(snapshot)
	return snapshot, nil
}

// Approve resolves a waiting task. Denial is terminal.
func (p *Planner) Approve(taskID string, approved bool) (Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Task{}, errors.New("task id is required")
	}

	p.mu.Lock()
	task, ok := p.tasks[taskID]
	if !ok {
		p.mu.Unlock()
		return Task{}, ErrTaskNotFound
	}
	if task.Status != TaskStatusWaitingApproval {
		p.mu.Unlock()
		return Task{}, fmt.Errorf("%w: approve is only valid in waiting_approval", ErrInvalidTaskState)
	}

	now := p.now()
	if !approved {
		task.Status = TaskStatusFailed
		task.Retryable = false
		task.LastError = "approval denied"
		task.UpdatedAt = now
		task.EndedAt = &now
		p.publishLocked(Event{
			Type:   EventTaskDenied,
			TaskID: task.ID,
			Code:   task.Payload.Code,
			Status: task.Status,
			Detail: "approval denied",
			At:     now,
		})
	} else {
		// An operator already waited; the task runs on the next tick.
		task.Status = TaskStatusPending
		task.NextRunAt = now
		task.UpdatedAt = now
		p.publishLocked(Event{
			Type:      EventTaskApproved,
			TaskID:    task.ID,
			Code:      task.Payload.Code,
			Status:    task.Status,
			NextRunAt: &task.NextRunAt,
			At:        now,
		})
	}
	snapshot := task.Clone()
	p.mu.Unlock()

	p.metrics.ObserveTaskTransition(string(snapshot.Status))
	p.persistTask(snapshot)
	return snapshot, nil
}

// Tick runs at most one eligible task, the oldest by arrival order.
// Executor failures stay on the task; the second return value reports
// whether any task was attempted.
func (p *Planner) Tick(ctx context.Context) (Task, bool) {
	p.runMu.Lock()
	defer p.runMu.Unlock()

	started := time.Now()
	p.mu.Lock()
	now := p.now()
	var task *Task
	for _, id := range p.order {
		if t, ok := p.tasks[id]; ok && t.Eligible(now) {
			task = t
			break
		}
	}
	if task == nil {
		p.mu.Unlock()
		return Task{}, false
	}

	task.Status = TaskStatusRunning
	task.Retryable = false
	task.Attempts++
	task.UpdatedAt = now
	if task.StartedAt == nil {
		task.StartedAt = &now
	}
	p.publishLocked(Event{
		Type:     EventTaskStarted,
		TaskID:   task.ID,
		Code:     task.Payload.Code,
		Status:   task.Status,
		Attempts: task.Attempts,
		At:       now,
	})
	snapshot := task.Clone()
	executor := p.executor
	p.mu.Unlock()

	p.metrics.ObserveTaskTransition(string(TaskStatusRunning))
	p.recordTrade(ctx, "task.running", map[string]any{
		"task_id": snapshot.ID,
		"code":    snapshot.Payload.Code,
		"attempt": snapshot.Attempts,
	})

	var execErr error
	if executor == nil {
		execErr = errors.New("no executor configured")
	} else {
		execErr = executor.Execute(ctx, snapshot)
	}

	p.mu.Lock()
	now = p.now()
	task.UpdatedAt = now
	if execErr == nil {
		task.Status = TaskStatusDone
		task.LastError = ""
		task.EndedAt = &now
		p.publishLocked(Event{
			Type:     EventTaskDone,
			TaskID:   task.ID,
			Code:     task.Payload.Code,
			Status:   task.Status,
			Attempts: task.Attempts,
			At:       now,
		})
	} else {
		task.Status = TaskStatusFailed
		task.LastError = execErr.Error()
		if task.Attempts >= task.MaxAttempts {
			task.Retryable = false
			task.EndedAt = &now
			p.publishLocked(Event{
				Type:     EventTaskFailed,
				TaskID:   task.ID,
				Code:     task.Payload.Code,
				Status:   task.Status,
				Attempts: task.Attempts,
				Detail:   task.LastError,
				At:       now,
			})
		} else {
			task.Retryable = true
			if task.BackoffMS <= 0 {
				task.BackoffMS = p.opts.BackoffStart.Milliseconds()
			} else {
				task.BackoffMS = reliability.NextBackoff(
					time.Duration(task.BackoffMS)*time.Millisecond,
					p.opts.BackoffCap,
				).Milliseconds()
			}
			task.NextRunAt = now.Add(time.Duration(task.BackoffMS) * time.Millisecond)
			p.publishLocked(Event{
				Type:      EventTaskRetryScheduled,
				TaskID:    task.ID,
				Code:      task.Payload.Code,
				Status:    task.Status,
				Attempts:  task.Attempts,
				NextRunAt: &task.NextRunAt,
				Detail:    task.LastError,
				At:        now,
			})
		}
	}
	result := task.Clone()
	p.mu.Unlock()

	p.metrics.ObserveTaskTransition(string(result.Status))
	p.metrics.ObserveTick(time.Since(started))
	switch {
	case execErr == nil:
		p.recordTrade(ctx, "task.done", map[string]any{
			"task_id": result.ID,
			"code":    result.Payload.Code,
			"amount":  result.Payload.Amount,
		})
	case result.Retryable:
		p.recordTrade(ctx, "task.retry_scheduled", map[string]any{
			"task_id":    result.ID,
			"code":       result.Payload.Code,
			"attempt":    result.Attempts,
			"backoff_ms": result.BackoffMS,
			"error":      result.LastError,
		})
	default:
		p.recordTrade(ctx, "task.failed", map[string]any{
			"task_id": result.ID,
			"code":    result.Payload.Code,
			"attempt": result.Attempts,
			"error":   result.LastError,
		})
	}
	p.persistTask(result)
	return result, true
}

// Run drives Tick on the configured interval until ctx is cancelled.
func (p *Planner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.opts.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

func (p *Planner) Get(taskID string) (Task, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return Task{}, errors.New("task id is required")
	}
	p.mu.RLock()
	task, ok := p.tasks[taskID]
	var snapshot Task
	if ok {
		snapshot = task.Clone()
	}
	store := p.store
	p.mu.RUnlock()
	if ok {
		return snapshot, nil
	}
	if store == nil {
		return Task{}, ErrTaskNotFound
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	persisted, err := store.GetTask(ctx, taskID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return Task{}, ErrTaskNotFound
		}
		return Task{}, err
	}
	return persisted, nil
}

// Snapshot returns every task in arrival order.
func (p *Planner) Snapshot() []Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Task, 0, len(p.order))
	for _, id := range p.order {
		if t, ok := p.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out
}

// List returns the queue in arrival order. When a task store is
// configured, tasks persisted by an earlier process are merged in; the
// in-memory copy wins for tasks present in both.
func (p *Planner) List(ctx context.Context, limit int) []Task {
	mem := p.Snapshot()
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	if store == nil {
		return mem
	}

	persisted, err := store.ListTasks(ctx, limit)
	if err != nil {
		log.Printf("planner: list persisted tasks failed: %v", err)
		return mem
	}
	seen := make(map[string]bool, len(mem))
	for _, t := range mem {
		seen[t.ID] = true
	}
	out := make([]Task, 0, len(mem)+len(persisted))
	for _, t := range persisted {
		if !seen[t.ID] {
			out = append(out, t)
		}
	}
	out = append(out, mem...)
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (p *Planner) publishLocked(evt Event) {
	for _, ch := range p.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (p *Planner) persistTask(task Task) {
	p.mu.RLock()
	store := p.store
	p.mu.RUnlock()
	if store == nil {
		return
	}
	go func(snapshot Task) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := store.SaveTask(ctx, snapshot); err != nil {
			log.Printf("planner: persist task %s failed: %v", snapshot.ID, err)
		}
	}(task)
}

func (p *Planner) recordTrade(ctx context.Context, label string, payload map[string]any) {
	p.mu.RLock()
	trades := p.trades
	p.mu.RUnlock()
	if trades == nil {
		return
	}
	if err := trades.Append(ctx, label, payload); err != nil {
		log.Printf("planner: ledger append %s failed: %v", label, err)
		p.metrics.ObserveCollaboratorFailure("ledger")
	}
}

func (p *Planner) updateQueueDepth() {
	if p.metrics == nil {
		return
	}
	p.mu.RLock()
	depth := len(p.order)
	p.mu.RUnlock()
	p.metrics.QueueDepth.Set(float64(depth))
}
