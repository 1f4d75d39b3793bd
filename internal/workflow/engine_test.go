package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mzito/mazao/internal/intent"
	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/notify"
	"github.com/mzito/mazao/internal/planner"
)

type deadLedger struct{}

func (deadLedger) Append(context.Context, string, map[string]any) error {
	return errors.New("ledger unreachable")
}

func (deadLedger) Query(context.Context, string, time.Time, int) (ledger.Page, error) {
	return ledger.Page{}, errors.New("ledger unreachable")
}

func (deadLedger) Close() error { return nil }

type testHarness struct {
	engine   *Engine
	plan     *planner.Planner
	trades   *ledger.InMemoryClient
	notifier *notify.MemoryNotifier
}

func newHarness(t *testing.T, opts planner.Options) *testHarness {
	t.Helper()
	trades := ledger.NewInMemoryClient(ledger.DefaultTopic)
	notifier := notify.NewMemoryNotifier()
	plan := planner.New(planner.ExecutorFunc(func(context.Context, planner.Task) error {
		return nil
	}), opts)
	engine := NewEngine(
		intent.NewRuleClassifier(),
		NewPendingStore(),
		plan,
		trades,
		notifier,
		nil,
		nil,
		Options{},
	)
	return &testHarness{engine: engine, plan: plan, trades: trades, notifier: notifier}
}

func TestDeliveryThenConfirmEnqueuesOneTask(t *testing.T) {
	h := newHarness(t, planner.Options{})
	ctx := context.Background()

	res := h.engine.Handle(ctx, "+254700000001", "DELIVERED 553904 200kg")
	if res.Tag != intent.TagDeliveryConfirmation {
		t.Fatalf("Tag = %q", res.Tag)
	}
	if h.engine.Pending().Len() != 1 {
		t.Fatalf("pending = %d, want 1", h.engine.Pending().Len())
	}

	res = h.engine.Handle(ctx, "+254700000002", "CONFIRM 553904")
	if res.TaskID == "" {
		t.Fatal("confirm did not enqueue a task")
	}
	if !strings.Contains(res.Reply, res.TaskID) {
		t.Fatalf("Reply = %q, want the task id %q in it", res.Reply, res.TaskID)
	}
	if h.engine.Pending().Len() != 0 {
		t.Fatal("pending delivery not consumed by confirm")
	}

	tasks := h.plan.Snapshot()
	if len(tasks) != 1 {
		t.Fatalf("len(tasks) = %d, want 1", len(tasks))
	}
	task := tasks[0]
	if task.Payload.Amount != 200 {
		t.Fatalf("Amount = %v, want 200", task.Payload.Amount)
	}
	if task.Payload.ProducerID != "+254700000001" || task.Payload.CounterpartyID != "+254700000002" {
		t.Fatalf("parties = %q -> %q", task.Payload.CounterpartyID, task.Payload.ProducerID)
	}

	// The second confirm finds nothing.
	res = h.engine.Handle(ctx, "+254700000002", "CONFIRM 553904")
	if res.TaskID != "" {
		t.Fatal("repeated confirm enqueued a second task")
	}
	if len(h.plan.Snapshot()) != 1 {
		t.Fatal("queue grew on repeated confirm")
	}
}

func TestConfirmReplyMentionsApprovalGate(t *testing.T) {
	h := newHarness(t, planner.Options{ApprovalRequired: true})
	ctx := context.Background()

	h.engine.Handle(ctx, "+254700000001", "DELIVERED 553904 200kg")
	res := h.engine.Handle(ctx, "+254700000002", "CONFIRM 553904")
	if res.TaskID == "" {
		t.Fatal("confirm did not enqueue a task")
	}
	if !strings.Contains(res.Reply, "approval") || !strings.Contains(res.Reply, res.TaskID) {
		t.Fatalf("Reply = %q", res.Reply)
	}
}

func TestConfirmUnknownCodeCreatesNoTask(t *testing.T) {
	h := newHarness(t, planner.Options{})

	res := h.engine.Handle(context.Background(), "+254700000002", "CONFIRM 999999")
	if res.TaskID != "" {
		t.Fatal("task enqueued for unknown code")
	}
	if len(h.plan.Snapshot()) != 0 {
		t.Fatal("queue not empty")
	}

	found := false
	for _, l := range h.trades.Labels() {
		if l == "confirm.no_pending" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ledger labels = %v, want confirm.no_pending", h.trades.Labels())
	}
}

func TestRepeatedDeliveryOverwrites(t *testing.T) {
	h := newHarness(t, planner.Options{})
	ctx := context.Background()

	h.engine.Handle(ctx, "+254700000001", "DELIVERED 553904 200kg")
	h.engine.Handle(ctx, "+254700000001", "DELIVERED 553904 350kg")
	if h.engine.Pending().Len() != 1 {
		t.Fatalf("pending = %d, want 1", h.engine.Pending().Len())
	}

	d, ok := h.engine.Pending().Get("553904")
	if !ok {
		t.Fatal("delivery missing")
	}
	if d.Quantity != 350 {
		t.Fatalf("Quantity = %v, want 350 after overwrite", d.Quantity)
	}
}

func TestDeliveryRejectsBadQuantity(t *testing.T) {
	h := newHarness(t, planner.Options{})

	res := h.engine.Handle(context.Background(), "+254700000001", "DELIVERED 553904 0kg")
	if h.engine.Pending().Len() != 0 {
		t.Fatal("rejected delivery was stored")
	}
	if !strings.Contains(res.Reply, "invalid quantity") {
		t.Fatalf("Reply = %q", res.Reply)
	}

	found := false
	for _, l := range h.trades.Labels() {
		if l == "delivery.rejected" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ledger labels = %v, want delivery.rejected", h.trades.Labels())
	}
}

func TestDeliveryWithoutProducerIdentity(t *testing.T) {
	h := newHarness(t, planner.Options{})

	res := h.engine.Handle(context.Background(), "", "DELIVERED 553904 200kg")
	if h.engine.Pending().Len() != 0 {
		t.Fatal("delivery stored without a producer identity")
	}
	if !strings.Contains(res.Reply, "no producer account") {
		t.Fatalf("Reply = %q", res.Reply)
	}

	found := false
	for _, l := range h.trades.Labels() {
		if l == "delivery.not_stored" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ledger labels = %v, want delivery.not_stored", h.trades.Labels())
	}
}

func TestHelpAndUnknown(t *testing.T) {
	h := newHarness(t, planner.Options{})
	ctx := context.Background()

	res := h.engine.Handle(ctx, "+254700000001", "HELP")
	if res.Tag != intent.TagHelpRequest || !strings.Contains(res.Reply, "DELIVERED") {
		t.Fatalf("help result = %+v", res)
	}

	res = h.engine.Handle(ctx, "+254700000001", "what is the weather")
	if res.Tag != intent.TagUnknown {
		t.Fatalf("Tag = %q, want unknown", res.Tag)
	}
}

func TestListingCreatesReferenceAndQuote(t *testing.T) {
	h := newHarness(t, planner.Options{})

	res := h.engine.Handle(context.Background(), "+254700000001", "SELL maize 200kg Nakuru")
	if res.Tag != intent.TagNewListing {
		t.Fatalf("Tag = %q", res.Tag)
	}
	if res.ListingRef == "" {
		t.Fatal("no listing reference")
	}

	found := false
	for _, l := range h.trades.Labels() {
		if l == "listing.created" {
			found = true
		}
	}
	if !found {
		t.Fatalf("ledger labels = %v, want listing.created", h.trades.Labels())
	}
}

func TestEveryMessageRecordsIntentReceived(t *testing.T) {
	h := newHarness(t, planner.Options{})

	h.engine.Handle(context.Background(), "+254700000001", "gibberish")
	labels := h.trades.Labels()
	if len(labels) == 0 || labels[0] != "intent.received" {
		t.Fatalf("labels = %v, want intent.received first", labels)
	}
}

func TestDeadLedgerDoesNotAbortHandling(t *testing.T) {
	plan := planner.New(planner.ExecutorFunc(func(context.Context, planner.Task) error {
		return nil
	}), planner.Options{})
	engine := NewEngine(
		intent.NewRuleClassifier(),
		NewPendingStore(),
		plan,
		deadLedger{},
		notify.NewMemoryNotifier(),
		nil,
		nil,
		Options{},
	)
	ctx := context.Background()

	res := engine.Handle(ctx, "+254700000001", "DELIVERED 553904 200kg")
	if !strings.Contains(res.Reply, "recorded") {
		t.Fatalf("Reply = %q", res.Reply)
	}
	res = engine.Handle(ctx, "+254700000002", "CONFIRM 553904")
	if res.TaskID == "" {
		t.Fatal("confirm did not enqueue despite working planner")
	}
}

func TestEndToEndReleaseFlow(t *testing.T) {
	executed := make(chan planner.Task, 1)
	plan := planner.New(planner.ExecutorFunc(func(_ context.Context, task planner.Task) error {
		executed <- task
		return nil
	}), planner.Options{})
	trades := ledger.NewInMemoryClient(ledger.DefaultTopic)
	engine := NewEngine(
		intent.NewRuleClassifier(),
		NewPendingStore(),
		plan,
		trades,
		notify.NewMemoryNotifier(),
		nil,
		nil,
		Options{},
	)
	ctx := context.Background()

	engine.Handle(ctx, "+254700000001", "DELIVERED 553904 200kg")
	res := engine.Handle(ctx, "+254700000002", "CONFIRM 553904")
	if res.TaskID == "" {
		t.Fatal("no task enqueued")
	}

	task, ran := plan.Tick(ctx)
	if !ran {
		t.Fatal("Tick did not run the release task")
	}
	if task.Status != planner.TaskStatusDone {
		t.Fatalf("Status = %q, want done", task.Status)
	}

	select {
	case got := <-executed:
		if got.Payload.Code != "553904" || got.Payload.Amount != 200 {
			t.Fatalf("executed payload = %+v", got.Payload)
		}
	default:
		t.Fatal("executor was not invoked")
	}
}
