package workflow

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mzito/mazao/internal/intent"
	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/notify"
	"github.com/mzito/mazao/internal/observability"
	"github.com/mzito/mazao/internal/planner"
	"github.com/mzito/mazao/internal/pricing"
)

const helpText = "Commands: DELIVERED <code> <qty> [grade <g>] to report a delivery, " +
	"CONFIRM <code> to confirm receipt, SELL <crop> <qty> [location] to list produce, HELP for this message."

// Result is what the engine hands back to the transport for one inbound
// message.
type Result struct {
	Tag        intent.Tag `json:"tag"`
	Reply      string     `json:"reply"`
	TaskID     string     `json:"task_id,omitempty"`
	ListingRef string     `json:"listing_ref,omitempty"`
}

// Options fixes the engine's party accounts. When an account is blank
// the engine falls back to the message senders: the producer is whoever
// reported the delivery and the counterparty is whoever confirms it.
type Options struct {
	ProducerAccount     string
	CounterpartyAccount string
}

// Engine turns classified messages into state changes: pending
// deliveries, release tasks, ledger events and outbound notifications.
type Engine struct {
	classifier intent.Classifier
	pending    *PendingStore
	plan       *planner.Planner
	trades     ledger.Client
	notifier   notify.Notifier
	policy     pricing.ReleasePolicy
	metrics    *observability.Metrics
	opts       Options
}

func NewEngine(
	classifier intent.Classifier,
	pending *PendingStore,
	plan *planner.Planner,
	trades ledger.Client,
	notifier notify.Notifier,
	policy pricing.ReleasePolicy,
	metrics *observability.Metrics,
	opts Options,
) *Engine {
	if policy == nil {
		policy = pricing.UnitRate{}
	}
	return &Engine{
		classifier: classifier,
		pending:    pending,
		plan:       plan,
		trades:     trades,
		notifier:   notifier,
		policy:     policy,
		metrics:    metrics,
		opts:       opts,
	}
}

func (e *Engine) Pending() *PendingStore {
	return e.pending
}

// Handle processes one inbound message. Collaborator failures never
// abort the message: a dead ledger or notifier still produces a Result.
func (e *Engine) Handle(ctx context.Context, sender, text string) Result {
	sender = strings.TrimSpace(sender)
	text = strings.TrimSpace(text)

	classifyStart := time.Now()
	parsed := e.classifier.Classify(ctx, text)
	e.metrics.ObserveStage("classify", time.Since(classifyStart))

	handleStart := time.Now()
	e.record(ctx, "intent.received", map[string]any{
		"sender": sender,
		"tag":    string(parsed.Tag),
		"raw":    parsed.Raw,
	})

	var res Result
	switch parsed.Tag {
	case intent.TagDeliveryConfirmation:
		res = e.handleDelivery(ctx, sender, parsed)
	case intent.TagBuyerConfirm:
		res = e.handleConfirm(ctx, sender, parsed)
	case intent.TagHelpRequest:
		res = e.handleHelp(ctx, sender)
	case intent.TagNewListing:
		res = e.handleListing(ctx, sender, parsed)
	default:
		res = e.handleUnknown(ctx, sender, parsed)
	}
	e.metrics.ObserveStage("handle_intent", time.Since(handleStart))
	e.metrics.ObserveIntent(string(parsed.Tag), outcomeFor(res))
	return res
}

func (e *Engine) handleDelivery(ctx context.Context, sender string, parsed intent.Parsed) Result {
	code := strings.TrimSpace(parsed.Field(intent.FieldCode))
	qty, qtyErr := strconv.ParseFloat(strings.TrimSpace(parsed.Field(intent.FieldQuantity)), 64)

	reason := ""
	switch {
	case !isValidCode(code):
		reason = "invalid code"
	case qtyErr != nil || qty <= 0:
		reason = "invalid quantity"
	}
	if reason != "" {
		e.record(ctx, "delivery.rejected", map[string]any{
			"sender": sender,
			"code":   code,
			"reason": reason,
		})
		reply := fmt.Sprintf("Could not record delivery: %s. Send DELIVERED <code> <qty>, e.g. DELIVERED 553904 200kg.", reason)
		e.reply(ctx, sender, reply)
		return Result{Tag: intent.TagDeliveryConfirmation, Reply: reply}
	}

	if sender == "" && e.opts.ProducerAccount == "" {
		// Without a producer identity there is no account to release to.
		e.record(ctx, "delivery.not_stored", map[string]any{
			"code":   code,
			"reason": "no producer account",
		})
		return Result{Tag: intent.TagDeliveryConfirmation, Reply: "Could not record delivery: no producer account is known."}
	}

	delivery := PendingDelivery{
		Code:       code,
		Quantity:   qty,
		Unit:       strings.TrimSpace(parsed.Field(intent.FieldUnit)),
		Grade:      strings.TrimSpace(parsed.Field(intent.FieldGrade)),
		ProducerID: sender,
		CreatedAt:  time.Now().UTC(),
	}
	e.pending.Put(delivery)
	if e.metrics != nil {
		e.metrics.PendingDeliveries.Set(float64(e.pending.Len()))
	}

	e.record(ctx, "delivery.stored", map[string]any{
		"sender":   sender,
		"code":     code,
		"quantity": qty,
		"unit":     delivery.Unit,
		"grade":    delivery.Grade,
	})
	reply := fmt.Sprintf("Delivery %s recorded (%s). Awaiting buyer confirmation.", code, formatQuantity(qty, delivery.Unit))
	e.reply(ctx, sender, reply)
	return Result{Tag: intent.TagDeliveryConfirmation, Reply: reply}
}

func (e *Engine) handleConfirm(ctx context.Context, sender string, parsed intent.Parsed) Result {
	code := strings.TrimSpace(parsed.Field(intent.FieldCode))
	if !isValidCode(code) {
		e.record(ctx, "confirm.rejected", map[string]any{
			"sender": sender,
			"code":   code,
			"reason": "invalid code",
		})
		reply := "Could not confirm: invalid code. Send CONFIRM <code>, e.g. CONFIRM 553904."
		e.reply(ctx, sender, reply)
		return Result{Tag: intent.TagBuyerConfirm, Reply: reply}
	}

	delivery, ok := e.pending.Consume(code)
	if !ok {
		e.record(ctx, "confirm.no_pending", map[string]any{
			"sender": sender,
			"code":   code,
		})
		reply := fmt.Sprintf("No pending delivery found for code %s.", code)
		e.reply(ctx, sender, reply)
		return Result{Tag: intent.TagBuyerConfirm, Reply: reply}
	}
	if e.metrics != nil {
		e.metrics.PendingDeliveries.Set(float64(e.pending.Len()))
	}

	producer := e.opts.ProducerAccount
	if producer == "" {
		producer = delivery.ProducerID
	}
	counterparty := e.opts.CounterpartyAccount
	if counterparty == "" {
		counterparty = sender
	}

	amount := e.policy.ReleaseAmount(delivery.Quantity)
	task, err := e.plan.Enqueue(ctx, planner.Payload{
		Code:           code,
		Amount:         amount,
		ProducerID:     producer,
		CounterpartyID: counterparty,
	})
	if err != nil {
		// The delivery was already consumed; put it back so the buyer
		// can retry the confirmation.
		e.pending.Put(delivery)
		log.Printf("workflow: enqueue release for %s failed: %v", code, err)
		reply := "Could not schedule the payment release. Please try again."
		e.reply(ctx, sender, reply)
		return Result{Tag: intent.TagBuyerConfirm, Reply: reply}
	}

	e.record(ctx, "release.enqueued", map[string]any{
		"sender":  sender,
		"code":    code,
		"task_id": task.ID,
		"amount":  amount,
		"status":  string(task.Status),
	})
	reply := fmt.Sprintf("Delivery %s confirmed. Payment release of %.2f scheduled (task %s).", code, amount, task.ID)
	if task.Status == planner.TaskStatusWaitingApproval {
		reply = fmt.Sprintf("Delivery %s confirmed. Payment release of %.2f is waiting for operator approval (task %s).", code, amount, task.ID)
	}
	e.reply(ctx, sender, reply)
	return Result{Tag: intent.TagBuyerConfirm, Reply: reply, TaskID: task.ID}
}

func (e *Engine) handleHelp(ctx context.Context, sender string) Result {
	e.record(ctx, "help.provided", map[string]any{"sender": sender})
	e.reply(ctx, sender, helpText)
	return Result{Tag: intent.TagHelpRequest, Reply: helpText}
}

func (e *Engine) handleListing(ctx context.Context, sender string, parsed intent.Parsed) Result {
	crop := strings.ToLower(strings.TrimSpace(parsed.Field(intent.FieldCrop)))
	qty, qtyErr := strconv.ParseFloat(strings.TrimSpace(parsed.Field(intent.FieldQuantity)), 64)
	if crop == "" || qtyErr != nil || qty <= 0 {
		return e.handleUnknown(ctx, sender, parsed)
	}

	ref := uuid.NewString()
	quote := pricing.ListingQuote(crop, qty)
	e.record(ctx, "listing.created", map[string]any{
		"sender":   sender,
		"ref":      ref,
		"crop":     crop,
		"quantity": qty,
		"unit":     strings.TrimSpace(parsed.Field(intent.FieldUnit)),
		"location": strings.TrimSpace(parsed.Field(intent.FieldLocation)),
		"quote":    quote,
	})
	reply := fmt.Sprintf("Listing %s created: %s %s, indicative value %.2f.", shortRef(ref), formatQuantity(qty, parsed.Field(intent.FieldUnit)), crop, quote)
	e.reply(ctx, sender, reply)
	return Result{Tag: intent.TagNewListing, Reply: reply, ListingRef: ref}
}

func (e *Engine) handleUnknown(ctx context.Context, sender string, parsed intent.Parsed) Result {
	e.record(ctx, "intent.unknown", map[string]any{
		"sender": sender,
		"raw":    parsed.Raw,
	})
	reply := "Sorry, I did not understand that. Send HELP for the list of commands."
	e.reply(ctx, sender, reply)
	return Result{Tag: intent.TagUnknown, Reply: reply}
}

func (e *Engine) record(ctx context.Context, label string, payload map[string]any) {
	if e.trades == nil {
		return
	}
	if err := e.trades.Append(ctx, label, payload); err != nil {
		log.Printf("workflow: ledger append %s failed: %v", label, err)
		e.metrics.ObserveCollaboratorFailure("ledger")
	}
}

func (e *Engine) reply(ctx context.Context, recipient, message string) {
	if e.notifier == nil || recipient == "" {
		return
	}
	if err := e.notifier.Send(ctx, recipient, message); err != nil {
		log.Printf("workflow: notify %s failed: %v", recipient, err)
		e.metrics.ObserveCollaboratorFailure("notifier")
	}
}

// isValidCode accepts the short numeric confirmation codes producers
// read out over the phone.
func isValidCode(code string) bool {
	if len(code) < 4 || len(code) > 10 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func formatQuantity(qty float64, unit string) string {
	unit = strings.TrimSpace(unit)
	q := strconv.FormatFloat(qty, 'f', -1, 64)
	if unit == "" {
		return q
	}
	return q + unit
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}

func outcomeFor(res Result) string {
	switch {
	case res.TaskID != "":
		return "release_enqueued"
	case res.ListingRef != "":
		return "listing_created"
	default:
		return "handled"
	}
}
