package settlement

import (
	"context"
	"fmt"
	"log"

	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/notify"
	"github.com/mzito/mazao/internal/observability"
	"github.com/mzito/mazao/internal/planner"
)

// ReleaseExecutor settles one release task: it moves the escrowed amount
// from the counterparty to the producer. The transfer error propagates so
// the planner can schedule a retry; ledger and notifier calls after a
// successful transfer are best effort.
type ReleaseExecutor struct {
	client   Client
	trades   ledger.Client
	notifier notify.Notifier
	metrics  *observability.Metrics
}

func NewReleaseExecutor(client Client, trades ledger.Client, notifier notify.Notifier, metrics *observability.Metrics) *ReleaseExecutor {
	return &ReleaseExecutor{
		client:   client,
		trades:   trades,
		notifier: notifier,
		metrics:  metrics,
	}
}

func (e *ReleaseExecutor) Execute(ctx context.Context, task planner.Task) error {
	p := task.Payload
	txID, err := e.client.Transfer(ctx, p.CounterpartyID, p.ProducerID, p.Amount)
	if err != nil {
		e.metrics.ObserveCollaboratorFailure("settlement")
		return fmt.Errorf("release %s: %w", p.Code, err)
	}

	if e.trades != nil {
		if err := e.trades.Append(ctx, "escrow.released", map[string]any{
			"code":   p.Code,
			"amount": p.Amount,
			"from":   p.CounterpartyID,
			"to":     p.ProducerID,
			"tx_id":  txID,
		}); err != nil {
			log.Printf("settlement: ledger append escrow.released failed: %v", err)
			e.metrics.ObserveCollaboratorFailure("ledger")
		}
	}
	if e.notifier != nil {
		msg := fmt.Sprintf("Payment of %.2f for delivery %s has been released.", p.Amount, p.Code)
		if err := e.notifier.Send(ctx, p.ProducerID, msg); err != nil {
			log.Printf("settlement: notify %s failed: %v", p.ProducerID, err)
			e.metrics.ObserveCollaboratorFailure("notifier")
		}
	}
	return nil
}
