// Command mazao-demo runs the delivery-to-release flow in process with
// mock collaborators and prints every step. Useful for demos and for
// checking the wiring without a database or settlement service.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mzito/mazao/internal/intent"
	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/notify"
	"github.com/mzito/mazao/internal/planner"
	"github.com/mzito/mazao/internal/report"
	"github.com/mzito/mazao/internal/settlement"
	"github.com/mzito/mazao/internal/workflow"
)

func main() {
	ctx := context.Background()

	trades := ledger.NewInMemoryClient(ledger.DefaultTopic)
	notifier := notify.NewMemoryNotifier()
	settler := settlement.NewMockClient()
	executor := settlement.NewReleaseExecutor(settler, trades, notifier, nil)

	plan := planner.New(executor, planner.Options{
		AutoReleaseDelay: 500 * time.Millisecond,
	})
	plan.SetLedger(trades)

	engine := workflow.NewEngine(
		intent.NewRuleClassifier(),
		workflow.NewPendingStore(),
		plan,
		trades,
		notifier,
		nil,
		nil,
		workflow.Options{},
	)

	messages := []struct {
		sender string
		text   string
	}{
		{"+254700000001", "HELP"},
		{"+254700000001", "SELL maize 200kg Nakuru"},
		{"+254700000001", "DELIVERED 553904 200kg grade A"},
		{"+254700000002", "CONFIRM 553904"},
	}
	for _, m := range messages {
		res := engine.Handle(ctx, m.sender, m.text)
		fmt.Printf("%s -> %q\n  [%s] %s\n", m.sender, m.text, res.Tag, res.Reply)
	}

	fmt.Println("\nticking the planner until the release settles...")
	deadline := time.Now().Add(5 * time.Second)
	for {
		task, ran := plan.Tick(ctx)
		if ran && task.Terminal() {
			fmt.Printf("task %s finished as %s after %d attempt(s)\n", task.ID, task.Status, task.Attempts)
			break
		}
		if time.Now().After(deadline) {
			log.Fatal("release task did not finish in time")
		}
		time.Sleep(100 * time.Millisecond)
	}

	for _, tx := range settler.Transfers() {
		fmt.Printf("transfer %s: %.2f from %s to %s\n", tx.TxID, tx.Amount, tx.From, tx.To)
	}
	for _, sent := range notifier.Messages() {
		fmt.Printf("notified %s: %s\n", sent.Recipient, sent.Message)
	}

	reports := report.NewAggregator(trades, ledger.DefaultTopic, 100, nil)
	summary, err := reports.RunReport(ctx, time.Now().UTC())
	if err != nil {
		log.Fatalf("report failed: %v", err)
	}
	fmt.Printf("\ndaily report %s: %d events, %.0f delivered, %.2f released, %d senders\n",
		summary.Day, summary.Events, summary.DeliveredQuantity, summary.ReleasedAmount, summary.UniqueSenders)
	for label, n := range summary.Counts {
		fmt.Printf("  %-22s %d\n", label, n)
	}
}
