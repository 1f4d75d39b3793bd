package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/mzito/mazao/internal/config"
	"github.com/mzito/mazao/internal/httpapi"
	"github.com/mzito/mazao/internal/intent"
	"github.com/mzito/mazao/internal/ledger"
	"github.com/mzito/mazao/internal/notify"
	"github.com/mzito/mazao/internal/observability"
	"github.com/mzito/mazao/internal/planner"
	"github.com/mzito/mazao/internal/report"
	"github.com/mzito/mazao/internal/settlement"
	"github.com/mzito/mazao/internal/workflow"
)

type BuildResult struct {
	Config  config.Config
	API     *httpapi.Server
	Engine  *workflow.Engine
	Planner *planner.Planner
	Reports *report.Aggregator
	Trades  ledger.Client
	Metrics *observability.Metrics

	// Cleanup releases external resources (DB pools) on shutdown.
	Cleanup func() error
}

// Build wires the full service from config. Callers own starting the
// planner loop, the report scheduler and the HTTP listener.
func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	trades, err := ledger.NewClient(ctx, cfg.DatabaseURL, ledger.DefaultTopic)
	if err != nil {
		return nil, fmt.Errorf("ledger client init failed: %w", err)
	}

	classifier, err := intent.New(cfg.ClassifierMode)
	if err != nil {
		_ = trades.Close()
		return nil, fmt.Errorf("classifier init failed: %w", err)
	}

	settler, err := settlement.New(settlement.Config{
		Mode:    cfg.SettlementMode,
		HTTPURL: cfg.SettlementHTTPURL,
	})
	if err != nil {
		_ = trades.Close()
		return nil, fmt.Errorf("settlement client init failed: %w", err)
	}

	notifier := notify.NewLogNotifier()
	executor := settlement.NewReleaseExecutor(settler, trades, notifier, metrics)

	plan := planner.New(executor, planner.Options{
		ApprovalRequired: cfg.ApprovalRequired,
		AutoReleaseDelay: cfg.AutoReleaseDelay,
		TickInterval:     cfg.TickInterval,
		MaxAttempts:      cfg.MaxAttempts,
		BackoffStart:     cfg.BackoffStart,
		BackoffCap:       cfg.BackoffCap,
	})
	plan.SetLedger(trades)
	plan.SetMetrics(metrics)

	store, err := planner.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = trades.Close()
		return nil, fmt.Errorf("task store init failed: %w", err)
	}
	if store != nil {
		plan.SetStore(store)
	}

	engine := workflow.NewEngine(
		classifier,
		workflow.NewPendingStore(),
		plan,
		trades,
		notifier,
		nil,
		metrics,
		workflow.Options{
			ProducerAccount:     cfg.ProducerAccount,
			CounterpartyAccount: cfg.CounterpartyAccount,
		},
	)

	var reports *report.Aggregator
	if cfg.ReportEnabled {
		reports = report.NewAggregator(trades, ledger.DefaultTopic, cfg.ReportPageSize, metrics)
	}

	api := httpapi.New(cfg, engine, plan, reports, trades, metrics)

	cleanup := func() error {
		var errs []string
		if store != nil {
			if err := store.Close(); err != nil {
				errs = append(errs, err.Error())
			}
		}
		if err := trades.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		API:     api,
		Engine:  engine,
		Planner: plan,
		Reports: reports,
		Trades:  trades,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
