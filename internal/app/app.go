// Package app wires configuration into a running analysis stack.
//
// Both binaries build the same stack: logger, telemetry, reasoning backend,
// lexicon store (optionally watched), event publisher and orchestrator.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/convoscan/internal/analysis"
	"github.com/fyrsmithlabs/convoscan/internal/config"
	"github.com/fyrsmithlabs/convoscan/internal/events"
	"github.com/fyrsmithlabs/convoscan/internal/lexicon"
	"github.com/fyrsmithlabs/convoscan/internal/llm"
	"github.com/fyrsmithlabs/convoscan/internal/logging"
	"github.com/fyrsmithlabs/convoscan/internal/telemetry"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
)

// Options adjust how the stack is built.
type Options struct {
	Version string
	// LogToStderr keeps stdout free, as the MCP stdio transport requires.
	LogToStderr bool
}

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Telemetry    *telemetry.Telemetry
	Lexicon      *lexicon.Store
	Publisher    events.Publisher
	Orchestrator *analysis.Orchestrator

	watcher *lexicon.Watcher
}

// New builds the stack from cfg. On error everything built so far is closed.
func New(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, opts.Version))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.Telemetry = tel

	logCfg, err := logging.FromObservability(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	logCfg.Output.Stderr = opts.LogToStderr
	logger, err := logging.NewLogger(logCfg, global.GetLoggerProvider())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.Logger = logger

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}

	store, err := lexicon.NewStore(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load lexicon: %w", err)
	}
	a.Lexicon = store
	if cfg.Lexicon.Watch && cfg.Lexicon.Path != "" {
		w, err := lexicon.NewWatcher(store, logger)
		if err != nil {
			return nil, err
		}
		w.Start(ctx)
		a.watcher = w
	}

	a.Publisher = events.Noop{}
	if cfg.Events.Enabled {
		pub, err := events.Connect(cfg.Events, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to nats: %w", err)
		}
		a.Publisher = pub
	}

	a.Orchestrator = analysis.NewOrchestrator(analysis.Config{
		LLM:            completer,
		Lexicon:        store,
		Publisher:      a.Publisher,
		Metrics:        analysis.NewMetrics(),
		Logger:         logger,
		Tracer:         tel.Tracer(analysis.InstrumentationName),
		CallThreshold:  cfg.Analysis.CallThreshold,
		RiskFloor:      cfg.Analysis.RiskFloor,
		ForceHeuristic: cfg.Analysis.ForceHeuristic,
	})

	logger.Info(ctx, "analysis stack ready",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Bool("force_heuristic", cfg.Analysis.ForceHeuristic),
		zap.Bool("lexicon_watch", a.watcher != nil),
		zap.Bool("events", cfg.Events.Enabled),
		zap.Bool("telemetry", cfg.Observability.EnableTelemetry),
	)
	return a, nil
}

// Close stops the watcher, drains the publisher and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher close: %w", err))
		}
	}
	if a.Telemetry != nil {
		if err := a.Telemetry.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("telemetry shutdown: %w", err))
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}
