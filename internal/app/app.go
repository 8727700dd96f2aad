// Package app assembles the planning services from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/config"
	"github.com/mamadbah2/lineplan/internal/repository/mongodb"
	"github.com/mamadbah2/lineplan/internal/repository/sheets"
	"github.com/mamadbah2/lineplan/internal/scheduler"
	"github.com/mamadbah2/lineplan/internal/service/metrics"
	"github.com/mamadbah2/lineplan/internal/service/optimization"
	"github.com/mamadbah2/lineplan/internal/service/planning"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
	"github.com/mamadbah2/lineplan/pkg/clients/alerts"
	"github.com/mamadbah2/lineplan/pkg/logger"
)

// App holds the wired services of one process.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Collector  *telemetry.Collector
	Planning   *planning.Service
	Metrics    *metrics.Service
	Optimizer  *optimization.Engine
	Reconciler *scheduler.Reconciler
	// History is nil unless MONGODB_URI is set.
	History *mongodb.HistoryRepository

	tables sheets.Repository
	syncer *sheets.Syncer
	cancel context.CancelFunc
	logger *zap.Logger
}

// Options tweak the assembly for tests and the CLI.
type Options struct {
	// Seed replaces the configured backend as the initial plant state.
	Seed *store.State
	// Registry receives the Prometheus collectors; a private one is used when nil.
	Registry *prometheus.Registry
	// Now anchors the demo plant; defaults to time.Now.
	Now func() time.Time
}

// New loads the plant, connects optional history and alert sinks and wires
// every service. Close releases what New acquired.
func New(ctx context.Context, cfg *config.Config, opts Options, base *zap.Logger) (*App, error) {
	if base == nil {
		base = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	rules, err := config.LoadRules(cfg.RulesFile)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a := &App{Config: cfg, cancel: cancel, logger: base}

	state, err := a.initialState(ctx, opts)
	if err != nil {
		cancel()
		return nil, err
	}
	a.Store = store.New(state, logger.Named(base, "store"))
	if a.syncer != nil {
		a.Store.OnCommit(a.syncer.Enqueue)
		go a.syncer.Run(runCtx)
	}

	var (
		metricsHistory metrics.HistoryWriter
		runHistory     optimization.HistoryWriter
	)
	if cfg.MongoDB.URI != "" {
		history, err := mongodb.Connect(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			cancel()
			return nil, err
		}
		a.History = history
		metricsHistory, runHistory = history, history
		base.Info("metrics history enabled", zap.String("db", cfg.MongoDB.DBName))
	} else if a.tables != nil {
		runHistory = sheets.NewOptimizationLog(a.tables)
	}

	var alertClient alerts.Client = alerts.Nop{}
	if cfg.Alerts.WebhookURL != "" {
		alertClient = alerts.NewClient(cfg.Alerts)
		base.Info("anomaly alerts enabled")
	}

	a.Collector = telemetry.NewCollector(opts.Registry)
	engine := metrics.NewEngine(logger.Named(base, "metrics.engine"))
	a.Metrics = metrics.NewService(a.Store, engine, a.Collector, metricsHistory, logger.Named(base, "svc.metrics"))
	a.Planning = planning.NewService(a.Store, rules, engine, a.Collector, logger.Named(base, "svc.planning"))
	a.Optimizer = optimization.NewEngine(a.Store, a.Collector, runHistory, logger.Named(base, "svc.optimization"))
	a.Reconciler = scheduler.NewReconciler(cfg.Reconciler, scheduler.Deps{
		Store:       a.Store,
		Utilization: engine,
		Busy:        a.Optimizer,
		Metrics:     a.Metrics,
		Alerts:      alertClient,
		Collector:   a.Collector,
		Location:    cfg.Location(),
	}, logger.Named(base, "reconciler"))

	return a, nil
}

func (a *App) initialState(ctx context.Context, opts Options) (store.State, error) {
	if opts.Seed != nil {
		return opts.Seed.Clone(), nil
	}

	switch a.Config.Storage.Backend {
	case config.BackendSheets:
		repo, err := sheets.NewGoogleSheetRepository(ctx, a.Config.Sheets, logger.Named(a.logger, "repo.sheets"))
		if err != nil {
			return store.State{}, err
		}
		a.tables = repo
		tables := sheets.NewTables(repo, a.Config.Location(), logger.Named(a.logger, "repo.tables"))
		state, err := tables.Load(ctx)
		if err != nil {
			return store.State{}, err
		}
		a.syncer = sheets.NewSyncer(tables, 0, logger.Named(a.logger, "repo.sync"))
		return state, nil
	default:
		a.logger.Info("using demo plant", zap.String("backend", a.Config.Storage.Backend))
		return store.DemoState(opts.Now().UTC()), nil
	}
}

// Close stops background work, flushes pending table writes and disconnects
// the history store.
func (a *App) Close(ctx context.Context) error {
	var err error
	a.Reconciler.Stop()
	a.cancel()
	if a.syncer != nil {
		select {
		case <-a.syncer.Done():
		case <-ctx.Done():
			err = multierr.Append(err, fmt.Errorf("waiting for table sync: %w", ctx.Err()))
		}
	}
	if a.History != nil {
		err = multierr.Append(err, a.History.Close(ctx))
	}
	return err
}
