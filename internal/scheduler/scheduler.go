package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/config"
	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/metrics"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
	"github.com/mamadbah2/lineplan/pkg/clients/alerts"
)

// State is the reconciler's position in its Idle/Scanning cycle.
type State int32

const (
	Idle State = iota
	Scanning
)

func (s State) String() string {
	if s == Scanning {
		return "scanning"
	}
	return "idle"
}

// BusyChecker reports whether a foreground optimization run holds the plant.
type BusyChecker interface {
	Running() bool
}

// UtilizationEstimator reports a line's forward utilization percentage.
type UtilizationEstimator interface {
	LineUtilization(line models.ProductionLine, schedule []models.ScheduleEntry, now time.Time) float64
}

// MetricsRefresher recomputes the headline metrics.
type MetricsRefresher interface {
	Current(ctx context.Context) metrics.Snapshot
}

// Deps are the collaborators of the reconciler. Busy, Metrics, Alerts and
// Collector are optional.
type Deps struct {
	Store       *store.Store
	Utilization UtilizationEstimator
	Busy        BusyChecker
	Metrics     MetricsRefresher
	Alerts      alerts.Client
	Collector   *telemetry.Collector
	Location    *time.Location
}

// Reconciler periodically scans the plant for utilization and delay anomalies
// and applies small corrections.
type Reconciler struct {
	cron   *cron.Cron
	deps   Deps
	cfg    config.ReconcilerConfig
	logger *zap.Logger
	now    func() time.Time

	state  atomic.Int32
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewReconciler creates a reconciler. It does nothing until Start.
func NewReconciler(cfg config.ReconcilerConfig, deps Deps, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Alerts == nil {
		deps.Alerts = alerts.Nop{}
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	cl := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &Reconciler{
		cron:   c,
		deps:   deps,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start registers the scan job and starts the cron loop.
func (r *Reconciler) Start() error {
	r.logger.Info("starting reconciler", zap.String("schedule", r.cfg.Schedule))

	if _, err := r.cron.AddFunc(r.cfg.Schedule, r.tick); err != nil {
		return fmt.Errorf("schedule reconciler %q: %w", r.cfg.Schedule, err)
	}

	r.cron.Start()
	return nil
}

// Stop cancels any pending back-off and waits for a running scan to finish.
func (r *Reconciler) Stop() {
	r.once.Do(func() {
		r.logger.Info("stopping reconciler")
		r.cancel()
		<-r.cron.Stop().Done()
	})
}

// State returns the current reconciler state.
func (r *Reconciler) State() State {
	return State(r.state.Load())
}

func (r *Reconciler) tick() {
	if _, err := r.RunOnce(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("reconcile pass skipped", zap.Error(err))
	}
}

// RunOnce waits for any foreground optimization to finish, polling every
// BusyPoll, then scans once.
func (r *Reconciler) RunOnce(ctx context.Context) ([]Anomaly, error) {
	for r.deps.Busy != nil && r.deps.Busy.Running() {
		r.logger.Debug("optimization in progress, backing off", zap.Duration("poll", r.cfg.BusyPoll))
		timer := time.NewTimer(r.cfg.BusyPoll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return r.Scan(ctx)
}

// ErrScanInProgress is returned when a scan is requested while one runs.
var ErrScanInProgress = errors.New("reconciler scan already in progress")

// Scan detects anomalies on a store snapshot and then applies corrections.
// Correction failures are logged and never fail the scan.
func (r *Reconciler) Scan(ctx context.Context) ([]Anomaly, error) {
	if !r.state.CompareAndSwap(int32(Idle), int32(Scanning)) {
		return nil, ErrScanInProgress
	}
	defer r.state.Store(int32(Idle))

	r.deps.Collector.RecordScan()
	now := r.now()
	anomalies := r.detect(r.deps.Store.Snapshot(), now)

	if r.deps.Metrics != nil {
		snap := r.deps.Metrics.Current(ctx)
		r.logger.Debug("metrics refreshed",
			zap.Float64("efficiency", snap.Metrics.Efficiency),
			zap.Bool("fallback", snap.Fallback))
	}

	for _, a := range anomalies {
		r.deps.Collector.RecordAnomaly(a.Kind)
		r.logger.Info("anomaly detected",
			zap.String("kind", a.Kind),
			zap.String("subject", a.Subject()),
			zap.Float64("value", a.Value))
	}

	r.correct(ctx, anomalies, now)
	return anomalies, nil
}
