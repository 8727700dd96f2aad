package metrics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
)

// HistoryWriter persists computed snapshots.
type HistoryWriter interface {
	SaveMetricsSnapshot(ctx context.Context, record models.MetricsRecord) error
}

// Snapshot is a computed metrics snapshot with its provenance.
type Snapshot struct {
	Metrics    models.ProductionMetrics `json:"metrics"`
	Fallback   bool                     `json:"fallback"`
	Revision   uint64                   `json:"revision"`
	ComputedAt time.Time                `json:"computed_at"`
}

// Report bundles the snapshot with order statistics and recommendations.
type Report struct {
	Snapshot
	Orders          OrderStats `json:"orders"`
	Rating          string     `json:"rating"`
	Recommendations []string   `json:"recommendations"`
}

// Service computes metrics from the live store.
type Service struct {
	store     *store.Store
	engine    *Engine
	collector *telemetry.Collector
	history   HistoryWriter
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires a metrics service. collector and history may be nil.
func NewService(st *store.Store, engine *Engine, collector *telemetry.Collector, history HistoryWriter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = NewEngine(logger)
	}
	return &Service{
		store:     st,
		engine:    engine,
		collector: collector,
		history:   history,
		logger:    logger,
		now:       time.Now,
	}
}

// Engine exposes the underlying engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Current computes a snapshot of the live tables. It never fails; history
// write errors are logged.
func (s *Service) Current(ctx context.Context) Snapshot {
	return s.snapshotOf(ctx, s.store.Snapshot())
}

func (s *Service) snapshotOf(ctx context.Context, state store.State) Snapshot {
	now := s.now()

	m, fallback := s.engine.compute(state.Lines, state.Orders, state.Schedule, now)
	snap := Snapshot{Metrics: m, Fallback: fallback, Revision: state.Revision, ComputedAt: now}

	s.collector.ObserveMetrics(m)
	if s.history != nil {
		record := models.MetricsRecord{Metrics: m, Revision: state.Revision, Fallback: fallback, ComputedAt: now}
		if err := s.history.SaveMetricsSnapshot(ctx, record); err != nil {
			s.logger.Warn("failed to persist metrics snapshot", zap.Error(err))
		}
	}
	return snap
}

// Report computes the current snapshot plus order analytics.
func (s *Service) Report(ctx context.Context) Report {
	state := s.store.Snapshot()
	snap := s.snapshotOf(ctx, state)
	stats := OrderStatistics(state.Orders, snap.ComputedAt)
	return Report{
		Snapshot:        snap,
		Orders:          stats,
		Rating:          PerformanceRating(snap.Metrics.Efficiency * 100),
		Recommendations: Recommendations(snap.Metrics, stats),
	}
}
