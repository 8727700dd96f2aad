package optimization

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
)

// ErrOptimizationInProgress is returned when a run is requested while another is active.
var ErrOptimizationInProgress = errors.New("optimization already in progress")

// HistoryWriter persists optimization runs.
type HistoryWriter interface {
	SaveOptimizationRun(ctx context.Context, record models.OptimizationRecord) error
}

// Outcome is the result of one optimization run.
type Outcome struct {
	Weights      models.OptimizationWeights `json:"weights"`
	Baseline     models.ProductionMetrics   `json:"baseline"`
	Result       models.ProductionMetrics   `json:"result"`
	Improvements models.Improvements        `json:"improvements"`
	Overall      float64                    `json:"overall_improvement"`
	LinesUpdated int                        `json:"lines_updated"`
	AppliedAt    time.Time                  `json:"applied_at"`
}

// Engine applies optimization runs against the frozen baseline and, on
// request, rewrites active line efficiencies to match.
type Engine struct {
	store     *store.Store
	baseline  models.ProductionMetrics
	collector *telemetry.Collector
	history   HistoryWriter
	logger    *zap.Logger
	now       func() time.Time

	running atomic.Bool
	mu      sync.RWMutex
	last    *Outcome
}

// NewEngine creates an engine over the standard baseline. collector and
// history may be nil.
func NewEngine(st *store.Store, collector *telemetry.Collector, history HistoryWriter, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:     st,
		baseline:  models.BaselineMetrics(),
		collector: collector,
		history:   history,
		logger:    logger,
		now:       time.Now,
	}
}

// Baseline returns the reference snapshot.
func (e *Engine) Baseline() models.ProductionMetrics {
	return e.baseline
}

// Running reports whether a run is in progress.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Last returns the most recent outcome, if any.
func (e *Engine) Last() (Outcome, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return Outcome{}, false
	}
	return *e.last, true
}

// Run applies w to the baseline. When rescale is set every active line's
// efficiency is rewritten in one store transaction.
func (e *Engine) Run(ctx context.Context, w models.OptimizationWeights, rescale bool) (Outcome, error) {
	if err := w.Validate(); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if !e.running.CompareAndSwap(false, true) {
		return Outcome{}, ErrOptimizationInProgress
	}
	defer e.running.Store(false)

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	result := Apply(w, e.baseline)
	imp := CalculateImprovements(w)
	if w.IsZero() {
		imp = models.Improvements{}
	}
	outcome := Outcome{
		Weights:      w,
		Baseline:     e.baseline,
		Result:       result,
		Improvements: imp,
		Overall:      imp.Overall(),
		AppliedAt:    e.now(),
	}

	if rescale {
		updated, err := e.rescaleLines(RescaledLineEfficiency(result, e.baseline))
		if err != nil {
			return Outcome{}, fmt.Errorf("rescale line efficiency: %w", err)
		}
		outcome.LinesUpdated = updated
	}

	e.mu.Lock()
	e.last = &outcome
	e.mu.Unlock()

	e.collector.RecordOptimization()
	if e.history != nil {
		record := models.OptimizationRecord{
			Weights:      w,
			Improvements: imp,
			Result:       result,
			LinesUpdated: outcome.LinesUpdated,
			CreatedAt:    outcome.AppliedAt,
		}
		if err := e.history.SaveOptimizationRun(ctx, record); err != nil {
			e.logger.Warn("failed to persist optimization run", zap.Error(err))
		}
	}

	e.logger.Info("optimization applied",
		zap.Float64("efficiency", result.Efficiency),
		zap.Float64("on_time", result.OnTimeDelivery),
		zap.Float64("utilization", result.LineUtilization),
		zap.Int("throughput", result.Throughput),
		zap.Int("lines_updated", outcome.LinesUpdated))
	return outcome, nil
}

// Reset returns the plant to the baseline and resets line efficiencies.
func (e *Engine) Reset(ctx context.Context) (Outcome, error) {
	return e.Run(ctx, models.OptimizationWeights{}, true)
}

func (e *Engine) rescaleLines(efficiency float64) (int, error) {
	updated := 0
	err := e.store.Update(func(tx *store.Tx) error {
		updated = 0
		for _, l := range tx.State().Lines {
			if !l.IsActive() {
				continue
			}
			line, err := tx.Line(l.ID)
			if err != nil {
				return err
			}
			line.Efficiency = efficiency
			updated++
		}
		return nil
	})
	return updated, err
}
