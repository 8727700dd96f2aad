package optimization

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
)

var now = time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)

func allOnes() models.OptimizationWeights {
	return models.OptimizationWeights{MinimizeDelays: 1, MaximizeEfficiency: 1, BalanceWorkload: 1, MinimizeSetup: 1}
}

func TestApplyIdentity(t *testing.T) {
	baseline := models.BaselineMetrics()
	assert.Equal(t, baseline, Apply(models.OptimizationWeights{}, baseline))
}

func TestApplyIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	baseline := models.BaselineMetrics()

	for i := 0; i < 100; i++ {
		w := models.OptimizationWeights{
			MinimizeDelays:     rng.Float64(),
			MaximizeEfficiency: rng.Float64(),
			BalanceWorkload:    rng.Float64(),
			MinimizeSetup:      rng.Float64(),
		}
		first := Apply(w, baseline)
		second := Apply(w, baseline)
		require.Equal(t, first, second)
		require.Equal(t, models.BaselineMetrics(), baseline)

		require.LessOrEqual(t, first.Efficiency, 0.98)
		require.LessOrEqual(t, first.OnTimeDelivery, 98.0)
		require.LessOrEqual(t, first.LineUtilization, 85.0)
		require.GreaterOrEqual(t, first.OverdueOrders, 0)
		require.GreaterOrEqual(t, first.Throughput, baseline.Throughput)
	}
}

func TestApplyAllWeights(t *testing.T) {
	got := Apply(allOnes(), models.BaselineMetrics())

	assert.InDelta(t, 0.93, got.Efficiency, 1e-9)
	assert.LessOrEqual(t, got.Efficiency, 0.98)
	assert.InDelta(t, 95.0, got.OnTimeDelivery, 1e-9)
	assert.InDelta(t, 80.0, got.LineUtilization, 1e-9)
	assert.Equal(t, 3200, got.Throughput)
	assert.Equal(t, 0, got.OverdueOrders)
	assert.Equal(t, 5, got.ActiveLines)
}

func TestApplyClampsAtCeilings(t *testing.T) {
	baseline := models.BaselineMetrics()
	baseline.Efficiency = 0.9
	baseline.OnTimeDelivery = 90
	baseline.LineUtilization = 70

	got := Apply(allOnes(), baseline)

	assert.Equal(t, 0.98, got.Efficiency)
	assert.Equal(t, 98.0, got.OnTimeDelivery)
	assert.Equal(t, 85.0, got.LineUtilization)
}

func TestApplyOverdueAdjustment(t *testing.T) {
	baseline := models.BaselineMetrics()

	// on-time delta 0.5*23 = 11.5 removes one overdue order.
	got := Apply(models.OptimizationWeights{MinimizeDelays: 1}, baseline)
	assert.Equal(t, 1, got.OverdueOrders)

	// 0.05*23 = 1.15 is below the first step.
	got = Apply(models.OptimizationWeights{MinimizeSetup: 1}, baseline)
	assert.Equal(t, 2, got.OverdueOrders)
}

func TestCalculateImprovementsClampsSliders(t *testing.T) {
	over := models.OptimizationWeights{MinimizeDelays: 4, MaximizeEfficiency: -1}
	assert.Equal(t,
		CalculateImprovements(models.OptimizationWeights{MinimizeDelays: 1}),
		CalculateImprovements(over))

	imp := CalculateImprovements(allOnes())
	assert.InDelta(t, (25+23+35+1400)/4.0, imp.Overall(), 1e-9)
}

func TestApplyTruncatesThroughputGain(t *testing.T) {
	baseline := models.BaselineMetrics()

	// 0.35 * 0.0015 * 1400 = 0.735
	got := Apply(models.OptimizationWeights{MinimizeSetup: 0.0015}, baseline)
	assert.Equal(t, baseline.Throughput, got.Throughput)

	// (0.35*0.0015 + 0.2*0.01) * 1400 = 3.535
	got = Apply(models.OptimizationWeights{MinimizeSetup: 0.0015, BalanceWorkload: 0.01}, baseline)
	assert.Equal(t, baseline.Throughput+3, got.Throughput)
}

func TestRescaledLineEfficiency(t *testing.T) {
	baseline := models.BaselineMetrics()

	assert.Equal(t, models.BaselineLineEfficiency, RescaledLineEfficiency(baseline, baseline))
	assert.Equal(t, 0.98, RescaledLineEfficiency(Apply(allOnes(), baseline), baseline))

	mid := models.OptimizationWeights{MinimizeDelays: 0.2, MaximizeEfficiency: 0.2, BalanceWorkload: 0.2, MinimizeSetup: 0.2}
	assert.InDelta(t, 0.75*0.73/0.68, RescaledLineEfficiency(Apply(mid, baseline), baseline), 1e-9)

	high := baseline
	high.Efficiency = 0.98
	assert.Equal(t, 0.98, RescaledLineEfficiency(high, models.ProductionMetrics{Efficiency: 0.5}))
}

type fakeHistory struct {
	mu      sync.Mutex
	records []models.OptimizationRecord
	err     error
}

func (f *fakeHistory) SaveOptimizationRun(_ context.Context, record models.OptimizationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func newTestEngine(t *testing.T, history HistoryWriter) (*Engine, *store.Store) {
	t.Helper()
	st := store.New(store.DemoState(now), nil)
	e := NewEngine(st, nil, history, nil)
	e.now = func() time.Time { return now }
	return e, st
}

func TestRunRescalesActiveLines(t *testing.T) {
	history := &fakeHistory{err: errors.New("mongo down")}
	e, st := newTestEngine(t, history)

	outcome, err := e.Run(context.Background(), allOnes(), true)
	require.NoError(t, err)

	assert.Equal(t, 5, outcome.LinesUpdated)
	assert.InDelta(t, 0.93, outcome.Result.Efficiency, 1e-9)
	for _, l := range st.Snapshot().Lines {
		if l.IsActive() {
			assert.Equal(t, 0.98, l.Efficiency, string(l.ID))
		} else {
			assert.Equal(t, 0.78, l.Efficiency, string(l.ID))
		}
	}
	require.Len(t, history.records, 1)
	assert.Equal(t, 5, history.records[0].LinesUpdated)

	last, ok := e.Last()
	require.True(t, ok)
	assert.Equal(t, outcome, last)
	assert.False(t, e.Running())
}

func TestRunWithoutRescaleLeavesLines(t *testing.T) {
	e, st := newTestEngine(t, nil)
	before := st.Snapshot()

	outcome, err := e.Run(context.Background(), allOnes(), false)
	require.NoError(t, err)

	assert.Zero(t, outcome.LinesUpdated)
	assert.Equal(t, before.Lines, st.Snapshot().Lines)
}

func TestResetRestoresBaseline(t *testing.T) {
	e, st := newTestEngine(t, nil)
	_, err := e.Run(context.Background(), allOnes(), true)
	require.NoError(t, err)

	outcome, err := e.Reset(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.BaselineMetrics(), outcome.Result)
	assert.Equal(t, models.Improvements{}, outcome.Improvements)
	for _, l := range st.Snapshot().Lines {
		if l.IsActive() {
			assert.Equal(t, models.BaselineLineEfficiency, l.Efficiency)
		}
	}
}

func TestRunRejectsInvalidWeights(t *testing.T) {
	e, _ := newTestEngine(t, nil)

	_, err := e.Run(context.Background(), models.OptimizationWeights{BalanceWorkload: 1.2}, false)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestRunGuardsConcurrentRuns(t *testing.T) {
	e, _ := newTestEngine(t, nil)
	e.running.Store(true)

	_, err := e.Run(context.Background(), allOnes(), false)
	assert.ErrorIs(t, err, ErrOptimizationInProgress)
	assert.True(t, e.Running())
}
