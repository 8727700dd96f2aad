package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/lineplan/internal/config"
	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/metrics"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
	"github.com/mamadbah2/lineplan/pkg/clients/alerts"
)

var now = time.Date(2025, 8, 1, 8, 0, 0, 0, time.UTC)

type recordingAlerts struct {
	mu   sync.Mutex
	sent []alerts.Alert
	err  error
}

func (r *recordingAlerts) Notify(_ context.Context, a alerts.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	return r.err
}

type busyFor struct {
	remaining atomic.Int32
}

func (b *busyFor) Running() bool {
	return b.remaining.Add(-1) >= 0
}

func testConfig() config.ReconcilerConfig {
	return config.ReconcilerConfig{
		Schedule:       "@every 1s",
		BusyPoll:       5 * time.Millisecond,
		UnderThreshold: 50,
		OverThreshold:  80,
	}
}

func plant() store.State {
	return store.State{
		Lines: []models.ProductionLine{
			{ID: "L1", Status: models.LineActive, Efficiency: 0.2, Capacity: 20, ProductTypes: []string{"Heavy"}},
			{ID: "L2", Status: models.LineActive, Efficiency: 0.9, Capacity: 20, SetupMinutes: 30, ProductTypes: []string{"Heavy"}},
			{ID: "L3", Status: models.LineActive, Efficiency: 0.5, Capacity: 20, ProductTypes: []string{"Heavy"}},
			{ID: "L4", Status: models.LineInactive, Efficiency: 0.0, Capacity: 20, ProductTypes: []string{"Heavy"}},
		},
		Orders: []models.Order{
			{ID: "O1", Category: "Heavy", Quantity: 1, Priority: models.PriorityHigh, Status: models.StatusPlanned, DueDate: now.Add(-48 * time.Hour), EstimatedHours: 2},
			{ID: "O2", Category: "Heavy", Quantity: 1, Priority: models.PriorityLow, Status: models.StatusCompleted, Progress: 100, DueDate: now.Add(-48 * time.Hour), EstimatedHours: 2},
			{ID: "O3", Category: "Heavy", Quantity: 1, Priority: models.PriorityLow, Status: models.StatusInProgress, AssignedLine: "L2", Progress: 40, DueDate: now.Add(-2 * time.Hour), EstimatedHours: 168},
			{ID: "O4", Category: "Heavy", Quantity: 1, Priority: models.PriorityLow, Status: models.StatusPlanned, DueDate: now.Add(48 * time.Hour), EstimatedHours: 2},
		},
		Schedule: []models.ScheduleEntry{
			{ID: "S1", OrderID: "O3", LineID: "L2", Start: now, End: now.Add(168 * time.Hour), Status: models.StatusInProgress},
		},
	}
}

func newTestReconciler(t *testing.T, cfg config.ReconcilerConfig, deps Deps) *Reconciler {
	t.Helper()
	if deps.Store == nil {
		deps.Store = store.New(plant(), nil)
	}
	if deps.Utilization == nil {
		deps.Utilization = metrics.NewEngine(nil)
	}
	r := NewReconciler(cfg, deps, nil)
	r.now = func() time.Time { return now }
	t.Cleanup(r.Stop)
	return r
}

func kinds(anomalies []Anomaly) map[string][]string {
	out := make(map[string][]string)
	for _, a := range anomalies {
		out[a.Kind] = append(out[a.Kind], a.Subject())
	}
	return out
}

func TestScanDetectsAnomalies(t *testing.T) {
	sink := &recordingAlerts{}
	r := newTestReconciler(t, testConfig(), Deps{Alerts: sink, Collector: telemetry.NewCollector(prometheus.NewRegistry())})

	anomalies, err := r.Scan(context.Background())
	require.NoError(t, err)

	got := kinds(anomalies)
	assert.Equal(t, []string{"L1"}, got[KindUnderutilized])
	assert.Equal(t, []string{"L2"}, got[KindOverutilized])
	assert.Equal(t, []string{"O1", "O3"}, got[KindOverdue])
	assert.Len(t, sink.sent, 4)
	assert.Equal(t, Idle, r.State())
}

func TestScanWithReferenceThresholdsOnlyFlagsDelays(t *testing.T) {
	cfg := testConfig()
	cfg.UnderThreshold, cfg.OverThreshold = 30, 95
	r := newTestReconciler(t, cfg, Deps{})

	anomalies, err := r.Scan(context.Background())
	require.NoError(t, err)

	got := kinds(anomalies)
	assert.Empty(t, got[KindUnderutilized])
	assert.Empty(t, got[KindOverutilized])
	assert.Len(t, got[KindOverdue], 2)
}

func TestScanSwallowsAlertFailures(t *testing.T) {
	sink := &recordingAlerts{err: errors.New("webhook down")}
	r := newTestReconciler(t, testConfig(), Deps{Alerts: sink})

	anomalies, err := r.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, anomalies, 4)
	assert.Len(t, sink.sent, 4)
}

func TestScanEscalatesUnbookedOverdueOrders(t *testing.T) {
	cfg := testConfig()
	cfg.EscalateOverdue = true
	st := store.New(plant(), nil)
	r := newTestReconciler(t, cfg, Deps{Store: st})

	_, err := r.Scan(context.Background())
	require.NoError(t, err)

	snap := st.Snapshot()
	o1, _ := snap.Order("O1")
	o3, _ := snap.Order("O3")
	o4, _ := snap.Order("O4")
	assert.Equal(t, models.StatusCriticalDelay, o1.Status)
	assert.Equal(t, models.StatusInProgress, o3.Status)
	assert.Equal(t, models.StatusPlanned, o4.Status)
}

type countingMetrics struct{ calls atomic.Int32 }

func (c *countingMetrics) Current(context.Context) metrics.Snapshot {
	c.calls.Add(1)
	return metrics.Snapshot{Metrics: models.DefaultMetrics()}
}

func TestRunOnceBacksOffWhileOptimizing(t *testing.T) {
	busy := &busyFor{}
	busy.remaining.Store(3)
	refresher := &countingMetrics{}
	r := newTestReconciler(t, testConfig(), Deps{Busy: busy, Metrics: refresher})

	_, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Less(t, busy.remaining.Load(), int32(0))
}

func TestRunOnceStopsWhenCancelled(t *testing.T) {
	busy := &busyFor{}
	busy.remaining.Store(1 << 30)
	refresher := &countingMetrics{}
	r := newTestReconciler(t, testConfig(), Deps{Busy: busy, Metrics: refresher})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.RunOnce(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, refresher.calls.Load())
}

func TestScanRejectsConcurrentScan(t *testing.T) {
	r := newTestReconciler(t, testConfig(), Deps{})
	r.state.Store(int32(Scanning))

	_, err := r.Scan(context.Background())
	assert.ErrorIs(t, err, ErrScanInProgress)
}

func TestStartRunsScansAndStops(t *testing.T) {
	refresher := &countingMetrics{}
	r := newTestReconciler(t, testConfig(), Deps{Metrics: refresher})

	require.NoError(t, r.Start())
	require.Eventually(t, func() bool { return refresher.calls.Load() > 0 }, 3*time.Second, 20*time.Millisecond)

	r.Stop()
	r.Stop()
	assert.Equal(t, Idle, r.State())
}

func TestStartRejectsBadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Schedule = "every so often"
	r := newTestReconciler(t, cfg, Deps{})

	assert.Error(t, r.Start())
}
