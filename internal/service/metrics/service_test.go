package metrics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
)

type fakeHistory struct {
	mu      sync.Mutex
	records []models.MetricsRecord
	err     error
}

func (f *fakeHistory) SaveMetricsSnapshot(_ context.Context, record models.MetricsRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func newTestService(t *testing.T, state store.State, history HistoryWriter) *Service {
	t.Helper()
	svc := NewService(store.New(state, nil), nil, telemetry.NewCollector(prometheus.NewRegistry()), history, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestCurrentRecordsHistory(t *testing.T) {
	history := &fakeHistory{}
	svc := newTestService(t, store.DemoState(now), history)

	snap := svc.Current(context.Background())

	assert.False(t, snap.Fallback)
	assert.Equal(t, now, snap.ComputedAt)
	assert.Equal(t, 5, snap.Metrics.ActiveLines)
	require.Len(t, history.records, 1)
	assert.Equal(t, snap.Metrics, history.records[0].Metrics)
}

func TestCurrentFallsBackOnEmptyStore(t *testing.T) {
	svc := newTestService(t, store.State{}, nil)

	snap := svc.Current(context.Background())

	assert.True(t, snap.Fallback)
	assert.Equal(t, models.DefaultMetrics(), snap.Metrics)
}

func TestCurrentIgnoresHistoryFailure(t *testing.T) {
	history := &fakeHistory{err: errors.New("mongo down")}
	svc := newTestService(t, store.DemoState(now), history)

	snap := svc.Current(context.Background())

	assert.Equal(t, 8, snap.Metrics.TotalOrders)
	assert.Len(t, history.records, 1)
}

func TestReport(t *testing.T) {
	svc := newTestService(t, store.DemoState(now), nil)

	report := svc.Report(context.Background())

	assert.Equal(t, "Good", report.Rating)
	assert.Equal(t, 8, report.Orders.Total)
	assert.InDelta(t, 50.0, report.Metrics.OnTimeDelivery, 1e-9)
	assert.Contains(t, report.Recommendations, "Prioritize critical orders for expedited processing")
	assert.Contains(t, report.Recommendations, "Improve delivery performance - review scheduling")
}
