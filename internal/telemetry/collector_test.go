package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// valueOf returns the value of the metric family name whose labels include want.
func valueOf(t *testing.T, reg *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v != lp.GetValue() {
					continue metrics
				}
			}
			switch {
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s %v not found", name, want)
	return 0
}

func TestObserveMetricsSetsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ObserveMetrics(models.BaselineMetrics())

	assert.InDelta(t, 0.68, valueOf(t, reg, "lineplan_efficiency_ratio", nil), 1e-9)
	assert.InDelta(t, 72.0, valueOf(t, reg, "lineplan_on_time_delivery_percent", nil), 1e-9)
	assert.InDelta(t, 45.0, valueOf(t, reg, "lineplan_line_utilization_percent", nil), 1e-9)
	assert.InDelta(t, 1800, valueOf(t, reg, "lineplan_throughput_units_per_day", nil), 1e-9)
}

func TestCountersByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordScheduling(OutcomeScheduled)
	c.RecordScheduling(OutcomeScheduled)
	c.RecordScheduling(OutcomeNoLine)
	c.RecordAnomaly("overdue")
	c.RecordScan()

	assert.Equal(t, 2.0, valueOf(t, reg, "lineplan_scheduling_attempts_total", map[string]string{"outcome": OutcomeScheduled}))
	assert.Equal(t, 1.0, valueOf(t, reg, "lineplan_scheduling_attempts_total", map[string]string{"outcome": OutcomeNoLine}))
	assert.Equal(t, 1.0, valueOf(t, reg, "lineplan_reconciler_anomalies_total", map[string]string{"kind": "overdue"}))
	assert.Equal(t, 1.0, valueOf(t, reg, "lineplan_reconciler_scans_total", nil))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveMetrics(models.DefaultMetrics())
		c.ObserveLineUtilization("LINE-A01", 50)
		c.RecordScheduling(OutcomeOverlap)
		c.RecordScan()
		c.RecordAnomaly("underutilized")
		c.RecordOptimization()
		c.RecordCorrectionFailure()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector(nil)
	c.ObserveMetrics(models.DefaultMetrics())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lineplan_throughput_units_per_day 2850")
}
