package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// Scheduling outcomes used as label values.
const (
	OutcomeScheduled   = "scheduled"
	OutcomeNoLine      = "no_compatible_line"
	OutcomeBadDuration = "invalid_duration"
	OutcomeOverlap     = "overlap"
	OutcomeRejected    = "rejected"
)

// Collector exposes planner KPIs and activity counters to Prometheus.
// A nil *Collector is valid and records nothing.
type Collector struct {
	efficiency     prometheus.Gauge
	onTime         prometheus.Gauge
	utilization    prometheus.Gauge
	throughput     prometheus.Gauge
	activeLines    prometheus.Gauge
	overdueOrders  prometheus.Gauge
	lineUtil       *prometheus.GaugeVec
	scheduling     *prometheus.CounterVec
	scans          prometheus.Counter
	anomalies      *prometheus.CounterVec
	optimizations  prometheus.Counter
	correctionErrs prometheus.Counter

	gatherer prometheus.Gatherer
}

// NewCollector creates the collector and registers it with reg. When reg is
// nil a private registry is used.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	c := &Collector{
		efficiency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lineplan_efficiency_ratio",
			Help: "Penalty adjusted mean efficiency of active lines",
		}),
		onTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lineplan_on_time_delivery_percent",
			Help: "Share of orders expected to ship on time",
		}),
		utilization: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lineplan_line_utilization_percent",
			Help: "Mean utilization of active lines over the forward window",
		}),
		throughput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lineplan_throughput_units_per_day",
			Help: "Estimated daily output",
		}),
		activeLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lineplan_active_lines",
			Help: "Number of lines in Active status",
		}),
		overdueOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "lineplan_overdue_orders",
			Help: "Orders past due and not completed",
		}),
		lineUtil: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lineplan_line_utilization_by_line_percent",
			Help: "Utilization per line observed by the reconciler",
		}, []string{"line"}),
		scheduling: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lineplan_scheduling_attempts_total",
			Help: "Scheduling attempts by outcome",
		}, []string{"outcome"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lineplan_reconciler_scans_total",
			Help: "Completed background reconciler scans",
		}),
		anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lineplan_reconciler_anomalies_total",
			Help: "Anomalies detected by the reconciler",
		}, []string{"kind"}),
		optimizations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lineplan_optimization_runs_total",
			Help: "Optimization runs applied",
		}),
		correctionErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lineplan_reconciler_correction_failures_total",
			Help: "Corrective actions that failed and were skipped",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		c.efficiency, c.onTime, c.utilization, c.throughput, c.activeLines, c.overdueOrders,
		c.lineUtil, c.scheduling, c.scans, c.anomalies, c.optimizations, c.correctionErrs,
	)

	return c
}

// ObserveMetrics publishes a metrics snapshot.
func (c *Collector) ObserveMetrics(m models.ProductionMetrics) {
	if c == nil {
		return
	}
	c.efficiency.Set(m.Efficiency)
	c.onTime.Set(m.OnTimeDelivery)
	c.utilization.Set(m.LineUtilization)
	c.throughput.Set(float64(m.Throughput))
	c.activeLines.Set(float64(m.ActiveLines))
	c.overdueOrders.Set(float64(m.OverdueOrders))
}

// ObserveLineUtilization publishes one line's utilization.
func (c *Collector) ObserveLineUtilization(line models.LineID, pct float64) {
	if c == nil {
		return
	}
	c.lineUtil.WithLabelValues(string(line)).Set(pct)
}

// RecordScheduling counts a scheduling attempt.
func (c *Collector) RecordScheduling(outcome string) {
	if c == nil {
		return
	}
	c.scheduling.WithLabelValues(outcome).Inc()
}

// RecordScan counts a reconciler scan.
func (c *Collector) RecordScan() {
	if c == nil {
		return
	}
	c.scans.Inc()
}

// RecordAnomaly counts a detected anomaly.
func (c *Collector) RecordAnomaly(kind string) {
	if c == nil {
		return
	}
	c.anomalies.WithLabelValues(kind).Inc()
}

// RecordOptimization counts an applied optimization run.
func (c *Collector) RecordOptimization() {
	if c == nil {
		return
	}
	c.optimizations.Inc()
}

// RecordCorrectionFailure counts a swallowed corrective action failure.
func (c *Collector) RecordCorrectionFailure() {
	if c == nil {
		return
	}
	c.correctionErrs.Inc()
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(c.gatherer, promhttp.HandlerOpts{})
}
