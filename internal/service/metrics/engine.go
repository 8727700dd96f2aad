package metrics

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

const (
	hoursPerDay           = 16
	utilizationWindowDays = 7

	efficiencyFloor     = 0.60
	overduePenalty      = 0.02
	criticalIdlePenalty = 0.03

	onTimeCap          = 95.0
	onTrackProgress    = 50.0
	scheduledLeadDays  = 3
	utilizationFloor   = 35.0
	utilizationCeiling = 85.0

	setupLossFactor   = 0.85
	qualityLossFactor = 0.95
)

// Engine derives KPI snapshots from the planning tables. It holds no state
// and is safe for concurrent use.
type Engine struct {
	logger *zap.Logger
}

// NewEngine constructs a metrics engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Compute derives the headline KPIs. When either the line or the order table
// is empty the documented default snapshot is returned instead.
func (e *Engine) Compute(lines []models.ProductionLine, orders []models.Order, schedule []models.ScheduleEntry, now time.Time) models.ProductionMetrics {
	m, _ := e.compute(lines, orders, schedule, now)
	return m
}

func (e *Engine) compute(lines []models.ProductionLine, orders []models.Order, schedule []models.ScheduleEntry, now time.Time) (models.ProductionMetrics, bool) {
	if len(lines) == 0 || len(orders) == 0 {
		e.logger.Debug("planning tables empty, serving default metrics",
			zap.Int("lines", len(lines)), zap.Int("orders", len(orders)))
		return models.DefaultMetrics(), true
	}

	var m models.ProductionMetrics
	active := activeLines(lines)
	m.ActiveLines = len(active)
	for _, l := range active {
		m.TotalCapacity += l.Capacity
	}

	criticalIdle := 0
	var progressSum float64
	for _, o := range orders {
		if o.Overdue(now) {
			m.OverdueOrders++
		}
		if o.Priority == models.PriorityCritical {
			m.CriticalOrders++
			if o.Progress == 0 {
				criticalIdle++
			}
		}
		if o.Status == models.StatusInProgress {
			m.InProgressOrders++
		}
		progressSum += o.Progress
	}
	m.TotalOrders = len(orders)
	m.AvgProgress = progressSum / float64(len(orders))

	m.Efficiency = efficiency(active, m.OverdueOrders, criticalIdle)
	m.OnTimeDelivery = OnTimeDelivery(orders, now)

	if len(active) > 0 {
		var total float64
		for _, l := range active {
			total += e.LineUtilization(l, schedule, now)
		}
		m.LineUtilization = total / float64(len(active))
	}

	m.Throughput = Throughput(m.TotalCapacity, m.Efficiency, m.LineUtilization)
	return m, false
}

func activeLines(lines []models.ProductionLine) []models.ProductionLine {
	out := make([]models.ProductionLine, 0, len(lines))
	for _, l := range lines {
		if l.IsActive() {
			out = append(out, l)
		}
	}
	return out
}

// efficiency is the mean active-line efficiency minus operational penalties,
// kept within [0.60, 1.0].
func efficiency(active []models.ProductionLine, overdue, criticalIdle int) float64 {
	if len(active) == 0 {
		return efficiencyFloor
	}
	var sum float64
	for _, l := range active {
		sum += l.Efficiency
	}
	raw := sum/float64(len(active)) - float64(overdue)*overduePenalty - float64(criticalIdle)*criticalIdlePenalty
	return clamp(raw, efficiencyFloor, 1.0)
}

// OnTimeDelivery returns the percentage of orders on track to ship on time,
// capped at 95. Each order counts at most once.
func OnTimeDelivery(orders []models.Order, now time.Time) float64 {
	if len(orders) == 0 {
		return 0
	}
	leadCutoff := now.AddDate(0, 0, scheduledLeadDays)
	onTrack := 0
	for _, o := range orders {
		switch {
		case o.Progress >= 100 && !o.DueDate.Before(now):
			onTrack++
		case o.Status == models.StatusInProgress && o.DueDate.After(now) && o.Progress > onTrackProgress:
			onTrack++
		case o.Status == models.StatusScheduled && o.DueDate.After(leadCutoff):
			onTrack++
		}
	}
	return math.Min(onTimeCap, float64(onTrack)/float64(len(orders))*100)
}

// LineUtilization estimates the share of the line's available hours booked in
// the forward window, in [35, 85]. Lines without any schedule history fall
// back to an efficiency based estimate.
func (e *Engine) LineUtilization(line models.ProductionLine, schedule []models.ScheduleEntry, now time.Time) float64 {
	var hasHistory bool
	var hours float64
	windowEnd := now.AddDate(0, 0, utilizationWindowDays)

	for _, entry := range schedule {
		if entry.LineID != line.ID {
			continue
		}
		hasHistory = true
		if !entry.Booked() {
			continue
		}
		start, end := entry.Start, entry.End
		if start.Before(now) {
			start = now
		}
		if end.After(windowEnd) {
			end = windowEnd
		}
		if end.After(start) {
			hours += end.Sub(start).Hours()
		}
	}

	if !hasHistory {
		return clamp(40+line.Efficiency*40, utilizationFloor, utilizationCeiling)
	}

	available := float64(utilizationWindowDays * hoursPerDay)
	base := hours / available * 100
	if base <= 0 {
		return utilizationFloor
	}

	setup := math.Min(5, hours*0.1)
	maintenance := clamp(2+6*float64(line.SetupMinutes)/60, 2, 8)
	quality := math.Min(3, hours*0.05)

	return clamp(base-setup-maintenance-quality, utilizationFloor, utilizationCeiling)
}

// Throughput estimates daily output in whole units.
func Throughput(capacity, efficiency, utilizationPct float64) int {
	v := capacity * hoursPerDay * efficiency * (utilizationPct / 100) * setupLossFactor * qualityLossFactor
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return int(v)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
