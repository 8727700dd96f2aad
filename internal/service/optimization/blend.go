package optimization

import (
	"math"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// blend weighs the four sliders for one target KPI.
type blend struct {
	delays, efficiency, balance, setup float64
}

func (b blend) factor(w models.OptimizationWeights) float64 {
	return b.delays*w.MinimizeDelays + b.efficiency*w.MaximizeEfficiency + b.balance*w.BalanceWorkload + b.setup*w.MinimizeSetup
}

var (
	efficiencyBlend  = blend{delays: 0.25, efficiency: 0.40, balance: 0.20, setup: 0.15}
	onTimeBlend      = blend{delays: 0.50, efficiency: 0.20, balance: 0.25, setup: 0.05}
	utilizationBlend = blend{delays: 0.15, efficiency: 0.25, balance: 0.45, setup: 0.15}
	throughputBlend  = blend{delays: 0.10, efficiency: 0.35, balance: 0.20, setup: 0.35}
)

// Maximum achievable gains and result ceilings. Percentages are points.
const (
	maxEfficiencyGain  = 25.0
	maxOnTimeGain      = 23.0
	maxUtilizationGain = 35.0
	maxThroughputGain  = 1400.0

	efficiencyCeiling  = 0.98
	onTimeCeiling      = 98.0
	utilizationCeiling = 85.0
	lineEfficiencyCap  = 0.98
)

// CalculateImprovements maps the sliders to absolute KPI deltas. Sliders are
// clamped into [0,1] first.
func CalculateImprovements(w models.OptimizationWeights) models.Improvements {
	w = w.Clamp()
	return models.Improvements{
		Efficiency:  efficiencyBlend.factor(w) * maxEfficiencyGain,
		OnTime:      onTimeBlend.factor(w) * maxOnTimeGain,
		Utilization: utilizationBlend.factor(w) * maxUtilizationGain,
		Throughput:  throughputBlend.factor(w) * maxThroughputGain,
	}
}

// Apply returns the snapshot obtained by adding the improvements for w to
// baseline. All-zero sliders return baseline unchanged. The result depends
// only on w and baseline.
func Apply(w models.OptimizationWeights, baseline models.ProductionMetrics) models.ProductionMetrics {
	if w.IsZero() {
		return baseline
	}
	imp := CalculateImprovements(w)

	out := baseline
	out.Efficiency = math.Min(efficiencyCeiling, baseline.Efficiency+imp.Efficiency/100)
	out.OnTimeDelivery = math.Min(onTimeCeiling, baseline.OnTimeDelivery+imp.OnTime)
	out.LineUtilization = math.Min(utilizationCeiling, baseline.LineUtilization+imp.Utilization)
	out.Throughput = baseline.Throughput + int(imp.Throughput)

	out.OverdueOrders = baseline.OverdueOrders - int(math.Floor(imp.OnTime/10))
	if out.OverdueOrders < 0 {
		out.OverdueOrders = 0
	}
	return out
}

// RescaledLineEfficiency is the per-line efficiency consistent with result.
func RescaledLineEfficiency(result, baseline models.ProductionMetrics) float64 {
	if baseline.Efficiency <= 0 {
		return models.BaselineLineEfficiency
	}
	return math.Min(lineEfficiencyCap, models.BaselineLineEfficiency*(result.Efficiency/baseline.Efficiency))
}
