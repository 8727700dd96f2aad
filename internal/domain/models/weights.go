package models

import (
	"fmt"
	"math"
)

// OptimizationWeights are four independent sliders in [0,1]; they need not sum to 1.
type OptimizationWeights struct {
	MinimizeDelays     float64 `json:"minimize_delays" yaml:"minimize_delays" bson:"minimize_delays"`
	MaximizeEfficiency float64 `json:"maximize_efficiency" yaml:"maximize_efficiency" bson:"maximize_efficiency"`
	BalanceWorkload    float64 `json:"balance_workload" yaml:"balance_workload" bson:"balance_workload"`
	MinimizeSetup      float64 `json:"minimize_setup" yaml:"minimize_setup_time" bson:"minimize_setup"`
}

// IsZero reports whether every slider is exactly zero.
func (w OptimizationWeights) IsZero() bool {
	return w.MinimizeDelays == 0 && w.MaximizeEfficiency == 0 && w.BalanceWorkload == 0 && w.MinimizeSetup == 0
}

// Validate rejects sliders outside [0,1].
func (w OptimizationWeights) Validate() error {
	for name, v := range map[string]float64{
		"minimize_delays":     w.MinimizeDelays,
		"maximize_efficiency": w.MaximizeEfficiency,
		"balance_workload":    w.BalanceWorkload,
		"minimize_setup":      w.MinimizeSetup,
	} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%s must be within [0,1], got %v", name, v)
		}
	}
	return nil
}

// Clamp forces every slider into [0,1]; NaN becomes 0.
func (w OptimizationWeights) Clamp() OptimizationWeights {
	return OptimizationWeights{
		MinimizeDelays:     clampUnit(w.MinimizeDelays),
		MaximizeEfficiency: clampUnit(w.MaximizeEfficiency),
		BalanceWorkload:    clampUnit(w.BalanceWorkload),
		MinimizeSetup:      clampUnit(w.MinimizeSetup),
	}
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Improvements holds absolute KPI deltas produced by an optimization run.
// Efficiency, OnTime and Utilization are in percentage points.
type Improvements struct {
	Efficiency  float64 `json:"efficiency_gain" bson:"efficiency_gain"`
	OnTime      float64 `json:"on_time_gain" bson:"on_time_gain"`
	Utilization float64 `json:"utilization_gain" bson:"utilization_gain"`
	Throughput  float64 `json:"throughput_gain" bson:"throughput_gain"`
}

// Overall is the mean of the four deltas, as reported to operators.
func (i Improvements) Overall() float64 {
	return (i.Efficiency + i.OnTime + i.Utilization + i.Throughput) / 4
}
