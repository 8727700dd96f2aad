package models

import "time"

// ProductionMetrics is a derived, non-authoritative KPI snapshot. Efficiency is
// a fraction in [0,1]; OnTimeDelivery and LineUtilization are percentages.
type ProductionMetrics struct {
	ActiveLines      int     `json:"active_lines" bson:"active_lines"`
	TotalCapacity    float64 `json:"total_capacity" bson:"total_capacity"`
	Efficiency       float64 `json:"efficiency" bson:"efficiency"`
	TotalOrders      int     `json:"total_orders" bson:"total_orders"`
	CriticalOrders   int     `json:"critical_orders" bson:"critical_orders"`
	InProgressOrders int     `json:"in_progress_orders" bson:"in_progress_orders"`
	AvgProgress      float64 `json:"avg_progress" bson:"avg_progress"`
	OverdueOrders    int     `json:"overdue_orders" bson:"overdue_orders"`
	OnTimeDelivery   float64 `json:"on_time_delivery" bson:"on_time_delivery"`
	LineUtilization  float64 `json:"line_utilization" bson:"line_utilization"`
	Throughput       int     `json:"throughput" bson:"throughput"`
}

// BaselineLineEfficiency is the per-line efficiency that corresponds to the
// baseline snapshot.
const BaselineLineEfficiency = 0.75

// DefaultMetrics is served whenever the line or order tables are missing or empty.
func DefaultMetrics() ProductionMetrics {
	return ProductionMetrics{
		ActiveLines:      5,
		TotalCapacity:    250,
		Efficiency:       0.78,
		TotalOrders:      8,
		CriticalOrders:   1,
		InProgressOrders: 2,
		AvgProgress:      35.0,
		OverdueOrders:    1,
		OnTimeDelivery:   82.5,
		LineUtilization:  65.2,
		Throughput:       2850,
	}
}

// BaselineMetrics is the fixed "no optimization applied" reference snapshot.
func BaselineMetrics() ProductionMetrics {
	return ProductionMetrics{
		ActiveLines:      5,
		TotalCapacity:    250,
		Efficiency:       0.68,
		TotalOrders:      8,
		CriticalOrders:   1,
		InProgressOrders: 2,
		AvgProgress:      35.0,
		OverdueOrders:    2,
		OnTimeDelivery:   72.0,
		LineUtilization:  45.0,
		Throughput:       1800,
	}
}

// MetricsRecord is a metrics snapshot persisted to the history store.
type MetricsRecord struct {
	Metrics    ProductionMetrics `bson:"metrics" json:"metrics"`
	Revision   uint64            `bson:"revision" json:"revision"`
	Fallback   bool              `bson:"fallback" json:"fallback"`
	ComputedAt time.Time         `bson:"computed_at" json:"computed_at"`
}

// OptimizationRecord captures one optimization run for the history store.
type OptimizationRecord struct {
	Weights      OptimizationWeights `bson:"weights" json:"weights"`
	Improvements Improvements        `bson:"improvements" json:"improvements"`
	Result       ProductionMetrics   `bson:"result" json:"result"`
	LinesUpdated int                 `bson:"lines_updated" json:"lines_updated"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
}
