package metrics

import (
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// OrderStats summarises the order table for reports.
type OrderStats struct {
	Total          int                        `json:"total"`
	Completed      int                        `json:"completed"`
	CompletionRate float64                    `json:"completion_rate"`
	InProgress     int                        `json:"in_progress"`
	Overdue        int                        `json:"overdue"`
	OverdueRate    float64                    `json:"overdue_rate"`
	Critical       int                        `json:"critical"`
	AvgProgress    float64                    `json:"avg_progress"`
	ByPriority     map[models.Priority]int    `json:"by_priority"`
	ByStatus       map[models.OrderStatus]int `json:"by_status"`
}

// OrderStatistics aggregates completion, progress and lateness over orders.
func OrderStatistics(orders []models.Order, now time.Time) OrderStats {
	stats := OrderStats{
		Total:      len(orders),
		ByPriority: make(map[models.Priority]int),
		ByStatus:   make(map[models.OrderStatus]int),
	}
	if len(orders) == 0 {
		return stats
	}

	var progress float64
	for _, o := range orders {
		switch {
		case o.Progress >= 100:
			stats.Completed++
		case o.Progress > 0:
			stats.InProgress++
		}
		if o.Overdue(now) {
			stats.Overdue++
		}
		if o.Priority == models.PriorityCritical {
			stats.Critical++
		}
		stats.ByPriority[o.Priority]++
		stats.ByStatus[o.Status]++
		progress += o.Progress
	}

	total := float64(stats.Total)
	stats.CompletionRate = float64(stats.Completed) / total * 100
	stats.OverdueRate = float64(stats.Overdue) / total * 100
	stats.AvgProgress = progress / total
	return stats
}

// PerformanceRating grades an efficiency percentage.
func PerformanceRating(efficiencyPct float64) string {
	switch {
	case efficiencyPct >= 90:
		return "Excellent"
	case efficiencyPct >= 80:
		return "Good"
	case efficiencyPct >= 70:
		return "Needs Improvement"
	default:
		return "Critical"
	}
}

// Recommendations lists operator actions for weak KPIs and order backlog.
func Recommendations(m models.ProductionMetrics, stats OrderStats) []string {
	var out []string
	if stats.Overdue > 0 {
		out = append(out, "Address overdue orders immediately")
	}
	if stats.Critical > 0 {
		out = append(out, "Prioritize critical orders for expedited processing")
	}
	if m.Efficiency*100 < 80 {
		out = append(out, "Focus on efficiency improvement - target 85%+")
	}
	if m.OnTimeDelivery < 90 {
		out = append(out, "Improve delivery performance - review scheduling")
	}
	if m.LineUtilization < 70 {
		out = append(out, "Increase line utilization - optimize workload distribution")
	}
	if len(out) == 0 {
		out = append(out, "Performance is strong - maintain current optimization levels")
	}
	return out
}
