package sheets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// OptimizationRunsRange receives one appended row per optimization run.
const OptimizationRunsRange = "OptimizationRuns!A:K"

// OptimizationLog appends optimization runs to a sheet. It is the history
// sink when the plant lives in Sheets and no MongoDB is configured.
type OptimizationLog struct {
	repo Repository
}

// NewOptimizationLog wraps repo.
func NewOptimizationLog(repo Repository) *OptimizationLog {
	return &OptimizationLog{repo: repo}
}

// SaveOptimizationRun appends the run as
// CreatedAt, four weights, efficiency, on-time, utilization, throughput,
// overall improvement, lines updated.
func (l *OptimizationLog) SaveOptimizationRun(ctx context.Context, record models.OptimizationRecord) error {
	row := []interface{}{
		record.CreatedAt.Format(time.RFC3339),
		formatFloat(record.Weights.MinimizeDelays),
		formatFloat(record.Weights.MaximizeEfficiency),
		formatFloat(record.Weights.BalanceWorkload),
		formatFloat(record.Weights.MinimizeSetup),
		formatFloat(record.Result.Efficiency),
		formatFloat(record.Result.OnTimeDelivery),
		formatFloat(record.Result.LineUtilization),
		strconv.Itoa(record.Result.Throughput),
		strconv.FormatFloat(record.Improvements.Overall(), 'f', 2, 64),
		strconv.Itoa(record.LinesUpdated),
	}
	if err := l.repo.WriteRow(ctx, OptimizationRunsRange, row); err != nil {
		return fmt.Errorf("append optimization run: %w", err)
	}
	return nil
}
