package planning

import (
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// UtilizationEstimator reports a line's forward utilization percentage.
type UtilizationEstimator interface {
	LineUtilization(line models.ProductionLine, schedule []models.ScheduleEntry, now time.Time) float64
}

// Score rates a line: low load first, then efficiency, then raw capacity.
func Score(line models.ProductionLine, utilizationPct float64) float64 {
	return 0.4*(1-utilizationPct/100) + 0.4*line.Efficiency + 0.2*(line.Capacity/100)
}

// Scorer ranks eligible lines using live utilization.
type Scorer struct {
	utilization UtilizationEstimator
}

// NewScorer returns a scorer backed by the given utilization estimator.
func NewScorer(utilization UtilizationEstimator) *Scorer {
	return &Scorer{utilization: utilization}
}

// Score rates line against the current schedule.
func (s *Scorer) Score(line models.ProductionLine, schedule []models.ScheduleEntry, now time.Time) float64 {
	return Score(line, s.utilization.LineUtilization(line, schedule, now))
}

// Best returns the highest scoring line. Equal scores go to the lowest line id.
func (s *Scorer) Best(lines []models.ProductionLine, schedule []models.ScheduleEntry, now time.Time) (models.ProductionLine, float64, bool) {
	var (
		best      models.ProductionLine
		bestScore float64
		found     bool
	)
	for _, l := range lines {
		score := s.Score(l, schedule, now)
		if !found || score > bestScore || (score == bestScore && l.ID < best.ID) {
			best, bestScore, found = l, score, true
		}
	}
	return best, bestScore, found
}
