package planning

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

var newEntryID = func() string {
	return "SCH-" + strings.ToUpper(uuid.NewString()[:8])
}

// NewScheduleEntry books order on line from start for the order's estimated
// duration.
func NewScheduleEntry(order models.Order, line models.ProductionLine, start time.Time, createdBy string, now time.Time) (models.ScheduleEntry, error) {
	if order.EstimatedHours <= 0 {
		return models.ScheduleEntry{}, &models.InvalidDurationError{OrderID: order.ID, Hours: order.EstimatedHours}
	}
	return models.ScheduleEntry{
		ID:           newEntryID(),
		OrderID:      order.ID,
		LineID:       line.ID,
		Start:        start,
		End:          start.Add(hoursToDuration(order.EstimatedHours)),
		Status:       models.StatusScheduled,
		CreatedBy:    createdBy,
		LastModified: now,
	}, nil
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
