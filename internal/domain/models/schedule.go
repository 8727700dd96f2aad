package models

import "time"

// Schedule entry creator tags.
const (
	CreatedByAutoScheduler = "Auto-Scheduler"
	CreatedByManual        = "Manual"
	CreatedBySystem        = "System"
)

// ScheduleEntry is a committed assignment of an order to a line over [Start, End).
type ScheduleEntry struct {
	ID           string      `json:"id" bson:"schedule_id"`
	OrderID      OrderID     `json:"order_id" bson:"order_id"`
	LineID       LineID      `json:"line_id" bson:"line_id"`
	Start        time.Time   `json:"start" bson:"start"`
	End          time.Time   `json:"end" bson:"end"`
	Status       OrderStatus `json:"status" bson:"status"`
	ActualStart  *time.Time  `json:"actual_start,omitempty" bson:"actual_start,omitempty"`
	ActualEnd    *time.Time  `json:"actual_end,omitempty" bson:"actual_end,omitempty"`
	CreatedBy    string      `json:"created_by" bson:"created_by"`
	LastModified time.Time   `json:"last_modified" bson:"last_modified"`
}

// Booked reports whether the entry occupies its line.
func (e ScheduleEntry) Booked() bool {
	return e.Status == StatusScheduled || e.Status == StatusInProgress
}

// Overlaps reports whether [start, end) intersects the entry's interval.
func (e ScheduleEntry) Overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && start.Before(e.End)
}

// Hours returns the planned duration of the entry.
func (e ScheduleEntry) Hours() float64 {
	return e.End.Sub(e.Start).Hours()
}

// Clone returns a deep copy of the entry.
func (e ScheduleEntry) Clone() ScheduleEntry {
	out := e
	if e.ActualStart != nil {
		t := *e.ActualStart
		out.ActualStart = &t
	}
	if e.ActualEnd != nil {
		t := *e.ActualEnd
		out.ActualEnd = &t
	}
	return out
}
