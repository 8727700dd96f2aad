package planning

import (
	"sort"
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// NextAvailableSlot returns the earliest start at or after now where a job of
// the given duration fits on the line without touching a booked interval.
// With a zero duration the first free instant is returned.
func NextAvailableSlot(lineID models.LineID, schedule []models.ScheduleEntry, now time.Time, duration time.Duration) time.Time {
	var booked []models.ScheduleEntry
	for _, e := range schedule {
		if e.LineID == lineID && e.Booked() {
			booked = append(booked, e)
		}
	}
	sort.Slice(booked, func(i, j int) bool { return booked[i].Start.Before(booked[j].Start) })

	cursor := now
	for _, e := range booked {
		if !e.End.After(cursor) {
			continue
		}
		if cursor.Before(e.Start) && !cursor.Add(duration).After(e.Start) {
			return cursor
		}
		cursor = e.End
	}
	return cursor
}
