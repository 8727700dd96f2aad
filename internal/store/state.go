package store

import (
	"sort"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// State is the combined {lines, orders, schedule} table set. Values handed
// out by the Store are private copies and may be read freely.
type State struct {
	Lines    []models.ProductionLine `json:"lines"`
	Orders   []models.Order          `json:"orders"`
	Schedule []models.ScheduleEntry  `json:"schedule"`
	Revision uint64                  `json:"revision"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := State{Revision: s.Revision}
	if s.Lines != nil {
		out.Lines = make([]models.ProductionLine, len(s.Lines))
		for i, l := range s.Lines {
			out.Lines[i] = l.Clone()
		}
	}
	if s.Orders != nil {
		out.Orders = append([]models.Order(nil), s.Orders...)
	}
	if s.Schedule != nil {
		out.Schedule = make([]models.ScheduleEntry, len(s.Schedule))
		for i, e := range s.Schedule {
			out.Schedule[i] = e.Clone()
		}
	}
	return out
}

// Line looks a line up by id.
func (s State) Line(id models.LineID) (models.ProductionLine, bool) {
	for _, l := range s.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return models.ProductionLine{}, false
}

// Order looks an order up by id.
func (s State) Order(id models.OrderID) (models.Order, bool) {
	for _, o := range s.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return models.Order{}, false
}

// EntriesForLine returns the line's entries sorted by start time.
func (s State) EntriesForLine(id models.LineID) []models.ScheduleEntry {
	return entriesForLine(s.Schedule, id)
}

func entriesForLine(schedule []models.ScheduleEntry, id models.LineID) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, e := range schedule {
		if e.LineID == id {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
