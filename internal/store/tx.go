package store

import (
	"fmt"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// Tx is the write handle passed to Update. It must not escape the callback.
type Tx struct {
	state *State
}

// State exposes the working copy for reads.
func (tx *Tx) State() State {
	return *tx.state
}

// Line returns a mutable pointer to the line with the given id.
func (tx *Tx) Line(id models.LineID) (*models.ProductionLine, error) {
	for i := range tx.state.Lines {
		if tx.state.Lines[i].ID == id {
			return &tx.state.Lines[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrLineNotFound, id)
}

// Order returns a mutable pointer to the order with the given id.
func (tx *Tx) Order(id models.OrderID) (*models.Order, error) {
	for i := range tx.state.Orders {
		if tx.state.Orders[i].ID == id {
			return &tx.state.Orders[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
}

// Entry returns a mutable pointer to the schedule entry with the given id.
func (tx *Tx) Entry(id string) (*models.ScheduleEntry, bool) {
	for i := range tx.state.Schedule {
		if tx.state.Schedule[i].ID == id {
			return &tx.state.Schedule[i], true
		}
	}
	return nil, false
}

// LiveEntryForOrder returns the booked entry of an order, if any.
func (tx *Tx) LiveEntryForOrder(id models.OrderID) (*models.ScheduleEntry, bool) {
	for i := range tx.state.Schedule {
		e := &tx.state.Schedule[i]
		if e.OrderID == id && e.Booked() {
			return e, true
		}
	}
	return nil, false
}

// AddLine inserts a validated line.
func (tx *Tx) AddLine(line models.ProductionLine) error {
	if err := line.Validate(); err != nil {
		return err
	}
	if _, ok := tx.state.Line(line.ID); ok {
		return fmt.Errorf("%w: line %s", models.ErrDuplicateID, line.ID)
	}
	tx.state.Lines = append(tx.state.Lines, line.Clone())
	return nil
}

// AddOrder inserts a validated order.
func (tx *Tx) AddOrder(order models.Order) error {
	if err := order.Validate(); err != nil {
		return err
	}
	if _, ok := tx.state.Order(order.ID); ok {
		return fmt.Errorf("%w: order %s", models.ErrDuplicateID, order.ID)
	}
	tx.state.Orders = append(tx.state.Orders, order)
	return nil
}

// AddEntry inserts a schedule entry. A booked entry that intersects another
// booked entry on the same line is rejected with *models.OverlapInvariantError.
func (tx *Tx) AddEntry(entry models.ScheduleEntry) error {
	if _, ok := tx.Entry(entry.ID); ok {
		return fmt.Errorf("%w: schedule entry %s", models.ErrDuplicateID, entry.ID)
	}
	if !entry.End.After(entry.Start) {
		return fmt.Errorf("schedule entry %s: end must be after start", entry.ID)
	}
	if entry.Booked() {
		for _, e := range tx.state.Schedule {
			if e.LineID == entry.LineID && e.Booked() && e.Overlaps(entry.Start, entry.End) {
				return &models.OverlapInvariantError{
					LineID:     entry.LineID,
					ExistingID: e.ID,
					Start:      entry.Start,
					End:        entry.End,
				}
			}
		}
	}
	tx.state.Schedule = append(tx.state.Schedule, entry.Clone())
	return nil
}

// OpenEntryForOrder returns the order's latest entry that has not completed.
func (tx *Tx) OpenEntryForOrder(id models.OrderID) (*models.ScheduleEntry, bool) {
	var found *models.ScheduleEntry
	for i := range tx.state.Schedule {
		e := &tx.state.Schedule[i]
		if e.OrderID != id || e.Status == models.StatusCompleted {
			continue
		}
		if found == nil || e.Start.After(found.Start) {
			found = e
		}
	}
	return found, found != nil
}

// SetEntryStatus moves an entry to status. Re-booking a released interval is
// rejected with *models.OverlapInvariantError when another booking took it.
func (tx *Tx) SetEntryStatus(entryID string, status models.OrderStatus) error {
	entry, ok := tx.Entry(entryID)
	if !ok {
		return fmt.Errorf("schedule entry %s not found", entryID)
	}
	next := *entry
	next.Status = status
	if next.Booked() && !entry.Booked() {
		for _, e := range tx.state.Schedule {
			if e.ID != entry.ID && e.LineID == entry.LineID && e.Booked() && e.Overlaps(entry.Start, entry.End) {
				return &models.OverlapInvariantError{
					LineID:     entry.LineID,
					ExistingID: e.ID,
					Start:      entry.Start,
					End:        entry.End,
				}
			}
		}
	}
	entry.Status = status
	return nil
}
