package sheets

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
)

// Sheet ranges holding the planning tables. Row 1 carries the header.
const (
	LinesRange    = "Lines!A1:K"
	OrdersRange   = "Orders!A1:N"
	ScheduleRange = "Schedule!A1:J"
)

// Tables loads and saves the line, order and schedule tables.
type Tables struct {
	repo   Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewTables wraps repo. Dates without a zone are read in loc.
func NewTables(repo Repository, loc *time.Location, logger *zap.Logger) *Tables {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Tables{repo: repo, loc: loc, logger: logger}
}

// Load reads all three tables. Rows that fail to decode are skipped and
// logged; schedule entries that would overlap an earlier booking are dropped.
func (t *Tables) Load(ctx context.Context) (store.State, error) {
	var state store.State

	lineRows, err := t.readRows(ctx, LinesRange)
	if err != nil {
		return state, err
	}
	for i, r := range lineRows {
		line, err := decodeLine(r, t.loc)
		if err != nil {
			t.skip(LinesRange, i, err)
			continue
		}
		state.Lines = append(state.Lines, line)
	}

	orderRows, err := t.readRows(ctx, OrdersRange)
	if err != nil {
		return state, err
	}
	for i, r := range orderRows {
		order, err := decodeOrder(r, t.loc)
		if err != nil {
			t.skip(OrdersRange, i, err)
			continue
		}
		state.Orders = append(state.Orders, order)
	}

	entryRows, err := t.readRows(ctx, ScheduleRange)
	if err != nil {
		return state, err
	}
	for i, r := range entryRows {
		entry, err := decodeEntry(r, t.loc)
		if err != nil {
			t.skip(ScheduleRange, i, err)
			continue
		}
		if clash, ok := overlapping(state.Schedule, entry); ok {
			t.skip(ScheduleRange, i, &models.OverlapInvariantError{LineID: entry.LineID, ExistingID: clash, Start: entry.Start, End: entry.End})
			continue
		}
		state.Schedule = append(state.Schedule, entry)
	}

	t.logger.Info("planning tables loaded",
		zap.Int("lines", len(state.Lines)),
		zap.Int("orders", len(state.Orders)),
		zap.Int("schedule", len(state.Schedule)))
	return state, nil
}

// Save rewrites all three tables. Every table is attempted; failures are combined.
func (t *Tables) Save(ctx context.Context, state store.State) error {
	lines := [][]interface{}{lineHeader}
	for _, l := range state.Lines {
		lines = append(lines, encodeLine(l))
	}
	orders := [][]interface{}{orderHeader}
	for _, o := range state.Orders {
		orders = append(orders, encodeOrder(o))
	}
	entries := [][]interface{}{scheduleHeader}
	for _, e := range state.Schedule {
		entries = append(entries, encodeEntry(e))
	}

	err := multierr.Combine(
		t.writeTable(ctx, LinesRange, lines),
		t.writeTable(ctx, OrdersRange, orders),
		t.writeTable(ctx, ScheduleRange, entries),
	)
	if err != nil {
		return fmt.Errorf("save planning tables: %w", err)
	}

	t.logger.Debug("planning tables saved", zap.Uint64("revision", state.Revision))
	return nil
}

func (t *Tables) writeTable(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if err := t.repo.ClearRange(ctx, sheetRange); err != nil {
		return err
	}
	return t.repo.WriteRange(ctx, sheetRange, rows)
}

func (t *Tables) readRows(ctx context.Context, sheetRange string) ([]row, error) {
	values, err := t.repo.ReadRange(ctx, sheetRange)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", sheetRange, err)
	}
	out := make([]row, 0, len(values))
	for i, v := range values {
		r := row(v)
		if i == 0 && isHeader(r) {
			continue
		}
		if r.str(0) == "" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func isHeader(r row) bool {
	switch r.str(0) {
	case "LineID", "OrderID", "ScheduleID":
		return true
	}
	return false
}

func (t *Tables) skip(sheetRange string, index int, err error) {
	t.logger.Warn("skipping invalid row", zap.String("range", sheetRange), zap.Int("row", index), zap.Error(err))
}

func overlapping(schedule []models.ScheduleEntry, entry models.ScheduleEntry) (string, bool) {
	if !entry.Booked() {
		return "", false
	}
	for _, e := range schedule {
		if e.LineID == entry.LineID && e.Booked() && e.Overlaps(entry.Start, entry.End) {
			return e.ID, true
		}
	}
	return "", false
}
