package planning

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/metrics"
	"github.com/mamadbah2/lineplan/internal/store"
)

func newTestService(t *testing.T, state store.State, rules models.Rules) (*Service, *store.Store) {
	t.Helper()
	st := store.New(state, nil)
	svc := NewService(st, rules, metrics.NewEngine(nil), nil, nil)
	svc.now = func() time.Time { return now }
	return svc, st
}

func assertNoOverlap(t *testing.T, schedule []models.ScheduleEntry) {
	t.Helper()
	for i, a := range schedule {
		for _, b := range schedule[i+1:] {
			if a.LineID != b.LineID || !a.Booked() || !b.Booked() {
				continue
			}
			require.False(t, a.Overlaps(b.Start, b.End), "%s and %s overlap on %s", a.ID, b.ID, a.LineID)
		}
	}
}

func TestScheduleOrder(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())

	entry, err := svc.ScheduleOrder(context.Background(), "ORD-2025-007")
	require.NoError(t, err)

	assert.Contains(t, []models.LineID{"LINE-B02", "LINE-C01", "LINE-C02"}, entry.LineID)
	assert.Equal(t, models.CreatedByAutoScheduler, entry.CreatedBy)
	assert.Equal(t, 10*time.Hour, entry.End.Sub(entry.Start))
	assert.False(t, entry.Start.Before(now))

	snap := st.Snapshot()
	order, _ := snap.Order("ORD-2025-007")
	assert.Equal(t, entry.LineID, order.AssignedLine)
	assert.Equal(t, models.StatusScheduled, order.Status)
	assert.Len(t, snap.Schedule, 6)
	assertNoOverlap(t, snap.Schedule)
}

func TestScheduleOrderRejectsPrecisionWithoutLines(t *testing.T) {
	state := store.DemoState(now)
	for i := range state.Lines {
		switch state.Lines[i].ID {
		case "LINE-B02", "LINE-C01", "LINE-C02":
			state.Lines[i].Status = models.LineInactive
		}
	}
	svc, st := newTestService(t, state, models.DefaultRules())
	before := st.Snapshot()

	_, err := svc.ScheduleOrder(context.Background(), "ORD-2025-007")

	var noLine *models.NoCompatibleLineError
	require.True(t, errors.As(err, &noLine))
	assert.Equal(t, "Precision", noLine.Category)
	assert.ErrorIs(t, err, models.ErrNoCompatibleLine)

	after := st.Snapshot()
	assert.Equal(t, before.Schedule, after.Schedule)
	assert.Equal(t, before.Orders, after.Orders)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestScheduleOrderRejectsInvalidDuration(t *testing.T) {
	state := store.DemoState(now)
	state.Orders[6].EstimatedHours = 0
	svc, st := newTestService(t, state, models.DefaultRules())

	_, err := svc.ScheduleOrder(context.Background(), "ORD-2025-007")

	assert.ErrorIs(t, err, models.ErrInvalidDuration)
	order, _ := st.Snapshot().Order("ORD-2025-007")
	assert.True(t, order.Unassigned())
	assert.Len(t, st.Snapshot().Schedule, 5)
}

func TestScheduleOrderGuards(t *testing.T) {
	state := store.DemoState(now)
	state.Orders[7].Status = models.StatusCompleted
	svc, _ := newTestService(t, state, models.DefaultRules())

	_, err := svc.ScheduleOrder(context.Background(), "ORD-2025-001")
	assert.ErrorIs(t, err, models.ErrAlreadyScheduled)

	_, err = svc.ScheduleOrder(context.Background(), "ORD-2025-008")
	assert.ErrorIs(t, err, models.ErrOrderClosed)

	_, err = svc.ScheduleOrder(context.Background(), "ORD-1999-001")
	assert.ErrorIs(t, err, models.ErrOrderNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.ScheduleOrder(ctx, "ORD-2025-007")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScheduleOrderOnLine(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())
	ctx := context.Background()

	// SCH-002 holds LINE-B02 from +2h to +8h.
	_, err := svc.ScheduleOrderOnLine(ctx, "ORD-2025-007", "LINE-B02", now.Add(3*time.Hour))
	var overlap *models.OverlapInvariantError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, "SCH-002", overlap.ExistingID)
	order, _ := st.Snapshot().Order("ORD-2025-007")
	assert.True(t, order.Unassigned())

	_, err = svc.ScheduleOrderOnLine(ctx, "ORD-2025-007", "LINE-A01", time.Time{})
	assert.ErrorIs(t, err, models.ErrNoCompatibleLine)

	_, err = svc.ScheduleOrderOnLine(ctx, "ORD-2025-007", "LINE-Z99", time.Time{})
	assert.ErrorIs(t, err, models.ErrLineNotFound)

	entry, err := svc.ScheduleOrderOnLine(ctx, "ORD-2025-007", "LINE-B02", time.Time{})
	require.NoError(t, err)
	assert.Equal(t, now.Add(8*time.Hour), entry.Start)
	assert.Equal(t, models.CreatedByManual, entry.CreatedBy)
	assertNoOverlap(t, st.Snapshot().Schedule)
}

func TestAutoSchedule(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())

	result := svc.AutoSchedule(context.Background(), 0)

	require.NoError(t, result.Err())
	require.Len(t, result.Scheduled, 2)
	assert.Equal(t, models.OrderID("ORD-2025-007"), result.Scheduled[0].OrderID)
	assert.Equal(t, models.OrderID("ORD-2025-008"), result.Scheduled[1].OrderID)
	assert.Empty(t, result.Failures)
	assertNoOverlap(t, st.Snapshot().Schedule)
}

func TestAutoScheduleContinuesPastFailures(t *testing.T) {
	state := store.DemoState(now)
	state.Orders[6].EstimatedHours = -1
	svc, _ := newTestService(t, state, models.DefaultRules())

	result := svc.AutoSchedule(context.Background(), 0)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, models.OrderID("ORD-2025-007"), result.Failures[0].OrderID)
	require.Len(t, result.Scheduled, 1)
	assert.Equal(t, models.OrderID("ORD-2025-008"), result.Scheduled[0].OrderID)
	assert.ErrorIs(t, result.Err(), models.ErrInvalidDuration)
}

func TestAutoScheduleLimit(t *testing.T) {
	svc, _ := newTestService(t, store.DemoState(now), models.DefaultRules())

	result := svc.AutoSchedule(context.Background(), 1)

	assert.Len(t, result.Scheduled, 1)
}

func TestSchedulingPreservesNoOverlap(t *testing.T) {
	rules := models.Rules{
		LineCompatibility: map[string][]models.LineID{
			"Electronics": {"L1", "L2"},
			"Package":     {"L3"},
		},
	}
	state := store.State{Lines: []models.ProductionLine{
		{ID: "L1", Status: models.LineActive, Efficiency: 0.8, Capacity: 40},
		{ID: "L2", Status: models.LineActive, Efficiency: 0.9, Capacity: 30},
		{ID: "L3", Status: models.LineActive, Efficiency: 0.7, Capacity: 60},
	}}
	rng := rand.New(rand.NewSource(99))
	categories := []string{"Electronics", "Package"}
	for i := 0; i < 60; i++ {
		state.Orders = append(state.Orders, models.Order{
			ID:             models.OrderID(fmt.Sprintf("ORD-2025-%03d", i+1)),
			Category:       categories[rng.Intn(len(categories))],
			Quantity:       10,
			Priority:       models.PriorityMedium,
			Status:         models.StatusPlanned,
			DueDate:        now.AddDate(0, 0, 30),
			EstimatedHours: float64(1+rng.Intn(40)) / 2,
		})
	}
	svc, st := newTestService(t, state, rules)

	var wg sync.WaitGroup
	for i := range state.Orders {
		wg.Add(1)
		go func(id models.OrderID) {
			defer wg.Done()
			_, err := svc.ScheduleOrder(context.Background(), id)
			assert.NoError(t, err)
		}(state.Orders[i].ID)
	}
	wg.Wait()

	snap := st.Snapshot()
	assert.Len(t, snap.Schedule, 60)
	assertNoOverlap(t, snap.Schedule)
	for _, o := range snap.Orders {
		assert.Equal(t, models.StatusScheduled, o.Status)
		assert.False(t, o.Unassigned())
	}
}

func TestUpdateProgress(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())
	ctx := context.Background()

	order, err := svc.UpdateProgress(ctx, "ORD-2025-004", 30, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, order.Status)
	entry := findEntry(t, st.Snapshot(), "SCH-004")
	assert.Equal(t, models.StatusInProgress, entry.Status)
	require.NotNil(t, entry.ActualStart)
	assert.Equal(t, now, *entry.ActualStart)

	order, err = svc.UpdateProgress(ctx, "ORD-2025-004", 100, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, order.Status)
	entry = findEntry(t, st.Snapshot(), "SCH-004")
	assert.Equal(t, models.StatusCompleted, entry.Status)
	require.NotNil(t, entry.ActualEnd)
}

func TestUpdateProgressRules(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())
	ctx := context.Background()

	_, err := svc.UpdateProgress(ctx, "ORD-2025-002", 10, "")
	assert.ErrorIs(t, err, models.ErrProgressRegression)

	_, err = svc.UpdateProgress(ctx, "ORD-2025-002", 120, "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.UpdateProgress(ctx, "ORD-2025-002", 50, "Paused")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	order, err := svc.UpdateProgress(ctx, "ORD-2025-002", 10, models.StatusOnHold)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOnHold, order.Status)
	assert.Equal(t, models.StatusOnHold, findEntry(t, st.Snapshot(), "SCH-001").Status)

	order, err = svc.UpdateProgress(ctx, "ORD-2025-002", 20, models.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, findEntry(t, st.Snapshot(), "SCH-001").Status)
	assert.Equal(t, 20.0, order.Progress)
}

func TestUpdateProgressRejectsStatusWithoutBooking(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())
	ctx := context.Background()

	_, err := svc.UpdateProgress(ctx, "ORD-2025-007", 0, models.StatusScheduled)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.UpdateProgress(ctx, "ORD-2025-007", 0, models.StatusQueued)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.UpdateProgress(ctx, "ORD-2025-007", 10, models.StatusInProgress)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.UpdateProgress(ctx, "ORD-2025-002", 40, models.StatusScheduled)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	order, ok := st.Snapshot().Order("ORD-2025-007")
	require.True(t, ok)
	assert.Equal(t, models.StatusPlanned, order.Status)
	assert.Zero(t, order.Progress)

	result := svc.AutoSchedule(ctx, 0)
	require.NoError(t, result.Err())
	require.NotEmpty(t, result.Scheduled)
	assert.Equal(t, models.OrderID("ORD-2025-007"), result.Scheduled[0].OrderID)
}

func TestCreateOrder(t *testing.T) {
	svc, st := newTestService(t, store.DemoState(now), models.DefaultRules())
	ctx := context.Background()

	order, err := svc.CreateOrder(ctx, models.Order{
		ProductName:    "Sensor Array SA-9",
		Category:       "Electronics",
		Customer:       "Acme",
		Quantity:       120,
		EstimatedHours: 6,
		DueDate:        now.AddDate(0, 0, 14),
		Status:         models.StatusCompleted,
		AssignedLine:   "LINE-A01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.OrderID("ORD-2025-009"), order.ID)
	assert.Equal(t, models.StatusPlanned, order.Status)
	assert.Equal(t, models.PriorityMedium, order.Priority)
	assert.True(t, order.Unassigned())
	assert.Equal(t, now, order.OrderDate)
	assert.Len(t, st.Snapshot().Orders, 9)

	tests := []struct {
		name  string
		order models.Order
	}{
		{"short name", models.Order{ProductName: "X", Customer: "Acme", Category: "Heavy", Quantity: 1, EstimatedHours: 1, DueDate: now}},
		{"quantity", models.Order{ProductName: "Gearbox", Customer: "Acme", Category: "Heavy", Quantity: 20000, EstimatedHours: 1, DueDate: now}},
		{"hours", models.Order{ProductName: "Gearbox", Customer: "Acme", Category: "Heavy", Quantity: 5, EstimatedHours: 0, DueDate: now}},
		{"dependency", models.Order{ProductName: "Gearbox", Customer: "Acme", Category: "Heavy", Quantity: 5, EstimatedHours: 2, DueDate: now, DependsOn: "ORD-1999-001"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, tt.order)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestCreateLine(t *testing.T) {
	svc, _ := newTestService(t, store.DemoState(now), models.DefaultRules())
	ctx := context.Background()

	line, err := svc.CreateLine(ctx, models.ProductionLine{
		Name: "Assembly Line Gamma", Department: "Assembly", Capacity: 40,
		Efficiency: 0.8, ProductTypes: []string{"Electronics"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.LineID("LINE-A03"), line.ID)
	assert.Equal(t, models.LineActive, line.Status)

	_, err = svc.CreateLine(ctx, models.ProductionLine{ID: "LINE-A01", Name: "Dup", ProductTypes: []string{"Heavy"}})
	assert.ErrorIs(t, err, models.ErrDuplicateID)

	_, err = svc.CreateLine(ctx, models.ProductionLine{Name: "Bad", Efficiency: 1.5, ProductTypes: []string{"Heavy"}})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func findEntry(t *testing.T, state store.State, id string) models.ScheduleEntry {
	t.Helper()
	for _, e := range state.Schedule {
		if e.ID == id {
			return e
		}
	}
	t.Fatalf("schedule entry %s not found", id)
	return models.ScheduleEntry{}
}
