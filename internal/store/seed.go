package store

import (
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

// DemoState builds the plant used when no external tables are configured:
// six lines, eight orders and five bookings anchored on now.
func DemoState(now time.Time) State {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	maint := func(t time.Time) *time.Time { return &t }

	lines := []models.ProductionLine{
		{ID: "LINE-A01", Name: "Assembly Line Alpha", Department: "Assembly", Capacity: 50, Status: models.LineActive, Efficiency: 0.87, OperatorCount: 3, SetupMinutes: 45, QualityCheckMinutes: 15, ProductTypes: []string{"Electronics", "Automotive"}, NextMaintenance: maint(day(2025, 8, 1))},
		{ID: "LINE-A02", Name: "Assembly Line Beta", Department: "Assembly", Capacity: 45, Status: models.LineActive, Efficiency: 0.92, OperatorCount: 3, SetupMinutes: 30, QualityCheckMinutes: 20, ProductTypes: []string{"Electronics", "Medical"}, NextMaintenance: maint(day(2025, 8, 5))},
		{ID: "LINE-B01", Name: "Machining Line 1", Department: "Machining", Capacity: 25, Status: models.LineMaintenance, Efficiency: 0.78, OperatorCount: 2, SetupMinutes: 60, QualityCheckMinutes: 25, ProductTypes: []string{"Automotive", "Heavy"}, NextMaintenance: maint(day(2025, 7, 30))},
		{ID: "LINE-B02", Name: "Machining Line 2", Department: "Machining", Capacity: 30, Status: models.LineActive, Efficiency: 0.85, OperatorCount: 2, SetupMinutes: 35, QualityCheckMinutes: 15, ProductTypes: []string{"Electronics", "Precision"}, NextMaintenance: maint(day(2025, 8, 10))},
		{ID: "LINE-C01", Name: "Packaging Line 1", Department: "Packaging", Capacity: 100, Status: models.LineActive, Efficiency: 0.94, OperatorCount: 2, SetupMinutes: 20, QualityCheckMinutes: 10, ProductTypes: []string{models.CategoryAll}, NextMaintenance: maint(day(2025, 8, 3))},
		{ID: "LINE-C02", Name: "Packaging Line 2", Department: "Packaging", Capacity: 85, Status: models.LineActive, Efficiency: 0.89, OperatorCount: 2, SetupMinutes: 25, QualityCheckMinutes: 12, ProductTypes: []string{models.CategoryAll}, NextMaintenance: maint(day(2025, 8, 7))},
	}

	// Order and due dates keep their relative spacing but follow the clock.
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	rel := func(days int) time.Time { return anchor.AddDate(0, 0, days) }

	orders := []models.Order{
		{ID: "ORD-2025-001", ProductName: "Widget Pro X1", Category: "Electronics", Quantity: 500, Priority: models.PriorityHigh, Customer: "TechCorp Inc", OrderDate: rel(-6), DueDate: rel(10), EstimatedHours: 12.5, Status: models.StatusScheduled, AssignedLine: "LINE-A02", Notes: "Standard production"},
		{ID: "ORD-2025-002", ProductName: "Circuit Board CB-400", Category: "Electronics", Quantity: 1200, Priority: models.PriorityMedium, Customer: "ElectroMax Ltd", OrderDate: rel(-5), DueDate: rel(15), EstimatedHours: 28.8, Status: models.StatusInProgress, AssignedLine: "LINE-A01", Progress: 35, Notes: "Complex PCB layout"},
		{ID: "ORD-2025-003", ProductName: "Automotive Part AP-250", Category: "Automotive", Quantity: 300, Priority: models.PriorityCritical, Customer: "AutoParts Pro", OrderDate: rel(-7), DueDate: rel(5), EstimatedHours: 15.0, Status: models.StatusCriticalDelay, Progress: 15, DependsOn: "ORD-2025-001", Notes: "URGENT - Customer escalation"},
		{ID: "ORD-2025-004", ProductName: "Medical Device MD-100", Category: "Medical", Quantity: 150, Priority: models.PriorityHigh, Customer: "MedDevice Solutions", OrderDate: rel(-4), DueDate: rel(12), EstimatedHours: 7.5, Status: models.StatusScheduled, AssignedLine: "LINE-A01", Notes: "FDA compliance required"},
		{ID: "ORD-2025-005", ProductName: "Package Set PS-50", Category: "Package", Quantity: 2000, Priority: models.PriorityLow, Customer: "PackageCorp", OrderDate: rel(-3), DueDate: rel(20), EstimatedHours: 24.0, Status: models.StatusScheduled, AssignedLine: "LINE-C01", DependsOn: "ORD-2025-002", Notes: "Bulk order"},
		{ID: "ORD-2025-006", ProductName: "Heavy Component HC-75", Category: "Heavy", Quantity: 80, Priority: models.PriorityMedium, Customer: "HeavyIndustry Co", OrderDate: rel(-6), DueDate: rel(8), EstimatedHours: 4.0, Status: models.StatusInProgress, AssignedLine: "LINE-B02", Progress: 60, Notes: "Special tooling needed"},
		{ID: "ORD-2025-007", ProductName: "Precision Tool PT-200", Category: "Precision", Quantity: 250, Priority: models.PriorityHigh, Customer: "PrecisionTech", OrderDate: rel(-4), DueDate: rel(11), EstimatedHours: 10.0, Status: models.StatusPlanned, DependsOn: "ORD-2025-003", Notes: "High precision required"},
		{ID: "ORD-2025-008", ProductName: "Electronic Module EM-300", Category: "Electronics", Quantity: 800, Priority: models.PriorityMedium, Customer: "ModuleMakers", OrderDate: rel(-3), DueDate: rel(18), EstimatedHours: 20.0, Status: models.StatusQueued, DependsOn: "ORD-2025-004", Notes: "New product launch"},
	}

	started := func(t time.Time) *time.Time { return &t }
	h := func(d time.Duration) time.Time { return now.Add(d) }
	schedule := []models.ScheduleEntry{
		{ID: "SCH-001", OrderID: "ORD-2025-002", LineID: "LINE-A01", Start: h(time.Hour), End: h(15 * time.Hour), Status: models.StatusInProgress, ActualStart: started(h(time.Hour)), CreatedBy: models.CreatedBySystem, LastModified: now},
		{ID: "SCH-002", OrderID: "ORD-2025-006", LineID: "LINE-B02", Start: h(2 * time.Hour), End: h(8 * time.Hour), Status: models.StatusInProgress, ActualStart: started(h(2 * time.Hour)), CreatedBy: models.CreatedBySystem, LastModified: now},
		{ID: "SCH-003", OrderID: "ORD-2025-001", LineID: "LINE-A02", Start: h(24 * time.Hour), End: h(38 * time.Hour), Status: models.StatusScheduled, CreatedBy: models.CreatedBySystem, LastModified: now},
		{ID: "SCH-004", OrderID: "ORD-2025-004", LineID: "LINE-A01", Start: h(48 * time.Hour), End: h(56 * time.Hour), Status: models.StatusScheduled, CreatedBy: models.CreatedBySystem, LastModified: now},
		{ID: "SCH-005", OrderID: "ORD-2025-005", LineID: "LINE-C01", Start: h(72 * time.Hour), End: h(96 * time.Hour), Status: models.StatusScheduled, CreatedBy: models.CreatedBySystem, LastModified: now},
	}

	return State{Lines: lines, Orders: orders, Schedule: schedule}
}
