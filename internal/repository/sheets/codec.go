package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mamadbah2/lineplan/internal/domain/models"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var (
	lineHeader = []interface{}{
		"LineID", "LineName", "Department", "Capacity_UnitsPerHour", "Status", "Efficiency",
		"OperatorCount", "MaintenanceScheduled", "ProductTypes", "SetupTime_Minutes", "QualityCheckTime_Minutes",
	}
	orderHeader = []interface{}{
		"OrderID", "ProductName", "ProductType", "Quantity", "Priority", "CustomerName", "OrderDate",
		"DueDate", "EstimatedHours", "Status", "AssignedLine", "Progress", "Dependencies", "Notes",
	}
	scheduleHeader = []interface{}{
		"ScheduleID", "OrderID", "LineID", "StartDateTime", "EndDateTime", "Status",
		"ActualStart", "ActualEnd", "ScheduledBy", "LastModified",
	}
)

// row gives positional access to a sheet row; missing trailing cells read as "".
type row []interface{}

func (r row) str(i int) string {
	if i >= len(r) || r[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(r[i]))
}

func (r row) floatAt(i int, name string) (float64, error) {
	v, err := parseFloat(r.str(i))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func (r row) intAt(i int, name string) (int, error) {
	v, err := parseInt(r.str(i))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}

func parseInt(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func parseFloat(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
}

func parseDate(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if len(value) > 10 {
		if t, err := time.ParseInLocation(dateTimeLayout, value, loc); err == nil {
			return t, nil
		}
		value = value[:10]
	}
	return time.ParseInLocation(dateLayout, value, loc)
}

func parseOptionalDate(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := parseDate(value, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func decodeLine(r row, loc *time.Location) (models.ProductionLine, error) {
	var (
		line models.ProductionLine
		err  error
	)
	line.ID = models.LineID(r.str(0))
	line.Name = r.str(1)
	line.Department = r.str(2)
	if line.Capacity, err = r.floatAt(3, "capacity"); err != nil {
		return line, err
	}
	if line.Status, err = models.ParseLineStatus(r.str(4)); err != nil {
		return line, err
	}
	if line.Efficiency, err = r.floatAt(5, "efficiency"); err != nil {
		return line, err
	}
	if line.OperatorCount, err = r.intAt(6, "operator count"); err != nil {
		return line, err
	}
	if line.NextMaintenance, err = parseOptionalDate(r.str(7), loc); err != nil {
		return line, fmt.Errorf("maintenance date: %w", err)
	}
	line.ProductTypes = models.SplitProductTypes(r.str(8))
	if line.SetupMinutes, err = r.intAt(9, "setup minutes"); err != nil {
		return line, err
	}
	if line.QualityCheckMinutes, err = r.intAt(10, "quality check minutes"); err != nil {
		return line, err
	}
	return line, line.Validate()
}

func encodeLine(l models.ProductionLine) []interface{} {
	maintenance := ""
	if l.NextMaintenance != nil {
		maintenance = formatDate(*l.NextMaintenance)
	}
	return []interface{}{
		string(l.ID), l.Name, l.Department, formatFloat(l.Capacity), string(l.Status), formatFloat(l.Efficiency),
		strconv.Itoa(l.OperatorCount), maintenance, strings.Join(l.ProductTypes, ","),
		strconv.Itoa(l.SetupMinutes), strconv.Itoa(l.QualityCheckMinutes),
	}
}

func decodeOrder(r row, loc *time.Location) (models.Order, error) {
	var (
		order models.Order
		err   error
	)
	order.ID = models.OrderID(r.str(0))
	order.ProductName = r.str(1)
	order.Category = r.str(2)
	if order.Quantity, err = r.intAt(3, "quantity"); err != nil {
		return order, err
	}
	if order.Priority, err = models.ParsePriority(r.str(4)); err != nil {
		return order, err
	}
	order.Customer = r.str(5)
	if placed, err := parseOptionalDate(r.str(6), loc); err != nil {
		return order, fmt.Errorf("order date: %w", err)
	} else if placed != nil {
		order.OrderDate = *placed
	}
	if order.DueDate, err = parseDate(r.str(7), loc); err != nil {
		return order, fmt.Errorf("due date: %w", err)
	}
	if order.EstimatedHours, err = r.floatAt(8, "estimated hours"); err != nil {
		return order, err
	}
	if order.Status, err = models.ParseOrderStatus(r.str(9)); err != nil {
		return order, err
	}
	order.AssignedLine = models.LineID(r.str(10))
	if order.Progress, err = r.floatAt(11, "progress"); err != nil {
		return order, err
	}
	order.DependsOn = models.OrderID(r.str(12))
	order.Notes = r.str(13)
	return order, order.Validate()
}

func encodeOrder(o models.Order) []interface{} {
	return []interface{}{
		string(o.ID), o.ProductName, o.Category, strconv.Itoa(o.Quantity), string(o.Priority), o.Customer,
		formatDate(o.OrderDate), formatDate(o.DueDate), formatFloat(o.EstimatedHours), string(o.Status),
		string(o.AssignedLine), formatFloat(o.Progress), string(o.DependsOn), o.Notes,
	}
}

func decodeEntry(r row, loc *time.Location) (models.ScheduleEntry, error) {
	var (
		entry models.ScheduleEntry
		err   error
	)
	entry.ID = r.str(0)
	entry.OrderID = models.OrderID(r.str(1))
	entry.LineID = models.LineID(r.str(2))
	if entry.ID == "" || entry.OrderID == "" || entry.LineID == "" {
		return entry, fmt.Errorf("schedule id, order and line are required")
	}
	if entry.Start, err = parseDate(r.str(3), loc); err != nil {
		return entry, fmt.Errorf("start: %w", err)
	}
	if entry.End, err = parseDate(r.str(4), loc); err != nil {
		return entry, fmt.Errorf("end: %w", err)
	}
	if !entry.End.After(entry.Start) {
		return entry, fmt.Errorf("end must be after start")
	}
	if entry.Status, err = models.ParseOrderStatus(r.str(5)); err != nil {
		return entry, err
	}
	if entry.ActualStart, err = parseOptionalDate(r.str(6), loc); err != nil {
		return entry, fmt.Errorf("actual start: %w", err)
	}
	if entry.ActualEnd, err = parseOptionalDate(r.str(7), loc); err != nil {
		return entry, fmt.Errorf("actual end: %w", err)
	}
	entry.CreatedBy = r.str(8)
	if modified, err := parseOptionalDate(r.str(9), loc); err == nil && modified != nil {
		entry.LastModified = *modified
	}
	return entry, nil
}

func encodeEntry(e models.ScheduleEntry) []interface{} {
	return []interface{}{
		e.ID, string(e.OrderID), string(e.LineID), formatDateTime(&e.Start), formatDateTime(&e.End), string(e.Status),
		formatDateTime(e.ActualStart), formatDateTime(e.ActualEnd), e.CreatedBy, formatDateTime(&e.LastModified),
	}
}
