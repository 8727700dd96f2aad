package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// CategoryAll is the wildcard product category accepted by general purpose lines.
const CategoryAll = "All"

// LineID identifies a production line, e.g. LINE-A01.
type LineID string

// LineStatus enumerates the lifecycle states of a production line.
type LineStatus string

const (
	LineActive      LineStatus = "Active"
	LineMaintenance LineStatus = "Maintenance"
	LineInactive    LineStatus = "Inactive"
)

// ParseLineStatus maps a table value onto a LineStatus.
func ParseLineStatus(value string) (LineStatus, error) {
	switch strings.TrimSpace(value) {
	case string(LineActive):
		return LineActive, nil
	case string(LineMaintenance):
		return LineMaintenance, nil
	case string(LineInactive):
		return LineInactive, nil
	default:
		return "", fmt.Errorf("unknown line status %q", value)
	}
}

// ProductionLine is a production resource with capacity, efficiency and a
// set of compatible product categories.
type ProductionLine struct {
	ID                  LineID     `json:"id" bson:"line_id"`
	Name                string     `json:"name" bson:"name"`
	Department          string     `json:"department" bson:"department"`
	Capacity            float64    `json:"capacity_units_per_hour" bson:"capacity_units_per_hour"`
	Status              LineStatus `json:"status" bson:"status"`
	Efficiency          float64    `json:"efficiency" bson:"efficiency"`
	OperatorCount       int        `json:"operator_count" bson:"operator_count"`
	SetupMinutes        int        `json:"setup_minutes" bson:"setup_minutes"`
	QualityCheckMinutes int        `json:"quality_check_minutes" bson:"quality_check_minutes"`
	ProductTypes        []string   `json:"product_types" bson:"product_types"`
	NextMaintenance     *time.Time `json:"next_maintenance,omitempty" bson:"next_maintenance,omitempty"`
}

// IsActive reports whether the line may currently run orders.
func (l ProductionLine) IsActive() bool {
	return l.Status == LineActive
}

// Accepts reports whether the line's own product list covers the category.
func (l ProductionLine) Accepts(category string) bool {
	for _, t := range l.ProductTypes {
		if t == category || t == CategoryAll {
			return true
		}
	}
	return false
}

// Validate checks the invariants a line must satisfy before entering the store.
func (l ProductionLine) Validate() error {
	switch {
	case l.ID == "":
		return errors.New("line id must not be empty")
	case l.Capacity < 0:
		return fmt.Errorf("line %s: capacity must not be negative", l.ID)
	case l.Efficiency < 0 || l.Efficiency > 1:
		return fmt.Errorf("line %s: efficiency %.3f outside [0,1]", l.ID, l.Efficiency)
	case l.SetupMinutes < 0 || l.QualityCheckMinutes < 0:
		return fmt.Errorf("line %s: setup and quality check minutes must not be negative", l.ID)
	}
	if _, err := ParseLineStatus(string(l.Status)); err != nil {
		return fmt.Errorf("line %s: %w", l.ID, err)
	}
	return nil
}

// Clone returns a deep copy of the line.
func (l ProductionLine) Clone() ProductionLine {
	out := l
	if l.ProductTypes != nil {
		out.ProductTypes = append([]string(nil), l.ProductTypes...)
	}
	if l.NextMaintenance != nil {
		t := *l.NextMaintenance
		out.NextMaintenance = &t
	}
	return out
}

// SplitProductTypes parses a comma separated category list as stored in the lines table.
func SplitProductTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
