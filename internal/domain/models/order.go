package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// OrderID identifies a manufacturing order, e.g. ORD-2025-001.
type OrderID string

// Priority ranks an order's urgency.
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// ParsePriority maps a table value onto a Priority.
func ParsePriority(value string) (Priority, error) {
	switch p := Priority(strings.TrimSpace(value)); p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return p, nil
	default:
		return "", fmt.Errorf("unknown priority %q", value)
	}
}

// OrderStatus enumerates order lifecycle states. Schedule entries mirror the
// status of their order.
type OrderStatus string

const (
	StatusPlanned       OrderStatus = "Planned"
	StatusQueued        OrderStatus = "Queued"
	StatusScheduled     OrderStatus = "Scheduled"
	StatusInProgress    OrderStatus = "In Progress"
	StatusCompleted     OrderStatus = "Completed"
	StatusCriticalDelay OrderStatus = "Critical Delay"
	StatusOnHold        OrderStatus = "On Hold"
)

// ParseOrderStatus maps a table value onto an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	switch s := OrderStatus(strings.TrimSpace(value)); s {
	case StatusPlanned, StatusQueued, StatusScheduled, StatusInProgress,
		StatusCompleted, StatusCriticalDelay, StatusOnHold:
		return s, nil
	default:
		return "", fmt.Errorf("unknown order status %q", value)
	}
}

// Order is a unit of demand to be produced.
type Order struct {
	ID             OrderID     `json:"id" bson:"order_id"`
	ProductName    string      `json:"product_name" bson:"product_name"`
	Category       string      `json:"category" bson:"category"`
	Quantity       int         `json:"quantity" bson:"quantity"`
	Priority       Priority    `json:"priority" bson:"priority"`
	Customer       string      `json:"customer" bson:"customer"`
	OrderDate      time.Time   `json:"order_date" bson:"order_date"`
	DueDate        time.Time   `json:"due_date" bson:"due_date"`
	EstimatedHours float64     `json:"estimated_hours" bson:"estimated_hours"`
	Status         OrderStatus `json:"status" bson:"status"`
	AssignedLine   LineID      `json:"assigned_line,omitempty" bson:"assigned_line,omitempty"`
	Progress       float64     `json:"progress" bson:"progress"`
	DependsOn      OrderID     `json:"depends_on,omitempty" bson:"depends_on,omitempty"`
	Notes          string      `json:"notes,omitempty" bson:"notes,omitempty"`
}

// Overdue reports whether the order is past its due date and not completed.
func (o Order) Overdue(now time.Time) bool {
	return o.DueDate.Before(now) && o.Status != StatusCompleted
}

// Unassigned reports whether the order still waits for a production line.
func (o Order) Unassigned() bool {
	return o.AssignedLine == ""
}

// Validate checks the invariants an order must satisfy before entering the store.
// Estimated hours are not checked here: a non-positive duration is a
// scheduling failure, not a load failure.
func (o Order) Validate() error {
	switch {
	case o.ID == "":
		return errors.New("order id must not be empty")
	case o.Quantity < 0:
		return fmt.Errorf("order %s: quantity must not be negative", o.ID)
	case o.Progress < 0 || o.Progress > 100:
		return fmt.Errorf("order %s: progress %.1f outside [0,100]", o.ID, o.Progress)
	case o.DueDate.IsZero():
		return fmt.Errorf("order %s: due date is required", o.ID)
	}
	if _, err := ParsePriority(string(o.Priority)); err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	if _, err := ParseOrderStatus(string(o.Status)); err != nil {
		return fmt.Errorf("order %s: %w", o.ID, err)
	}
	return nil
}
