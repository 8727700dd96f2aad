package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoCompatibleLine indicates that no active line can run the order's category.
	ErrNoCompatibleLine = errors.New("no compatible production line")
	// ErrInvalidDuration indicates an order with a non-positive estimated duration.
	ErrInvalidDuration = errors.New("invalid order duration")
	// ErrOverlap indicates an attempt to book an interval that is already taken.
	ErrOverlap = errors.New("schedule entry overlaps an existing booking")
	// ErrLineNotFound indicates an unknown line id.
	ErrLineNotFound = errors.New("production line not found")
	// ErrOrderNotFound indicates an unknown order id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrDuplicateID indicates an insert with an identifier already in use.
	ErrDuplicateID = errors.New("identifier already exists")
	// ErrAlreadyScheduled indicates the order already holds a line.
	ErrAlreadyScheduled = errors.New("order already scheduled")
	// ErrOrderClosed indicates the order is completed and cannot be rescheduled.
	ErrOrderClosed = errors.New("order is completed")
	// ErrInvalidInput indicates a create or update request failing validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrProgressRegression indicates a progress update lowering progress outside On Hold.
	ErrProgressRegression = errors.New("progress must not decrease")
)

// NoCompatibleLineError is returned when an order's category matches no active line.
type NoCompatibleLineError struct {
	OrderID  OrderID
	Category string
}

func (e *NoCompatibleLineError) Error() string {
	return fmt.Sprintf("order %s: no active line accepts category %q", e.OrderID, e.Category)
}

func (e *NoCompatibleLineError) Unwrap() error { return ErrNoCompatibleLine }

// InvalidDurationError is returned for orders whose estimated hours are not positive.
type InvalidDurationError struct {
	OrderID OrderID
	Hours   float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("order %s: estimated hours must be positive, got %v", e.OrderID, e.Hours)
}

func (e *InvalidDurationError) Unwrap() error { return ErrInvalidDuration }

// OverlapInvariantError is returned when a booking would intersect a live entry on the same line.
type OverlapInvariantError struct {
	LineID     LineID
	ExistingID string
	Start      time.Time
	End        time.Time
}

func (e *OverlapInvariantError) Error() string {
	return fmt.Sprintf("line %s: interval [%s, %s) overlaps entry %s",
		e.LineID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339), e.ExistingID)
}

func (e *OverlapInvariantError) Unwrap() error { return ErrOverlap }
