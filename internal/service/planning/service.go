package planning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/store"
	"github.com/mamadbah2/lineplan/internal/telemetry"
)

// Service runs the scheduling workflow against the shared store. Each
// operation executes as a single store transaction, so the slot it finds is
// the slot it books.
type Service struct {
	store     *store.Store
	matcher   *Matcher
	scorer    *Scorer
	rules     models.Rules
	collector *telemetry.Collector
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the planning service. collector may be nil.
func NewService(st *store.Store, rules models.Rules, utilization UtilizationEstimator, collector *telemetry.Collector, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     st,
		matcher:   NewMatcher(rules.LineCompatibility),
		scorer:    NewScorer(utilization),
		rules:     rules,
		collector: collector,
		logger:    logger,
		now:       time.Now,
	}
}

// ScheduleOrder assigns the order to the best eligible line at that line's
// next free slot.
func (s *Service) ScheduleOrder(ctx context.Context, orderID models.OrderID) (models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.ScheduleEntry{}, err
	}

	now := s.now()
	var booked models.ScheduleEntry
	err := s.store.Update(func(tx *store.Tx) error {
		order, err := schedulableOrder(tx, orderID)
		if err != nil {
			return err
		}

		state := tx.State()
		eligible := s.matcher.EligibleLines(order.Category, state.Lines)
		if len(eligible) == 0 {
			return &models.NoCompatibleLineError{OrderID: order.ID, Category: order.Category}
		}

		line, score, _ := s.scorer.Best(eligible, state.Schedule, now)
		start := NextAvailableSlot(line.ID, state.Schedule, now, hoursToDuration(order.EstimatedHours))

		entry, err := book(tx, order, line, start, models.CreatedByAutoScheduler, now)
		if err != nil {
			return err
		}
		s.logger.Debug("line selected",
			zap.String("order_id", string(order.ID)),
			zap.String("line_id", string(line.ID)),
			zap.Float64("score", score),
			zap.Int("candidates", len(eligible)))
		booked = entry
		return nil
	})
	s.recordOutcome(orderID, err)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	return booked, nil
}

// ScheduleOrderOnLine books the order on a chosen line, skipping scoring.
// A zero start uses the line's next free slot. The line must still accept
// the order's category and the interval must be free.
func (s *Service) ScheduleOrderOnLine(ctx context.Context, orderID models.OrderID, lineID models.LineID, start time.Time) (models.ScheduleEntry, error) {
	if err := ctx.Err(); err != nil {
		return models.ScheduleEntry{}, err
	}

	now := s.now()
	var booked models.ScheduleEntry
	err := s.store.Update(func(tx *store.Tx) error {
		order, err := schedulableOrder(tx, orderID)
		if err != nil {
			return err
		}
		line, err := tx.Line(lineID)
		if err != nil {
			return err
		}

		state := tx.State()
		if !containsLine(s.matcher.EligibleLines(order.Category, []models.ProductionLine{*line}), lineID) {
			return &models.NoCompatibleLineError{OrderID: order.ID, Category: order.Category}
		}
		if start.IsZero() {
			start = NextAvailableSlot(lineID, state.Schedule, now, hoursToDuration(order.EstimatedHours))
		}

		entry, err := book(tx, order, *line, start, models.CreatedByManual, now)
		if err != nil {
			return err
		}
		booked = entry
		return nil
	})
	s.recordOutcome(orderID, err)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	return booked, nil
}

// ScheduleFailure describes an order the auto-scheduler could not place.
type ScheduleFailure struct {
	OrderID models.OrderID `json:"order_id"`
	Reason  string         `json:"reason"`
	Err     error          `json:"-"`
}

// AutoScheduleResult summarises a batch run.
type AutoScheduleResult struct {
	Scheduled []models.ScheduleEntry `json:"scheduled"`
	Failures  []ScheduleFailure      `json:"failures"`
}

// Err combines every per-order failure, nil when all orders were placed.
func (r AutoScheduleResult) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, fmt.Errorf("%s: %w", f.OrderID, f.Err))
	}
	return err
}

// AutoSchedule places every waiting order, highest priority and earliest due
// date first. A failing order is recorded and the batch continues. limit <= 0
// means no limit.
func (s *Service) AutoSchedule(ctx context.Context, limit int) AutoScheduleResult {
	pending := s.pendingOrders()
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	result := AutoScheduleResult{
		Scheduled: []models.ScheduleEntry{},
		Failures:  []ScheduleFailure{},
	}
	for _, o := range pending {
		if ctx.Err() != nil {
			s.logger.Info("auto-schedule interrupted", zap.Int("remaining", len(pending)-len(result.Scheduled)-len(result.Failures)))
			break
		}
		entry, err := s.ScheduleOrder(ctx, o.ID)
		if err != nil {
			result.Failures = append(result.Failures, ScheduleFailure{OrderID: o.ID, Reason: err.Error(), Err: err})
			continue
		}
		result.Scheduled = append(result.Scheduled, entry)
	}

	s.logger.Info("auto-schedule finished",
		zap.Int("scheduled", len(result.Scheduled)),
		zap.Int("failed", len(result.Failures)))
	return result
}

func (s *Service) pendingOrders() []models.Order {
	state := s.store.Snapshot()
	var pending []models.Order
	for _, o := range state.Orders {
		if o.Unassigned() && (o.Status == models.StatusPlanned || o.Status == models.StatusQueued) {
			pending = append(pending, o)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		wi, wj := s.rules.PriorityWeight(pending[i].Priority), s.rules.PriorityWeight(pending[j].Priority)
		if wi != wj {
			return wi > wj
		}
		if !pending[i].DueDate.Equal(pending[j].DueDate) {
			return pending[i].DueDate.Before(pending[j].DueDate)
		}
		return pending[i].ID < pending[j].ID
	})
	return pending
}

// UpdateProgress records production progress. Progress may only fall when the
// order is put On Hold; reaching 100 completes the order. An empty status
// keeps the current one, except that the first progress on a scheduled order
// starts it. Scheduled and Queued are reserved for scheduling, and In Progress
// needs a booked entry. The order's open schedule entry mirrors the resulting status.
func (s *Service) UpdateProgress(ctx context.Context, orderID models.OrderID, progress float64, status models.OrderStatus) (models.Order, error) {
	if err := ctx.Err(); err != nil {
		return models.Order{}, err
	}
	if progress < 0 || progress > 100 {
		return models.Order{}, fmt.Errorf("%w: progress %.1f outside [0,100]", models.ErrInvalidInput, progress)
	}
	if status != "" {
		parsed, err := models.ParseOrderStatus(string(status))
		if err != nil {
			return models.Order{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		if parsed == models.StatusScheduled || parsed == models.StatusQueued {
			return models.Order{}, fmt.Errorf("%w: status %q is set by scheduling", models.ErrInvalidInput, parsed)
		}
		status = parsed
	}

	now := s.now()
	var updated models.Order
	err := s.store.Update(func(tx *store.Tx) error {
		order, err := tx.Order(orderID)
		if err != nil {
			return err
		}

		next := status
		if next == "" {
			next = order.Status
			if next == models.StatusScheduled && progress > 0 {
				next = models.StatusInProgress
			}
		}
		if progress < order.Progress && next != models.StatusOnHold {
			return fmt.Errorf("%w: %s from %.1f to %.1f", models.ErrProgressRegression, orderID, order.Progress, progress)
		}
		if progress >= 100 {
			next = models.StatusCompleted
		}

		entry, booked := tx.OpenEntryForOrder(orderID)
		if next == models.StatusInProgress && (order.Unassigned() || !booked) {
			return fmt.Errorf("%w: %s has no booked schedule entry", models.ErrInvalidInput, orderID)
		}
		if booked && entry.Status != next {
			if err := tx.SetEntryStatus(entry.ID, next); err != nil {
				return err
			}
			if next == models.StatusInProgress && entry.ActualStart == nil {
				entry.ActualStart = &now
			}
			if next == models.StatusCompleted {
				if entry.ActualStart == nil {
					entry.ActualStart = &now
				}
				entry.ActualEnd = &now
			}
			entry.LastModified = now
		}

		order.Progress = progress
		order.Status = next
		updated = *order
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("order progress updated",
		zap.String("order_id", string(orderID)),
		zap.Float64("progress", progress),
		zap.String("status", string(updated.Status)))
	return updated, nil
}

// CreateLine validates and inserts a line, generating its id when empty.
func (s *Service) CreateLine(ctx context.Context, line models.ProductionLine) (models.ProductionLine, error) {
	if err := ctx.Err(); err != nil {
		return models.ProductionLine{}, err
	}

	line.Name = strings.TrimSpace(line.Name)
	if line.Name == "" {
		return models.ProductionLine{}, fmt.Errorf("%w: line name is required", models.ErrInvalidInput)
	}
	if line.Status == "" {
		line.Status = models.LineActive
	}
	if len(line.ProductTypes) == 0 {
		return models.ProductionLine{}, fmt.Errorf("%w: at least one product type is required", models.ErrInvalidInput)
	}

	err := s.store.Update(func(tx *store.Tx) error {
		if line.ID == "" {
			id, err := NextLineID(tx.State())
			if err != nil {
				return err
			}
			line.ID = id
		}
		if err := line.Validate(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		return tx.AddLine(line)
	})
	if err != nil {
		return models.ProductionLine{}, err
	}

	s.logger.Info("production line created", zap.String("line_id", string(line.ID)))
	return line, nil
}

const (
	minProductName = 3
	minCustomer    = 2
	maxQuantity    = 10000
	maxHours       = 1000
)

// CreateOrder validates and inserts a new unassigned order, generating its id
// when empty.
func (s *Service) CreateOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if err := ctx.Err(); err != nil {
		return models.Order{}, err
	}
	if err := validateNewOrder(&order); err != nil {
		return models.Order{}, err
	}

	now := s.now()
	if order.OrderDate.IsZero() {
		order.OrderDate = now
	}
	if order.Priority == "" {
		order.Priority = models.PriorityMedium
	}
	order.Status = models.StatusPlanned
	order.AssignedLine = ""
	order.Progress = 0

	err := s.store.Update(func(tx *store.Tx) error {
		if order.ID == "" {
			id, err := NextOrderID(tx.State(), now)
			if err != nil {
				return err
			}
			order.ID = id
		}
		if order.DependsOn != "" {
			if _, err := tx.Order(order.DependsOn); err != nil {
				return fmt.Errorf("%w: dependency %s", models.ErrInvalidInput, order.DependsOn)
			}
		}
		if err := order.Validate(); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
		return tx.AddOrder(order)
	})
	if err != nil {
		return models.Order{}, err
	}

	s.logger.Info("order created",
		zap.String("order_id", string(order.ID)),
		zap.String("category", order.Category),
		zap.String("priority", string(order.Priority)))
	return order, nil
}

func validateNewOrder(o *models.Order) error {
	o.ProductName = strings.TrimSpace(o.ProductName)
	o.Customer = strings.TrimSpace(o.Customer)
	o.Category = strings.TrimSpace(o.Category)

	switch {
	case len(o.ProductName) < minProductName:
		return fmt.Errorf("%w: product name must be at least %d characters", models.ErrInvalidInput, minProductName)
	case len(o.Customer) < minCustomer:
		return fmt.Errorf("%w: customer must be at least %d characters", models.ErrInvalidInput, minCustomer)
	case o.Category == "":
		return fmt.Errorf("%w: category is required", models.ErrInvalidInput)
	case o.Quantity < 1 || o.Quantity > maxQuantity:
		return fmt.Errorf("%w: quantity must be between 1 and %d", models.ErrInvalidInput, maxQuantity)
	case o.EstimatedHours <= 0 || o.EstimatedHours > maxHours:
		return fmt.Errorf("%w: estimated hours must be in (0, %d]", models.ErrInvalidInput, maxHours)
	case o.DueDate.IsZero():
		return fmt.Errorf("%w: due date is required", models.ErrInvalidInput)
	}
	if o.Priority != "" {
		if _, err := models.ParsePriority(string(o.Priority)); err != nil {
			return fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
		}
	}
	return nil
}

func schedulableOrder(tx *store.Tx, id models.OrderID) (*models.Order, error) {
	order, err := tx.Order(id)
	if err != nil {
		return nil, err
	}
	if order.Status == models.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderClosed, id)
	}
	if entry, live := tx.LiveEntryForOrder(id); live {
		return nil, fmt.Errorf("%w: %s holds %s on %s", models.ErrAlreadyScheduled, id, entry.ID, entry.LineID)
	}
	return order, nil
}

// book writes the entry and the order assignment in the same transaction.
func book(tx *store.Tx, order *models.Order, line models.ProductionLine, start time.Time, createdBy string, now time.Time) (models.ScheduleEntry, error) {
	entry, err := NewScheduleEntry(*order, line, start, createdBy, now)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	if err := tx.AddEntry(entry); err != nil {
		return models.ScheduleEntry{}, err
	}
	order.AssignedLine = line.ID
	order.Status = models.StatusScheduled
	return entry, nil
}

func containsLine(lines []models.ProductionLine, id models.LineID) bool {
	for _, l := range lines {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) recordOutcome(orderID models.OrderID, err error) {
	outcome := telemetry.OutcomeScheduled
	switch {
	case err == nil:
	case errors.Is(err, models.ErrNoCompatibleLine):
		outcome = telemetry.OutcomeNoLine
	case errors.Is(err, models.ErrInvalidDuration):
		outcome = telemetry.OutcomeBadDuration
	case errors.Is(err, models.ErrOverlap):
		outcome = telemetry.OutcomeOverlap
	default:
		outcome = telemetry.OutcomeRejected
	}
	s.collector.RecordScheduling(outcome)

	if err != nil {
		s.logger.Warn("order not scheduled", zap.String("order_id", string(orderID)), zap.String("outcome", outcome), zap.Error(err))
		return
	}
	s.logger.Info("order scheduled", zap.String("order_id", string(orderID)))
}
