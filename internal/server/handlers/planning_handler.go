package handlers

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/planning"
	"github.com/mamadbah2/lineplan/internal/store"
)

// PlanningService is the scheduling surface exposed over HTTP.
type PlanningService interface {
	ScheduleOrder(ctx context.Context, orderID models.OrderID) (models.ScheduleEntry, error)
	ScheduleOrderOnLine(ctx context.Context, orderID models.OrderID, lineID models.LineID, start time.Time) (models.ScheduleEntry, error)
	AutoSchedule(ctx context.Context, limit int) planning.AutoScheduleResult
	UpdateProgress(ctx context.Context, orderID models.OrderID, progress float64, status models.OrderStatus) (models.Order, error)
	CreateLine(ctx context.Context, line models.ProductionLine) (models.ProductionLine, error)
	CreateOrder(ctx context.Context, order models.Order) (models.Order, error)
}

// Snapshotter exposes a read-only view of the plant tables.
type Snapshotter interface {
	Snapshot() store.State
}

// PlanningHandler serves lines, orders and the schedule.
type PlanningHandler struct {
	svc    PlanningService
	state  Snapshotter
	loc    *time.Location
	logger *zap.Logger
}

// NewPlanningHandler constructs the planning HTTP adapter. Dates sent without
// a zone are read in loc.
func NewPlanningHandler(svc PlanningService, state Snapshotter, loc *time.Location, logger *zap.Logger) *PlanningHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PlanningHandler{svc: svc, state: state, loc: loc, logger: logger}
}

// ListLines returns every line, optionally filtered by ?status=.
func (h *PlanningHandler) ListLines(c *gin.Context) {
	status := models.LineStatus(c.Query("status"))
	lines := make([]models.ProductionLine, 0)
	for _, l := range h.state.Snapshot().Lines {
		if status == "" || l.Status == status {
			lines = append(lines, l)
		}
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

// CreateLine registers a new production line.
func (h *PlanningHandler) CreateLine(c *gin.Context) {
	var req models.ProductionLine
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid line payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	line, err := h.svc.CreateLine(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, "unable to create line", err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

// ListOrders returns every order, optionally filtered by ?status= and ?line=.
func (h *PlanningHandler) ListOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	line := models.LineID(c.Query("line"))
	orders := make([]models.Order, 0)
	for _, o := range h.state.Snapshot().Orders {
		if status != "" && o.Status != status {
			continue
		}
		if line != "" && o.AssignedLine != line {
			continue
		}
		orders = append(orders, o)
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type createOrderRequest struct {
	ID             string  `json:"id"`
	ProductName    string  `json:"product_name" binding:"required"`
	Category       string  `json:"category" binding:"required"`
	Quantity       int     `json:"quantity"`
	Priority       string  `json:"priority"`
	Customer       string  `json:"customer" binding:"required"`
	OrderDate      string  `json:"order_date"`
	DueDate        string  `json:"due_date" binding:"required"`
	EstimatedHours float64 `json:"estimated_hours"`
	DependsOn      string  `json:"depends_on"`
	Notes          string  `json:"notes"`
}

// CreateOrder registers a new unassigned order.
func (h *PlanningHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid order payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	due, err := parseTime(req.DueDate, h.loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "due_date: " + err.Error()})
		return
	}
	var placed time.Time
	if req.OrderDate != "" {
		if placed, err = parseTime(req.OrderDate, h.loc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order_date: " + err.Error()})
			return
		}
	}

	order, err := h.svc.CreateOrder(c.Request.Context(), models.Order{
		ID:             models.OrderID(req.ID),
		ProductName:    req.ProductName,
		Category:       req.Category,
		Quantity:       req.Quantity,
		Priority:       models.Priority(req.Priority),
		Customer:       req.Customer,
		OrderDate:      placed,
		DueDate:        due,
		EstimatedHours: req.EstimatedHours,
		DependsOn:      models.OrderID(req.DependsOn),
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, "unable to create order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// ScheduleOrder books the order on the best compatible line.
func (h *PlanningHandler) ScheduleOrder(c *gin.Context) {
	entry, err := h.svc.ScheduleOrder(c.Request.Context(), models.OrderID(c.Param("id")))
	if err != nil {
		respondError(c, h.logger, "unable to schedule order", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type manualScheduleRequest struct {
	LineID string `json:"line_id" binding:"required"`
	Start  string `json:"start"`
}

// ScheduleOrderManual books the order on a chosen line, at the requested
// start or the line's next free slot.
func (h *PlanningHandler) ScheduleOrderManual(c *gin.Context) {
	var req manualScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid manual schedule payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var start time.Time
	if req.Start != "" {
		var err error
		if start, err = parseTime(req.Start, h.loc); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start: " + err.Error()})
			return
		}
	}

	entry, err := h.svc.ScheduleOrderOnLine(c.Request.Context(), models.OrderID(c.Param("id")), models.LineID(req.LineID), start)
	if err != nil {
		respondError(c, h.logger, "unable to schedule order", err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

type progressRequest struct {
	Progress *float64 `json:"progress" binding:"required"`
	Status   string   `json:"status"`
}

// UpdateProgress records production progress for an order.
func (h *PlanningHandler) UpdateProgress(c *gin.Context) {
	var req progressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid progress payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateProgress(c.Request.Context(), models.OrderID(c.Param("id")), *req.Progress, models.OrderStatus(req.Status))
	if err != nil {
		respondError(c, h.logger, "unable to update progress", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AutoSchedule books pending orders in priority order. ?limit= caps the batch.
func (h *PlanningHandler) AutoSchedule(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = v
	}

	result := h.svc.AutoSchedule(c.Request.Context(), limit)
	if result.Scheduled == nil {
		result.Scheduled = []models.ScheduleEntry{}
	}
	if result.Failures == nil {
		result.Failures = []planning.ScheduleFailure{}
	}
	c.JSON(http.StatusOK, result)
}

// ListSchedule returns schedule entries ordered by start, optionally filtered
// by ?line=.
func (h *PlanningHandler) ListSchedule(c *gin.Context) {
	line := models.LineID(c.Query("line"))
	entries := make([]models.ScheduleEntry, 0)
	for _, e := range h.state.Snapshot().Schedule {
		if line == "" || e.LineID == line {
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Start.Before(entries[j].Start) })
	c.JSON(http.StatusOK, gin.H{"schedule": entries})
}

func parseTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04:05", value, loc); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", value, loc)
}
