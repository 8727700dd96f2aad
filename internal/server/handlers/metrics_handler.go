package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/metrics"
	"github.com/mamadbah2/lineplan/internal/service/optimization"
)

// MetricsService computes KPI snapshots and reports.
type MetricsService interface {
	Current(ctx context.Context) metrics.Snapshot
	Report(ctx context.Context) metrics.Report
}

// Optimizer applies and resets optimization weights.
type Optimizer interface {
	Run(ctx context.Context, w models.OptimizationWeights, rescale bool) (optimization.Outcome, error)
	Reset(ctx context.Context) (optimization.Outcome, error)
	Last() (optimization.Outcome, bool)
	Baseline() models.ProductionMetrics
}

// HistoryReader lists persisted metrics snapshots.
type HistoryReader interface {
	RecentSnapshots(ctx context.Context, limit int64) ([]models.MetricsRecord, error)
}

// MetricsHandler serves metrics and optimization endpoints.
type MetricsHandler struct {
	metrics   MetricsService
	optimizer Optimizer
	history   HistoryReader
	logger    *zap.Logger
}

// NewMetricsHandler constructs the metrics HTTP adapter.
func NewMetricsHandler(m MetricsService, o Optimizer, logger *zap.Logger) *MetricsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsHandler{metrics: m, optimizer: o, logger: logger}
}

// WithHistory enables the snapshot history endpoint.
func (h *MetricsHandler) WithHistory(r HistoryReader) *MetricsHandler {
	h.history = r
	return h
}

// Current returns the live metrics snapshot.
func (h *MetricsHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Current(c.Request.Context()))
}

// Report returns the snapshot with order statistics and recommendations.
func (h *MetricsHandler) Report(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.Report(c.Request.Context()))
}

// History returns recent persisted snapshots, newest first. ?limit= caps the
// result (default 20).
func (h *MetricsHandler) History(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "metrics history is not configured"})
		return
	}

	limit := int64(20)
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = v
	}

	records, err := h.history.RecentSnapshots(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, "unable to read metrics history", err)
		return
	}
	if records == nil {
		records = []models.MetricsRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": records})
}

// LastOptimization returns the most recent optimization outcome.
func (h *MetricsHandler) LastOptimization(c *gin.Context) {
	outcome, ok := h.optimizer.Last()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no optimization has run", "baseline": h.optimizer.Baseline()})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

type optimizeRequest struct {
	models.OptimizationWeights
	Rescale *bool `json:"rescale_lines"`
}

// Optimize applies slider weights to the baseline. Line efficiencies are
// rescaled unless rescale_lines is false.
func (h *MetricsHandler) Optimize(c *gin.Context) {
	var req optimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid optimization payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	rescale := req.Rescale == nil || *req.Rescale

	outcome, err := h.optimizer.Run(c.Request.Context(), req.OptimizationWeights, rescale)
	if err != nil {
		respondError(c, h.logger, "unable to apply optimization", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

// ResetOptimization restores the baseline.
func (h *MetricsHandler) ResetOptimization(c *gin.Context) {
	outcome, err := h.optimizer.Reset(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "unable to reset optimization", err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
