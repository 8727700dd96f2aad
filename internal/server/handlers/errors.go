package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/domain/models"
	"github.com/mamadbah2/lineplan/internal/service/optimization"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrOrderNotFound), errors.Is(err, models.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateID),
		errors.Is(err, models.ErrAlreadyScheduled),
		errors.Is(err, models.ErrOverlap),
		errors.Is(err, optimization.ErrOptimizationInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidDuration),
		errors.Is(err, models.ErrNoCompatibleLine),
		errors.Is(err, models.ErrProgressRegression),
		errors.Is(err, models.ErrOrderClosed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error(msg, zap.Error(err))
		c.JSON(status, gin.H{"error": msg})
		return
	}
	logger.Warn(msg, zap.Error(err))
	c.JSON(status, gin.H{"error": err.Error()})
}
