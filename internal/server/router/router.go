package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/server/handlers"
)

// Handlers groups the HTTP adapters mounted by the router.
type Handlers struct {
	Planning *handlers.PlanningHandler
	Metrics  *handlers.MetricsHandler
	// Prometheus serves /metrics when set.
	Prometheus http.Handler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	api := r.Group("/api")
	{
		api.GET("/lines", h.Planning.ListLines)
		api.POST("/lines", h.Planning.CreateLine)

		api.GET("/orders", h.Planning.ListOrders)
		api.POST("/orders", h.Planning.CreateOrder)
		api.POST("/orders/:id/schedule", h.Planning.ScheduleOrder)
		api.POST("/orders/:id/schedule/manual", h.Planning.ScheduleOrderManual)
		api.PUT("/orders/:id/progress", h.Planning.UpdateProgress)

		api.GET("/schedule", h.Planning.ListSchedule)
		api.POST("/schedule/auto", h.Planning.AutoSchedule)

		api.GET("/metrics", h.Metrics.Current)
		api.GET("/metrics/report", h.Metrics.Report)
		api.GET("/metrics/history", h.Metrics.History)

		api.GET("/optimize", h.Metrics.LastOptimization)
		api.POST("/optimize", h.Metrics.Optimize)
		api.POST("/optimize/reset", h.Metrics.ResetOptimization)
	}

	if h.Prometheus != nil {
		r.GET("/metrics", gin.WrapH(h.Prometheus))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
