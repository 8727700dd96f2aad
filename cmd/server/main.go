package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/lineplan/internal/app"
	"github.com/mamadbah2/lineplan/internal/config"
	"github.com/mamadbah2/lineplan/internal/server/handlers"
	"github.com/mamadbah2/lineplan/internal/server/router"
	"github.com/mamadbah2/lineplan/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	plant, err := app.New(bootCtx, cfg, app.Options{}, baseLogger)
	bootCancel()
	if err != nil {
		baseLogger.Fatal("failed to initialize application", zap.Error(err))
	}

	metricsHandler := handlers.NewMetricsHandler(plant.Metrics, plant.Optimizer, baseLogger.Named("handlers.metrics"))
	if plant.History != nil {
		metricsHandler.WithHistory(plant.History)
	}

	engine := router.New(router.Handlers{
		Planning:   handlers.NewPlanningHandler(plant.Planning, plant.Store, cfg.Location(), baseLogger.Named("handlers.planning")),
		Metrics:    metricsHandler,
		Prometheus: plant.Collector.Handler(),
	}, baseLogger.Named("router"))

	if err := plant.Reconciler.Start(); err != nil {
		baseLogger.Fatal("failed to start reconciler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	if err := plant.Close(shutdownCtx); err != nil {
		baseLogger.Error("failed to release resources", zap.Error(err))
	}
}
