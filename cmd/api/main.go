package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/timmy/recordhub/internal/api"
	"github.com/timmy/recordhub/internal/api/middleware"
	"github.com/timmy/recordhub/internal/config"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/metrics"
	"github.com/timmy/recordhub/internal/repository"
	"github.com/timmy/recordhub/internal/scheduler"
	"github.com/timmy/recordhub/internal/service"
	"github.com/timmy/recordhub/internal/storage"
)

func main() {
	// Load configuration
	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.GetDefault().WithError(err).Fatal("Failed to load config")
	}

	// Initialize logger
	appLogger := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "recordhub-api",
		Environment: cfg.Log.Environment,
		File:        cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	store := repository.NewStore(db)

	ctx := context.Background()

	// Initialize storage (supports R2, S3 and compatible endpoints)
	var objects storage.ObjectStorage
	if cfg.Storage.Enabled() {
		if err := cfg.Storage.Validate(); err != nil {
			appLogger.WithError(err).Fatal("Invalid storage configuration")
		}
		objects, err = storage.NewStorage(ctx, &cfg.Storage)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize storage")
		}
	}

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector, err := metrics.New(reg)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to register metrics")
	}

	// Pipeline and the single-flight trigger shared by cron and manual runs
	pipeline := service.NewPipeline(
		store,
		service.NewConnectorRegistry(cfg.ETL, storage.NewOpener(objects)),
		service.PipelineConfigFrom(cfg.ETL),
		service.WithMetrics(collector),
	)
	trigger := scheduler.NewTrigger(pipeline, cfg.EnabledSources)

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler.Cron, trigger)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to create scheduler")
		}
		sched.Start(cfg.Scheduler.RunOnStart)
		appLogger.WithField("next_run", sched.Next()).Info("Scheduler enabled")
	}

	// Setup router
	router := api.SetupRouter(api.Deps{
		Store:    store,
		Trigger:  trigger,
		Gatherer: reg,
		Logger:   appLogger,
	}, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	if sched != nil {
		sched.Stop(30 * time.Second)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	appLogger.Info("Server exited")
}
