package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/recordhub/internal/config"
	"github.com/timmy/recordhub/internal/domain"
	"github.com/timmy/recordhub/internal/logger"
	"github.com/timmy/recordhub/internal/metrics"
	"github.com/timmy/recordhub/internal/repository"
	"github.com/timmy/recordhub/internal/service"
	"github.com/timmy/recordhub/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "recordhub-etl",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	sourceName := flag.String("source", "", "Only process this source (default: every enabled source)")
	retries := flag.Int("retries", 0, "Override etl.max_retries (total invocation attempts)")
	metricsFile := flag.String("metrics-file", "", "Write Prometheus metrics to this file on exit (node_exporter textfile format)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger = logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		ServiceName: "recordhub-etl",
		Environment: cfg.Log.Environment,
		File:        cfg.Log.File,
		MaxSize:     cfg.Log.MaxSize,
		MaxBackups:  cfg.Log.MaxBackups,
		MaxAge:      cfg.Log.MaxAge,
		Compress:    cfg.Log.Compress,
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	if *retries > 0 {
		cfg.ETL.MaxRetries = *retries
	}

	sources := cfg.EnabledSources()
	if *sourceName != "" {
		src, ok := cfg.SourceByName(*sourceName)
		if !ok {
			appLogger.WithField("source", *sourceName).Fatal("Unknown source")
		}
		src.Enabled = true
		sources = []domain.SourceConfig{src}
	}
	if len(sources) == 0 {
		appLogger.Warn("No enabled sources configured, nothing to do")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	store := repository.NewStore(db)

	// Object storage is only needed for s3:// file locations
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

	// Nothing scrapes a one-shot run; metrics are only kept when they can be written out.
	var textfile *metrics.Textfile
	var collector *metrics.Collector
	if *metricsFile != "" {
		textfile, err = metrics.NewTextfile(*metricsFile)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to register metrics")
		}
		collector = textfile.Collector
	}

	pipeline := service.NewPipeline(
		store,
		service.NewConnectorRegistry(cfg.ETL, storage.NewOpener(objects)),
		service.PipelineConfigFrom(cfg.ETL),
		service.WithMetrics(collector),
	)

	appLogger.WithFields(logger.Fields{
		"sources":     len(sources),
		"max_retries": cfg.ETL.MaxRetries,
	}).Info("Starting pipeline invocation")

	summary, err := pipeline.RunWithRetry(ctx, sources)
	if textfile != nil {
		if werr := textfile.Write(); werr != nil {
			appLogger.WithError(werr).Warn("Failed to write metrics file")
		}
	}
	if err != nil {
		appLogger.WithError(err).Error("Pipeline invocation failed")
		logger.Sync()
		if errors.Is(err, service.ErrInvocationExhausted) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	for _, st := range summary.Sources {
		entry := appLogger.WithFields(logger.Fields{
			logger.FieldSource:    st.Source,
			logger.FieldRunID:     st.RunID,
			logger.FieldStatus:    st.Status,
			logger.FieldProcessed: st.Counts.Processed,
			logger.FieldInserted:  st.Counts.Inserted,
			logger.FieldUpdated:   st.Counts.Updated,
			logger.FieldFailed:    st.Counts.Failed,
		})
		if st.Error != "" {
			entry.WithField("error", st.Error).Warn("Source finished with errors")
			continue
		}
		entry.Info("Source finished")
	}

	appLogger.WithFields(logger.Fields{
		"attempts":             summary.Attempts,
		"failed_sources":       summary.Totals.FailedSources,
		logger.FieldProcessed:  summary.Totals.Processed,
		logger.FieldInserted:   summary.Totals.Inserted,
		logger.FieldUpdated:    summary.Totals.Updated,
		logger.FieldFailed:     summary.Totals.Failed,
		logger.FieldDurationMs: summary.FinishedAt.Sub(summary.StartedAt).Milliseconds(),
	}).Info("Pipeline invocation completed")
}
