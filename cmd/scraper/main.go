package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"job-matcher-go/internal/api"
	"job-matcher-go/internal/app"
	"job-matcher-go/internal/config"
	"job-matcher-go/internal/metrics"
	"job-matcher-go/internal/scheduler"
	"job-matcher-go/internal/scraper"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath())
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	logger, err := app.NewLogger(cfg, "job-matcher")
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("service failed", zap.Error(err))
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		return path
	}
	return "config.json"
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	logger.Info("starting job matcher",
		zap.String("storage", cfg.Database.Driver),
		zap.Int("analysis_concurrency", cfg.Scraper.AnalysisConcurrency),
		zap.Int("providers", len(components.Registry.Descriptors())))

	orchestrator := components.Orchestrator

	var sched *scheduler.Scheduler
	var schedules api.ScheduleService
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(orchestrator, components.Store, cfg.Scheduler.DefaultIntervalHours, logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		schedules = sched
	}

	server := api.NewServer(orchestrator, components.Store, components.Store, schedules, logger)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("api listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var metricsServer *http.Server
	var metricsDone chan struct{}
	if cfg.Monitoring.Enabled {
		metricsServer = metrics.NewServer(cfg.Monitoring.MetricsAddr)
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()

		metricsDone = make(chan struct{})
		go runStatsReporting(ctx, orchestrator, cfg.Monitoring.MetricsInterval, logger, metricsDone)
	}

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	case err := <-serverErr:
		logger.Error("api server failed", zap.Error(err))
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		<-sched.Stop().Done()
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api shutdown", zap.Error(err))
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		logger.Warn("runs did not finish before shutdown timeout", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown", zap.Error(err))
		}
		<-metricsDone
	}

	logStats(orchestrator.Stats(), logger)
	logger.Info("job matcher shutdown complete")
	return nil
}

// runStatsReporting periodically logs aggregated run statistics
func runStatsReporting(ctx context.Context, orchestrator *scraper.Orchestrator, interval time.Duration, logger *zap.Logger, done chan struct{}) {
	defer close(done)
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logStats(orchestrator.Stats(), logger)
		}
	}
}

func logStats(stats scraper.StatsSnapshot, logger *zap.Logger) {
	logger.Info("run statistics",
		zap.Int64("done", stats.Runs["done"]),
		zap.Int64("stopped", stats.Runs["stopped"]),
		zap.Int64("error", stats.Runs["error"]),
		zap.Int("found", stats.Totals.Found),
		zap.Int("saved", stats.Totals.Saved),
		zap.Int("duplicates", stats.Totals.Duplicates),
		zap.Int("provider_errors", stats.Totals.ProviderErrors),
		zap.Duration("last_run", stats.LastRunDuration))

	names := make([]string, 0, len(stats.Providers))
	for name := range stats.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := stats.Providers[name]
		logger.Info("provider statistics",
			zap.String("provider", name),
			zap.Int64("calls", p.Calls),
			zap.Int64("errors", p.Errors),
			zap.Int64("listings", p.Listings),
			zap.Duration("response_time", p.ResponseTime),
			zap.String("last_error", p.LastError))
	}
}
