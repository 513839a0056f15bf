// Package app wires configuration into the running components shared by the
// service and the CLI.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"job-matcher-go/internal/cache"
	"job-matcher-go/internal/config"
	"job-matcher-go/internal/llm"
	"job-matcher-go/internal/logger"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/storage"
	"job-matcher-go/internal/tasks"
	"job-matcher-go/pkg/httpclient"
)

// Components are the long-lived parts of a process.
type Components struct {
	Config       *config.Config
	Store        storage.Store
	Redis        *redis.Client
	Registry     *sources.Registry
	Stats        *scraper.Stats
	Orchestrator *scraper.Orchestrator
	Logger       *zap.Logger
}

// NewLogger builds the process logger from the monitoring section.
func NewLogger(cfg *config.Config, service string) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Environment: cfg.Monitoring.Environment,
		Level:       cfg.Monitoring.LogLevel,
		ServiceName: service,
		File:        cfg.Monitoring.LogFile,
	})
}

// OpenStore connects the configured storage driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (storage.Store, error) {
	switch cfg.Driver {
	case config.DriverMemory, "":
		return storage.NewMemoryStore(), nil
	case config.DriverPostgres:
		return storage.NewPostgresStore(ctx, cfg.PostgresURL)
	case config.DriverSupabase:
		return storage.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// GuardConfig derives provider guard settings from the scraper section.
func GuardConfig(cfg config.ScraperConfig, src config.SourceConfig) scraper.GuardConfig {
	return scraper.GuardConfig{
		RetryAttempts:    cfg.RetryAttempts,
		InitialBackoff:   cfg.InitialBackoff,
		MaxBackoff:       cfg.MaxBackoff,
		Timeout:          cfg.RequestTimeout,
		BreakerFailures:  uint32(cfg.BreakerFailures),
		BreakerOpenFor:   cfg.BreakerOpenFor,
		RequestPerMinute: src.RateLimit,
	}
}

// BuildRegistry registers every known provider, guarded, with its enabled
// flag from cfg. Disabled providers stay registered so they can be listed.
func BuildRegistry(cfg *config.Config, stats *scraper.Stats, log *zap.Logger) (*sources.Registry, error) {
	client := httpclient.NewHttpClient(cfg.Scraper.RequestTimeout).WithUserAgent(cfg.Scraper.UserAgent)
	limiter := scraper.NewRateLimiter()

	entries := []struct {
		provider sources.Provider
		src      config.SourceConfig
	}{
		{sources.NewJobRoomSource(client, cfg.Sources.JobRoom.BaseURL), cfg.Sources.JobRoom},
		{sources.NewRemotiveSource(client, cfg.Sources.Remotive.BaseURL), cfg.Sources.Remotive},
		{sources.NewRemoteOKSource(client, cfg.Sources.RemoteOK.BaseURL), cfg.Sources.RemoteOK},
	}

	registry := sources.NewRegistry()
	for _, e := range entries {
		guarded := scraper.NewGuard(e.provider, GuardConfig(cfg.Scraper, e.src), limiter, stats, log)
		if err := registry.Register(guarded, sources.ProviderConfig{Enabled: e.src.Enabled, RateLimit: e.src.RateLimit}); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Build opens storage and Redis and wires the orchestrator. Without a Redis
// URL stop flags and status stay in process.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Components, error) {
	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	c := &Components{Config: cfg, Store: store, Stats: scraper.NewStats(), Logger: log}

	c.Registry, err = BuildRegistry(cfg, c.Stats, log)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to register providers: %w", err)
	}

	client := llm.NewClient(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, log)

	deps := scraper.Dependencies{
		Registry: c.Registry,
		Planner:  llm.NewPlanner(client, log),
		Scorer:   llm.NewScorer(client, log),
		Store:    store,
		Stats:    c.Stats,
	}

	if cfg.Redis.URL != "" {
		c.Redis, err = cache.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		keys := cache.NewKeyBuilder(cfg.Redis.Namespace)
		deps.Stops = cache.NewStopFlags(c.Redis, keys, cfg.Redis.StopTTL, log)
		deps.Mirror = cache.NewStatusMirror(c.Redis, keys, cfg.Redis.StatusTTL)
		deps.MirrorInterval = cfg.Redis.PublishInterval
		log.Info("using redis for stop flags and run status")
	} else {
		deps.Stops = tasks.NewStopFlags()
	}

	c.Orchestrator = scraper.NewOrchestrator(deps, cfg.Scraper.AnalysisConcurrency, log)
	return c, nil
}

// Close releases storage and Redis.
func (c *Components) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if c.Store != nil {
		c.Store.Close()
	}
}
