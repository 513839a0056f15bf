package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Database   DatabaseConfig   `json:"database" mapstructure:"database"`
	Redis      RedisConfig      `json:"redis" mapstructure:"redis"`
	Scraper    ScraperConfig    `json:"scraper" mapstructure:"scraper"`
	Sources    SourcesConfig    `json:"sources" mapstructure:"sources"`
	LLM        LLMConfig        `json:"llm" mapstructure:"llm"`
	Scheduler  SchedulerConfig  `json:"scheduler" mapstructure:"scheduler"`
	Monitoring MonitoringConfig `json:"monitoring" mapstructure:"monitoring"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            int           `json:"port" mapstructure:"port"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the job store
type DatabaseConfig struct {
	Driver      string `json:"driver" mapstructure:"driver"`
	PostgresURL string `json:"postgres_url" mapstructure:"postgres_url"`
	SupabaseURL string `json:"supabase_url" mapstructure:"supabase_url"`
	SupabaseKey string `json:"supabase_key" mapstructure:"supabase_key"`
}

// RedisConfig enables shared stop flags and status. An empty URL keeps both
// in process.
type RedisConfig struct {
	URL             string        `json:"url" mapstructure:"url"`
	Namespace       string        `json:"namespace" mapstructure:"namespace"`
	StopTTL         time.Duration `json:"stop_ttl" mapstructure:"stop_ttl"`
	StatusTTL       time.Duration `json:"status_ttl" mapstructure:"status_ttl"`
	// PublishInterval throttles status snapshots of a live run.
	PublishInterval time.Duration `json:"publish_interval" mapstructure:"publish_interval"`
}

// ScraperConfig holds search and analysis settings
type ScraperConfig struct {
	AnalysisConcurrency int           `json:"analysis_concurrency" mapstructure:"analysis_concurrency"`
	MaxQueries          int           `json:"max_queries" mapstructure:"max_queries"`
	RetryAttempts       int           `json:"retry_attempts" mapstructure:"retry_attempts"`
	InitialBackoff      time.Duration `json:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff          time.Duration `json:"max_backoff" mapstructure:"max_backoff"`
	RequestTimeout      time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
	BreakerFailures     int           `json:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerOpenFor      time.Duration `json:"breaker_open_for" mapstructure:"breaker_open_for"`
	UserAgent           string        `json:"user_agent" mapstructure:"user_agent"`
}

// SourcesConfig holds configuration for all job sources
type SourcesConfig struct {
	RemoteOK SourceConfig `json:"remoteok" mapstructure:"remoteok"`
	Remotive SourceConfig `json:"remotive" mapstructure:"remotive"`
	JobRoom  SourceConfig `json:"job_room" mapstructure:"job_room"`
}

// SourceConfig holds configuration for individual sources
type SourceConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	RateLimit int    `json:"rate_limit" mapstructure:"rate_limit"`
	BaseURL   string `json:"base_url" mapstructure:"base_url"`
}

// LLMConfig points at an OpenAI-compatible chat endpoint
type LLMConfig struct {
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	APIKey      string        `json:"api_key" mapstructure:"api_key"`
	Model       string        `json:"model" mapstructure:"model"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `json:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// SchedulerConfig controls recurring searches
type SchedulerConfig struct {
	Enabled              bool `json:"enabled" mapstructure:"enabled"`
	DefaultIntervalHours int  `json:"default_interval_hours" mapstructure:"default_interval_hours"`
}

// MonitoringConfig holds monitoring configuration
type MonitoringConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	Environment     string        `json:"environment" mapstructure:"environment"`
	MetricsAddr     string        `json:"metrics_addr" mapstructure:"metrics_addr"`
	MetricsInterval time.Duration `json:"metrics_interval" mapstructure:"metrics_interval"`
	LogLevel        string        `json:"log_level" mapstructure:"log_level"`
	LogFile         string        `json:"log_file" mapstructure:"log_file"`
}

// envAliases maps config keys to the conventional variable names used in
// deployment. The derived names (DATABASE_SUPABASE_URL, ...) work too.
var envAliases = map[string]string{
	"database.postgres_url":  "DATABASE_URL",
	"database.supabase_url":  "SUPABASE_URL",
	"database.supabase_key":  "SUPABASE_KEY",
	"redis.url":              "REDIS_URL",
	"llm.base_url":           "LLM_BASE_URL",
	"llm.api_key":            "LLM_API_KEY",
	"llm.model":              "LLM_MODEL",
	"server.port":            "PORT",
	"monitoring.log_level":   "LOG_LEVEL",
	"monitoring.environment": "APP_ENV",
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Redis: RedisConfig{
			Namespace:       "jobmatcher",
			StopTTL:         time.Hour,
			StatusTTL:       24 * time.Hour,
			PublishInterval: 2 * time.Second,
		},
		Scraper: ScraperConfig{
			AnalysisConcurrency: 10,
			MaxQueries:          20,
			RetryAttempts:       2,
			InitialBackoff:      time.Second,
			MaxBackoff:          10 * time.Second,
			RequestTimeout:      30 * time.Second,
			BreakerFailures:     5,
			BreakerOpenFor:      time.Minute,
			UserAgent:           "job-matcher-go/1.0",
		},
		Sources: SourcesConfig{
			RemoteOK: SourceConfig{Enabled: true, RateLimit: 60},
			Remotive: SourceConfig{Enabled: true, RateLimit: 100},
			JobRoom:  SourceConfig{Enabled: true, RateLimit: 30},
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "moonshotai/kimi-k2-instruct-0905",
			MaxTokens:   16384,
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Scheduler: SchedulerConfig{
			Enabled:              true,
			DefaultIntervalHours: 24,
		},
		Monitoring: MonitoringConfig{
			Enabled:         true,
			Environment:     "production",
			MetricsAddr:     ":9090",
			MetricsInterval: time.Minute,
			LogLevel:        "info",
			LogFile:         "",
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional JSON file
// and environment variables, in increasing priority. A missing file is not
// an error.
func LoadConfig(filename string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("json")

	defaults, err := json.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to encode defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if filename != "" {
		file, err := os.Open(filename)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		default:
			defer file.Close()
			if err := v.MergeConfig(file); err != nil {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env, strings.ToUpper(strings.ReplaceAll(key, ".", "_"))); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return config, nil
}

// SaveConfig saves configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the postgres driver")
		}
	case DriverSupabase:
		if c.Database.SupabaseURL == "" {
			return fmt.Errorf("supabase URL is required")
		}
		if c.Database.SupabaseKey == "" {
			return fmt.Errorf("supabase key is required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Scraper.AnalysisConcurrency <= 0 {
		return fmt.Errorf("analysis concurrency must be positive")
	}

	if c.Scraper.MaxQueries < 0 {
		return fmt.Errorf("max queries cannot be negative")
	}

	if c.Scraper.RetryAttempts < 0 {
		return fmt.Errorf("retry attempts cannot be negative")
	}

	if c.Scraper.BreakerFailures <= 0 {
		return fmt.Errorf("breaker failures must be positive")
	}

	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		return fmt.Errorf("llm base URL and model are required")
	}

	if c.Scheduler.DefaultIntervalHours <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}

	// Validate at least one source is enabled
	hasEnabledSource := c.Sources.RemoteOK.Enabled ||
		c.Sources.Remotive.Enabled ||
		c.Sources.JobRoom.Enabled

	if !hasEnabledSource {
		return fmt.Errorf("at least one job source must be enabled")
	}

	return nil
}
