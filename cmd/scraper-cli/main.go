package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"job-matcher-go/internal/app"
	"job-matcher-go/internal/config"
	"job-matcher-go/internal/models"
	"job-matcher-go/internal/scraper"
	"job-matcher-go/internal/scraper/sources"
	"job-matcher-go/internal/status"
	"job-matcher-go/internal/storage"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	var (
		configFile  = flag.String("config", "config.json", "Configuration file path")
		command     = flag.String("cmd", "run", "Command to run: run, status, test, config, sources")
		profileID   = flag.String("profile", "", "Profile id to run or inspect")
		profileFile = flag.String("profile-file", "", "JSON file with an ad hoc search profile")
		source      = flag.String("source", "", "Specific source to test (job_room, remotive, remoteok)")
		query       = flag.String("query", "golang", "Query used by -cmd test")
		output      = flag.String("output", "console", "Output format: console, json")
		verbose     = flag.Bool("verbose", false, "Verbose output")
		help        = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	// Show help if requested
	if *help {
		printUsage()
		os.Exit(0)
	}

	// Load environment variables
	if err := godotenv.Load(); err != nil && *verbose {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if !*verbose {
		cfg.Monitoring.LogLevel = "warn"
	}

	logger, err := app.NewLogger(cfg, "job-matcher-cli")
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Execute command
	switch *command {
	case "run":
		err = runSearchCommand(ctx, cfg, logger, *profileID, *profileFile, *output)
	case "status":
		err = runStatusCommand(ctx, cfg, logger, *profileID, *output)
	case "test":
		err = runTestCommand(ctx, cfg, logger, *source, *query)
	case "config":
		err = runConfigCommand(cfg, *output)
	case "sources":
		err = runSourcesCommand(cfg, logger, *output)
	default:
		fmt.Printf("Unknown command: %s\n", *command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", *command, err)
	}
}

func runSearchCommand(ctx context.Context, cfg *config.Config, logger *zap.Logger, profileID, profileFile, output string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	profile, err := resolveProfile(ctx, components.Store, profileID, profileFile)
	if err != nil {
		return err
	}
	if profile.MaxQueries == 0 {
		profile.MaxQueries = cfg.Scraper.MaxQueries
	}

	fmt.Printf("Running search for profile %q...\n", profile.Name)
	start := time.Now()
	run, err := components.Orchestrator.Run(ctx, profile)
	if err != nil {
		return err
	}

	if output == "json" {
		return outputJSON(run)
	}
	outputRun(run, time.Since(start))

	if run.State == status.StateDone {
		jobs, err := components.Store.ListJobs(ctx, profile.ID)
		if err != nil {
			return fmt.Errorf("list jobs: %w", err)
		}
		outputJobs(jobs)
	}
	return nil
}

// resolveProfile loads a stored profile, or reads one from a file. File
// profiles are saved into the in-memory store so the run can find them.
func resolveProfile(ctx context.Context, store storage.Store, profileID, profileFile string) (models.SearchProfile, error) {
	if profileFile != "" {
		raw, err := os.ReadFile(profileFile)
		if err != nil {
			return models.SearchProfile{}, fmt.Errorf("read profile file: %w", err)
		}
		var profile models.SearchProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return models.SearchProfile{}, fmt.Errorf("decode profile file: %w", err)
		}
		if profile.ID == "" {
			profile.ID = strings.TrimSuffix(profileFile, ".json")
		}
		if mem, ok := store.(*storage.MemoryStore); ok {
			mem.SaveProfile(profile)
		}
		return profile, nil
	}

	if profileID == "" {
		return models.SearchProfile{}, fmt.Errorf("-profile or -profile-file is required")
	}
	return store.GetProfile(ctx, profileID)
}

func runStatusCommand(ctx context.Context, cfg *config.Config, logger *zap.Logger, profileID, output string) error {
	if profileID == "" {
		return fmt.Errorf("-profile is required")
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("status lookups need redis.url; run status only lives in the service process otherwise")
	}

	components, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	run := components.Orchestrator.Status(ctx, profileID)
	if output == "json" {
		return outputJSON(run)
	}
	outputRun(run, 0)
	return nil
}

func runTestCommand(ctx context.Context, cfg *config.Config, logger *zap.Logger, source, query string) error {
	fmt.Println("Testing job sources...")

	registry, err := app.BuildRegistry(cfg, scraper.NewStats(), logger)
	if err != nil {
		return err
	}

	names := []string{source}
	if source == "" {
		names = names[:0]
		for _, d := range registry.Descriptors() {
			names = append(names, d.Name)
		}
	}

	q := models.SearchQuery{Domain: models.DomainIT, Type: models.QueryTypeKeyword, Language: "en", QueryText: query}
	req := sources.BuildRequest(q, models.SearchProfile{})
	for _, name := range names {
		testSingleSource(ctx, registry, name, req)
	}
	return nil
}

func testSingleSource(ctx context.Context, registry *sources.Registry, name string, req sources.SearchRequest) {
	fmt.Printf("Testing source: %s\n", name)

	provider, err := registry.Get(name)
	if err != nil {
		fmt.Printf("❌ %s: %v\n", name, err)
		return
	}

	start := time.Now()
	listings, err := provider.Search(ctx, req)
	if err != nil {
		fmt.Printf("❌ %s test failed: %v\n", name, err)
		return
	}
	fmt.Printf("✅ %s test passed: fetched %d listings in %v\n", name, len(listings), time.Since(start))
}

func runConfigCommand(cfg *config.Config, output string) error {
	masked := *cfg
	masked.Database.SupabaseKey = maskString(cfg.Database.SupabaseKey)
	masked.Database.PostgresURL = maskString(cfg.Database.PostgresURL)
	masked.LLM.APIKey = maskString(cfg.LLM.APIKey)

	if output == "json" {
		return outputJSON(masked)
	}

	fmt.Println("Current Configuration:")
	fmt.Printf("Storage Driver: %s\n", masked.Database.Driver)
	fmt.Printf("Database URL: %s\n", maskString(cfg.Database.SupabaseURL))
	fmt.Printf("Redis: %s\n", maskString(cfg.Redis.URL))
	fmt.Printf("LLM: %s (%s)\n", masked.LLM.Model, masked.LLM.BaseURL)
	fmt.Printf("Analysis Concurrency: %d\n", cfg.Scraper.AnalysisConcurrency)
	fmt.Printf("Max Queries: %d\n", cfg.Scraper.MaxQueries)
	fmt.Printf("Retries: %d, Breaker: %d failures / %v\n", cfg.Scraper.RetryAttempts, cfg.Scraper.BreakerFailures, cfg.Scraper.BreakerOpenFor)
	fmt.Printf("Scheduler Enabled: %t (default every %dh)\n", cfg.Scheduler.Enabled, cfg.Scheduler.DefaultIntervalHours)
	fmt.Printf("Monitoring Enabled: %t (%s)\n", cfg.Monitoring.Enabled, cfg.Monitoring.MetricsAddr)
	return nil
}

func runSourcesCommand(cfg *config.Config, logger *zap.Logger, output string) error {
	registry, err := app.BuildRegistry(cfg, scraper.NewStats(), logger)
	if err != nil {
		return err
	}

	type sourceInfo struct {
		sources.Descriptor
		Enabled bool `json:"enabled"`
	}
	var all []sourceInfo
	for _, name := range []string{sources.JobRoomName, sources.RemotiveName, sources.RemoteOKName} {
		rc, _ := registry.Config(name)
		info := sourceInfo{Descriptor: sources.Descriptor{Name: name}, Enabled: rc.Enabled}
		for _, d := range registry.Descriptors() {
			if d.Name == name {
				info.Descriptor = d
			}
		}
		info.RateLimit = rc.RateLimit
		all = append(all, info)
	}

	if output == "json" {
		return outputJSON(all)
	}

	fmt.Println("Available Job Sources:")
	for _, s := range all {
		state := "disabled"
		if s.Enabled {
			state = "enabled"
		}
		domains := strings.Join(s.AcceptedDomains, ", ")
		if domains == "" {
			domains = "-"
		}
		fmt.Printf("- %s: %s, domains [%s] (rate limit: %d/min)\n", s.Name, state, domains, s.RateLimit)
	}
	return nil
}

func outputJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputRun(run status.RunStatus, took time.Duration) {
	fmt.Println("=== Search Results ===")
	fmt.Printf("State: %s\n", run.State)
	if run.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", run.ErrorMessage)
	}
	fmt.Printf("Listings Found: %d\n", run.Counters.Found)
	fmt.Printf("New: %d\n", run.Counters.New)
	fmt.Printf("Duplicates: %d\n", run.Counters.Duplicates)
	fmt.Printf("Skipped (irrelevant): %d\n", run.Counters.SkippedIrrelevant)
	fmt.Printf("Saved: %d\n", run.Counters.Saved)
	fmt.Printf("Errors: %d\n", run.Counters.ProviderErrors)
	if took > 0 {
		fmt.Printf("Duration: %v\n", took.Round(time.Millisecond))
	}
}

func outputJobs(jobs []models.Job) {
	if len(jobs) == 0 {
		return
	}
	fmt.Println("\n=== Top Matches ===")
	for i, j := range jobs {
		if i == 10 {
			break
		}
		marker := ""
		if j.WorthApplying {
			marker = " ★"
		}
		fmt.Printf("%3d  %s @ %s%s\n     %s\n", j.AffinityScore, j.Title, j.Company, marker, j.URL)
	}
}

func maskString(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

func printUsage() {
	fmt.Println("Job Matcher CLI Tool")
	fmt.Println("Usage:")
	fmt.Println("  scraper-cli [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  -cmd run       - Run a search for -profile or -profile-file")
	fmt.Println("  -cmd status    - Show the last run of -profile (needs redis)")
	fmt.Println("  -cmd test      - Test job sources with -query")
	fmt.Println("  -cmd config    - Show configuration")
	fmt.Println("  -cmd sources   - List job sources")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
}
