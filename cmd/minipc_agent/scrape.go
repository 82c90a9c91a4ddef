package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gonfdez/minipc-agent/internal/cleaning"
	"github.com/gonfdez/minipc-agent/internal/config"
	"github.com/gonfdez/minipc-agent/internal/convert"
	"github.com/gonfdez/minipc-agent/internal/db"
	"github.com/gonfdez/minipc-agent/internal/extract"
	"github.com/gonfdez/minipc-agent/internal/images"
	"github.com/gonfdez/minipc-agent/internal/llm"
	"github.com/gonfdez/minipc-agent/internal/observability"
	"github.com/gonfdez/minipc-agent/internal/pipeline"
	"github.com/gonfdez/minipc-agent/internal/prompts"
	"github.com/gonfdez/minipc-agent/internal/types"
)

var scrapeCommand = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape vendor pages into structured catalog records",
	Long: `Runs the scraping batch end-to-end: render -> clean -> extract -> persist.

Targets come from a JSON config file (--config) mapping brands to URLs, or
from a newline-delimited URL file (--targets-file) combined with --brand.
Command-line arguments override config file values.`,
	RunE: runScrapeCmd,
}

var (
	scrapeConfigPath  string
	scrapeTargetsFile string
	scrapeBrand       string
	scrapeURL         string
	scrapeOutputDir   string
	scrapeRefresh     bool
	scrapeTimeout     string
	scrapeProvider    string
	scrapeEndpoint    string
	scrapeModel       string
	scrapeAPIKey      string
	scrapeDatabaseURL string
	scrapeNoCaptions  bool
	scrapeVerbose     bool
)

func init() {
	// Config file flag (processed first)
	scrapeCommand.Flags().StringVar(&scrapeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	scrapeCommand.Flags().StringVar(&scrapeTargetsFile, "targets-file", "", "Path to newline-delimited URL file (requires --brand)")
	scrapeCommand.Flags().StringVarP(&scrapeBrand, "brand", "b", "", "Brand for --targets-file or --url targets")
	scrapeCommand.Flags().StringVarP(&scrapeURL, "url", "u", "", "Single target URL (requires --brand)")
	scrapeCommand.Flags().StringVarP(&scrapeOutputDir, "output", "o", "", "Root directory for cleaned HTML and extracted JSON")
	scrapeCommand.Flags().BoolVar(&scrapeRefresh, "refresh", false, "Re-process targets that already have cached output")
	scrapeCommand.Flags().StringVar(&scrapeTimeout, "target-timeout", "", "Per-target timeout as a Go duration (default 3m)")
	scrapeCommand.Flags().BoolVar(&scrapeNoCaptions, "no-captions", false, "Skip generating alt text for kept images")
	scrapeCommand.Flags().BoolVarP(&scrapeVerbose, "verbose", "v", false, "Print detailed debug information")

	scrapeCommand.Flags().StringVar(&scrapeProvider, "llm-provider", "", `LLM provider: "openai" or "gemini" (default openai)`)
	scrapeCommand.Flags().StringVar(&scrapeEndpoint, "llm-endpoint", "", "Base URL for OpenAI-compatible servers (e.g. http://localhost:11434/v1)")
	scrapeCommand.Flags().StringVar(&scrapeModel, "llm-model", "", "Model name")

	// API key can be passed as a flag, or read from env var LLM_API_KEY
	scrapeCommand.Flags().StringVar(&scrapeAPIKey, "api-key", "", "LLM API key (optional, defaults to LLM_API_KEY env var)")

	// Database URL for catalog persistence
	scrapeCommand.Flags().StringVar(&scrapeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(scrapeCommand)
}

func runScrapeCmd(cmd *cobra.Command, _ []string) error {
	// Step 1: Load config file if provided
	var cfg config.Config
	if scrapeConfigPath != "" {
		loadedCfg, err := config.LoadConfig(scrapeConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loadedCfg
		if scrapeVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", scrapeConfigPath)
		}
	}

	// Step 2: Apply CLI overrides (command-line args take priority)
	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = scrapeOutputDir
	}
	if cmd.Flags().Changed("refresh") {
		cfg.RefreshExisting = scrapeRefresh
	}
	if cmd.Flags().Changed("target-timeout") {
		cfg.TargetTimeout = scrapeTimeout
	}
	if cmd.Flags().Changed("llm-provider") {
		cfg.LLMProvider = scrapeProvider
	}
	if cmd.Flags().Changed("llm-endpoint") {
		cfg.LLMEndpoint = scrapeEndpoint
	}
	if cmd.Flags().Changed("llm-model") {
		cfg.LLMModel = scrapeModel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = scrapeAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = scrapeDatabaseURL
	}

	// Step 3: Apply defaults for unset values
	cfg = cfg.MergeWithDefaults(config.Config{
		OutputDir:   "./scrapeResults",
		LLMProvider: "openai",
		LLMEndpoint: "http://localhost:11434/v1",
		LLMModel:    "qwen2.5:14b",
		APIKey:      os.Getenv("LLM_API_KEY"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	})

	// Config errors are fatal before any target runs
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Step 4: Resolve targets
	targets, err := resolveTargets(&cfg)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return fmt.Errorf("no targets: provide --config with targets, --targets-file, or --url")
	}

	timeout := pipeline.DefaultTargetTimeout
	if cfg.TargetTimeout != "" {
		timeout, err = time.ParseDuration(cfg.TargetTimeout)
		if err != nil {
			return fmt.Errorf("invalid target timeout %q: %w", cfg.TargetTimeout, err)
		}
	}

	logLevel := slog.LevelInfo
	if scrapeVerbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// Ctrl-C finishes the current target, then stops the batch
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Step 5: Wire the pipeline
	driver, err := convert.NewBrowserDriver(ctx)
	if err != nil {
		return err
	}
	defer driver.Close()

	client, err := llm.NewClient(ctx, &llm.Config{
		Provider: llm.Provider(cfg.LLMProvider),
		Endpoint: cfg.LLMEndpoint,
		Model:    cfg.LLMModel,
		APIKey:   cfg.APIKey,
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	prober := images.NewFetcher(images.Config{
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	})

	var captioner cleaning.Captioner
	if !scrapeNoCaptions {
		captioner = llm.NewImageCaptioner(client, prompts.MustGet("extraction.json", "caption"))
	}

	cleaner := cleaning.NewCleaner(cleaning.Config{
		Prober:    prober,
		Captioner: captioner,
		Logger:    logger,
	})

	converter := convert.NewConverter(convert.Config{
		Driver:     driver,
		Cleaner:    cleaner,
		OutputRoot: cfg.OutputDir,
		Logger:     logger,
	})

	extractor := extract.NewExtractor(extract.Config{
		Client:     client,
		OutputRoot: cfg.OutputDir,
		Logger:     logger,
	})

	var store pipeline.Store
	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer database.Close()
		if err := database.EnsureSchema(ctx); err != nil {
			return err
		}
		store = database
	} else {
		logger.Warn("no database URL configured, records go to disk only")
	}

	// Step 6: Run the batch
	summary, runErr := pipeline.Run(ctx, pipeline.RunOptions{
		Targets:         targets,
		Converter:       converter,
		Extractor:       extractor,
		Store:           store,
		RefreshExisting: cfg.RefreshExisting,
		TargetTimeout:   timeout,
		Logger:          logger,
	})

	observability.NewPrinter(os.Stdout).PrintSummary(summary)

	if runErr != nil {
		return runErr
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d targets failed", summary.Failed, summary.Attempted)
	}
	return nil
}

// resolveTargets merges targets from the config map, the targets file, and
// the single-URL flag.
func resolveTargets(cfg *config.Config) ([]types.Target, error) {
	targets := cfg.ScrapeTargets()

	if scrapeTargetsFile != "" {
		fileTargets, err := config.LoadTargetsFile(scrapeTargetsFile, scrapeBrand)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fileTargets...)
	}

	if scrapeURL != "" {
		if scrapeBrand == "" {
			return nil, fmt.Errorf("--url requires --brand")
		}
		targets = append(targets, types.Target{URL: scrapeURL, Brand: scrapeBrand})
	}

	return targets, nil
}
