package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/arca/internal/browser"
	"github.com/ternarybob/arca/internal/common"
	"github.com/ternarybob/arca/internal/interfaces"
	"github.com/ternarybob/arca/internal/models"
	"github.com/ternarybob/arca/internal/services/detector"
	"github.com/ternarybob/arca/internal/services/executor"
	"github.com/ternarybob/arca/internal/services/exporter"
	"github.com/ternarybob/arca/internal/services/orchestrator"
	"github.com/ternarybob/arca/internal/services/registry"
	"github.com/ternarybob/arca/internal/services/snapshot"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	targetURL    = flag.String("url", "", "Archive URL to extract from (required)")
	outputFile   = flag.String("output", "", "Output file path (overrides config)")
	outputFormat = flag.String("format", "", "Output format: csv or json (overrides config)")
	maxPages     = flag.Int("max-pages", 0, "Maximum result pages to traverse (overrides config)")
	staticMode   = flag.Bool("static", false, "Force plain HTTP fetching without a browser")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// Global state
	config *common.Config
	logger arbor.ILogger
)

func init() {
	// Register custom flag for multiple config files
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Arca version %s\n", common.GetVersion())
		os.Exit(0)
	}

	if *targetURL == "" {
		fmt.Fprintln(os.Stderr, "Usage: arca -url <archive-url> [-config arca.toml] [-output records.csv]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("arca.toml"); err == nil {
			configFiles = append(configFiles, "arca.toml")
		}
	}

	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *outputFile != "" {
		config.Output.File = *outputFile
	}
	if *outputFormat != "" {
		config.Output.Format = *outputFormat
	}
	if *maxPages > 0 {
		config.Agent.MaxPages = *maxPages
	}

	logger = common.InitLogger(config)
	common.PrintBanner()

	if err := config.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Configuration is invalid")
		os.Exit(1)
	}

	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Str("url", *targetURL).
		Msg("Starting extraction")

	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := registry.New()
	if err := reg.LoadDir(config.Registry.Dir); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load archive patterns")
		return 1
	}

	store, err := snapshot.Open(config.Storage.Badger.Path, config.Storage.Badger.ResetOnStartup)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open snapshot store")
		return 1
	}
	defer store.Close()

	page, cleanup, err := openPage(reg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open page")
		return 1
	}
	defer cleanup()

	limiter := browser.NewDomainLimiter(config.Browser.RequestDelay)

	execOpts := []executor.Option{executor.WithMaxResults(config.Agent.MaxResults)}
	if config.Agent.ScreenshotOnError {
		if err := os.MkdirAll(config.Agent.ScreenshotDir, 0755); err == nil {
			execOpts = append(execOpts, executor.WithScreenshots(config.Agent.ScreenshotDir))
		}
	}

	agent := orchestrator.New(
		orchestrator.Config{
			MaxPages:              config.Agent.MaxPages,
			MaxResults:            config.Agent.MaxResults,
			MaxCorrectionAttempts: config.Agent.MaxCorrectionAttempts,
			MinConfidence:         config.Agent.MinConfidence,
			CorrectionPause:       config.Agent.CorrectionPause,
			SaveIntermediate:      config.Agent.SaveIntermediate,
			IntermediateFile:      config.Output.File + ".partial",
		},
		detector.New(),
		executor.New(execOpts...),
		orchestrator.WithRegistry(reg),
		orchestrator.WithSnapshots(store),
		orchestrator.WithLimiter(limiter),
	)

	schema := models.DefaultArchiveSchema()
	result, err := agent.Run(ctx, page, *targetURL, schema)
	if err != nil {
		logger.Error().Err(err).Int("records", len(result.Records)).Msg("Extraction run failed")
		if len(result.Records) == 0 {
			return 1
		}
		// Fall through and save whatever was extracted.
	}

	if len(result.Records) == 0 {
		logger.Error().Str("url", *targetURL).Msg("No records extracted")
		return 1
	}

	if err := exporter.New().Save(result.Records, schema, config.Output.File, config.Output.Format); err != nil {
		logger.Error().Err(err).Msg("Failed to save records")
		return 1
	}

	verified := result.Verification != nil && result.Verification.Valid
	logger.Info().
		Str("run_id", result.RunID).
		Int("records", len(result.Records)).
		Int("attempts", result.Attempts).
		Bool("verified", verified).
		Str("output", config.Output.File).
		Msg("Extraction finished")

	if !verified {
		logger.Warn().Msg("Output saved but did not pass verification; review before use")
	}
	return 0
}

// openPage picks the page implementation: plain HTTP for archives the
// registry marks as static (or when forced), chromedp otherwise.
func openPage(reg *registry.Registry) (interfaces.Page, func(), error) {
	pattern := reg.Lookup(*targetURL)
	useStatic := *staticMode || (pattern != nil && !pattern.JavaScriptRequired)

	if useStatic {
		logger.Info().Msg("Using static HTTP fetching")
		page := browser.NewStaticPage(nil, config.Browser.UserAgent)
		return page, func() { page.Close() }, nil
	}

	pool := browser.NewPool(logger)
	if err := pool.Init(config.Browser); err != nil {
		return nil, nil, err
	}

	page, err := browser.NewBrowserPage(pool, config.Browser.NavigationTimeout, logger)
	if err != nil {
		pool.Shutdown()
		return nil, nil, err
	}

	cleanup := func() {
		page.Close()
		pool.Shutdown()
	}
	return page, cleanup, nil
}
