package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Logging     LoggingConfig  `toml:"logging"`
	Browser     BrowserConfig  `toml:"browser"`
	Agent       AgentConfig    `toml:"agent"`
	Storage     StorageConfig  `toml:"storage"`
	Registry    RegistryConfig `toml:"registry"`
	Output      OutputConfig   `toml:"output"`
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"omitempty,oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Format string   `toml:"format"`                                                 // "json" or "text"
	Output []string `toml:"output"`                                                 // "stdout", "file"
}

// BrowserConfig controls the headless browser pool and per-domain
// request pacing.
type BrowserConfig struct {
	Headless          bool          `toml:"headless"`
	PoolSize          int           `toml:"pool_size" validate:"gte=1,lte=20"` // Number of browser instances
	UserAgent         string        `toml:"user_agent"`
	NavigationTimeout time.Duration `toml:"navigation_timeout"` // Per-navigation timeout
	RequestDelay      time.Duration `toml:"request_delay"`      // Minimum delay between requests to same domain
	DisableGPU        bool          `toml:"disable_gpu"`
	NoSandbox         bool          `toml:"no_sandbox"`
}

// AgentConfig controls the extraction loop.
type AgentConfig struct {
	MaxPages              int           `toml:"max_pages" validate:"gte=1"`          // Result pages to traverse per run
	MaxResults            int           `toml:"max_results"`                         // Stop once this many records are held (0 = unlimited)
	MaxCorrectionAttempts int           `toml:"max_correction_attempts" validate:"gte=0"` // Re-analysis passes after a failed verification
	MinConfidence         float64       `toml:"min_confidence" validate:"gte=0,lte=1"`    // Below this, try alternate collection links
	CorrectionPause       time.Duration `toml:"correction_pause"`                    // Pause between correction attempts
	SaveIntermediate      bool          `toml:"save_intermediate"`                   // Persist accumulated records after each iteration
	ScreenshotOnError     bool          `toml:"screenshot_on_error"`
	ScreenshotDir         string        `toml:"screenshot_dir"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// RegistryConfig points at user-supplied archive pattern files.
type RegistryConfig struct {
	Dir string `toml:"dir"` // Directory containing archive pattern files (YAML)
}

// OutputConfig controls where extracted records land.
type OutputConfig struct {
	File   string `toml:"file"`
	Format string `toml:"format" validate:"omitempty,oneof=csv json"` // "csv" or "json"
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in arca.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Browser: BrowserConfig{
			Headless:          true,
			PoolSize:          2,
			UserAgent:         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigationTimeout: 60 * time.Second,
			RequestDelay:      1 * time.Second,
			DisableGPU:        true,
			NoSandbox:         false,
		},
		Agent: AgentConfig{
			MaxPages:              100,
			MaxResults:            0,
			MaxCorrectionAttempts: 2,
			MinConfidence:         0.3,
			CorrectionPause:       2 * time.Second,
			SaveIntermediate:      true,
			ScreenshotOnError:     false,
			ScreenshotDir:         "./screenshots",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Registry: RegistryConfig{
			Dir: "./patterns",
		},
		Output: OutputConfig{
			File:   "./output/records.csv",
			Format: "csv",
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files
// override earlier files; environment variables override all files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// Validate checks the configuration against its struct constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ARCA_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("ARCA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if headless := os.Getenv("ARCA_BROWSER_HEADLESS"); headless != "" {
		if h, err := strconv.ParseBool(headless); err == nil {
			config.Browser.Headless = h
		}
	}
	if poolSize := os.Getenv("ARCA_BROWSER_POOL_SIZE"); poolSize != "" {
		if n, err := strconv.Atoi(poolSize); err == nil {
			config.Browser.PoolSize = n
		}
	}
	if userAgent := os.Getenv("ARCA_BROWSER_USER_AGENT"); userAgent != "" {
		config.Browser.UserAgent = userAgent
	}
	if delay := os.Getenv("ARCA_BROWSER_REQUEST_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			config.Browser.RequestDelay = d
		}
	}

	if maxPages := os.Getenv("ARCA_AGENT_MAX_PAGES"); maxPages != "" {
		if n, err := strconv.Atoi(maxPages); err == nil {
			config.Agent.MaxPages = n
		}
	}
	if maxResults := os.Getenv("ARCA_AGENT_MAX_RESULTS"); maxResults != "" {
		if n, err := strconv.Atoi(maxResults); err == nil {
			config.Agent.MaxResults = n
		}
	}
	if attempts := os.Getenv("ARCA_AGENT_MAX_CORRECTION_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			config.Agent.MaxCorrectionAttempts = n
		}
	}

	if path := os.Getenv("ARCA_STORAGE_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if dir := os.Getenv("ARCA_REGISTRY_DIR"); dir != "" {
		config.Registry.Dir = dir
	}
	if file := os.Getenv("ARCA_OUTPUT_FILE"); file != "" {
		config.Output.File = file
	}
	if format := os.Getenv("ARCA_OUTPUT_FORMAT"); format != "" {
		config.Output.Format = format
	}
}
