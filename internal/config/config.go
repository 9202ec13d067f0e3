package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/node-allocator/internal/output"
	"github.com/eugenenazirov/node-allocator/internal/storage"
)

const (
	defaultPort              = "8080"
	defaultLogLevel          = "warn"
	defaultRateLimitRPS      = 25.0
	defaultRateLimitBurst    = 50
	defaultMaxRequestEntries = 100_000
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > YAML config > Environment variables > Defaults
type Config struct {
	// Batch allocation.
	ItemsFile       string
	NodesFile       string
	OutputFile      string // Empty writes to standard output.
	OutputFormat    output.Format
	UnassignedLabel string

	LogLevel string

	// HTTP service.
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
	MaxRequestEntries    int
	RunHistory           int
}

// yamlConfig represents the YAML configuration file structure.
type yamlConfig struct {
	Files                string        `yaml:"files"`
	Nodes                string        `yaml:"nodes"`
	Output               string        `yaml:"output"`
	Format               string        `yaml:"format"`
	UnassignedLabel      string        `yaml:"unassigned_label"`
	LogLevel             string        `yaml:"log_level"`
	Port                 string        `yaml:"port"`
	ShutdownGracePeriod  string        `yaml:"shutdown_grace_period"`
	ReadHeaderTimeout    string        `yaml:"read_header_timeout"`
	WriteTimeout         string        `yaml:"write_timeout"`
	IdleTimeout          string        `yaml:"idle_timeout"`
	EnableRequestLogging *bool         `yaml:"enable_request_logging"`
	RateLimit            yamlRateLimit `yaml:"rate_limit"`
	MaxRequestEntries    int           `yaml:"max_request_entries"`
	RunHistory           int           `yaml:"run_history"`
}

// yamlRateLimit represents the rate limit section in YAML.
type yamlRateLimit struct {
	RPS   *float64 `yaml:"rps"`
	Burst *int     `yaml:"burst"`
}

// CLIOverrides holds command-line flag overrides. Nil or empty values are ignored.
type CLIOverrides struct {
	ConfigFile      string
	ItemsFile       *string
	NodesFile       *string
	OutputFile      *string
	OutputFormat    *string
	UnassignedLabel *string
	LogLevel        *string
	Port            *string
	RateLimitRPS    *float64
	RateLimitBurst  *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > YAML config > Environment variables > Defaults
// The YAML file is read from the operating system filesystem.
func Load(overrides *CLIOverrides) (Config, error) {
	return LoadFs(afero.NewOsFs(), overrides)
}

// LoadFs is Load with the YAML config file read from fs.
func LoadFs(fs afero.Fs, overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Apply environment variables (lowest precedence above defaults)
	if err := applyEnvConfig(&cfg); err != nil {
		return Config{}, err
	}

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		yamlCfg, err := loadFromFile(fs, overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := applyYAMLConfig(&cfg, yamlCfg); err != nil {
			return Config{}, fmt.Errorf("apply YAML config: %w", err)
		}
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		if err := applyCLIOverrides(&cfg, overrides); err != nil {
			return Config{}, err
		}
	}

	// Validate final configuration
	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		OutputFormat:         output.FormatText,
		UnassignedLabel:      output.DefaultUnassignedLabel,
		LogLevel:             defaultLogLevel,
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
		MaxRequestEntries:    defaultMaxRequestEntries,
		RunHistory:           storage.DefaultCapacity(),
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(fs afero.Fs, path string) (*yamlConfig, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &yamlCfg, nil
}

// applyYAMLConfig applies YAML configuration to the Config struct.
func applyYAMLConfig(cfg *Config, yamlCfg *yamlConfig) error {
	setString(&cfg.ItemsFile, yamlCfg.Files)
	setString(&cfg.NodesFile, yamlCfg.Nodes)
	setString(&cfg.OutputFile, yamlCfg.Output)
	setString(&cfg.UnassignedLabel, yamlCfg.UnassignedLabel)
	setString(&cfg.LogLevel, yamlCfg.LogLevel)
	setString(&cfg.Port, yamlCfg.Port)

	if yamlCfg.Format != "" {
		format, err := output.ParseFormat(yamlCfg.Format)
		if err != nil {
			return err
		}
		cfg.OutputFormat = format
	}

	durations := []struct {
		raw string
		dst *time.Duration
		key string
	}{
		{yamlCfg.ShutdownGracePeriod, &cfg.ShutdownGracePeriod, "shutdown_grace_period"},
		{yamlCfg.ReadHeaderTimeout, &cfg.ReadHeaderTimeout, "read_header_timeout"},
		{yamlCfg.WriteTimeout, &cfg.WriteTimeout, "write_timeout"},
		{yamlCfg.IdleTimeout, &cfg.IdleTimeout, "idle_timeout"},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		value, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.key, err)
		}
		*d.dst = value
	}

	if yamlCfg.EnableRequestLogging != nil {
		cfg.EnableRequestLogging = *yamlCfg.EnableRequestLogging
	}
	if yamlCfg.RateLimit.RPS != nil {
		cfg.RateLimitRPS = *yamlCfg.RateLimit.RPS
	}
	if yamlCfg.RateLimit.Burst != nil {
		cfg.RateLimitBurst = *yamlCfg.RateLimit.Burst
	}
	if yamlCfg.MaxRequestEntries != 0 {
		cfg.MaxRequestEntries = yamlCfg.MaxRequestEntries
	}
	if yamlCfg.RunHistory != 0 {
		cfg.RunHistory = yamlCfg.RunHistory
	}
	return nil
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config) error {
	setString(&cfg.Port, env("PORT"))
	setString(&cfg.LogLevel, env("LOG_LEVEL"))
	setString(&cfg.UnassignedLabel, env("UNASSIGNED_LABEL"))

	if raw := env("OUTPUT_FORMAT"); raw != "" {
		format, err := output.ParseFormat(raw)
		if err != nil {
			return fmt.Errorf("OUTPUT_FORMAT: %w", err)
		}
		cfg.OutputFormat = format
	}

	if rps := env("RATE_LIMIT_RPS"); rps != "" {
		if value, err := strconv.ParseFloat(rps, 64); err == nil && value >= 0 {
			cfg.RateLimitRPS = value
		}
	}

	if burst := env("RATE_LIMIT_BURST"); burst != "" {
		if value, err := strconv.Atoi(burst); err == nil && value >= 0 {
			cfg.RateLimitBurst = value
		}
	}

	if entries := env("MAX_REQUEST_ENTRIES"); entries != "" {
		if value, err := strconv.Atoi(entries); err == nil && value > 0 {
			cfg.MaxRequestEntries = value
		}
	}

	if history := env("RUN_HISTORY"); history != "" {
		if value, err := strconv.Atoi(history); err == nil && value > 0 {
			cfg.RunHistory = value
		}
	}
	return nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) error {
	setStringPtr(&cfg.ItemsFile, overrides.ItemsFile)
	setStringPtr(&cfg.NodesFile, overrides.NodesFile)
	setStringPtr(&cfg.OutputFile, overrides.OutputFile)
	setStringPtr(&cfg.UnassignedLabel, overrides.UnassignedLabel)
	setStringPtr(&cfg.LogLevel, overrides.LogLevel)
	setStringPtr(&cfg.Port, overrides.Port)

	if overrides.OutputFormat != nil && *overrides.OutputFormat != "" {
		format, err := output.ParseFormat(*overrides.OutputFormat)
		if err != nil {
			return fmt.Errorf("parse output format: %w", err)
		}
		cfg.OutputFormat = format
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimitRPS = *overrides.RateLimitRPS
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimitBurst = *overrides.RateLimitBurst
	}

	return nil
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if cfg.RateLimitRPS < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be >= 0")
	}
	if cfg.RateLimitBurst < 0 {
		return fmt.Errorf("RATE_LIMIT_BURST must be >= 0")
	}
	if cfg.MaxRequestEntries <= 0 {
		return fmt.Errorf("max request entries must be positive")
	}
	if cfg.RunHistory <= 0 {
		return fmt.Errorf("run history must be positive")
	}
	if strings.TrimSpace(cfg.UnassignedLabel) == "" {
		return fmt.Errorf("unassigned label cannot be empty")
	}
	if strings.ContainsAny(cfg.UnassignedLabel, " \t\r\n") {
		return fmt.Errorf("unassigned label %q must not contain whitespace", cfg.UnassignedLabel)
	}
	return nil
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setStringPtr(dst *string, value *string) {
	if value != nil {
		setString(dst, *value)
	}
}
