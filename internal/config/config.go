// =============================================================================
// RPS Batch Decoder - Configuration Module
// =============================================================================
//
// This module loads the application configuration. Sources are applied in
// order, later ones winning:
//   1. Built-in defaults (applyDefaults)
//   2. config.yaml, when present
//   3. A .env file in the working directory, when present
//   4. RPS_* environment variables
//
// A missing config file is not an error: every command works on defaults.
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is the inbox scanned for batch files.
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the JSON and XLSX reports.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives input files after successful processing.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ArchiveByDate files archived and quarantined inputs under YYYY/MM/DD.
	// Default: false
	ArchiveByDate bool `yaml:"archive_by_date"`

	// ErrorDir receives input files that failed to process.
	// Default: "./error"
	ErrorDir string `yaml:"error_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the number of files processed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// DecodeWorkers bounds the parallel line decode inside one file.
	// 0 means one worker per CPU.
	DecodeWorkers int `yaml:"decode_workers"`

	// DefaultFamily is used when no family flag or filename rule applies.
	// Default: "GENERAL"
	DefaultFamily string `yaml:"default_family"`

	// FamilyRules pick the layout family from the input file name. The first
	// matching rule wins.
	FamilyRules []FamilyRule `yaml:"family_rules"`

	// Encoding of input files: "auto", "UTF-8", "ISO-8859-1", "Windows-1252".
	// Default: "auto"
	Encoding string `yaml:"encoding"`

	// LayoutsFile is an optional YAML or XLSX layout overrides file.
	LayoutsFile string `yaml:"layouts_file"`

	// LayoutsFamily is the family an XLSX LayoutsFile describes.
	// Default: DefaultFamily
	LayoutsFamily string `yaml:"layouts_family"`

	// OutputFormats lists the reports written per file: "json", "xlsx", "xml".
	// Default: ["json"]
	OutputFormats []string `yaml:"output_formats"`

	// OwnerID is the company the batches are imported for when persisting.
	OwnerID string `yaml:"owner_id"`

	// =========================================================================
	// COLLABORATORS
	// =========================================================================

	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
}

// FamilyRule maps file names to a layout family.
type FamilyRule struct {
	// Pattern is a filepath.Match glob tested against the base name,
	// case-insensitively. Example: "EQP_*.txt"
	Pattern string `yaml:"pattern"`

	// Family is the layout family for matching files.
	Family string `yaml:"family"`
}

// DatabaseConfig configures the Postgres store.
type DatabaseConfig struct {
	// URL is a pgx connection string. Empty disables persistence.
	URL string `yaml:"url"`

	// MaxConns bounds the pool.
	// Default: 4
	MaxConns int32 `yaml:"max_conns"`
}

// ServerConfig configures the HTTP intake.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `yaml:"addr"`

	// MaxUploadMB caps an uploaded file.
	// Default: 32
	MaxUploadMB int64 `yaml:"max_upload_mb"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 10s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ScheduleConfig configures the watch command.
type ScheduleConfig struct {
	// Cron is a standard five-field cron expression.
	// Default: "*/5 * * * *"
	Cron string `yaml:"cron"`

	// Timezone is an IANA zone name.
	// Default: "America/Sao_Paulo"
	Timezone string `yaml:"timezone"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load reads the configuration.
//
// PARAMETERS:
//   - configPath: The path to config.yaml. A missing file yields defaults.
//
// RETURNS:
//   - A pointer to the validated Config.
//   - An error if the file or an environment override cannot be parsed, or
//     the result is invalid.
func Load(configPath string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.InputDir == "" {
		cfg.InputDir = "./input"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	if cfg.InputArchiveDir == "" {
		cfg.InputArchiveDir = "./input_archive"
	}
	if cfg.ErrorDir == "" {
		cfg.ErrorDir = "./error"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.DefaultFamily == "" {
		cfg.DefaultFamily = "GENERAL"
	}
	if cfg.LayoutsFamily == "" {
		cfg.LayoutsFamily = cfg.DefaultFamily
	}
	if cfg.Encoding == "" {
		cfg.Encoding = "auto"
	}
	if len(cfg.OutputFormats) == 0 {
		cfg.OutputFormats = []string{"json"}
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "*/5 * * * *"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "America/Sao_Paulo"
	}
}

// applyEnv overrides cfg from RPS_* variables.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, set func(int64)) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 32)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		set(n)
		return nil
	}

	str("RPS_INPUT_DIR", &cfg.InputDir)
	str("RPS_OUTPUT_DIR", &cfg.OutputDir)
	str("RPS_INPUT_ARCHIVE_DIR", &cfg.InputArchiveDir)
	str("RPS_ERROR_DIR", &cfg.ErrorDir)
	str("RPS_LOG_LEVEL", &cfg.LogLevel)
	str("RPS_LOG_FORMAT", &cfg.LogFormat)
	str("RPS_DEFAULT_FAMILY", &cfg.DefaultFamily)
	str("RPS_ENCODING", &cfg.Encoding)
	str("RPS_LAYOUTS_FILE", &cfg.LayoutsFile)
	str("RPS_OWNER_ID", &cfg.OwnerID)
	str("RPS_DATABASE_URL", &cfg.Database.URL)
	str("RPS_SERVER_ADDR", &cfg.Server.Addr)
	str("RPS_SCHEDULE_CRON", &cfg.Schedule.Cron)
	str("RPS_SCHEDULE_TIMEZONE", &cfg.Schedule.Timezone)

	if v, ok := lookup("RPS_ARCHIVE_BY_DATE"); ok && strings.TrimSpace(v) != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid RPS_ARCHIVE_BY_DATE: %w", err)
		}
		cfg.ArchiveByDate = b
	}

	var formats string
	str("RPS_OUTPUT_FORMATS", &formats)
	if formats != "" {
		cfg.OutputFormats = strings.Split(formats, ",")
	}

	return errors.Join(
		num("RPS_MAX_CONCURRENCY", func(n int64) { cfg.MaxConcurrency = int(n) }),
		num("RPS_DECODE_WORKERS", func(n int64) { cfg.DecodeWorkers = int(n) }),
		num("RPS_DATABASE_MAX_CONNS", func(n int64) { cfg.Database.MaxConns = int32(n) }),
	)
}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the configuration without touching the file system.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel))
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q is not text or json", c.LogFormat))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency))
	}
	if c.DecodeWorkers < 0 {
		errs = append(errs, fmt.Errorf("decode_workers cannot be negative"))
	}
	for i, f := range c.OutputFormats {
		f = strings.ToLower(strings.TrimSpace(f))
		c.OutputFormats[i] = f
		if f != "json" && f != "xlsx" && f != "xml" {
			errs = append(errs, fmt.Errorf("output format %q is not json, xlsx or xml", f))
		}
	}
	for _, r := range c.FamilyRules {
		if _, err := filepath.Match(r.Pattern, ""); err != nil {
			errs = append(errs, fmt.Errorf("family rule %q: %w", r.Pattern, err))
		}
		if strings.TrimSpace(r.Family) == "" {
			errs = append(errs, fmt.Errorf("family rule %q has no family", r.Pattern))
		}
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("schedule timezone: %w", err))
	}
	return errors.Join(errs...)
}

// EnsureDirs creates the working directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.InputDir, c.OutputDir, c.InputArchiveDir, c.ErrorDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// FamilyFor returns the family name for a file: the first matching rule,
// otherwise DefaultFamily.
func (c *Config) FamilyFor(filename string) string {
	base := strings.ToLower(filepath.Base(filename))
	for _, r := range c.FamilyRules {
		if ok, _ := filepath.Match(strings.ToLower(r.Pattern), base); ok {
			return r.Family
		}
	}
	return c.DefaultFamily
}
