// =============================================================================
// RPS Batch Decoder - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI and the helpers every
// subcommand uses to load configuration, logging, the layout catalog and the
// store.
//
// COBRA CLI STRUCTURE:
//   rootCmd (rpsdecode)
//   ├── processCmd  (rpsdecode process)
//   ├── layoutsCmd  (rpsdecode layouts list|show|validate)
//   ├── serveCmd    (rpsdecode serve)
//   ├── watchCmd    (rpsdecode watch)
//   └── versionCmd  (rpsdecode version)
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rps-batch-decoder/internal/config"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
	"github.com/ginjaninja78/rps-batch-decoder/internal/logging"
	"github.com/ginjaninja78/rps-batch-decoder/internal/store"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose forces debug logging.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "rpsdecode",
	Short: "RPS Batch Decoder - Decode fixed-width RPS service tax batches",
	Long: `RPS Batch Decoder reads the fixed-width RPS batch files that municipal
service tax systems exchange, decodes every record against a versioned layout,
checks the footer totals against the detail records and reports the result.

Key Features:
  - Built-in GENERAL and EQUIPMENT layout families, overridable from YAML or XLSX
  - Field level warnings that never stop a batch from decoding
  - JSON, XLSX and XML reports per batch
  - Optional Postgres persistence with duplicate file detection
  - HTTP upload intake and a scheduled inbox watcher

Example Usage:
  rpsdecode process                       # Decode every file in the inbox
  rpsdecode process --file lote.txt       # Decode one file
  rpsdecode layouts show GENERAL          # Print a layout family
  rpsdecode serve                         # Start the HTTP intake`,

	SilenceUsage:  true,
	SilenceErrors: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// --config flag: Path to the main configuration file.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SHARED HELPERS
// =============================================================================

// runtimeEnv is what every command needs before doing work.
type runtimeEnv struct {
	cfg     *config.Config
	logger  logging.Logger
	catalog *layout.Catalog
}

// loadRuntime loads the configuration, the logger and the layout catalog.
func loadRuntime() (*runtimeEnv, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.New(os.Stderr, level, cfg.LogFormat)

	catalog, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}
	return &runtimeEnv{cfg: cfg, logger: logger, catalog: catalog}, nil
}

// loadCatalog returns the built-in catalog with the configured layouts file
// applied on top. An .xlsx file describes the single family layouts_family.
func loadCatalog(cfg *config.Config) (*layout.Catalog, error) {
	base := layout.Default()
	if cfg.LayoutsFile == "" {
		return base, nil
	}

	var (
		catalog *layout.Catalog
		err     error
	)
	switch strings.ToLower(filepath.Ext(cfg.LayoutsFile)) {
	case ".xlsx":
		family, perr := layout.ParseFamilyID(cfg.LayoutsFamily)
		if perr != nil {
			return nil, fmt.Errorf("layouts_family: %w", perr)
		}
		catalog, err = layout.LoadXLSX(cfg.LayoutsFile, base, family)
	default:
		catalog, err = layout.LoadYAML(cfg.LayoutsFile, base)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load layouts file %s: %w", cfg.LayoutsFile, err)
	}
	return catalog, nil
}

// openStore returns the Postgres store when database.url is set. Without a
// URL it returns the in-memory store when fallback is true, otherwise nil.
func openStore(ctx context.Context, env *runtimeEnv, fallback bool) (store.Store, error) {
	if env.cfg.Database.URL == "" {
		if fallback {
			env.logger.Warn("No database configured, imports are kept in memory only")
			return store.NewMemory(), nil
		}
		return nil, nil
	}

	pg, err := store.NewPostgres(ctx, env.cfg.Database.URL, env.cfg.Database.MaxConns)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	env.logger.Debug("Connected to Postgres")
	return pg, nil
}
