// =============================================================================
// RPS Batch Decoder - Process Command
// =============================================================================
//
// This file defines the 'process' command, which decodes the batch files in
// the inbox (or one given file) and writes their reports.
//
// COMMAND USAGE:
//   rpsdecode process [flags]
//
// FLAGS:
//   --file      : Decode only this file instead of scanning the inbox
//   --family    : Force a layout family instead of resolving it per file
//   --dry-run   : Decode and log only: no reports, persistence or archival
//   --persist   : Store every decoded batch in Postgres (needs database.url)
//   --owner     : Company the batches are persisted for (default owner_id)
//
// EXIT STATUS:
//   Non-zero when any file failed. Warnings alone never fail a file.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/rps-batch-decoder/internal/pipeline"
	"github.com/ginjaninja78/rps-batch-decoder/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	processFile    string
	processFamily  string
	processDryRun  bool
	processPersist bool
	processOwner   string
)

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Decode RPS batch files and write their reports",
	Long: `The process command scans the input directory for batch files, resolves the
layout family of each one and decodes it. Files are processed concurrently, up
to max_concurrency at a time, and a failure in one file does not affect the
others.

On success:
  - The reports listed in output_formats are written to the output directory
  - The batch is stored when --persist is given
  - The input file is moved to the input archive

On error:
  - The input file is moved to the error directory with an .error.txt log
  - Processing continues for other files`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd.Context())
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.AddCommand(processCmd)

	// --file flag: Decode a single file.
	processCmd.Flags().StringVar(&processFile, "file", "", "Path to a single batch file to process")

	// --family flag: Skip family resolution.
	processCmd.Flags().StringVar(&processFamily, "family", "", "Layout family for every file (GENERAL, EQUIPMENT)")

	processCmd.Flags().BoolVar(&processDryRun, "dry-run", false, "Decode and log only, without writing or moving anything")
	processCmd.Flags().BoolVar(&processPersist, "persist", false, "Store decoded batches in Postgres")
	processCmd.Flags().StringVar(&processOwner, "owner", "", "Company id for persisted batches (default owner_id)")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runProcess(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// =========================================================================
	// STEP 1: LOAD CONFIGURATION
	// =========================================================================

	fmt.Println("=== RPS Batch Decoder ===")
	env, err := loadRuntime()
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Family:    processFamily,
		DryRun:    processDryRun,
		Persist:   processPersist && !processDryRun,
		CompanyID: processOwner,
	}
	if opts.Persist && env.cfg.Database.URL == "" {
		return fmt.Errorf("--persist needs database.url (or RPS_DATABASE_URL)")
	}

	// =========================================================================
	// STEP 2: OPEN THE STORE
	// =========================================================================

	var p *pipeline.Pipeline
	if opts.Persist {
		st, err := openStore(ctx, env, false)
		if err != nil {
			return err
		}
		defer st.Close()
		p = pipeline.New(env.cfg, env.catalog, st, env.logger)
	} else {
		p = pipeline.New(env.cfg, env.catalog, nil, env.logger)
	}

	// =========================================================================
	// STEP 3: PROCESS
	// =========================================================================

	if processFile != "" {
		return processSingle(ctx, p, opts)
	}

	summary, err := p.Run(ctx, opts)
	if summary != nil {
		printSummary(summary)
	}
	if err != nil {
		return err
	}
	if summary.FailedFiles > 0 {
		return fmt.Errorf("%d of %d file(s) failed", summary.FailedFiles, summary.TotalFiles)
	}
	return nil
}

// processSingle handles --file.
func processSingle(ctx context.Context, p *pipeline.Pipeline, opts pipeline.Options) error {
	fr := p.ProcessFile(ctx, processFile, opts)
	name := filepath.Base(fr.FilePath)
	if !fr.Success {
		fmt.Printf("  ✗ %s: %v\n", name, fr.Error)
		return fr.Error
	}

	fmt.Printf("  ✓ %s (%s)\n", name, fr.Family)
	if fr.Result != nil {
		fmt.Printf("State:           %s\n", fr.Result.State)
		fmt.Printf("Receipts:        %d\n", len(fr.Result.Receipts))
		fmt.Printf("Discrepancies:   %d\n", len(fr.Result.Discrepancies))
		fmt.Printf("Warnings:        %d\n", len(fr.Document.Warnings))
	}
	for _, out := range fr.OutputFiles {
		fmt.Printf("Report:          %s\n", out)
	}
	if fr.ArchivePath != "" {
		fmt.Printf("Archived to:     %s\n", fr.ArchivePath)
	}
	fmt.Printf("Time elapsed:    %s\n", fr.Duration.Round(time.Millisecond))
	return nil
}

func printSummary(summary *utils.ProcessingSummary) {
	for _, f := range summary.ProcessedFiles {
		fmt.Printf("  ✓ %s (%s, %s, %d receipt(s))\n", filepath.Base(f.InputFile), f.Family, f.State, f.Receipts)
	}
	for _, f := range summary.FailedFilesList {
		fmt.Printf("  ✗ %s [%s]: %s\n", filepath.Base(f.InputFile), f.ErrorType, f.ErrorMessage)
	}

	fmt.Println("\n=== Processing Complete ===")
	fmt.Printf("Total files:     %d\n", summary.TotalFiles)
	fmt.Printf("Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Printf("Errors:          %d\n", summary.FailedFiles)
	fmt.Printf("Receipts:        %d\n", summary.TotalReceipts)
	fmt.Printf("Warnings:        %d\n", summary.TotalWarnings)
	fmt.Printf("Time elapsed:    %s\n", summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond))
}
