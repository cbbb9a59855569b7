// =============================================================================
// RPS Batch Decoder - Pipeline
// =============================================================================
//
// The pipeline runs one batch file end to end. It is the only place that
// logs decode diagnostics; the decoding core just returns them.
//
// PROCESSING PIPELINE:
//   1. Resolve the layout family (override > filename rule > default)
//   2. Read and normalise the bytes, fingerprint the raw content
//   3. Decode the batch
//   4. Log line warnings, field warning counts and discrepancies
//   5. Write the reports listed in output_formats
//   6. Persist the batch when a store is configured
//   7. Archive the input (or quarantine it on failure)
//
// CONCURRENCY:
//   Run processes every inbox file in its own goroutine, at most
//   max_concurrency at a time. Files share the processor and the store,
//   both safe for concurrent use.
//
// =============================================================================

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
	"github.com/ginjaninja78/rps-batch-decoder/internal/config"
	"github.com/ginjaninja78/rps-batch-decoder/internal/intake"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
	"github.com/ginjaninja78/rps-batch-decoder/internal/logging"
	"github.com/ginjaninja78/rps-batch-decoder/internal/report"
	"github.com/ginjaninja78/rps-batch-decoder/internal/store"
	"github.com/ginjaninja78/rps-batch-decoder/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Options select what one run does beyond decoding.
type Options struct {
	// Family forces a layout family for every file. Empty resolves per file.
	Family string

	// DryRun decodes and logs only: no reports, persistence or archival.
	DryRun bool

	// Persist stores each batch. It needs a store.
	Persist bool

	// CompanyID owns persisted batches. Empty means config owner_id.
	CompanyID string
}

// FileResult is the outcome of processing one file.
type FileResult struct {
	FilePath    string
	Family      layout.FamilyID
	ContentHash string

	// Result is nil when decoding did not happen or failed.
	Result   *batch.Result
	Document *report.Document

	OutputFiles []string
	ArchivePath string

	// BatchFileID is set when the batch was persisted.
	BatchFileID uuid.UUID

	Success bool
	Error   error

	// Stage names the failed step: intake, decode, report or persist.
	Stage string

	Duration time.Duration
}

// failed records err as the outcome.
func (r *FileResult) failed(err error) *FileResult {
	r.Success = false
	r.Error = err
	return r
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline wires the decoder to reports, the store and the inbox.
type Pipeline struct {
	cfg       *config.Config
	catalog   *layout.Catalog
	processor *batch.Processor
	store     store.Store
	files     *utils.FileManager
	logger    logging.Logger
}

// New creates a Pipeline.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - catalog: The layout catalog, built-in or with overrides.
//   - st: Where batches are persisted. May be nil when nothing persists.
//   - logger: Where diagnostics go; nil discards them.
func New(cfg *config.Config, catalog *layout.Catalog, st store.Store, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.Nop()
	}
	options := batch.DefaultProcessorOptions()
	if cfg.DecodeWorkers > 0 {
		options.Workers = cfg.DecodeWorkers
	}
	files := utils.NewFileManager(cfg.InputDir, cfg.OutputDir, cfg.InputArchiveDir, cfg.ErrorDir)
	files.UseTimestampSubdirs = cfg.ArchiveByDate
	return &Pipeline{
		cfg:       cfg,
		catalog:   catalog,
		processor: batch.NewProcessorWithOptions(catalog, options),
		store:     st,
		files:     files,
		logger:    logger,
	}
}

// Catalog returns the catalog files decode against.
func (p *Pipeline) Catalog() *layout.Catalog {
	return p.catalog
}

// ResolveFamily picks the family for filename: override, then the first
// matching family rule, then default_family. The family must exist.
func (p *Pipeline) ResolveFamily(filename, override string) (layout.FamilyID, error) {
	name := override
	if name == "" {
		name = p.cfg.FamilyFor(filename)
	}
	id, err := layout.ParseFamilyID(name)
	if err != nil {
		return "", err
	}
	if _, err := p.catalog.Family(id); err != nil {
		return "", err
	}
	return id, nil
}

// =============================================================================
// SINGLE UPLOAD
// =============================================================================

// Decode resolves the family for up and decodes it. Nothing is written.
func (p *Pipeline) Decode(ctx context.Context, up *intake.Upload, family string) (*FileResult, error) {
	fr := &FileResult{FilePath: up.Filename, ContentHash: up.Hash}

	id, err := p.ResolveFamily(up.Filename, family)
	if err != nil {
		return fr, err
	}
	fr.Family = id

	res, err := p.processor.Decode(ctx, up.Content, id)
	if err != nil {
		return fr, fmt.Errorf("failed to decode %s: %w", up.Filename, err)
	}
	fr.Result = res
	fr.Document = report.NewDocument(res, report.Source{Filename: up.Filename, ContentHash: up.Hash})
	p.logDiagnostics(up.Filename, res)
	return fr, nil
}

// Import decodes up and persists it for companyID. ErrDuplicateFile is
// returned, wrapped, when the content was imported before.
func (p *Pipeline) Import(ctx context.Context, up *intake.Upload, family, companyID string) (*FileResult, error) {
	if p.store == nil {
		return nil, errors.New("no store configured")
	}
	fr, err := p.Decode(ctx, up, family)
	if err != nil {
		return fr, err
	}
	fr.Document.Source.CompanyID = companyID

	id, err := p.store.SaveBatch(ctx, store.Import{
		CompanyID:   companyID,
		Filename:    up.Filename,
		ContentHash: up.Hash,
		Result:      fr.Result,
	})
	if err != nil {
		return fr, fmt.Errorf("failed to persist %s: %w", up.Filename, err)
	}
	fr.BatchFileID = id
	fr.Success = true
	p.logger.Info("Stored %s as batch %s for company %s", up.Filename, id, companyID)
	return fr, nil
}

// =============================================================================
// FILE ON DISK
// =============================================================================

// ProcessFile runs the full pipeline for the file at path.
func (p *Pipeline) ProcessFile(ctx context.Context, path string, opts Options) *FileResult {
	start := time.Now()
	fr := &FileResult{FilePath: path}
	defer func() { fr.Duration = time.Since(start) }()

	p.logger.Info("Processing file: %s", path)

	// =========================================================================
	// STEP 1: READ AND DECODE
	// =========================================================================

	up, err := intake.ReadFile(path, p.cfg.Encoding)
	if err != nil {
		return p.quarantine(fr, "intake", err, opts)
	}

	decoded, err := p.Decode(ctx, up, opts.Family)
	if err != nil {
		fr.Family = decoded.Family
		if ctx.Err() != nil {
			// Cancelled runs leave the input where it was.
			return fr.failed(err)
		}
		return p.quarantine(fr, "decode", err, opts)
	}
	fr.Family, fr.ContentHash = decoded.Family, decoded.ContentHash
	fr.Result, fr.Document = decoded.Result, decoded.Document

	if opts.DryRun {
		p.logger.Info("Dry run: %s decoded as %s (%s), nothing written", path, fr.Family, fr.Result.State)
		fr.Success = true
		return fr
	}

	// =========================================================================
	// STEP 2: WRITE REPORTS
	// =========================================================================

	outputs, err := report.WriteFiles(p.cfg.OutputDir, fr.Document, p.cfg.OutputFormats)
	fr.OutputFiles = outputs
	if err != nil {
		return p.quarantine(fr, "report", err, opts)
	}
	for _, out := range outputs {
		p.logger.Info("Wrote output to: %s", out)
	}

	// =========================================================================
	// STEP 3: PERSIST
	// =========================================================================

	if opts.Persist {
		if err := p.persist(ctx, fr, up, opts); err != nil {
			return p.quarantine(fr, "persist", err, opts)
		}
	}

	// =========================================================================
	// STEP 4: ARCHIVE
	// =========================================================================

	archived, err := p.files.ArchiveInputFile(path)
	if err != nil {
		// The batch is already reported and stored; keep the success.
		p.logger.Warn("Failed to archive %s: %v", path, err)
	} else {
		fr.ArchivePath = archived
	}

	fr.Success = true
	return fr
}

func (p *Pipeline) persist(ctx context.Context, fr *FileResult, up *intake.Upload, opts Options) error {
	if p.store == nil {
		return errors.New("persistence requested but no database is configured")
	}
	company := opts.CompanyID
	if company == "" {
		company = p.cfg.OwnerID
	}
	if company == "" {
		return errors.New("persistence requested but no owner id is set")
	}
	fr.Document.Source.CompanyID = company

	id, err := p.store.SaveBatch(ctx, store.Import{
		CompanyID:   company,
		Filename:    up.Filename,
		ContentHash: up.Hash,
		Result:      fr.Result,
	})
	if err != nil {
		return err
	}
	fr.BatchFileID = id
	p.logger.Info("Stored %s as batch %s", up.Filename, id)
	return nil
}

// quarantine records err and, outside a dry run, moves the input to the
// error directory.
func (p *Pipeline) quarantine(fr *FileResult, kind string, err error, opts Options) *FileResult {
	p.logger.Error("Failed to process %s: %v", fr.FilePath, err)
	fr.failed(err)
	fr.Stage = kind
	if opts.DryRun {
		return fr
	}

	entries := []utils.ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     fr.FilePath,
		ErrorType:    kind,
		ErrorMessage: err.Error(),
	}}
	if _, statErr := os.Stat(fr.FilePath); statErr != nil {
		return fr
	}
	dest, qErr := p.files.QuarantineInputFile(fr.FilePath, entries)
	if qErr != nil {
		p.logger.Warn("Failed to quarantine %s: %v", fr.FilePath, qErr)
		return fr
	}
	fr.ArchivePath = dest
	return fr
}

// logDiagnostics reports everything a decode flagged.
func (p *Pipeline) logDiagnostics(name string, res *batch.Result) {
	for _, w := range res.LineWarnings {
		p.logger.Warn("%s line %d: %s: %s", name, w.LineNumber, w.Kind, w.Reason)
	}
	if n := res.FieldWarningCount(); n > 0 {
		p.logger.Warn("%s: %d field warning(s)", name, n)
	}
	for _, d := range res.Discrepancies {
		p.logger.Warn("%s: %s", name, d.String())
	}
	p.logger.Debug("%s: %d receipt(s), state %s", name, len(res.Receipts), res.State)
}

// =============================================================================
// INBOX RUN
// =============================================================================

// Run processes every file in the inbox and returns the run summary.
//
// RETURNS:
//   - The summary, also written to the output directory outside dry runs.
//   - An error only when the inbox cannot be scanned or ctx ends.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*utils.ProcessingSummary, error) {
	summary := &utils.ProcessingSummary{StartTime: time.Now()}

	if !opts.DryRun {
		if err := p.files.EnsureDirectories(); err != nil {
			return nil, err
		}
	}
	files, err := p.files.DiscoverInputFiles("")
	if err != nil {
		return nil, err
	}
	summary.TotalFiles = len(files)
	if len(files) == 0 {
		p.logger.Info("No batch files found in %s", p.cfg.InputDir)
		summary.EndTime = time.Now()
		return summary, nil
	}
	p.logger.Info("Found %d file(s) to process", len(files))

	limit := p.cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	results := make(chan *FileResult, len(files))
	var wg sync.WaitGroup

	for _, file := range files {
		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results <- (&FileResult{FilePath: path}).failed(ctx.Err())
				return
			}
			defer func() { <-sem }()
			results <- p.ProcessFile(ctx, path, opts)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for fr := range results {
		addToSummary(summary, fr)
	}
	summary.EndTime = time.Now()

	if !opts.DryRun {
		if path, err := utils.WriteSummaryLog(*summary, p.cfg.OutputDir); err != nil {
			p.logger.Warn("Failed to write summary: %v", err)
		} else {
			p.logger.Debug("Wrote summary to: %s", path)
		}
	}
	return summary, ctx.Err()
}

func addToSummary(summary *utils.ProcessingSummary, fr *FileResult) {
	if !fr.Success {
		summary.FailedFiles++
		kind := fr.Stage
		switch {
		case errors.Is(fr.Error, store.ErrDuplicateFile):
			kind = "duplicate"
		case kind == "":
			kind = "cancelled"
		}
		summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
			InputFile:    fr.FilePath,
			ErrorMessage: fmt.Sprint(fr.Error),
			ErrorType:    kind,
		})
		return
	}

	summary.SuccessfulFiles++
	info := utils.ProcessedFileInfo{
		InputFile:   fr.FilePath,
		OutputFiles: fr.OutputFiles,
		ArchivePath: fr.ArchivePath,
		Family:      string(fr.Family),
		ProcessTime: fr.Duration,
	}
	if fr.Result != nil {
		info.State = fr.Result.State.String()
		info.Receipts = len(fr.Result.Receipts)
		info.Warnings = len(fr.Document.Warnings)
	}
	summary.TotalReceipts += info.Receipts
	summary.TotalWarnings += info.Warnings
	summary.ProcessedFiles = append(summary.ProcessedFiles, info)
}
