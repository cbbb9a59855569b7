// =============================================================================
// RPS Batch Decoder - Batch Processor
// =============================================================================
//
// The processor runs one batch file through the grammar
//
//   Start -> AwaitingHeader -> ConsumingDetails* -> AwaitingFooter -> Done
//
// ending in DoneWithWarnings when anything was reported.
//
// PROCESSING PIPELINE:
//   1. Split the content into physical lines (blank lines dropped)
//   2. Classify every line in input order and track the grammar state
//   3. Decode header, footer and duplicates inline
//   4. Decode detail lines in parallel partitions, each with its own
//      aggregator
//   5. Merge partitions by line number and merge the aggregators
//   6. Reconcile the footer against the computed statistics
//
// CONCURRENCY:
//   Decoding a line is a pure function of the line and its record type, and
//   the catalog is read-only, so partitions share nothing. The whole decode is
//   one cancellable unit: a cancelled context discards partial results.
//
// =============================================================================

package batch

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// =============================================================================
// PROCESSOR STRUCTURE
// =============================================================================

// ProcessorOptions tune the parallel decode.
type ProcessorOptions struct {
	// Workers is the maximum number of partitions decoded at once.
	// Default: runtime.NumCPU()
	Workers int

	// MinPartition is the smallest number of detail lines worth a goroutine.
	// Batches with fewer detail lines decode on the calling goroutine.
	// Default: 256
	MinPartition int
}

// DefaultProcessorOptions returns the default options.
func DefaultProcessorOptions() ProcessorOptions {
	return ProcessorOptions{
		Workers:      runtime.NumCPU(),
		MinPartition: 256,
	}
}

// Processor decodes batch files against a layout catalog. It is safe for
// concurrent use.
type Processor struct {
	catalog *layout.Catalog
	options ProcessorOptions
}

// NewProcessor creates a processor with default options.
func NewProcessor(catalog *layout.Catalog) *Processor {
	return NewProcessorWithOptions(catalog, DefaultProcessorOptions())
}

// NewProcessorWithOptions creates a processor with custom options.
func NewProcessorWithOptions(catalog *layout.Catalog, options ProcessorOptions) *Processor {
	if options.Workers <= 0 {
		options.Workers = 1
	}
	if options.MinPartition <= 0 {
		options.MinPartition = 1
	}
	return &Processor{catalog: catalog, options: options}
}

// DecodeBatch decodes content with the built-in catalog.
//
// PARAMETERS:
//   - content: The full text of one batch file, any line-ending convention.
//   - family: The layout family of the file.
//
// RETURNS:
//   - The batch result. Malformed content never fails; it is reported
//     inside the result.
//   - ErrUnknownFamily (wrapped) when family is not in the catalog.
func DecodeBatch(content string, family layout.FamilyID) (*Result, error) {
	return NewProcessor(layout.Default()).Decode(context.Background(), content, family)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// detailJob is one classified detail line waiting to be decoded.
type detailJob struct {
	line decoder.Line
	rt   *layout.RecordType
}

// Decode decodes one batch file.
func (p *Processor) Decode(ctx context.Context, content string, familyID layout.FamilyID) (*Result, error) {
	family, err := p.catalog.Family(familyID)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ID:            uuid.New(),
		Family:        family.ID,
		LayoutVersion: family.Version,
		State:         StateStart,
	}

	// Step 1-3: classify in input order.
	var jobs []detailJob
	var footerType *layout.RecordType
	result.State = StateAwaitingHeader

	for _, line := range decoder.SplitLines(content) {
		rt, ok := decoder.Classify(family, line.Text)
		if !ok {
			result.LineWarnings = append(result.LineWarnings, LineWarning{
				LineNumber: line.Number,
				Kind:       Unrecognized,
				TypeCode:   codeOf(line.Text, family.CodeWidth),
				Reason:     fmt.Sprintf("no %s record type for this code", family.ID),
			})
			continue
		}

		switch rt.Role {
		case layout.RoleIgnored:
			result.LineWarnings = append(result.LineWarnings, LineWarning{
				LineNumber: line.Number,
				Kind:       IgnoredRecord,
				TypeCode:   rt.Code,
				Reason:     fmt.Sprintf("%s records are not decoded", rt.Name),
			})

		case layout.RoleHeader:
			rec := decoder.Decode(rt, line.Text, line.Number)
			if result.Header != nil {
				result.Duplicates = append(result.Duplicates, rec)
				result.LineWarnings = append(result.LineWarnings, duplicateWarning(line, rt, result.Header.LineNumber))
				continue
			}
			result.Header = &rec
			if result.State == StateAwaitingHeader {
				result.State = StateConsumingDetails
			}

		case layout.RoleFooter:
			rec := decoder.Decode(rt, line.Text, line.Number)
			if result.Footer != nil {
				result.Duplicates = append(result.Duplicates, rec)
				result.LineWarnings = append(result.LineWarnings, duplicateWarning(line, rt, result.Footer.LineNumber))
				continue
			}
			result.Footer = &rec
			footerType = rt
			result.State = StateAwaitingFooter

		default:
			jobs = append(jobs, detailJob{line: line, rt: rt})
			if result.State == StateAwaitingHeader {
				result.State = StateConsumingDetails
			}
		}
	}

	// Step 4-5: decode details.
	details, agg, err := p.decodeDetails(ctx, jobs)
	if err != nil {
		return nil, err
	}
	result.Details = details
	result.Statistics = agg.Statistics()

	result.Receipts = make([]Receipt, len(details))
	for i := range details {
		result.Receipts[i] = NewReceipt(&details[i])
	}

	// Step 6: reconcile.
	result.Discrepancies = Validate(result.Statistics, result.Footer, footerType)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if result.Clean() {
		result.State = StateDone
	} else {
		result.State = StateDoneWithWarnings
	}
	return result, nil
}

// decodeDetails decodes jobs into records ordered as jobs are, which is line
// order. Each partition writes its own slice range and its own aggregator.
func (p *Processor) decodeDetails(ctx context.Context, jobs []detailJob) ([]decoder.Record, *Aggregator, error) {
	records := make([]decoder.Record, len(jobs))
	total := NewAggregator()

	partitions := len(jobs) / p.options.MinPartition
	if partitions > p.options.Workers {
		partitions = p.options.Workers
	}
	if partitions <= 1 {
		for i, job := range jobs {
			if i%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, nil, err
				}
			}
			records[i] = decoder.Decode(job.rt, job.line.Text, job.line.Number)
			total.Add(&records[i])
		}
		return records, total, nil
	}

	size := (len(jobs) + partitions - 1) / partitions
	partials := make([]*Aggregator, partitions)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.options.Workers)
	for n := 0; n < partitions; n++ {
		start := n * size
		end := start + size
		if end > len(jobs) {
			end = len(jobs)
		}
		partials[n] = NewAggregator()
		agg := partials[n]

		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				records[i] = decoder.Decode(jobs[i].rt, jobs[i].line.Text, jobs[i].line.Number)
				agg.Add(&records[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	for _, agg := range partials {
		total.Merge(agg)
	}
	return records, total, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func duplicateWarning(line decoder.Line, rt *layout.RecordType, first int) LineWarning {
	return LineWarning{
		LineNumber: line.Number,
		Kind:       DuplicateRecord,
		TypeCode:   rt.Code,
		Reason:     fmt.Sprintf("%s already read at line %d", rt.Role, first),
	}
}

// codeOf returns up to width leading characters of line for warnings.
func codeOf(line string, width int) string {
	r := []rune(line)
	if len(r) > width {
		r = r[:width]
	}
	return string(r)
}
