// =============================================================================
// RPS Batch Decoder - Footer Reconciliation
// =============================================================================
//
// The footer declares totals; the aggregator computes them. Every footer
// field with a Reconciles key is compared against the computed statistic of
// the same key. Disagreement is a Discrepancy, never an error: whether a
// mismatch blocks acceptance is the caller's policy.
//
// ABSENT FOOTER FIELDS:
//   - Required: compared as a declared zero.
//   - Optional: skipped, the file simply does not declare that total.
//
// =============================================================================

package batch

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// DiscrepancyKind classifies a Discrepancy.
type DiscrepancyKind string

const (
	// MissingFooter means the batch had no footer record at all.
	MissingFooter DiscrepancyKind = "missing_footer"

	// Mismatch means a declared total differs from the computed one.
	Mismatch DiscrepancyKind = "mismatch"
)

// Discrepancy is a batch-level disagreement between declared and computed
// totals.
type Discrepancy struct {
	Kind      DiscrepancyKind `json:"kind"`
	Field     string          `json:"field,omitempty"`
	Statistic string          `json:"statistic,omitempty"`
	Computed  decimal.Decimal `json:"computed"`
	Declared  decimal.Decimal `json:"declared"`
}

// String renders the discrepancy for logs.
func (d Discrepancy) String() string {
	if d.Kind == MissingFooter {
		return "batch has no footer record"
	}
	return fmt.Sprintf("%s (%s): computed %s, declared %s", d.Field, d.Statistic, d.Computed, d.Declared)
}

// Validate reconciles footer against stats.
//
// PARAMETERS:
//   - stats: The computed statistics.
//   - footer: The first footer record, or nil when the batch had none.
//   - rt: The footer's record type. Ignored when footer is nil.
//
// RETURNS:
//   - The discrepancies in footer field order. Empty means the batch reconciles.
func Validate(stats Statistics, footer *decoder.Record, rt *layout.RecordType) []Discrepancy {
	if footer == nil || rt == nil {
		return []Discrepancy{{Kind: MissingFooter, Computed: decimal.NewFromInt(int64(stats.TotalCount))}}
	}

	var out []Discrepancy
	for _, fd := range rt.Fields {
		if fd.Reconciles == "" {
			continue
		}
		v := footer.Get(fd.Name)
		if !v.Present && !fd.Required {
			continue
		}

		declared := declaredValue(v)
		computed := stats.Statistic(fd.Reconciles)
		if !computed.Equal(declared) {
			out = append(out, Discrepancy{
				Kind:      Mismatch,
				Field:     fd.Name,
				Statistic: fd.Reconciles,
				Computed:  computed,
				Declared:  declared,
			})
		}
	}
	return out
}

func declaredValue(v decoder.Value) decimal.Decimal {
	if !v.Present {
		return decimal.Zero
	}
	switch v.Encoding {
	case layout.Numeric:
		return decimal.NewFromInt(v.Int)
	case layout.CurrencyCents:
		return v.Amount
	}
	d, err := decimal.NewFromString(v.Text)
	if err != nil {
		return decimal.Zero
	}
	return d
}
