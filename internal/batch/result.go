// =============================================================================
// RPS Batch Decoder - Batch Result
// =============================================================================
//
// A Result is everything one decode produced. Success of a decode means
// "parsing completed", not "data is trustworthy": callers presenting a
// result must check LineWarnings, Discrepancies and the per-record field
// warnings. Clean reports all three at once.
//
// =============================================================================

package batch

import (
	"github.com/google/uuid"

	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

// =============================================================================
// PROCESSING STATE
// =============================================================================

// State is the position of the processor in the batch grammar.
type State int

const (
	StateStart State = iota
	StateAwaitingHeader
	StateConsumingDetails
	StateAwaitingFooter
	StateDone
	StateDoneWithWarnings
)

var stateNames = [...]string{
	StateStart:            "start",
	StateAwaitingHeader:   "awaiting_header",
	StateConsumingDetails: "consuming_details",
	StateAwaitingFooter:   "awaiting_footer",
	StateDone:             "done",
	StateDoneWithWarnings: "done_with_warnings",
}

// String returns the state name.
func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// =============================================================================
// LINE WARNINGS
// =============================================================================

// LineWarningKind classifies a LineWarning.
type LineWarningKind string

const (
	// Unrecognized lines carry a type code the family does not define.
	Unrecognized LineWarningKind = "unrecognized"

	// DuplicateRecord lines are a second header or footer. They are decoded
	// into Result.Duplicates and never replace the first.
	DuplicateRecord LineWarningKind = "duplicate_record"

	// IgnoredRecord lines are recognised record types that are never decoded,
	// such as the general family's intermediary record.
	IgnoredRecord LineWarningKind = "ignored_record"
)

// LineWarning is a non-fatal problem with one whole line.
type LineWarning struct {
	LineNumber int             `json:"lineNumber"`
	Kind       LineWarningKind `json:"kind"`
	TypeCode   string          `json:"typeCode,omitempty"`
	Reason     string          `json:"reason"`
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the outcome of decoding one batch file.
type Result struct {
	ID            uuid.UUID
	Family        layout.FamilyID
	LayoutVersion int
	State         State

	Header     *decoder.Record
	Details    []decoder.Record
	Footer     *decoder.Record
	Duplicates []decoder.Record

	Receipts      []Receipt
	Statistics    Statistics
	Discrepancies []Discrepancy
	LineWarnings  []LineWarning
}

// HeaderInfo returns the header in canonical form, or nil without a header.
func (r *Result) HeaderInfo() *Header {
	return NewHeader(r.Header)
}

// Records returns every decoded record: header, details, footer, then
// duplicates.
func (r *Result) Records() []*decoder.Record {
	out := make([]*decoder.Record, 0, len(r.Details)+len(r.Duplicates)+2)
	if r.Header != nil {
		out = append(out, r.Header)
	}
	for i := range r.Details {
		out = append(out, &r.Details[i])
	}
	if r.Footer != nil {
		out = append(out, r.Footer)
	}
	for i := range r.Duplicates {
		out = append(out, &r.Duplicates[i])
	}
	return out
}

// FieldWarningCount counts field warnings over every decoded record.
func (r *Result) FieldWarningCount() int {
	n := 0
	for _, rec := range r.Records() {
		n += len(rec.Warnings)
	}
	return n
}

// Clean reports a batch with no warnings of any level and no discrepancies.
func (r *Result) Clean() bool {
	return len(r.LineWarnings) == 0 && len(r.Discrepancies) == 0 && r.FieldWarningCount() == 0
}
