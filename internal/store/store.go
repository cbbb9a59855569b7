// =============================================================================
// RPS Batch Decoder - Persistence
// =============================================================================
//
// A Store keeps decoded batches per company. Imports are idempotent on the
// SHA-256 of the raw upload: a second SaveBatch with a known hash fails with
// ErrDuplicateFile and writes nothing.
//
// IMPLEMENTATIONS:
//   - Postgres: pgx connection pool, one transaction per import.
//   - Memory: in-process maps, for tests and dry runs.
//
// =============================================================================

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
)

var (
	// ErrDuplicateFile is returned when the content hash was already imported.
	ErrDuplicateFile = errors.New("file already imported")

	// ErrNotFound is returned when a batch file id is unknown.
	ErrNotFound = errors.New("batch file not found")
)

// Import is one decoded upload ready to persist.
type Import struct {
	CompanyID   string
	Filename    string
	ContentHash string
	Result      *batch.Result
}

// BatchFile is the stored summary of an import.
type BatchFile struct {
	ID            uuid.UUID `json:"id"`
	CompanyID     string    `json:"companyId"`
	Filename      string    `json:"filename"`
	ContentHash   string    `json:"contentHash"`
	Family        string    `json:"family"`
	LayoutVersion int       `json:"layoutVersion"`
	State         string    `json:"state"`
	ReceiptCount  int       `json:"receiptCount"`
	WarningCount  int       `json:"warningCount"`
	ImportedAt    time.Time `json:"importedAt"`
}

// Store persists decoded batches.
type Store interface {
	// SaveBatch stores imp and returns the new batch file id.
	SaveBatch(ctx context.Context, imp Import) (uuid.UUID, error)

	// BatchFile returns the stored summary for id.
	BatchFile(ctx context.Context, id uuid.UUID) (*BatchFile, error)

	// Close releases resources.
	Close()
}

// Validate checks the fields every implementation requires.
func (imp Import) Validate() error {
	switch {
	case imp.CompanyID == "":
		return errors.New("import has no company id")
	case imp.ContentHash == "":
		return errors.New("import has no content hash")
	case imp.Result == nil:
		return errors.New("import has no decode result")
	}
	return nil
}

// warningRow is one line or field warning flattened for storage.
type warningRow struct {
	LineNumber int
	Level      string
	Code       string
	Field      string
	Message    string
}

// warningRows flattens every diagnostic in res.
func warningRows(res *batch.Result) []warningRow {
	var rows []warningRow
	for _, w := range res.LineWarnings {
		rows = append(rows, warningRow{LineNumber: w.LineNumber, Level: "line", Code: string(w.Kind), Message: w.Reason})
	}
	for _, d := range res.Discrepancies {
		rows = append(rows, warningRow{Level: "batch", Code: string(d.Kind), Field: d.Field, Message: d.String()})
	}
	for _, rec := range res.Records() {
		for _, w := range rec.Warnings {
			rows = append(rows, warningRow{LineNumber: rec.LineNumber, Level: "field", Code: w.Code, Field: w.Field, Message: w.Message})
		}
	}
	return rows
}
