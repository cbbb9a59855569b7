// =============================================================================
// RPS Batch Decoder - Reports
// =============================================================================
//
// Reports render a decode Result for people and downstream systems. Every
// format is built from the same Document so the three outputs always agree.
//
// FORMATS:
//   - json: one Document, indented.
//   - xlsx: workbook with sheets Recibos, Avisos and Totais.
//   - xml:  <loteRps> with one <rps n="..."> element per receipt.
//
// =============================================================================

package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
)

// Format names accepted by Write.
const (
	FormatJSON = "json"
	FormatXLSX = "xlsx"
	FormatXML  = "xml"
)

// Source describes where a batch came from.
type Source struct {
	Filename    string `json:"filename"`
	ContentHash string `json:"contentHash,omitempty"`
	CompanyID   string `json:"companyId,omitempty"`
}

// Totals are the statistics computed over the detail records.
type Totals struct {
	Receipts      int             `json:"receipts"`
	ValorServicos decimal.Decimal `json:"valorServicos"`
	ValorIss      decimal.Decimal `json:"valorIss"`
	ValorDeducoes decimal.Decimal `json:"valorDeducoes"`
}

// Warning is a line, field or batch diagnostic flattened for reports.
type Warning struct {
	LineNumber int    `json:"lineNumber,omitempty"`
	Level      string `json:"level"`
	Code       string `json:"code"`
	Field      string `json:"field,omitempty"`
	Message    string `json:"message"`
}

// Document is the format-independent report of one batch.
type Document struct {
	ID            uuid.UUID           `json:"id"`
	Source        Source              `json:"source"`
	Family        string              `json:"family"`
	LayoutVersion int                 `json:"layoutVersion"`
	State         string              `json:"state"`
	Clean         bool                `json:"clean"`
	Header        *batch.Header       `json:"header,omitempty"`
	Receipts      []batch.Receipt     `json:"receipts"`
	Totals        Totals              `json:"totals"`
	Discrepancies []batch.Discrepancy `json:"discrepancies,omitempty"`
	Warnings      []Warning           `json:"warnings,omitempty"`
}

// NewDocument builds the Document for res.
func NewDocument(res *batch.Result, src Source) *Document {
	doc := &Document{
		ID:            res.ID,
		Source:        src,
		Family:        string(res.Family),
		LayoutVersion: res.LayoutVersion,
		State:         res.State.String(),
		Clean:         res.Clean(),
		Header:        res.HeaderInfo(),
		Receipts:      res.Receipts,
		Totals: Totals{
			Receipts:      res.Statistics.TotalCount,
			ValorServicos: res.Statistics.TotalServiceValue(),
			ValorIss:      res.Statistics.TotalTaxValue(),
			ValorDeducoes: res.Statistics.TotalDeductionValue(),
		},
		Discrepancies: res.Discrepancies,
	}
	if doc.Receipts == nil {
		doc.Receipts = []batch.Receipt{}
	}

	for _, w := range res.LineWarnings {
		doc.Warnings = append(doc.Warnings, Warning{LineNumber: w.LineNumber, Level: "line", Code: string(w.Kind), Message: w.Reason})
	}
	for _, rec := range res.Records() {
		for _, w := range rec.Warnings {
			doc.Warnings = append(doc.Warnings, Warning{LineNumber: rec.LineNumber, Level: "field", Code: w.Code, Field: w.Field, Message: w.Message})
		}
	}
	for _, d := range res.Discrepancies {
		doc.Warnings = append(doc.Warnings, Warning{Level: "batch", Code: string(d.Kind), Field: d.Field, Message: d.String()})
	}
	return doc
}

// Write renders doc in format to w.
func Write(w io.Writer, doc *Document, format string) error {
	switch strings.ToLower(format) {
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatXLSX:
		return WriteXLSX(w, doc)
	case FormatXML:
		return WriteXML(w, doc)
	}
	return fmt.Errorf("unknown report format %q", format)
}

// WriteFiles writes doc once per format into dir and returns the paths.
//
// PARAMETERS:
//   - dir: The output directory. It must exist.
//   - doc: The report.
//   - formats: Format names, e.g. ["json", "xlsx"].
//
// FILE NAMING:
//   <input base name>_<first 8 chars of the result id>.<format>
func WriteFiles(dir string, doc *Document, formats []string) ([]string, error) {
	var paths []string
	for _, format := range formats {
		path := filepath.Join(dir, FileName(doc, format))
		if err := writeFile(path, doc, format); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// FileName returns the output file name for doc in format.
func FileName(doc *Document, format string) string {
	base := strings.TrimSuffix(filepath.Base(doc.Source.Filename), filepath.Ext(doc.Source.Filename))
	if base == "" || base == "." {
		base = "batch"
	}
	return fmt.Sprintf("%s_%s.%s", base, doc.ID.String()[:8], strings.ToLower(format))
}

func writeFile(path string, doc *Document, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := Write(f, doc, format); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
