// =============================================================================
// RPS Batch Decoder - XLSX Layout Templates
// =============================================================================
//
// Municipalities publish record layouts as spreadsheets. A template workbook
// holds one sheet per record type; the first token of the sheet name is the
// type code ("20 RPS", "90 Rodape"). Sheets starting with "_" are skipped.
//
// TEMPLATE STRUCTURE (Expected Columns):
//
//   | Column A  | Column B        | Column C      | Column D | Column E    | Column F    |
//   |-----------|-----------------|---------------|----------|-------------|-------------|
//   | Campo     | Posição Inicial | Posição Final | Formato  | Obrigatório | Conciliação |
//   | numeroRps | 3               | 14            | N        | S           |             |
//   | descricao | 170             | 4169          | X        | N           |             |
//
// Row 1 holds the column headers. Positions are 1-based and inclusive.
// A listed sheet replaces the fields of the matching record type; the
// type's name, role and ordinal are kept.
//
// =============================================================================

package layout

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// TemplateColumns defines which columns of a template sheet carry which data.
// Column indices are 0-based (A=0, B=1, ...).
type TemplateColumns struct {
	NameColumn       int
	StartColumn      int
	EndColumn        int
	EncodingColumn   int
	RequiredColumn   int
	ReconcilesColumn int

	// DataStartRow is the first row (0-based) holding a field.
	DataStartRow int
}

// DefaultTemplateColumns returns the column configuration shown above.
func DefaultTemplateColumns() TemplateColumns {
	return TemplateColumns{
		NameColumn:       0, // Column A
		StartColumn:      1, // Column B
		EndColumn:        2, // Column C
		EncodingColumn:   3, // Column D
		RequiredColumn:   4, // Column E
		ReconcilesColumn: 5, // Column F
		DataStartRow:     1, // Row 2
	}
}

// LoadXLSX reads a template workbook for family and applies it on top of base.
//
// PARAMETERS:
//   - path: The path to the XLSX template file.
//   - base: The catalog holding the family to override.
//   - family: The family the template describes. It must exist in base.
//
// RETURNS:
//   - A new validated catalog.
//   - An error if the workbook cannot be read or describes an invalid layout.
func LoadXLSX(path string, base *Catalog, family FamilyID) (*Catalog, error) {
	return LoadXLSXWithColumns(path, base, family, DefaultTemplateColumns())
}

// LoadXLSXWithColumns is LoadXLSX with a custom column configuration.
func LoadXLSXWithColumns(path string, base *Catalog, family FamilyID, columns TemplateColumns) (*Catalog, error) {
	existing, err := base.Family(family)
	if err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template file: %w", err)
	}
	defer f.Close()

	override := FamilyOverride{ID: string(existing.ID)}
	for _, sheet := range f.GetSheetList() {
		if strings.HasPrefix(sheet, "_") {
			continue
		}
		code := sheetCode(sheet)
		if code == "" {
			continue
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet '%s': %w", sheet, err)
		}

		rto := RecordTypeOverride{Code: code}
		for i := columns.DataStartRow; i < len(rows); i++ {
			row := rows[i]
			if len(row) == 0 || isRowEmpty(row) {
				continue
			}
			fo, err := parseRow(row, columns)
			if err != nil {
				return nil, fmt.Errorf("sheet '%s' row %d: %w", sheet, i+1, err)
			}
			if fo.Name == "" {
				continue
			}
			rto.Fields = append(rto.Fields, fo)
		}
		if len(rto.Fields) == 0 {
			return nil, fmt.Errorf("%w: sheet '%s' defines no fields", ErrInvalidLayout, sheet)
		}
		override.RecordTypes = append(override.RecordTypes, rto)
	}

	return Apply(base, OverrideFile{Families: []FamilyOverride{override}})
}

// parseRow extracts one field from a template row.
func parseRow(row []string, columns TemplateColumns) (FieldOverride, error) {
	getCell := func(index int) string {
		if index < len(row) {
			return strings.TrimSpace(row[index])
		}
		return ""
	}

	fo := FieldOverride{
		Name:       getCell(columns.NameColumn),
		Required:   normalizeRequired(getCell(columns.RequiredColumn)),
		Reconciles: getCell(columns.ReconcilesColumn),
	}
	if fo.Name == "" {
		return fo, nil
	}

	var err error
	if fo.Start, err = strconv.Atoi(getCell(columns.StartColumn)); err != nil {
		return fo, fmt.Errorf("field %q: invalid start position: %w", fo.Name, err)
	}
	if fo.End, err = strconv.Atoi(getCell(columns.EndColumn)); err != nil {
		return fo, fmt.Errorf("field %q: invalid end position: %w", fo.Name, err)
	}
	if raw := getCell(columns.EncodingColumn); raw != "" {
		if fo.Encoding, err = ParseEncoding(raw); err != nil {
			return fo, fmt.Errorf("field %q: %w", fo.Name, err)
		}
	}
	return fo, nil
}

// sheetCode returns the first whitespace-separated token of a sheet name.
func sheetCode(sheet string) string {
	fields := strings.Fields(sheet)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// isRowEmpty checks if a row contains only empty cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// normalizeRequired reads the Obrigatório column. Anything not recognised is
// optional.
func normalizeRequired(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "required", "req", "r", "yes", "y", "true", "1", "mandatory", "s", "sim", "obrigatorio", "obrigatório":
		return true
	}
	return false
}
