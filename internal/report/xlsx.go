package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names of the XLSX report.
const (
	SheetReceipts = "Recibos"
	SheetWarnings = "Avisos"
	SheetTotals   = "Totais"
)

var receiptColumns = []string{
	"Linha", "Tipo", "Numero RPS", "Serie", "Data Emissao", "Situacao",
	"Valor Servicos", "Valor Deducoes", "Valor ISS", "Aliquota (%)", "ISS Retido",
	"Codigo Servico", "Numero Cupom", "Retencoes", "Tomador", "Tomador Nome", "Descricao",
}

// moneyColumns are the 1-based Recibos columns formatted as currency.
var moneyColumns = []int{7, 8, 9, 10, 14}

// WriteXLSX writes doc as an XLSX workbook.
func WriteXLSX(w io.Writer, doc *Document) error {
	f, err := BuildWorkbook(doc)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

// BuildWorkbook lays doc out over the three report sheets.
func BuildWorkbook(doc *Document) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetReceipts); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{SheetWarnings, SheetTotals} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	steps := []func(*excelize.File, *Document) error{writeReceipts, writeWarnings, writeTotals}
	for _, step := range steps {
		if err := step(f, doc); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to build workbook: %w", err)
		}
	}
	return f, nil
}

func writeReceipts(f *excelize.File, doc *Document) error {
	if err := writeHeaderRow(f, SheetReceipts, receiptColumns); err != nil {
		return err
	}
	for i, r := range doc.Receipts {
		var tomadorDoc, tomadorNome string
		if r.Tomador != nil {
			tomadorDoc, tomadorNome = r.Tomador.Documento, r.Tomador.Nome
		}
		emissao := ""
		if !r.DataEmissao.IsZero() {
			emissao = r.DataEmissao.String()
		}
		retido := "N"
		if r.IssRetido {
			retido = "S"
		}
		row := []interface{}{
			r.LineNumber, r.TypeCode, r.NumeroRps, r.Serie, emissao, r.Situacao,
			amount(r.ValorServicos), amount(r.ValorDeducoes), amount(r.ValorIss), amount(r.Aliquota), retido,
			r.CodigoServico, r.NumeroCupom, amount(r.Retencoes.Total()), tomadorDoc, tomadorNome, r.Descricao,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetReceipts, cell, &row); err != nil {
			return err
		}
	}

	if len(doc.Receipts) > 0 {
		style, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
		if err != nil {
			return err
		}
		for _, col := range moneyColumns {
			top, _ := excelize.CoordinatesToCellName(col, 2)
			bottom, _ := excelize.CoordinatesToCellName(col, len(doc.Receipts)+1)
			if err := f.SetCellStyle(SheetReceipts, top, bottom, style); err != nil {
				return err
			}
		}
	}
	return fitColumns(f, SheetReceipts, receiptColumns)
}

func writeWarnings(f *excelize.File, doc *Document) error {
	columns := []string{"Linha", "Nivel", "Codigo", "Campo", "Mensagem"}
	if err := writeHeaderRow(f, SheetWarnings, columns); err != nil {
		return err
	}
	for i, w := range doc.Warnings {
		var line interface{}
		if w.LineNumber > 0 {
			line = w.LineNumber
		}
		row := []interface{}{line, w.Level, w.Code, w.Field, w.Message}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetWarnings, cell, &row); err != nil {
			return err
		}
	}
	return fitColumns(f, SheetWarnings, columns)
}

func writeTotals(f *excelize.File, doc *Document) error {
	rows := [][]interface{}{
		{"Arquivo", doc.Source.Filename},
		{"Familia", doc.Family},
		{"Versao Layout", doc.LayoutVersion},
		{"Estado", doc.State},
		{"Quantidade RPS", doc.Totals.Receipts},
		{"Valor Servicos", amount(doc.Totals.ValorServicos)},
		{"Valor ISS", amount(doc.Totals.ValorIss)},
		{"Valor Deducoes", amount(doc.Totals.ValorDeducoes)},
		{"Divergencias", len(doc.Discrepancies)},
	}
	if doc.Header != nil {
		rows = append(rows,
			[]interface{}{"CNPJ", doc.Header.Cnpj},
			[]interface{}{"Inscricao Municipal", doc.Header.InscricaoMunicipal},
			[]interface{}{"Periodo", doc.Header.DataInicio.String() + " a " + doc.Header.DataFim.String()},
		)
	}
	for i := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetTotals, cell, &rows[i]); err != nil {
			return err
		}
	}
	return f.SetColWidth(SheetTotals, "A", "B", 22)
}

func writeHeaderRow(f *excelize.File, sheet string, columns []string) error {
	if err := f.SetSheetRow(sheet, "A1", &columns); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

// fitColumns approximates auto-fit from the header text.
func fitColumns(f *excelize.File, sheet string, columns []string) error {
	for i, name := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(name) + 4)
		if width < 12 {
			width = 12
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return err
		}
	}
	return nil
}

// amount converts a currency value for a numeric cell.
func amount(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
