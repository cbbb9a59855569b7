package store

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
	"github.com/ginjaninja78/rps-batch-decoder/internal/codec"
	"github.com/ginjaninja78/rps-batch-decoder/internal/decoder"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

func sampleResult() *batch.Result {
	return &batch.Result{
		ID:            uuid.New(),
		Family:        layout.General,
		LayoutVersion: 1,
		State:         batch.StateDoneWithWarnings,
		Details: []decoder.Record{{
			LineNumber: 2,
			TypeCode:   "20",
			Warnings:   []decoder.FieldWarning{{Field: "descricao", Code: decoder.WarnTruncated, Message: "short line"}},
		}},
		Receipts: []batch.Receipt{{
			LineNumber:    2,
			TypeCode:      "20",
			NumeroRps:     1,
			DataEmissao:   codec.Date{Year: 2025, Month: 8, Day: 1},
			ValorServicos: decimal.RequireFromString("123.45"),
			ValorIss:      decimal.RequireFromString("6.17"),
			Aliquota:      decimal.RequireFromString("5.00"),
		}},
		LineWarnings: []batch.LineWarning{{LineNumber: 3, Kind: batch.Unrecognized, TypeCode: "99", Reason: "unknown type"}},
	}
}

func TestMemorySaveBatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	imp := Import{CompanyID: "acme", Filename: "lote.txt", ContentHash: "abc", Result: sampleResult()}
	id, err := m.SaveBatch(ctx, imp)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	bf, err := m.BatchFile(ctx, id)
	if err != nil {
		t.Fatalf("BatchFile: %v", err)
	}
	if bf.Family != "GENERAL" || bf.ReceiptCount != 1 || bf.WarningCount != 2 || bf.State != "done_with_warnings" {
		t.Fatalf("summary = %+v", bf)
	}

	if _, err := m.SaveBatch(ctx, imp); !errors.Is(err, ErrDuplicateFile) {
		t.Fatalf("second import err = %v", err)
	}
	if m.Len() != 1 {
		t.Fatalf("duplicate stored: %d files", m.Len())
	}
}

func TestMemoryErrors(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.BatchFile(ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}

	tests := []struct {
		name string
		imp  Import
	}{
		{"no company", Import{ContentHash: "h", Result: sampleResult()}},
		{"no hash", Import{CompanyID: "c", Result: sampleResult()}},
		{"no result", Import{CompanyID: "c", ContentHash: "h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.SaveBatch(ctx, tt.imp); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestWarningRows(t *testing.T) {
	res := sampleResult()
	res.Discrepancies = []batch.Discrepancy{{Kind: batch.MissingFooter}}

	rows := warningRows(res)
	levels := map[string]int{}
	for _, r := range rows {
		levels[r.Level]++
	}
	if levels["line"] != 1 || levels["batch"] != 1 || levels["field"] != 1 {
		t.Fatalf("levels = %v", levels)
	}
}

func TestWarningRowsIncludeDuplicates(t *testing.T) {
	res := sampleResult()
	res.Duplicates = []decoder.Record{{
		LineNumber: 5,
		TypeCode:   "90",
		Warnings:   []decoder.FieldWarning{{Field: "quantidadeLinhas", Code: decoder.WarnEmpty, Message: "blank"}},
	}}

	var field int
	for _, r := range warningRows(res) {
		if r.Level == "field" {
			field++
		}
	}
	if field != res.FieldWarningCount() || field != 2 {
		t.Fatalf("field rows = %d, result counts %d", field, res.FieldWarningCount())
	}

	bf := summarize(uuid.New(), Import{CompanyID: "acme", Filename: "lote.txt", ContentHash: "h", Result: res}, time.Now())
	if bf.WarningCount != 3 {
		t.Fatalf("warning count = %d, want 3", bf.WarningCount)
	}
}

func TestPostgresSaveBatch(t *testing.T) {
	url := os.Getenv("RPS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RPS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pg, err := NewPostgres(ctx, url, 2)
	if err != nil {
		t.Fatalf("NewPostgres: %v", err)
	}
	defer pg.Close()
	if err := pg.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	imp := Import{CompanyID: "acme", Filename: "lote.txt", ContentHash: uuid.NewString(), Result: sampleResult()}
	id, err := pg.SaveBatch(ctx, imp)
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}
	if _, err := pg.SaveBatch(ctx, imp); !errors.Is(err, ErrDuplicateFile) {
		t.Fatalf("second import err = %v", err)
	}

	bf, err := pg.BatchFile(ctx, id)
	if err != nil {
		t.Fatalf("BatchFile: %v", err)
	}
	if bf.ContentHash != imp.ContentHash || bf.ReceiptCount != 1 {
		t.Fatalf("summary = %+v", bf)
	}
}
