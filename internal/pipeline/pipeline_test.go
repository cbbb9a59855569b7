package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
	"github.com/ginjaninja78/rps-batch-decoder/internal/batch/batchtest"
	"github.com/ginjaninja78/rps-batch-decoder/internal/config"
	"github.com/ginjaninja78/rps-batch-decoder/internal/intake"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
	"github.com/ginjaninja78/rps-batch-decoder/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		InputDir:        filepath.Join(root, "input"),
		OutputDir:       filepath.Join(root, "output"),
		InputArchiveDir: filepath.Join(root, "archive"),
		ErrorDir:        filepath.Join(root, "error"),
		MaxConcurrency:  2,
		DecodeWorkers:   2,
		DefaultFamily:   "GENERAL",
		Encoding:        "auto",
		OutputFormats:   []string{"json", "xlsx"},
		OwnerID:         "acme",
		FamilyRules:     []config.FamilyRule{{Pattern: "eqp_*", Family: "EQUIPMENT"}},
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeInbox(t *testing.T, cfg *config.Config, name, content string) string {
	t.Helper()
	path := filepath.Join(cfg.InputDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestResolveFamily(t *testing.T) {
	p := New(testConfig(t), layout.Default(), nil, nil)

	tests := []struct {
		name     string
		file     string
		override string
		want     layout.FamilyID
		wantErr  bool
	}{
		{"default", "lote.txt", "", layout.General, false},
		{"filename rule", "EQP_01.txt", "", layout.Equipment, false},
		{"override wins", "EQP_01.txt", "general", layout.General, false},
		{"unknown override", "lote.txt", "nope", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.ResolveFamily(tt.file, tt.override)
			if tt.wantErr {
				if !errors.Is(err, layout.ErrUnknownFamily) {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("got %s, %v; want %s", got, err, tt.want)
			}
		})
	}
}

func TestProcessFileSuccess(t *testing.T) {
	cfg := testConfig(t)
	mem := store.NewMemory()
	p := New(cfg, layout.Default(), mem, nil)
	path := writeInbox(t, cfg, "lote.txt", batchtest.General(3))

	fr := p.ProcessFile(context.Background(), path, Options{Persist: true})
	if !fr.Success {
		t.Fatalf("failed: %v", fr.Error)
	}
	if fr.Result.State != batch.StateDone || len(fr.Result.Receipts) != 3 {
		t.Fatalf("state %s, %d receipts", fr.Result.State, len(fr.Result.Receipts))
	}
	if len(fr.OutputFiles) != 2 {
		t.Fatalf("outputs = %v", fr.OutputFiles)
	}
	for _, out := range fr.OutputFiles {
		if _, err := os.Stat(out); err != nil {
			t.Fatalf("missing output %s", out)
		}
	}
	if fr.ArchivePath != filepath.Join(cfg.InputArchiveDir, "lote.txt") {
		t.Fatalf("archive = %s", fr.ArchivePath)
	}
	if mem.Len() != 1 {
		t.Fatalf("stored %d batches", mem.Len())
	}
	bf, err := mem.BatchFile(context.Background(), fr.BatchFileID)
	if err != nil || bf.CompanyID != "acme" {
		t.Fatalf("stored batch = %+v, %v", bf, err)
	}
}

func TestProcessFileArchiveByDate(t *testing.T) {
	cfg := testConfig(t)
	cfg.ArchiveByDate = true
	p := New(cfg, layout.Default(), nil, nil)
	path := writeInbox(t, cfg, "lote.txt", batchtest.General(1))

	fr := p.ProcessFile(context.Background(), path, Options{})
	if !fr.Success {
		t.Fatalf("failed: %v", fr.Error)
	}
	rel, err := filepath.Rel(cfg.InputArchiveDir, fr.ArchivePath)
	if err != nil {
		t.Fatal(err)
	}
	// YYYY/MM/DD/lote.txt
	if parts := strings.Split(filepath.ToSlash(rel), "/"); len(parts) != 4 || parts[3] != "lote.txt" || len(parts[0]) != 4 {
		t.Fatalf("archive = %s", fr.ArchivePath)
	}
}

func TestProcessFileDryRun(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, layout.Default(), nil, nil)
	path := writeInbox(t, cfg, "lote.txt", batchtest.General(1))

	fr := p.ProcessFile(context.Background(), path, Options{DryRun: true})
	if !fr.Success || len(fr.OutputFiles) != 0 {
		t.Fatalf("result = %+v", fr)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal("dry run moved the input")
	}
}

func TestProcessFileDuplicateIsQuarantined(t *testing.T) {
	cfg := testConfig(t)
	mem := store.NewMemory()
	p := New(cfg, layout.Default(), mem, nil)
	content := batchtest.General(1)

	first := p.ProcessFile(context.Background(), writeInbox(t, cfg, "a.txt", content), Options{Persist: true})
	if !first.Success {
		t.Fatalf("first import failed: %v", first.Error)
	}

	second := p.ProcessFile(context.Background(), writeInbox(t, cfg, "b.txt", content), Options{Persist: true})
	if second.Success || !errors.Is(second.Error, store.ErrDuplicateFile) {
		t.Fatalf("second import = %v", second.Error)
	}
	if second.ArchivePath != filepath.Join(cfg.ErrorDir, "b.txt") {
		t.Fatalf("quarantined to %s", second.ArchivePath)
	}
	if _, err := os.Stat(second.ArchivePath + ".error.txt"); err != nil {
		t.Fatalf("no error log: %v", err)
	}
}

func TestPersistWithoutStoreFails(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, layout.Default(), nil, nil)
	path := writeInbox(t, cfg, "lote.txt", batchtest.General(1))

	fr := p.ProcessFile(context.Background(), path, Options{Persist: true})
	if fr.Success || fr.Stage != "persist" {
		t.Fatalf("result = %+v", fr)
	}
}

func TestRun(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, layout.Default(), nil, nil)
	writeInbox(t, cfg, "a.txt", batchtest.General(2))
	writeInbox(t, cfg, "b.txt", batchtest.General(1))
	writeInbox(t, cfg, "c.txt", batchtest.General(1))
	writeInbox(t, cfg, "d.txt", batchtest.General(1))

	summary, err := p.Run(context.Background(), Options{Family: "GENERAL"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalFiles != 4 || summary.SuccessfulFiles != 4 || summary.TotalReceipts != 5 {
		t.Fatalf("summary = %+v", summary)
	}

	entries, _ := os.ReadDir(cfg.OutputDir)
	var summaries int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "processing_summary_") {
			summaries++
		}
	}
	if summaries != 1 {
		t.Fatalf("%d summary files", summaries)
	}
}

func TestRunUnknownFamilyFails(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, layout.Default(), nil, nil)
	writeInbox(t, cfg, "a.txt", batchtest.General(1))

	summary, err := p.Run(context.Background(), Options{Family: "MISSING"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.FailedFiles != 1 || summary.FailedFilesList[0].ErrorType != "decode" {
		t.Fatalf("summary = %+v", summary)
	}
}

func TestImport(t *testing.T) {
	p := New(testConfig(t), layout.Default(), store.NewMemory(), nil)
	raw := []byte(batchtest.General(2))
	up, err := intake.Read(strings.NewReader(string(raw)), "upload.txt", "auto")
	if err != nil {
		t.Fatal(err)
	}

	fr, err := p.Import(context.Background(), up, "", "acme")
	if err != nil || !fr.Success {
		t.Fatalf("Import: %v", err)
	}
	if _, err := p.Import(context.Background(), up, "", "acme"); !errors.Is(err, store.ErrDuplicateFile) {
		t.Fatalf("duplicate err = %v", err)
	}
}
