package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	root := t.TempDir()
	fm := NewFileManager(
		filepath.Join(root, "input"),
		filepath.Join(root, "output"),
		filepath.Join(root, "archive"),
		filepath.Join(root, "error"),
	)
	if err := fm.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return fm
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("10\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDiscoverInputFiles(t *testing.T) {
	fm := newTestManager(t)
	for _, name := range []string{"b.txt", "a.txt", ".hidden", "c.txt.part", "d.TMP"} {
		touch(t, filepath.Join(fm.InputDir, name))
	}
	if err := os.Mkdir(filepath.Join(fm.InputDir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	files, err := fm.DiscoverInputFiles("")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.txt" || filepath.Base(files[1]) != "b.txt" {
		t.Fatalf("files = %v", files)
	}
}

func TestArchiveInputFileKeepsExisting(t *testing.T) {
	fm := newTestManager(t)

	first := filepath.Join(fm.InputDir, "lote.txt")
	touch(t, first)
	got1, err := fm.ArchiveInputFile(first)
	if err != nil {
		t.Fatal(err)
	}

	touch(t, first)
	got2, err := fm.ArchiveInputFile(first)
	if err != nil {
		t.Fatal(err)
	}

	if got1 != filepath.Join(fm.InputArchiveDir, "lote.txt") || got2 != filepath.Join(fm.InputArchiveDir, "lote-1.txt") {
		t.Fatalf("archived to %s and %s", got1, got2)
	}
	if FileExists(first) {
		t.Fatal("input still in inbox")
	}
}

func TestArchiveTimestampSubdirs(t *testing.T) {
	fm := newTestManager(t)
	fm.UseTimestampSubdirs = true
	fm.now = func() time.Time { return time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC) }

	path := filepath.Join(fm.InputDir, "lote.txt")
	touch(t, path)
	got, err := fm.ArchiveInputFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(fm.InputArchiveDir, "2025", "08", "01", "lote.txt"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestQuarantineInputFile(t *testing.T) {
	fm := newTestManager(t)
	path := filepath.Join(fm.InputDir, "ruim.txt")
	touch(t, path)

	dest, err := fm.QuarantineInputFile(path, []ErrorLogEntry{{
		Timestamp:    time.Now(),
		FileName:     "ruim.txt",
		ErrorType:    "decode",
		ErrorMessage: "unknown layout family",
	}})
	if err != nil {
		t.Fatal(err)
	}
	log, err := os.ReadFile(dest + ".error.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(log), "unknown layout family") || !strings.Contains(string(log), "Total Errors: 1") {
		t.Fatalf("log = %s", log)
	}
}

func TestWriteSummaryLog(t *testing.T) {
	dir := t.TempDir()
	end := time.Date(2025, 8, 1, 10, 0, 5, 0, time.UTC)
	path, err := WriteSummaryLog(ProcessingSummary{
		StartTime:       end.Add(-5 * time.Second),
		EndTime:         end,
		TotalFiles:      2,
		SuccessfulFiles: 1,
		FailedFiles:     1,
		ProcessedFiles:  []ProcessedFileInfo{{InputFile: "a.txt", Family: "GENERAL", State: "done", Receipts: 3}},
		FailedFilesList: []FailedFileInfo{{InputFile: "b.txt", ErrorType: "decode", ErrorMessage: "boom"}},
	}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "processing_summary_20250801_100005.txt" {
		t.Fatalf("path = %s", path)
	}
	body, _ := os.ReadFile(path)
	for _, want := range []string{"Duration:   5s", "Receipts:     3", "Error: boom"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("summary missing %q", want)
		}
	}
}
