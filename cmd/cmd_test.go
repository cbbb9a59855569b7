package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/rps-batch-decoder/internal/config"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
)

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "layouts.yaml")
	doc := `
families:
  - id: GENERAL
    version: 3
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		file        string
		wantVersion int
		wantErr     bool
	}{
		{"built-in", "", 1, false},
		{"yaml overrides", path, 3, false},
		{"missing file", filepath.Join(dir, "nope.yaml"), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog, err := loadCatalog(&config.Config{LayoutsFile: tt.file, LayoutsFamily: "GENERAL"})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			f, err := catalog.Family(layout.General)
			if err != nil {
				t.Fatal(err)
			}
			if f.Version != tt.wantVersion {
				t.Fatalf("version = %d, want %d", f.Version, tt.wantVersion)
			}
		})
	}
}

func TestWriteFamily(t *testing.T) {
	f, _ := layout.Default().Family(layout.Equipment)
	info := layout.Describe(f)

	tests := []struct {
		format string
		want   string
	}{
		{"yaml", "id: EQUIPMENT"},
		{"json", `"id": "EQUIPMENT"`},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			if err := writeFamily(&buf, info, tt.format); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("output missing %q:\n%s", tt.want, buf.String())
			}
		})
	}

	if err := writeFamily(&bytes.Buffer{}, info, "toml"); err == nil {
		t.Fatal("unknown format accepted")
	}
}
