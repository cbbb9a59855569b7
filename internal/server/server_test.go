package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch/batchtest"
	"github.com/ginjaninja78/rps-batch-decoder/internal/config"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
	"github.com/ginjaninja78/rps-batch-decoder/internal/pipeline"
	"github.com/ginjaninja78/rps-batch-decoder/internal/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		InputDir:      filepath.Join(root, "in"),
		OutputDir:     filepath.Join(root, "out"),
		DefaultFamily: "GENERAL",
		Encoding:      "auto",
	}
	mem := store.NewMemory()
	p := pipeline.New(cfg, layout.Default(), mem, nil)
	srv := httptest.NewServer(New(p, mem, Options{Encoding: "auto"}, nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func upload(t *testing.T, url, filename, content, family string) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if family != "" {
		mw.WriteField("family", family)
	}
	mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || decodeBody(t, resp)["status"] != "ok" {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestLayouts(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/layouts")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	body := decodeBody(t, resp)
	families := body["families"].([]interface{})
	if len(families) != 2 {
		t.Fatalf("families = %v", families)
	}
}

func TestUpload(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/companies/acme/files"
	content := batchtest.General(2)

	resp := upload(t, url, "lote.txt", content, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d: %v", resp.StatusCode, decodeBody(t, resp))
	}
	body := decodeBody(t, resp)
	if body["family"] != "GENERAL" || body["state"] != "done" || body["receipts"] != float64(2) || body["clean"] != true {
		t.Fatalf("body = %v", body)
	}

	batchResp, err := http.Get(srv.URL + "/api/batches/" + body["batchFileId"].(string))
	if err != nil {
		t.Fatal(err)
	}
	defer batchResp.Body.Close()
	if batchResp.StatusCode != http.StatusOK {
		t.Fatalf("batch lookup status %d", batchResp.StatusCode)
	}

	if dup := upload(t, url, "again.txt", content, ""); dup.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate status %d", dup.StatusCode)
	}
}

func TestUploadErrors(t *testing.T) {
	srv := newTestServer(t)
	url := srv.URL + "/api/companies/acme/files"

	tests := []struct {
		name     string
		filename string
		family   string
		want     int
	}{
		{"missing file", "", "", http.StatusBadRequest},
		{"unknown family", "lote.txt", "NOPE", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, url, tt.filename, batchtest.General(1), tt.family)
			if resp.StatusCode != tt.want {
				t.Fatalf("status %d, want %d", resp.StatusCode, tt.want)
			}
			if decodeBody(t, resp)["success"] != false {
				t.Fatal("error body not marked unsuccessful")
			}
		})
	}
}

func TestBatchNotFound(t *testing.T) {
	srv := newTestServer(t)
	for path, want := range map[string]int{
		"/api/batches/not-a-uuid":                           http.StatusBadRequest,
		"/api/batches/1b4e28ba-2fa1-11d2-883f-0016d3cca427": http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("%s: status %d, want %d", path, resp.StatusCode, want)
		}
	}
}
