// =============================================================================
// RPS Batch Decoder - HTTP Intake
// =============================================================================
//
// ROUTES:
//   POST /api/companies/{companyID}/files  upload one batch (multipart "file",
//                                          optional "family" form value)
//   GET  /api/batches/{id}                 stored batch summary
//   GET  /api/layouts                      layout families in the catalog
//   GET  /api/health                       liveness
//
// RESPONSES:
//   Every response is a JSON object with "success". Errors carry "error".
//   Upload status codes:
//     201  decoded and stored (warnings do not change the status)
//     400  missing file, unknown family or unreadable encoding
//     409  the same content was already imported
//     413  the upload exceeds server.max_upload_mb
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/ginjaninja78/rps-batch-decoder/internal/batch"
	"github.com/ginjaninja78/rps-batch-decoder/internal/intake"
	"github.com/ginjaninja78/rps-batch-decoder/internal/layout"
	"github.com/ginjaninja78/rps-batch-decoder/internal/logging"
	"github.com/ginjaninja78/rps-batch-decoder/internal/pipeline"
	"github.com/ginjaninja78/rps-batch-decoder/internal/report"
	"github.com/ginjaninja78/rps-batch-decoder/internal/store"
)

// Options configure the server.
type Options struct {
	Addr            string
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
	Encoding        string
}

// Server is the HTTP intake.
type Server struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	options  Options
	logger   logging.Logger
	router   *mux.Router
}

// New creates a Server. st must be the store p imports into.
func New(p *pipeline.Pipeline, st store.Store, options Options, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.Nop()
	}
	if options.MaxUploadBytes <= 0 {
		options.MaxUploadBytes = 32 << 20
	}
	s := &Server{pipeline: p, store: st, options: options, logger: logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/layouts", s.handleLayouts).Methods(http.MethodGet)
	router.HandleFunc("/api/companies/{companyID}/files", s.handleUpload).Methods(http.MethodPost)
	router.HandleFunc("/api/batches/{id}", s.handleBatch).Methods(http.MethodGet)
	return router
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.options.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on %s", s.options.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.options.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.logger.Info("Shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// HANDLERS
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok"})
}

func (s *Server) handleLayouts(w http.ResponseWriter, r *http.Request) {
	var families []layout.FamilyInfo
	for _, f := range s.pipeline.Catalog().Families() {
		families = append(families, layout.Describe(f))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "families": families})
}

// uploadResponse is the body of a successful upload.
type uploadResponse struct {
	Success       bool                `json:"success"`
	BatchFileID   uuid.UUID           `json:"batchFileId"`
	Filename      string              `json:"filename"`
	ContentHash   string              `json:"contentHash"`
	Family        string              `json:"family"`
	State         string              `json:"state"`
	Clean         bool                `json:"clean"`
	Receipts      int                 `json:"receipts"`
	Totals        report.Totals       `json:"totals"`
	Discrepancies []batch.Discrepancy `json:"discrepancies,omitempty"`
	Warnings      []report.Warning    `json:"warnings,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	companyID := strings.TrimSpace(mux.Vars(r)["companyID"])
	if companyID == "" {
		respondError(w, http.StatusBadRequest, "company id is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.options.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	up, err := intake.Read(file, header.Filename, s.options.Encoding)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	fr, err := s.pipeline.Import(r.Context(), up, r.FormValue("family"), companyID)
	switch {
	case errors.Is(err, layout.ErrUnknownFamily):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrDuplicateFile):
		respondError(w, http.StatusConflict, "file already imported")
		return
	case err != nil:
		s.logger.Error("Upload %s for %s failed: %v", up.Filename, companyID, err)
		respondError(w, http.StatusInternalServerError, "failed to import file")
		return
	}

	doc := fr.Document
	respondJSON(w, http.StatusCreated, uploadResponse{
		Success:       true,
		BatchFileID:   fr.BatchFileID,
		Filename:      up.Filename,
		ContentHash:   up.Hash,
		Family:        doc.Family,
		State:         doc.State,
		Clean:         doc.Clean,
		Receipts:      len(doc.Receipts),
		Totals:        doc.Totals,
		Discrepancies: doc.Discrepancies,
		Warnings:      doc.Warnings,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid batch id")
		return
	}
	bf, err := s.store.BatchFile(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "batch not found")
		return
	}
	if err != nil {
		s.logger.Error("Load batch %s: %v", id, err)
		respondError(w, http.StatusInternalServerError, "failed to load batch")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "batch": bf})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}
