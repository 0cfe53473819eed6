// Package httpadapter exposes the batch conversion API: upload a batch,
// download the generated workbooks, clean a session up.
package httpadapter

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/velworks/strpdf/internal/core/domain"
	"github.com/velworks/strpdf/internal/core/ports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Options struct {
	MaxUploadBytes          int64
	RateLimitRPS            float64
	RateLimitBurst          int
	BackpressureConcurrency int
	BackpressureWait        time.Duration

	// ProgressHandler is mounted on the websocket route when set.
	ProgressHandler http.Handler
	// Metrics wraps the routed handler when set.
	Metrics func(http.Handler) http.Handler
}

type Router struct {
	intake  ports.UploadIntake
	reader  ports.ArtifactReader
	cleaner ports.SessionCleaner
	opts    Options
}

func NewRouter(
	intake ports.UploadIntake,
	reader ports.ArtifactReader,
	cleaner ports.SessionCleaner,
	opts Options,
) *Router {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	return &Router{intake: intake, reader: reader, cleaner: cleaner, opts: opts}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /api/upload", rt.upload)
	mux.HandleFunc("GET /api/download/{session_id}", rt.download)
	mux.HandleFunc("DELETE /api/cleanup/{session_id}", rt.cleanup)
	if rt.opts.ProgressHandler != nil {
		mux.Handle("GET /ws/progress/{session_id}", rt.opts.ProgressHandler)
	}

	var handler http.Handler = mux
	if rt.opts.Metrics != nil {
		handler = rt.opts.Metrics(handler)
	}
	if rt.opts.BackpressureConcurrency > 0 {
		handler = backpressureMiddleware(handler, rt.opts.BackpressureConcurrency, rt.opts.BackpressureWait)
	}
	if rt.opts.RateLimitRPS > 0 {
		handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// upload accepts multipart form data with one or more parts in the "files"
// field. Loose PDFs and ZIP bundles can be mixed in one batch.
func (rt *Router) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart upload: " + err.Error()})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		headers = r.MultipartForm.File["file"]
	}
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	entries := make([]ports.UploadEntry, 0, len(headers))
	for _, header := range headers {
		content, err := readPart(header)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("read %s: %v", header.Filename, err)})
			return
		}
		entries = append(entries, ports.UploadEntry{Filename: header.Filename, Content: content})
	}

	result, err := rt.intake.Intake(r.Context(), entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (rt *Router) download(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")

	modeRaw := r.URL.Query().Get("mode")
	if modeRaw == "" {
		modeRaw = string(domain.ModeEverything)
	}
	mode, ok := domain.ParseOutputMode(modeRaw)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown output mode %q", modeRaw)})
		return
	}

	rc, art, err := rt.reader.OpenArtifact(r.Context(), sessionID, mode)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", domain.ArtifactFilename(mode)))
	w.Header().Set("X-Row-Count", fmt.Sprintf("%d", art.RowCount))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (rt *Router) cleanup(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session_id")
	if err := rt.cleaner.Cleanup(r.Context(), sessionID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "session cleaned up", "session_id": sessionID})
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
