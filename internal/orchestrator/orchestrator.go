package orchestrator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/cvexport/internal/exporterr"
	"github.com/local/cvexport/internal/metrics"
	"github.com/local/cvexport/internal/paginate"
	"github.com/local/cvexport/internal/rasterize"
	"github.com/local/cvexport/internal/statuscheck"
)

// HealthChecker reports dependency health for /status.
type HealthChecker interface {
	Summary(ctx context.Context) statuscheck.Summary
}

type Dependencies struct {
	Exporter *Exporter
	Status   StatusStore
	Results  ResultStore
	Health   HealthChecker
	// TempDir and TempMaxAge drive stale temp cleanup after background jobs.
	TempDir    string
	TempMaxAge time.Duration
}

type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) *Orchestrator {
	if deps.TempMaxAge <= 0 {
		deps.TempMaxAge = time.Hour
	}
	return &Orchestrator{deps: deps}
}

const maxUploadBytes = 32 << 20

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/status", o.handleStatus)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/export", o.handleExport)
	mux.HandleFunc("/export_upload", o.handleExportUpload)
	mux.HandleFunc("/export_jobs", o.handleExportJob)
	mux.HandleFunc("/progress/", o.handleProgress)
	mux.HandleFunc("/download/", o.handleDownload)
}

type exportReq struct {
	DocumentID    string               `json:"document_id"`
	Subject       string               `json:"subject"`
	HTML          string               `json:"html"`
	ContentBase64 string               `json:"content_base64"`
	ContentType   string               `json:"content_type"`
	Format        *paginate.PageFormat `json:"format,omitempty"`
}

type exportResp struct {
	Status  string `json:"status"`
	JobID   string `json:"job_id,omitempty"`
	Message string `json:"message"`
}

func (q exportReq) request() (Request, error) {
	if strings.TrimSpace(q.DocumentID) == "" {
		return Request{}, errors.New("missing document_id")
	}
	view := rasterize.View{DocumentID: q.DocumentID, MIME: q.ContentType}
	switch {
	case q.HTML != "":
		view.Content = []byte(q.HTML)
		if view.MIME == "" {
			view.MIME = "text/html"
		}
	case q.ContentBase64 != "":
		b, err := base64.StdEncoding.DecodeString(q.ContentBase64)
		if err != nil {
			return Request{}, errors.New("content_base64 is not valid base64")
		}
		view.Content = b
	default:
		return Request{}, errors.New("missing html or content_base64")
	}
	format, err := requestFormat(q.Format)
	if err != nil {
		return Request{}, err
	}
	return Request{DocumentID: q.DocumentID, Subject: q.Subject, View: view, Format: format}, nil
}

// requestFormat validates a per-request page format. A missing or zero
// format yields nil so the exporter's configured format applies.
func requestFormat(f *paginate.PageFormat) (*paginate.PageFormat, error) {
	if f == nil {
		return nil, nil
	}
	unit, err := paginate.ParseUnit(string(f.Unit))
	if err != nil {
		return nil, err
	}
	if f.Width == 0 && f.Height == 0 {
		return nil, nil
	}
	out := paginate.PageFormat{Width: f.Width, Height: f.Height, Unit: unit}
	if !out.Valid() {
		return nil, fmt.Errorf("page format %s must have positive dimensions", out)
	}
	return &out, nil
}

func decodeExportReq(r *http.Request) (Request, error) {
	defer r.Body.Close()
	var q exportReq
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&q); err != nil {
		return Request{}, errors.New("invalid json")
	}
	return q.request()
}

// handleExport runs an export synchronously and returns the PDF.
func (o *Orchestrator) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeExportReq(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, exportResp{Status: "error", Message: err.Error()})
		return
	}
	o.exportAndServe(w, r, req)
}

// handleExportUpload accepts multipart/form-data with fields file,
// document_id and subject. The rasterizer is chosen from the file's content.
func (o *Orchestrator) handleExportUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, exportResp{Status: "error", Message: "invalid multipart form"})
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, exportResp{Status: "error", Message: "missing file"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, exportResp{Status: "error", Message: "read failed"})
		return
	}
	docID := r.FormValue("document_id")
	if docID == "" {
		writeJSON(w, http.StatusBadRequest, exportResp{Status: "error", Message: "missing document_id"})
		return
	}
	req := Request{
		DocumentID: docID,
		Subject:    r.FormValue("subject"),
		View: rasterize.View{
			DocumentID: docID,
			Content:    content,
			MIME:       hdr.Header.Get("Content-Type"),
		},
	}
	o.exportAndServe(w, r, req)
}

func (o *Orchestrator) exportAndServe(w http.ResponseWriter, r *http.Request, req Request) {
	res, err := o.deps.Exporter.Run(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writePDF(w, res.FileName, res.PDF)
}

// handleExportJob starts a background export and returns its job id.
func (o *Orchestrator) handleExportJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, err := decodeExportReq(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, exportResp{Status: "error", Message: err.Error()})
		return
	}
	jobID, done, err := o.deps.Exporter.Start(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	go o.monitorJob(jobID, req.DocumentID, done)

	log.Info().Str("job_id", jobID).Str("document_id", req.DocumentID).Msg("export job created")
	writeJSON(w, http.StatusAccepted, exportResp{Status: "ok", JobID: jobID, Message: "Export job created"})
}

func (o *Orchestrator) handleProgress(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/progress/")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	resp := map[string]any{
		"success":    st.State == string(StateComplete),
		"job_id":     id,
		"status":     st.State,
		"progress":   st.Progress,
		"message":    st.Message,
		"kind":       st.Kind,
		"start_time": st.Start,
		"end_time":   st.End,
	}
	if st.Metadata != nil {
		for _, k := range []string{"pages", "pages_done", "pages_total", "file_name"} {
			if v, ok := st.Metadata[k]; ok {
				resp[k] = v
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleDownload serves a background job's stored PDF.
func (o *Orchestrator) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/download/")
	st, ok, err := o.deps.Status.Get(r.Context(), id)
	if err != nil || !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if st.State != string(StateComplete) {
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	ref, _ := st.Metadata["result_ref"].(string)
	if ref == "" {
		if _, failed := st.Metadata["result_error"]; failed || o.deps.Results == nil {
			http.Error(w, "result not available", http.StatusNotFound)
			return
		}
		http.Error(w, "not ready", http.StatusAccepted)
		return
	}
	b, err := o.deps.Results.Open(r.Context(), ref)
	if err != nil {
		log.Error().Err(err).Str("job_id", id).Str("ref", ref).Msg("open result failed")
		http.Error(w, "failed to read", http.StatusInternalServerError)
		return
	}
	name, _ := st.Metadata["file_name"].(string)
	if name == "" {
		name = fmt.Sprintf("export_%s.pdf", id)
	}
	writePDF(w, name, b)
}

func (o *Orchestrator) handleStatus(w http.ResponseWriter, r *http.Request) {
	if o.deps.Health == nil {
		http.Error(w, "status unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, o.deps.Health.Summary(r.Context()))
}

// statusForKind maps failure kinds to HTTP codes. The body stays generic.
func statusForKind(k exporterr.Kind) int {
	switch k {
	case exporterr.KindInvalidSurface, exporterr.KindDegenerateScale:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeFailure(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrDocumentBusy) {
		writeJSON(w, http.StatusConflict, exportResp{Status: "busy", Message: "an export for this document is already running"})
		return
	}
	writeJSON(w, statusForKind(exporterr.KindOf(err)), exportResp{Status: "error", Message: genericFailure})
}

func writePDF(w http.ResponseWriter, name string, b []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", fmt.Sprint(len(b)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
