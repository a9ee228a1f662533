package api

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/output"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/service"
	"github.com/buemura/baseera/internal/web/jobs"
	"github.com/buemura/baseera/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handlers holds dependencies for the REST API handlers.
type Handlers struct {
	Manager  *jobs.Manager
	Service  *service.Service
	Registry *probe.Registry
	Catalog  *catalog.Catalog
	Logger   *zap.Logger
}

// NewHandlers creates API handlers with the given dependencies.
func NewHandlers(manager *jobs.Manager, svc *service.Service, registry *probe.Registry, cat *catalog.Catalog, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{Manager: manager, Service: svc, Registry: registry, Catalog: cat, Logger: logger}
}

// CreateScan handles POST /api/v1/scans.
func (h *Handlers) CreateScan(w http.ResponseWriter, r *http.Request) {
	req, err := decodeCreateScanRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, name := range req.Probes {
		if _, err := h.Registry.Get(name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	job := h.Manager.Create(jobs.Request{URL: req.URL, TargetID: req.TargetID, Probes: req.Probes})
	if err := h.Manager.Start(job.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start scan: "+err.Error())
		return
	}
	h.Logger.Info("scan job started", zap.String("job", job.ID), zap.String("url", req.URL))

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":     job.ID,
		"status": jobs.StatusRunning,
	})
}

// ListScans handles GET /api/v1/scans.
func (h *Handlers) ListScans(w http.ResponseWriter, r *http.Request) {
	jobList := h.Manager.List()

	type scanSummary struct {
		ID           string              `json:"id"`
		URL          string              `json:"url"`
		Status       jobs.JobStatus      `json:"status"`
		CreatedAt    time.Time           `json:"created_at"`
		Probes       []string            `json:"probes,omitempty"`
		Progress     types.ProgressEvent `json:"progress"`
		FindingCount int                 `json:"finding_count"`
	}

	summaries := make([]scanSummary, len(jobList))
	for i, j := range jobList {
		summaries[i] = scanSummary{
			ID:           j.ID,
			URL:          j.URL,
			Status:       j.Status,
			CreatedAt:    j.CreatedAt,
			Probes:       j.Probes,
			Progress:     j.Progress,
			FindingCount: j.FindingCount(),
		}
	}

	writeJSON(w, http.StatusOK, summaries)
}

// GetScan handles GET /api/v1/scans/{id}.
func (h *Handlers) GetScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.Manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// GetScanReport handles GET /api/v1/scans/{id}/report?format=.
func (h *Handlers) GetScanReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, err := h.Manager.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	report, ok := job.Report()
	if !ok {
		writeError(w, http.StatusConflict, "scan is not completed")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "html"
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, report); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to render report: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// DeleteScan handles DELETE /api/v1/scans/{id}.
func (h *Handlers) DeleteScan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Manager.Delete(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Message handles POST /api/v1/messages: one request of the message
// contract, answered synchronously.
func (h *Handlers) Message(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body: "+err.Error())
		return
	}

	req, err := service.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.Service.Handle(r.Context(), req, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ProbeInfo is one row of GET /api/v1/probes.
type ProbeInfo struct {
	TypeID      int            `json:"typeId"`
	Name        string         `json:"name"`
	DisplayName string         `json:"displayName"`
	Severity    types.Severity `json:"severity"`
	Category    string         `json:"category,omitempty"`
	CWE         string         `json:"cwe,omitempty"`
	Description string         `json:"description,omitempty"`
	Enabled     bool           `json:"enabled"`
}

// ListProbes handles GET /api/v1/probes.
func (h *Handlers) ListProbes(w http.ResponseWriter, r *http.Request) {
	descs := h.Registry.Descriptors()
	out := make([]ProbeInfo, 0, len(descs))
	for _, d := range descs {
		info := ProbeInfo{TypeID: d.TypeID, Name: d.Name, Severity: d.Severity, Enabled: d.Enabled}
		if entry, err := h.Catalog.Lookup(d.TypeID); err == nil {
			info.DisplayName = entry.DisplayName
			info.Category = entry.Category
			info.CWE = entry.CWE
			info.Description = entry.Description
		} else {
			info.DisplayName = d.Name
		}
		out = append(out, info)
	}

	writeJSON(w, http.StatusOK, out)
}
