package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/buemura/baseera/internal/catalog"
	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/internal/probe/headers"
	"github.com/buemura/baseera/internal/probe/probetest"
	"github.com/buemura/baseera/internal/service"
	"github.com/buemura/baseera/internal/web/jobs"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHandlers(t *testing.T) (*Handlers, *chi.Mux) {
	t.Helper()
	reg := probe.NewRegistry()
	reg.MustRegister(headers.NewMissingCSP(), headers.NewMissingHSTS(), headers.NewClickjacking())
	svc := service.New(probe.NewCoordinator(reg), &probetest.Launcher{Tab: probetest.New()})
	mgr := jobs.NewManager(svc)
	h := NewHandlers(mgr, svc, reg, catalog.Default(), nil)

	r := chi.NewRouter()
	r.Post("/api/v1/scans", h.CreateScan)
	r.Get("/api/v1/scans", h.ListScans)
	r.Get("/api/v1/scans/{id}", h.GetScan)
	r.Get("/api/v1/scans/{id}/report", h.GetScanReport)
	r.Delete("/api/v1/scans/{id}", h.DeleteScan)
	r.Post("/api/v1/messages", h.Message)
	r.Get("/api/v1/probes", h.ListProbes)
	return h, r
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func completedJob(t *testing.T, h *Handlers) jobs.Job {
	t.Helper()
	job := h.Manager.Create(jobs.Request{URL: "https://example.com"})
	require.NoError(t, h.Manager.Start(job.ID))
	var done jobs.Job
	require.Eventually(t, func() bool {
		var err error
		done, err = h.Manager.Get(job.ID)
		return err == nil && done.Done()
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, jobs.StatusCompleted, done.Status)
	return done
}

func TestCreateScan_ValidBody(t *testing.T) {
	_, router := setupTestHandlers(t)

	w := do(router, http.MethodPost, "/api/v1/scans", `{"url": "https://example.com", "probes": ["clickjacking"]}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["id"])
	assert.Equal(t, "running", resp["status"])
}

func TestCreateScan_EmptyURL(t *testing.T) {
	_, router := setupTestHandlers(t)

	w := do(router, http.MethodPost, "/api/v1/scans", `{"url": ""}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "url is required")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateScan_UnsupportedScheme(t *testing.T) {
	_, router := setupTestHandlers(t)
	w := do(router, http.MethodPost, "/api/v1/scans", `{"url": "ftp://example.com"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported scheme")
}

func TestCreateScan_UnknownProbe(t *testing.T) {
	h, router := setupTestHandlers(t)
	w := do(router, http.MethodPost, "/api/v1/scans", `{"url": "https://example.com", "probes": ["port"]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "probe not found")
	assert.Empty(t, h.Manager.List())
}

func TestCreateScan_InvalidJSON(t *testing.T) {
	_, router := setupTestHandlers(t)
	w := do(router, http.MethodPost, "/api/v1/scans", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid JSON")
}

func TestCreateScan_AllProbes(t *testing.T) {
	h, router := setupTestHandlers(t)

	w := do(router, http.MethodPost, "/api/v1/scans", `{"url": "https://example.com", "probes": ["all"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	list := h.Manager.List()
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Probes)
}

func TestListScans_ReturnsJobs(t *testing.T) {
	h, router := setupTestHandlers(t)
	h.Manager.Create(jobs.Request{URL: "https://a.example"})
	h.Manager.Create(jobs.Request{URL: "https://b.example"})

	w := do(router, http.MethodGet, "/api/v1/scans", "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
	assert.Contains(t, resp[0], "finding_count")
	assert.Contains(t, resp[0], "progress")
}

func TestGetScan_Found(t *testing.T) {
	h, router := setupTestHandlers(t)
	job := completedJob(t, h)

	w := do(router, http.MethodGet, "/api/v1/scans/"+job.ID, "")

	assert.Equal(t, http.StatusOK, w.Code)
	var resp jobs.Job
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, job.ID, resp.ID)
	assert.Equal(t, jobs.StatusCompleted, resp.Status)
	assert.Len(t, resp.Results, 3)
	assert.Equal(t, 100, resp.Progress.Percentage)
}

func TestGetScan_NotFound(t *testing.T) {
	_, router := setupTestHandlers(t)
	w := do(router, http.MethodGet, "/api/v1/scans/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetScanReport_Formats(t *testing.T) {
	h, router := setupTestHandlers(t)
	job := completedJob(t, h)

	tests := []struct {
		query       string
		contentType string
		contains    string
	}{
		{"", "text/html", "Baseera Scan Report"},
		{"?format=html", "text/html", "Clickjacking Vulnerability"},
		{"?format=json", "application/json", `"typeId"`},
		{"?format=markdown", "text/markdown", "3 findings"},
		{"?format=table", "text/plain", "Clickjacking"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := do(router, http.MethodGet, "/api/v1/scans/"+job.ID+"/report"+tt.query, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), tt.contentType)
			assert.Contains(t, w.Body.String(), tt.contains)
		})
	}
}

func TestGetScanReport_UnknownFormat(t *testing.T) {
	h, router := setupTestHandlers(t)
	job := completedJob(t, h)

	w := do(router, http.MethodGet, "/api/v1/scans/"+job.ID+"/report?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetScanReport_NotCompleted(t *testing.T) {
	h, router := setupTestHandlers(t)
	job := h.Manager.Create(jobs.Request{URL: "https://example.com"})

	w := do(router, http.MethodGet, "/api/v1/scans/"+job.ID+"/report", "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestDeleteScan_Success(t *testing.T) {
	h, router := setupTestHandlers(t)
	job := h.Manager.Create(jobs.Request{URL: "https://example.com"})

	w := do(router, http.MethodDelete, "/api/v1/scans/"+job.ID, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	_, err := h.Manager.Get(job.ID)
	assert.ErrorIs(t, err, jobs.ErrNotFound)
}

func TestDeleteScan_NotFound(t *testing.T) {
	_, router := setupTestHandlers(t)
	w := do(router, http.MethodDelete, "/api/v1/scans/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMessage_StartScanThenResults(t *testing.T) {
	_, router := setupTestHandlers(t)

	w := do(router, http.MethodPost, "/api/v1/messages", `{"action":"getScanResults"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[]}`, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/messages", `{"action":"startScan","tabId":3,"url":"https://example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var start service.StartScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &start))
	assert.True(t, start.Success)
	assert.Len(t, start.Results, 3)
	require.NotNil(t, start.Summary)
	assert.Equal(t, 3, start.Summary.Total)

	w = do(router, http.MethodPost, "/api/v1/messages", `{"action":"getScanResults"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var results service.ScanResultsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	assert.Equal(t, start.Results, results.Results)
}

func TestMessage_UnknownAction(t *testing.T) {
	_, router := setupTestHandlers(t)
	w := do(router, http.MethodPost, "/api/v1/messages", `{"action":"dropTables"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMessage_StartScanFailure(t *testing.T) {
	_, router := setupTestHandlers(t)
	w := do(router, http.MethodPost, "/api/v1/messages", `{"action":"startScan","url":"ftp://example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var start service.StartScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &start))
	assert.False(t, start.Success)
	assert.NotEmpty(t, start.Error)
}

func TestListProbes_JoinsCatalog(t *testing.T) {
	h, router := setupTestHandlers(t)
	require.NoError(t, h.Registry.SetEnabled("missing_hsts", false))

	w := do(router, http.MethodGet, "/api/v1/probes", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []ProbeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 3)
	assert.Equal(t, "missing_csp", resp[0].Name)
	assert.Equal(t, 11, resp[2].TypeID)
	assert.Equal(t, "Clickjacking Vulnerability", resp[2].DisplayName)
	assert.NotEmpty(t, resp[2].CWE)
	assert.False(t, resp[1].Enabled)
	assert.True(t, resp[2].Enabled)
}
