package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grn-sheet-sync-go/internal/metrics"
	"grn-sheet-sync-go/internal/models"
	"grn-sheet-sync-go/internal/repository"
	"grn-sheet-sync-go/internal/scheduler"
)

type fakeScheduler struct {
	running    bool
	triggerErr error
	triggered  int
}

func (f *fakeScheduler) Start() error          { f.running = true; return nil }
func (f *fakeScheduler) Stop() error           { f.running = false; return nil }
func (f *fakeScheduler) IsRunning() bool       { return f.running }
func (f *fakeScheduler) GetNextRun() time.Time { return time.Time{} }
func (f *fakeScheduler) GetLastRun() time.Time { return time.Time{} }
func (f *fakeScheduler) Trigger() error {
	if f.triggerErr != nil {
		return f.triggerErr
	}
	f.triggered++
	return nil
}

type fakeRuns struct{ summary *models.RunSummary }

func (f fakeRuns) LastSummary() (models.RunSummary, bool) {
	if f.summary == nil {
		return models.RunSummary{}, false
	}
	return *f.summary, true
}

func newRouter(s Scheduler, runs SummarySource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	metrics.New(reg)
	r := gin.New()
	NewHandlers(repository.New(nil), s, runs, reg).SetupRoutes(r)
	return r
}

func do(r *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	r := newRouter(&fakeScheduler{running: true}, fakeRuns{summary: &models.RunSummary{Status: "SUCCESS"}})

	w := do(r, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "disabled", resp.Database)
	assert.Equal(t, "running", resp.Scheduler)
	assert.Equal(t, "SUCCESS", resp.Details["last_status"])
}

func TestRunOnce(t *testing.T) {
	s := &fakeScheduler{}
	r := newRouter(s, fakeRuns{})

	w := do(r, http.MethodPost, "/api/v1/scheduler/run-once")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, s.triggered)

	s.triggerErr = scheduler.ErrRunInProgress
	w = do(r, http.MethodPost, "/api/v1/scheduler/run-once")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSchedulerStartStopStatus(t *testing.T) {
	s := &fakeScheduler{}
	r := newRouter(s, fakeRuns{})

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/scheduler/start").Code)
	w := do(r, http.MethodGet, "/api/v1/scheduler/status")
	assert.Contains(t, w.Body.String(), `"status":"running"`)

	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/scheduler/stop").Code)
	w = do(r, http.MethodGet, "/api/v1/scheduler/status")
	assert.Contains(t, w.Body.String(), `"status":"stopped"`)
}

func TestLatestRun(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, do(newRouter(&fakeScheduler{}, fakeRuns{}), http.MethodGet, "/api/v1/runs/latest").Code)

	r := newRouter(&fakeScheduler{}, fakeRuns{summary: &models.RunSummary{RunID: "abc"}})
	w := do(r, http.MethodGet, "/api/v1/runs/latest")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"run_id":"abc"`)
}

func TestRunsPaging(t *testing.T) {
	r := newRouter(&fakeScheduler{}, fakeRuns{})

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/runs?limit=-1").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/v1/attachments?offset=x").Code)

	w := do(r, http.MethodGet, "/api/v1/runs?limit=10")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(newRouter(&fakeScheduler{}, fakeRuns{}), http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "grn_sheet_sync_emails_scanned_total")
}
