package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditops/envsegd/internal/application"
	analysisapp "github.com/auditops/envsegd/internal/application/analysis"
	"github.com/auditops/envsegd/internal/application/extract"
	"github.com/auditops/envsegd/internal/application/workflow"
	"github.com/auditops/envsegd/internal/domain/analysis"
)

type memRunRepo struct {
	runs []*analysis.AuditRun
}

func (r *memRunRepo) Save(ctx context.Context, run *analysis.AuditRun) error {
	r.runs = append(r.runs, run)
	return nil
}

func (r *memRunRepo) Latest(ctx context.Context, limit int) ([]*analysis.AuditRun, error) {
	return r.runs, nil
}

func testManager(t *testing.T) *workflow.Manager {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	clock := application.SystemClock{}
	return &workflow.Manager{
		Extract: &extract.Service{
			DataDir: dir, OutputDir: dir,
			SourceWorkbook: "register.xlsx",
			Clock:          clock, Log: log,
		},
		Analysis: &analysisapp.Service{
			Batcher:  analysisapp.NewBatcher(nil, log),
			Clock:    clock,
			InputDir: dir, OutputDir: dir,
			Log: log,
		},
		Clock: clock,
		Log:   log,
	}
}

func newTestRouter(t *testing.T, runs analysis.RunRepository, apiKey string) http.Handler {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(testManager(t), runs, apiKey, nil, log)
}

func TestTriggerAcceptsKnownProcess(t *testing.T) {
	h := newTestRouter(t, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/workflows/env/run", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "env", body["process"])
	assert.Equal(t, "started", body["status"])
}

func TestTriggerRejectsUnknownProcess(t *testing.T) {
	h := newTestRouter(t, nil, "")
	req := httptest.NewRequest(http.MethodPost, "/v1/workflows/mainframe/run", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunsReturnsHistory(t *testing.T) {
	repo := &memRunRepo{runs: []*analysis.AuditRun{{
		ID:        "run-1",
		Process:   "env",
		Status:    analysis.RunStatusSuccess,
		StartedAt: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC),
		Total:     3,
		OK:        2,
		Deviation: 1,
	}}}
	h := newTestRouter(t, repo, "")
	req := httptest.NewRequest(http.MethodGet, "/v1/runs?limit=10", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var list []*analysis.AuditRun
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "run-1", list[0].ID)
}

func TestRunsWithoutRepository(t *testing.T) {
	h := newTestRouter(t, nil, "")
	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAPIKeyRequiredWhenConfigured(t *testing.T) {
	h := newTestRouter(t, &memRunRepo{}, "sekret")

	req := httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/runs", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthStaysOpen(t *testing.T) {
	h := newTestRouter(t, nil, "sekret")
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
