package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/funneldesk/funnel-api/internal/engine"
	"github.com/funneldesk/funnel-api/internal/http/handler"
	"github.com/funneldesk/funnel-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupBoardAPI(t *testing.T) (*chi.Mux, *engine.Engine) {
	t.Helper()

	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "board.json"), zap.NewNop())
	require.NoError(t, err)

	eng, err := engine.New(context.Background(), fs, zap.NewNop(), engine.Options{
		DefaultStage:        "tof",
		ForecastHorizonDays: 30,
	})
	require.NoError(t, err)

	dashboard := handler.NewDashboardHandler(eng, zap.NewNop())
	exporter := handler.NewExportHandler(eng, zap.NewNop())
	activityH := handler.NewActivityHandler(eng, zap.NewNop())

	r := chi.NewRouter()
	r.Get("/dashboard/analytics", dashboard.Analytics)
	r.Get("/export/json", exporter.JSON)
	r.Get("/export/csv", exporter.CSV)
	r.Get("/activity", activityH.Recent)
	return r, eng
}

func TestDashboardHandler_Analytics(t *testing.T) {
	r, _ := setupBoardAPI(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap domain.AnalyticsSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "tof", snap.InitialStage)
	assert.Equal(t, "bof", snap.TerminalStage)
	assert.Equal(t, 3, snap.TotalLeads)
	assert.Equal(t, 100.0, snap.ConversionRate) // seed: one in tof, one in bof
	assert.Equal(t, 30, snap.HorizonDays)

	// Every seeded stage carries a description, so the journey has no gaps
	assert.Equal(t, 100, snap.StageCompletion)
	assert.Equal(t, 0, snap.GapCount)
	assert.Empty(t, snap.GapStages)
}

func TestExportHandler_JSON(t *testing.T) {
	r, eng := setupBoardAPI(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/json", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "funnel-export.json")

	var feed domain.ExportFeed
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &feed))
	assert.Len(t, feed.Leads, 3)
	assert.Len(t, feed.Stages, 3)

	// The export shows up in the activity log
	entries := eng.Recent(1)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityActionExported, entries[0].Action)
}

func TestExportHandler_CSV(t *testing.T) {
	r, _ := setupBoardAPI(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/export/csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4) // header plus three seeded leads
	assert.True(t, strings.HasPrefix(lines[0], "id,name,email"))
	assert.Contains(t, rec.Body.String(), "Acme Corp")
}

func TestActivityHandler_Recent(t *testing.T) {
	r, eng := setupBoardAPI(t)

	_, err := eng.AddLead(context.Background(), domain.CreateLeadRequest{Name: "Fresh"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/activity?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []domain.ActivityEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	// Newest first
	assert.Equal(t, "Fresh", entries[0].LeadName)
}
