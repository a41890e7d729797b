package handler

import (
	"net/http"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/funneldesk/funnel-api/internal/engine"
	"github.com/funneldesk/funnel-api/internal/export"
	"go.uber.org/zap"
)

type ExportHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewExportHandler(engine *engine.Engine, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{
		engine: engine,
		logger: logger,
	}
}

// @Summary Export board as JSON
// @Description Full board snapshot with analytics; records an exported activity entry
// @Tags Export
// @Produce json
// @Success 200 {object} domain.ExportFeed
// @Router /export/json [get]
func (h *ExportHandler) JSON(w http.ResponseWriter, r *http.Request) {
	feed, err := h.engine.ExportFeed(r.Context())
	if err != nil && !domain.IsStorage(err) {
		respondEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="funnel-export.json"`)
	if err := export.WriteJSON(w, feed); err != nil {
		h.logger.Error("failed to write JSON export", zap.Error(err))
	}
}

// @Summary Export leads as CSV
// @Description One row per lead in funnel order; records an exported activity entry
// @Tags Export
// @Produce text/csv
// @Success 200 {string} string "CSV data"
// @Router /export/csv [get]
func (h *ExportHandler) CSV(w http.ResponseWriter, r *http.Request) {
	feed, err := h.engine.ExportFeed(r.Context())
	if err != nil && !domain.IsStorage(err) {
		respondEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="funnel-leads.csv"`)
	if err := export.WriteCSV(w, feed); err != nil {
		h.logger.Error("failed to write CSV export", zap.Error(err))
	}
}
