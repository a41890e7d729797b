package handler

import (
	"net/http"

	"github.com/funneldesk/funnel-api/internal/engine"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewDashboardHandler(engine *engine.Engine, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		engine: engine,
		logger: logger,
	}
}

// @Summary Funnel analytics
// @Description Conversion rate, average dwell time and the completion forecast, recomputed from current state
// @Tags Dashboard
// @Produce json
// @Success 200 {object} domain.AnalyticsSnapshot
// @Router /dashboard/analytics [get]
func (h *DashboardHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Analytics())
}
