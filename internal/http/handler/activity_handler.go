package handler

import (
	"net/http"
	"strconv"

	"github.com/funneldesk/funnel-api/internal/activity"
	"github.com/funneldesk/funnel-api/internal/engine"
	"go.uber.org/zap"
)

type ActivityHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewActivityHandler(engine *engine.Engine, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{
		engine: engine,
		logger: logger,
	}
}

// @Summary Recent activity
// @Description Recent activity entries, newest first
// @Tags Activity
// @Produce json
// @Param limit query int false "Maximum entries to return" default(20)
// @Success 200 {array} domain.ActivityEntry
// @Router /activity [get]
func (h *ActivityHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > activity.MemoryLimit {
		limit = activity.MemoryLimit
	}

	respondJSON(w, http.StatusOK, h.engine.Recent(limit))
}
