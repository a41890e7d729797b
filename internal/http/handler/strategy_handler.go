package handler

import (
	"encoding/json"
	"net/http"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/funneldesk/funnel-api/internal/engine"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StrategyHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewStrategyHandler(engine *engine.Engine, logger *zap.Logger) *StrategyHandler {
	return &StrategyHandler{
		engine: engine,
		logger: logger,
	}
}

func (h *StrategyHandler) storageDegraded(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsStorage(err) {
		h.logger.Warn("mutation applied but not persisted", zap.Error(err))
		return true
	}
	return false
}

// @Summary List content strategies
// @Description List content strategies, optionally filtered by stage
// @Tags Strategies
// @Produce json
// @Param stage query string false "Filter by stage key"
// @Success 200 {array} domain.ContentStrategy
// @Router /strategies [get]
func (h *StrategyHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Strategies(r.URL.Query().Get("stage")))
}

// @Summary Get content strategy
// @Description Get a single content strategy by id
// @Tags Strategies
// @Produce json
// @Param id path string true "Strategy ID"
// @Success 200 {object} domain.ContentStrategy
// @Failure 404 {object} domain.APIError
// @Router /strategies/{id} [get]
func (h *StrategyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid strategy ID")
		return
	}

	strategy, err := h.engine.Strategy(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, strategy)
}

// @Summary Create content strategy
// @Description Attach a content strategy to an existing stage
// @Tags Strategies
// @Accept json
// @Produce json
// @Param strategy body domain.CreateStrategyRequest true "Strategy data"
// @Success 201 {object} domain.ContentStrategy
// @Failure 400 {object} domain.APIError
// @Router /strategies [post]
func (h *StrategyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	strategy, err := h.engine.AddStrategy(r.Context(), req)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, strategy)
}

// @Summary Update content strategy
// @Description Partially update a content strategy
// @Tags Strategies
// @Accept json
// @Produce json
// @Param id path string true "Strategy ID"
// @Param strategy body domain.UpdateStrategyRequest true "Fields to update"
// @Success 200 {object} domain.ContentStrategy
// @Failure 404 {object} domain.APIError
// @Router /strategies/{id} [patch]
func (h *StrategyHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid strategy ID")
		return
	}

	var req domain.UpdateStrategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	strategy, err := h.engine.UpdateStrategy(r.Context(), id, req)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, strategy)
}

// @Summary Delete content strategy
// @Description Delete a strategy and prune every lead reference to it
// @Tags Strategies
// @Param id path string true "Strategy ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /strategies/{id} [delete]
func (h *StrategyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid strategy ID")
		return
	}

	if err := h.engine.DeleteStrategy(r.Context(), id); err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
