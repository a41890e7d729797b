package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/funneldesk/funnel-api/internal/engine"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type StageHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewStageHandler(engine *engine.Engine, logger *zap.Logger) *StageHandler {
	return &StageHandler{
		engine: engine,
		logger: logger,
	}
}

func (h *StageHandler) storageDegraded(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsStorage(err) {
		h.logger.Warn("mutation applied but not persisted", zap.Error(err))
		return true
	}
	return false
}

// @Summary List stages
// @Description List funnel stages in position order
// @Tags Stages
// @Produce json
// @Success 200 {array} domain.Stage
// @Router /stages [get]
func (h *StageHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Stages())
}

// @Summary Board view
// @Description Every stage grouped with its ordered leads and fill level
// @Tags Stages
// @Produce json
// @Success 200 {array} domain.StageWithLeadsDTO
// @Router /board [get]
func (h *StageHandler) Board(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Board())
}

// @Summary Create stage
// @Description Append a stage at the end of the funnel ordering
// @Tags Stages
// @Accept json
// @Produce json
// @Param stage body domain.CreateStageRequest true "Stage data"
// @Success 201 {object} domain.Stage
// @Failure 400 {object} domain.APIError
// @Router /stages [post]
func (h *StageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	stage, err := h.engine.AddStage(r.Context(), req)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, stage)
}

// @Summary Update stage
// @Description Partially update a stage; the key is immutable
// @Tags Stages
// @Accept json
// @Produce json
// @Param key path string true "Stage key"
// @Param stage body domain.UpdateStageRequest true "Fields to update"
// @Success 200 {object} domain.Stage
// @Failure 404 {object} domain.APIError
// @Router /stages/{key} [patch]
func (h *StageHandler) Update(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req domain.UpdateStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	stage, err := h.engine.UpdateStage(r.Context(), key, req)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stage)
}

// @Summary Reorder stage
// @Description Move a stage to a position in the funnel ordering
// @Tags Stages
// @Param key path string true "Stage key"
// @Param position query int true "Target position, zero based"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /stages/{key}/reorder [post]
func (h *StageHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	position, err := strconv.Atoi(r.URL.Query().Get("position"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid position")
		return
	}

	if err := h.engine.ReorderStage(r.Context(), key, position); err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary Delete stage
// @Description Delete a stage; a non-empty stage requires a migrateTo target for its leads
// @Tags Stages
// @Param key path string true "Stage key"
// @Param migrateTo query string false "Stage receiving the deleted stage's leads"
// @Success 204
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /stages/{key} [delete]
func (h *StageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	migrateTo := r.URL.Query().Get("migrateTo")

	if err := h.engine.DeleteStage(r.Context(), key, migrateTo); err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}
