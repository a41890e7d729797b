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

type LeadHandler struct {
	engine *engine.Engine
	logger *zap.Logger
}

func NewLeadHandler(engine *engine.Engine, logger *zap.Logger) *LeadHandler {
	return &LeadHandler{
		engine: engine,
		logger: logger,
	}
}

// storageDegraded reports whether err is only a failed persistence attempt.
// The mutation itself went through, so the handler responds with the entity
// and leaves a warning in the log.
func (h *LeadHandler) storageDegraded(err error) bool {
	if err == nil {
		return false
	}
	if domain.IsStorage(err) {
		h.logger.Warn("mutation applied but not persisted", zap.Error(err))
		return true
	}
	return false
}

// @Summary List leads
// @Description List all leads in funnel order, optionally filtered by stage
// @Tags Leads
// @Produce json
// @Param stage query string false "Filter by stage key"
// @Success 200 {array} domain.Lead
// @Router /leads [get]
func (h *LeadHandler) List(w http.ResponseWriter, r *http.Request) {
	if stage := r.URL.Query().Get("stage"); stage != "" {
		leads, err := h.engine.LeadsByStage(stage)
		if err != nil {
			respondEngineError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, leads)
		return
	}
	respondJSON(w, http.StatusOK, h.engine.AllLeads())
}

// @Summary Get lead
// @Description Get a single lead by id
// @Tags Leads
// @Produce json
// @Param id path string true "Lead ID"
// @Success 200 {object} domain.Lead
// @Failure 404 {object} domain.APIError
// @Router /leads/{id} [get]
func (h *LeadHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	lead, err := h.engine.Lead(id)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// @Summary Create lead
// @Description Create a lead; an empty stage falls back to the board default
// @Tags Leads
// @Accept json
// @Produce json
// @Param lead body domain.CreateLeadRequest true "Lead data"
// @Success 201 {object} domain.Lead
// @Failure 400 {object} domain.APIError
// @Router /leads [post]
func (h *LeadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.engine.AddLead(r.Context(), req)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, lead)
}

// @Summary Update lead
// @Description Partially update a lead; a stage change behaves like a move
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param lead body domain.UpdateLeadRequest true "Fields to update"
// @Success 200 {object} domain.Lead
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Router /leads/{id} [patch]
func (h *LeadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	var req domain.UpdateLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, err := h.engine.UpdateLead(r.Context(), id, req)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, lead)
}

// @Summary Move lead
// @Description Move a lead to another stage; moving to the current stage is a no-op
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param move body domain.MoveLeadRequest true "Target stage"
// @Success 200 {object} domain.Lead
// @Failure 404 {object} domain.APIError
// @Router /leads/{id}/move [post]
func (h *LeadHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	var req domain.MoveLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	lead, moved, err := h.engine.MoveLead(r.Context(), id, req.Stage)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lead":  lead,
		"moved": moved,
	})
}

// @Summary Reorder lead
// @Description Reposition a lead within its stage; a null beforeId places it last
// @Tags Leads
// @Accept json
// @Produce json
// @Param id path string true "Lead ID"
// @Param reorder body domain.ReorderLeadRequest true "Target position"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /leads/{id}/reorder [post]
func (h *LeadHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	var req domain.ReorderLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.ReorderWithinStage(r.Context(), id, req.BeforeID); err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary Delete lead
// @Description Delete a lead and remove it from the current selection
// @Tags Leads
// @Param id path string true "Lead ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /leads/{id} [delete]
func (h *LeadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	if err := h.engine.DeleteLead(r.Context(), id); err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary Toggle lead selection
// @Description Mark or unmark a lead for a subsequent bulk operation
// @Tags Selection
// @Accept json
// @Param id path string true "Lead ID"
// @Param selection body domain.SelectionRequest true "Selection flag"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Router /leads/{id}/selection [put]
func (h *LeadHandler) ToggleSelection(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid lead ID")
		return
	}

	var req domain.SelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.engine.ToggleSelection(id, req.Selected); err != nil {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary List selected leads
// @Description List the ids currently marked for bulk operations
// @Tags Selection
// @Produce json
// @Success 200 {array} string
// @Router /leads/selection [get]
func (h *LeadHandler) Selection(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.SelectedIDs())
}

// @Summary Clear selection
// @Description Unmark every selected lead
// @Tags Selection
// @Success 204
// @Router /leads/selection [delete]
func (h *LeadHandler) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearSelection()
	respondJSON(w, http.StatusNoContent, nil)
}

// @Summary Bulk move leads
// @Description Move each lead to the target stage; non-atomic, unknown ids are reported in failed
// @Tags Leads
// @Accept json
// @Produce json
// @Param bulk body domain.BulkMoveRequest true "Lead ids and target stage"
// @Success 200 {object} domain.BulkResult
// @Failure 404 {object} domain.APIError
// @Router /leads/bulk/move [post]
func (h *LeadHandler) BulkMove(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkMoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.engine.BulkMove(r.Context(), req.IDs, req.Stage)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// @Summary Bulk delete leads
// @Description Delete each lead; non-atomic, unknown ids are reported in failed
// @Tags Leads
// @Accept json
// @Produce json
// @Param bulk body domain.BulkDeleteRequest true "Lead ids"
// @Success 200 {object} domain.BulkResult
// @Router /leads/bulk/delete [post]
func (h *LeadHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req domain.BulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondValidationError(w, err)
		return
	}

	result, err := h.engine.BulkDelete(r.Context(), req.IDs)
	if err != nil && !h.storageDegraded(err) {
		respondEngineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
