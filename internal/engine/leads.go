package engine

import (
	"context"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddLead creates a lead and places it at the end of its stage. An empty
// stage falls back to the configured default; a name that is blank after
// trimming is rejected.
func (e *Engine) AddLead(ctx context.Context, req domain.CreateLeadRequest) (*domain.Lead, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	name := trimmed(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be blank")
	}

	stageKey := trimmed(req.Stage)
	if stageKey == "" {
		stageKey = e.opts.DefaultStage
	}
	if e.findStage(stageKey) == nil {
		return nil, &domain.NotFoundError{Resource: "stage", ID: stageKey}
	}

	tag := req.Tag
	if tag == "" {
		tag = domain.LeadTagNone
	}
	priority := req.Priority
	if priority == "" {
		priority = domain.LeadPriorityMedium
	}

	lead := &domain.Lead{
		ID:              e.ids.NewID(),
		Name:            name,
		Email:           trimmed(req.Email),
		Phone:           trimmed(req.Phone),
		Website:         trimmed(req.Website),
		Contacts:        trimmed(req.Contacts),
		Notes:           trimmed(req.Notes),
		ContentStrategy: trimmed(req.ContentStrategy),
		StrategyIDs:     e.knownStrategiesLocked(req.StrategyIDs),
		Tag:             tag,
		Priority:        priority,
		Stage:           stageKey,
		SortOrder:       e.nextSortOrderLocked(stageKey),
	}
	touch(lead)
	lead.CreatedAt = lead.UpdatedAt

	e.leads = append(e.leads, lead)
	e.record(domain.ActivityActionAdded, lead.ID, lead.Name, "", lead.Stage)
	e.logger.Info("lead added",
		zap.String("lead_id", lead.ID.String()),
		zap.String("stage", lead.Stage))

	changed = true
	out := *lead
	return &out, e.persistLocked(ctx, "add lead")
}

// UpdateLead applies a partial update. A stage change through here behaves
// like a move: it records a moved entry and re-slots the lead at the end of
// the target stage.
func (e *Engine) UpdateLead(ctx context.Context, id uuid.UUID, req domain.UpdateLeadRequest) (*domain.Lead, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	lead := e.findLead(id)
	if lead == nil {
		return nil, domain.NewLeadNotFound(id)
	}

	// Validate every reference before touching the lead so a failed update
	// leaves no partial merge behind.
	if req.Name != nil && trimmed(*req.Name) == "" {
		return nil, domain.NewValidationError("name", "must not be blank")
	}
	if req.Stage != nil && *req.Stage != lead.Stage && e.findStage(*req.Stage) == nil {
		return nil, &domain.NotFoundError{Resource: "stage", ID: *req.Stage}
	}

	if req.Name != nil {
		lead.Name = trimmed(*req.Name)
	}
	if req.Email != nil {
		lead.Email = trimmed(*req.Email)
	}
	if req.Phone != nil {
		lead.Phone = trimmed(*req.Phone)
	}
	if req.Website != nil {
		lead.Website = trimmed(*req.Website)
	}
	if req.Contacts != nil {
		lead.Contacts = trimmed(*req.Contacts)
	}
	if req.Notes != nil {
		lead.Notes = trimmed(*req.Notes)
	}
	if req.ContentStrategy != nil {
		lead.ContentStrategy = trimmed(*req.ContentStrategy)
	}
	if req.StrategyIDs != nil {
		lead.StrategyIDs = e.knownStrategiesLocked(*req.StrategyIDs)
	}
	if req.Tag != nil {
		lead.Tag = *req.Tag
	}
	if req.Priority != nil && *req.Priority != lead.Priority {
		lead.Priority = *req.Priority
		e.record(domain.ActivityActionPriorityChanged, lead.ID, lead.Name, "", "")
	}
	if req.Stage != nil && *req.Stage != lead.Stage {
		if err := e.moveLocked(lead, *req.Stage); err != nil {
			return nil, err
		}
	}

	touch(lead)
	changed = true
	out := *lead
	return &out, e.persistLocked(ctx, "update lead")
}

// MoveLead moves a lead to another stage. Moving a lead to the stage it is
// already in is a no-op: moved is false and no activity entry is recorded.
func (e *Engine) MoveLead(ctx context.Context, id uuid.UUID, stageKey string) (*domain.Lead, bool, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	lead := e.findLead(id)
	if lead == nil {
		return nil, false, domain.NewLeadNotFound(id)
	}
	if lead.Stage == stageKey {
		out := *lead
		return &out, false, nil
	}
	if err := e.moveLocked(lead, stageKey); err != nil {
		return nil, false, err
	}
	touch(lead)

	changed = true
	out := *lead
	return &out, true, e.persistLocked(ctx, "move lead")
}

// moveLocked re-stages a lead, appending it to the target stage and closing
// the gap it left behind. Stage capacity is a soft signal and never blocks
// a move.
func (e *Engine) moveLocked(lead *domain.Lead, stageKey string) error {
	target := e.findStage(stageKey)
	if target == nil {
		return &domain.NotFoundError{Resource: "stage", ID: stageKey}
	}

	from := lead.Stage
	lead.Stage = stageKey
	lead.SortOrder = e.nextSortOrderLocked(stageKey) - 1
	e.renumberStageLocked(from)
	e.renumberStageLocked(stageKey)

	e.record(domain.ActivityActionMoved, lead.ID, lead.Name, from, stageKey)
	e.logger.Info("lead moved",
		zap.String("lead_id", lead.ID.String()),
		zap.String("from", from),
		zap.String("to", stageKey))
	return nil
}

// DeleteLead removes a lead and drops it from the selection set
func (e *Engine) DeleteLead(ctx context.Context, id uuid.UUID) error {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.deleteLeadLocked(id); err != nil {
		return err
	}
	changed = true
	return e.persistLocked(ctx, "delete lead")
}

func (e *Engine) deleteLeadLocked(id uuid.UUID) error {
	for i, l := range e.leads {
		if l.ID == id {
			stage := l.Stage
			e.leads = append(e.leads[:i], e.leads[i+1:]...)
			delete(e.selection, id)
			e.renumberStageLocked(stage)
			e.record(domain.ActivityActionDeleted, l.ID, l.Name, stage, "")
			e.logger.Info("lead deleted", zap.String("lead_id", id.String()))
			return nil
		}
	}
	return domain.NewLeadNotFound(id)
}

// ReorderWithinStage repositions a lead relative to a sibling in the same
// stage. A nil beforeID places the lead at the end. Reordering is cosmetic
// and records no activity entry.
func (e *Engine) ReorderWithinStage(ctx context.Context, id uuid.UUID, beforeID *uuid.UUID) error {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	lead := e.findLead(id)
	if lead == nil {
		return domain.NewLeadNotFound(id)
	}
	if beforeID != nil && *beforeID == id {
		// Placing a lead before itself changes nothing.
		return nil
	}

	siblings := e.orderedStageLeadsLocked(lead.Stage)
	reordered := make([]*domain.Lead, 0, len(siblings))
	inserted := false
	for _, s := range siblings {
		if s.ID == id {
			continue
		}
		if beforeID != nil && s.ID == *beforeID {
			reordered = append(reordered, lead)
			inserted = true
		}
		reordered = append(reordered, s)
	}
	if beforeID != nil && !inserted {
		return &domain.NotFoundError{Resource: "lead", ID: beforeID.String()}
	}
	if !inserted {
		reordered = append(reordered, lead)
	}
	for i, l := range reordered {
		l.SortOrder = i
	}
	touch(lead)

	changed = true
	return e.persistLocked(ctx, "reorder lead")
}

// ToggleSelection marks or unmarks a lead for a subsequent bulk operation.
// The selection set is session state only and is never persisted.
func (e *Engine) ToggleSelection(id uuid.UUID, selected bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.findLead(id) == nil {
		return domain.NewLeadNotFound(id)
	}
	if selected {
		e.selection[id] = struct{}{}
	} else {
		delete(e.selection, id)
	}
	return nil
}

// SelectedIDs returns the currently selected lead ids
func (e *Engine) SelectedIDs() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]uuid.UUID, 0, len(e.selection))
	for _, l := range e.leads {
		if _, ok := e.selection[l.ID]; ok {
			out = append(out, l.ID)
		}
	}
	return out
}

// ClearSelection empties the selection set
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection = make(map[uuid.UUID]struct{})
}

// BulkMove moves each lead to the target stage. The batch is sequential and
// non-atomic: unknown ids land in Failed, the rest go through, and the
// selection is cleared afterwards.
func (e *Engine) BulkMove(ctx context.Context, ids []uuid.UUID, stageKey string) (*domain.BulkResult, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.findStage(stageKey) == nil {
		return nil, &domain.NotFoundError{Resource: "stage", ID: stageKey}
	}

	result := &domain.BulkResult{Failed: []uuid.UUID{}}
	for _, id := range ids {
		lead := e.findLead(id)
		if lead == nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		if lead.Stage != stageKey {
			if err := e.moveLocked(lead, stageKey); err != nil {
				result.Failed = append(result.Failed, id)
				continue
			}
			touch(lead)
		}
		result.Succeeded++
	}
	e.selection = make(map[uuid.UUID]struct{})

	changed = result.Succeeded > 0
	if !changed {
		return result, nil
	}
	return result, e.persistLocked(ctx, "bulk move")
}

// BulkDelete deletes each lead. Same non-atomic contract as BulkMove.
func (e *Engine) BulkDelete(ctx context.Context, ids []uuid.UUID) (*domain.BulkResult, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &domain.BulkResult{Failed: []uuid.UUID{}}
	for _, id := range ids {
		if err := e.deleteLeadLocked(id); err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Succeeded++
	}
	e.selection = make(map[uuid.UUID]struct{})

	changed = result.Succeeded > 0
	if !changed {
		return result, nil
	}
	return result, e.persistLocked(ctx, "bulk delete")
}

// knownStrategiesLocked filters a reference list down to strategies that
// exist, dropping duplicates.
func (e *Engine) knownStrategiesLocked(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if seen[id] || e.findStrategy(id) == nil {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
