package engine

import (
	"context"

	"github.com/funneldesk/funnel-api/internal/domain"
	"go.uber.org/zap"
)

// AddStage appends a stage at the end of the funnel ordering
func (e *Engine) AddStage(ctx context.Context, req domain.CreateStageRequest) (*domain.Stage, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	key := trimmed(req.Key)
	if key == "" {
		return nil, domain.NewValidationError("key", "must not be blank")
	}
	if e.findStage(key) != nil {
		return nil, domain.NewValidationError("key", "already exists")
	}
	name := trimmed(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be blank")
	}

	stage := domain.Stage{
		Key:         key,
		Name:        name,
		Description: trimmed(req.Description),
		Capacity:    req.Capacity,
		Position:    len(e.stages),
	}
	e.stages = append(e.stages, stage)
	e.logger.Info("stage added", zap.String("stage", key))

	changed = true
	out := stage
	return &out, e.persistLocked(ctx, "add stage")
}

// UpdateStage applies a partial update; the key is immutable
func (e *Engine) UpdateStage(ctx context.Context, key string, req domain.UpdateStageRequest) (*domain.Stage, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	stage := e.findStage(key)
	if stage == nil {
		return nil, &domain.NotFoundError{Resource: "stage", ID: key}
	}

	if req.Name != nil {
		name := trimmed(*req.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be blank")
		}
		stage.Name = name
	}
	if req.Description != nil {
		stage.Description = trimmed(*req.Description)
	}
	if req.Capacity != nil {
		stage.Capacity = *req.Capacity
	}

	changed = true
	out := *stage
	return &out, e.persistLocked(ctx, "update stage")
}

// ReorderStage moves a stage to the given position in the funnel ordering.
// Positions outside the range clamp to the nearest end.
func (e *Engine) ReorderStage(ctx context.Context, key string, toPosition int) error {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	from := -1
	for i := range e.stages {
		if e.stages[i].Key == key {
			from = i
			break
		}
	}
	if from == -1 {
		return &domain.NotFoundError{Resource: "stage", ID: key}
	}
	if toPosition < 0 {
		toPosition = 0
	}
	if toPosition >= len(e.stages) {
		toPosition = len(e.stages) - 1
	}
	if toPosition == from {
		return nil
	}

	stage := e.stages[from]
	e.stages = append(e.stages[:from], e.stages[from+1:]...)
	e.stages = append(e.stages[:toPosition], append([]domain.Stage{stage}, e.stages[toPosition:]...)...)
	for i := range e.stages {
		e.stages[i].Position = i
	}

	changed = true
	return e.persistLocked(ctx, "reorder stage")
}

// DeleteStage removes a stage. A stage that still holds leads requires a
// migration target; its leads are appended to the target stage and each
// migration is recorded as a move. The last remaining stage cannot be
// deleted.
func (e *Engine) DeleteStage(ctx context.Context, key, migrateTo string) error {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.findStage(key) == nil {
		return &domain.NotFoundError{Resource: "stage", ID: key}
	}
	if len(e.stages) == 1 {
		return domain.NewValidationError("key", "cannot delete the last stage")
	}

	occupants := e.orderedStageLeadsLocked(key)
	if len(occupants) > 0 {
		if migrateTo == "" {
			return domain.NewValidationError("migrateTo", "stage is not empty, a migration target is required")
		}
		if migrateTo == key {
			return domain.NewValidationError("migrateTo", "cannot migrate a stage into itself")
		}
		if e.findStage(migrateTo) == nil {
			return &domain.NotFoundError{Resource: "stage", ID: migrateTo}
		}
		for _, lead := range occupants {
			if err := e.moveLocked(lead, migrateTo); err != nil {
				return err
			}
			touch(lead)
		}
	}

	for i := range e.stages {
		if e.stages[i].Key == key {
			e.stages = append(e.stages[:i], e.stages[i+1:]...)
			break
		}
	}
	for i := range e.stages {
		e.stages[i].Position = i
	}

	// Strategies attached to a removed stage go with it
	kept := e.strategies[:0]
	for _, s := range e.strategies {
		if s.StageKey == key {
			e.pruneStrategyRefsLocked(s.ID)
			continue
		}
		kept = append(kept, s)
	}
	e.strategies = kept

	if e.opts.DefaultStage == key {
		e.opts.DefaultStage = e.stages[0].Key
	}

	e.logger.Info("stage deleted",
		zap.String("stage", key),
		zap.Int("migrated_leads", len(occupants)),
		zap.String("migrated_to", migrateTo))

	changed = true
	return e.persistLocked(ctx, "delete stage")
}
