package engine

import (
	"context"
	"time"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AddStrategy attaches a content strategy to an existing stage
func (e *Engine) AddStrategy(ctx context.Context, req domain.CreateStrategyRequest) (*domain.ContentStrategy, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	name := trimmed(req.Name)
	if name == "" {
		return nil, domain.NewValidationError("name", "must not be blank")
	}
	if e.findStage(req.StageKey) == nil {
		return nil, &domain.NotFoundError{Resource: "stage", ID: req.StageKey}
	}
	typ := req.Type
	if typ == "" {
		typ = domain.StrategyTypeOther
	}

	now := time.Now().UTC()
	strategy := domain.ContentStrategy{
		ID:                      e.ids.NewID(),
		StageKey:                req.StageKey,
		Name:                    name,
		Description:             trimmed(req.Description),
		Type:                    typ,
		Link:                    trimmed(req.Link),
		TargetConversionPercent: req.TargetConversionPercent,
		CreatedAt:               now,
		UpdatedAt:               now,
	}
	e.strategies = append(e.strategies, strategy)
	e.logger.Info("content strategy added",
		zap.String("strategy_id", strategy.ID.String()),
		zap.String("stage", strategy.StageKey))

	changed = true
	out := strategy
	return &out, e.persistLocked(ctx, "add strategy")
}

// UpdateStrategy applies a partial update, optionally re-homing the
// strategy onto another stage.
func (e *Engine) UpdateStrategy(ctx context.Context, id uuid.UUID, req domain.UpdateStrategyRequest) (*domain.ContentStrategy, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	strategy := e.findStrategy(id)
	if strategy == nil {
		return nil, &domain.NotFoundError{Resource: "strategy", ID: id.String()}
	}

	if req.StageKey != nil {
		if e.findStage(*req.StageKey) == nil {
			return nil, &domain.NotFoundError{Resource: "stage", ID: *req.StageKey}
		}
		strategy.StageKey = *req.StageKey
	}
	if req.Name != nil {
		name := trimmed(*req.Name)
		if name == "" {
			return nil, domain.NewValidationError("name", "must not be blank")
		}
		strategy.Name = name
	}
	if req.Description != nil {
		strategy.Description = trimmed(*req.Description)
	}
	if req.Type != nil {
		strategy.Type = *req.Type
	}
	if req.Link != nil {
		strategy.Link = trimmed(*req.Link)
	}
	if req.TargetConversionPercent != nil {
		strategy.TargetConversionPercent = *req.TargetConversionPercent
	}
	strategy.UpdatedAt = time.Now().UTC()

	changed = true
	out := *strategy
	return &out, e.persistLocked(ctx, "update strategy")
}

// DeleteStrategy removes a strategy and prunes every lead reference to it
func (e *Engine) DeleteStrategy(ctx context.Context, id uuid.UUID) error {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := -1
	for i := range e.strategies {
		if e.strategies[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return &domain.NotFoundError{Resource: "strategy", ID: id.String()}
	}

	e.strategies = append(e.strategies[:idx], e.strategies[idx+1:]...)
	e.pruneStrategyRefsLocked(id)
	e.logger.Info("content strategy deleted", zap.String("strategy_id", id.String()))

	changed = true
	return e.persistLocked(ctx, "delete strategy")
}

// pruneStrategyRefsLocked drops a strategy id from every lead referencing it
func (e *Engine) pruneStrategyRefsLocked(id uuid.UUID) {
	for _, lead := range e.leads {
		if !lead.HasStrategy(id) {
			continue
		}
		kept := lead.StrategyIDs[:0]
		for _, sid := range lead.StrategyIDs {
			if sid != id {
				kept = append(kept, sid)
			}
		}
		lead.StrategyIDs = kept
	}
}
