// Package engine owns the in-memory funnel state and is the only writer of
// leads, stages and content strategies. Every operation runs to completion
// under one mutex (the board has a single logical thread of control), then
// mirrors the new state to the store. The engine is optimistic: in-memory
// state is the source of truth for the session and persistence is a
// best-effort snapshot that is never rolled back.
package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/funneldesk/funnel-api/internal/activity"
	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/funneldesk/funnel-api/internal/identity"
	"github.com/funneldesk/funnel-api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options tunes engine behavior
type Options struct {
	// DefaultStage receives leads created without an explicit stage
	DefaultStage string
	// ForecastHorizonDays is the projection window for analytics
	ForecastHorizonDays int
}

// Engine is the funnel state engine
type Engine struct {
	mu         sync.Mutex
	store      store.Store
	ids        *identity.Generator
	log        *activity.Log
	logger     *zap.Logger
	opts       Options
	leads      []*domain.Lead
	stages     []domain.Stage
	strategies []domain.ContentStrategy
	selection  map[uuid.UUID]struct{}
	listeners  []func()
}

// New creates an engine hydrated from the store. A missing or corrupt
// document falls back to the seed dataset, which is persisted immediately
// so the board is never empty on first run.
func New(ctx context.Context, st store.Store, logger *zap.Logger, opts Options) (*Engine, error) {
	if opts.DefaultStage == "" {
		opts.DefaultStage = seedStages[0].Key
	}
	if opts.ForecastHorizonDays <= 0 {
		opts.ForecastHorizonDays = 30
	}

	e := &Engine{
		store:     st,
		ids:       identity.NewGenerator(),
		log:       activity.NewLog(),
		logger:    logger,
		opts:      opts,
		selection: make(map[uuid.UUID]struct{}),
	}

	doc, err := st.Load(ctx)
	if err != nil {
		// Load failures never crash the engine; anything unreadable is
		// replaced by the seed dataset.
		if err != store.ErrNotFound {
			logger.Warn("failed to load board document, seeding", zap.Error(err))
		} else {
			logger.Info("no board document found, seeding")
		}
		e.seed()
		if saveErr := e.persistLocked(ctx, "seed"); saveErr != nil {
			logger.Warn("failed to persist seed dataset", zap.Error(saveErr))
		}
		return e, nil
	}

	e.hydrate(doc)
	logger.Info("board document loaded",
		zap.Int("leads", len(e.leads)),
		zap.Int("stages", len(e.stages)),
		zap.Int("activity_entries", e.log.Len()),
	)
	return e, nil
}

// Subscribe registers a callback invoked after every completed mutation.
// The callback runs outside the engine lock.
func (e *Engine) Subscribe(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Flush persists the current state. Used by the autosave job and on
// teardown; concurrent triggers simply re-serialize the latest snapshot.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistLocked(ctx, "flush")
}

// hydrate installs a loaded document, repairing what it can: leads in
// unknown stages fall back to the default stage, dangling strategy
// references are pruned, and per-stage ordering is renumbered.
func (e *Engine) hydrate(doc *domain.Document) {
	e.stages = append([]domain.Stage(nil), doc.Stages...)
	sort.SliceStable(e.stages, func(i, j int) bool {
		return e.stages[i].Position < e.stages[j].Position
	})
	for i := range e.stages {
		e.stages[i].Position = i
	}

	fallback := e.opts.DefaultStage
	if e.findStage(fallback) == nil {
		fallback = e.stages[0].Key
	}

	known := make(map[uuid.UUID]bool, len(doc.Strategies))
	e.strategies = append([]domain.ContentStrategy(nil), doc.Strategies...)
	for _, s := range e.strategies {
		known[s.ID] = true
	}

	e.leads = make([]*domain.Lead, 0, len(doc.Leads))
	for i := range doc.Leads {
		lead := doc.Leads[i]
		if e.findStage(lead.Stage) == nil {
			e.logger.Warn("lead references unknown stage, reassigning",
				zap.String("lead_id", lead.ID.String()),
				zap.String("stage", lead.Stage),
				zap.String("fallback", fallback))
			lead.Stage = fallback
		}
		if len(lead.StrategyIDs) > 0 {
			kept := lead.StrategyIDs[:0]
			for _, sid := range lead.StrategyIDs {
				if known[sid] {
					kept = append(kept, sid)
				}
			}
			lead.StrategyIDs = kept
		}
		e.leads = append(e.leads, &lead)
	}
	for _, s := range e.stages {
		e.renumberStageLocked(s.Key)
	}

	e.log.Hydrate(doc.ActivityLog)
}

// snapshotLocked builds the persistable document from current state
func (e *Engine) snapshotLocked() *domain.Document {
	doc := &domain.Document{
		Leads:       make([]domain.Lead, 0, len(e.leads)),
		Stages:      append([]domain.Stage(nil), e.stages...),
		Strategies:  append([]domain.ContentStrategy(nil), e.strategies...),
		ActivityLog: e.log.ForPersistence(),
	}
	for _, s := range e.stages {
		for _, l := range e.orderedStageLeadsLocked(s.Key) {
			doc.Leads = append(doc.Leads, *l)
		}
	}
	return doc
}

// persistLocked mirrors the in-memory state to the store. The mutation it
// follows is never rolled back; a failure is logged and surfaced as a
// StorageError beside the still-valid result.
func (e *Engine) persistLocked(ctx context.Context, op string) error {
	if err := e.store.Save(ctx, e.snapshotLocked()); err != nil {
		e.logger.Warn("failed to persist board state",
			zap.String("op", op),
			zap.Error(err))
		return &domain.StorageError{Op: op, Err: err}
	}
	return nil
}

// notifyIf invokes subscribers when a mutation went through. Runs after
// the engine lock has been released.
func (e *Engine) notifyIf(changed *bool) {
	if !*changed {
		return
	}
	e.mu.Lock()
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// touch refreshes a lead's update timestamp, keeping it strictly
// increasing even when the wall clock stands still between mutations.
func touch(l *domain.Lead) {
	now := time.Now().UTC()
	if !now.After(l.UpdatedAt) {
		now = l.UpdatedAt.Add(time.Millisecond)
	}
	l.UpdatedAt = now
}

func (e *Engine) findLead(id uuid.UUID) *domain.Lead {
	for _, l := range e.leads {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (e *Engine) findStage(key string) *domain.Stage {
	for i := range e.stages {
		if e.stages[i].Key == key {
			return &e.stages[i]
		}
	}
	return nil
}

func (e *Engine) findStrategy(id uuid.UUID) *domain.ContentStrategy {
	for i := range e.strategies {
		if e.strategies[i].ID == id {
			return &e.strategies[i]
		}
	}
	return nil
}

// orderedStageLeadsLocked returns the stage's leads sorted by their
// explicit sort order. Ordering is a first-class persisted value, not
// derived from timestamps, so manual reordering survives reloads.
func (e *Engine) orderedStageLeadsLocked(stageKey string) []*domain.Lead {
	var out []*domain.Lead
	for _, l := range e.leads {
		if l.Stage == stageKey {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortOrder < out[j].SortOrder
	})
	return out
}

// renumberStageLocked rewrites sort orders to a dense 0..n-1 sequence
func (e *Engine) renumberStageLocked(stageKey string) {
	for i, l := range e.orderedStageLeadsLocked(stageKey) {
		l.SortOrder = i
	}
}

// nextSortOrderLocked returns the order value placing a lead at the end of
// a stage.
func (e *Engine) nextSortOrderLocked(stageKey string) int {
	n := 0
	for _, l := range e.leads {
		if l.Stage == stageKey {
			n++
		}
	}
	return n
}

// record appends an activity entry, evicting the oldest beyond the cap
func (e *Engine) record(action domain.ActivityAction, leadID uuid.UUID, leadName, fromStage, toStage string) {
	e.log.Append(domain.ActivityEntry{
		ID:        e.ids.NewID(),
		Action:    action,
		LeadID:    leadID,
		LeadName:  leadName,
		Timestamp: time.Now().UTC(),
		FromStage: fromStage,
		ToStage:   toStage,
	})
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}
