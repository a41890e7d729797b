package engine

import (
	"context"
	"time"

	"github.com/funneldesk/funnel-api/internal/analytics"
	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/google/uuid"
)

// Lead returns a copy of the lead with the given id
func (e *Engine) Lead(id uuid.UUID) (*domain.Lead, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	lead := e.findLead(id)
	if lead == nil {
		return nil, domain.NewLeadNotFound(id)
	}
	out := *lead
	return &out, nil
}

// AllLeads returns all leads in funnel order: by stage position, then by
// sort order within the stage.
func (e *Engine) AllLeads() []domain.Lead {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.allLeadsLocked()
}

func (e *Engine) allLeadsLocked() []domain.Lead {
	out := make([]domain.Lead, 0, len(e.leads))
	for _, s := range e.stages {
		for _, l := range e.orderedStageLeadsLocked(s.Key) {
			out = append(out, *l)
		}
	}
	return out
}

// LeadsByStage returns the ordered leads of one stage
func (e *Engine) LeadsByStage(stageKey string) ([]domain.Lead, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.findStage(stageKey) == nil {
		return nil, &domain.NotFoundError{Resource: "stage", ID: stageKey}
	}
	ordered := e.orderedStageLeadsLocked(stageKey)
	out := make([]domain.Lead, 0, len(ordered))
	for _, l := range ordered {
		out = append(out, *l)
	}
	return out, nil
}

// Stages returns the funnel stages in position order
func (e *Engine) Stages() []domain.Stage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Stage(nil), e.stages...)
}

// Board returns every stage grouped with its ordered leads and fill level,
// the shape the board view renders from.
func (e *Engine) Board() []domain.StageWithLeadsDTO {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.StageWithLeadsDTO, 0, len(e.stages))
	for _, s := range e.stages {
		ordered := e.orderedStageLeadsLocked(s.Key)
		leads := make([]domain.Lead, 0, len(ordered))
		for _, l := range ordered {
			leads = append(leads, *l)
		}
		dto := domain.StageWithLeadsDTO{
			Stage: s,
			Leads: leads,
			Count: len(leads),
		}
		if s.Capacity > 0 {
			dto.AtLimit = len(leads) >= s.Capacity
			dto.FillRate = float64(len(leads)) / float64(s.Capacity)
		}
		out = append(out, dto)
	}
	return out
}

// Strategies returns all content strategies, optionally filtered by stage
func (e *Engine) Strategies(stageKey string) []domain.ContentStrategy {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]domain.ContentStrategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		if stageKey != "" && s.StageKey != stageKey {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Strategy returns a copy of the strategy with the given id
func (e *Engine) Strategy(id uuid.UUID) (*domain.ContentStrategy, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.findStrategy(id)
	if s == nil {
		return nil, &domain.NotFoundError{Resource: "strategy", ID: id.String()}
	}
	out := *s
	return &out, nil
}

// Recent returns up to n activity entries, newest first
func (e *Engine) Recent(n int) []domain.ActivityEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Recent(n)
}

// Analytics recomputes the derived-metrics snapshot from current state
func (e *Engine) Analytics() domain.AnalyticsSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.analyticsLocked()
}

func (e *Engine) analyticsLocked() domain.AnalyticsSnapshot {
	return analytics.Snapshot(e.allLeadsLocked(), e.log.All(), e.stages, e.opts.ForecastHorizonDays)
}

// ExportFeed assembles the read-only export projection and records an
// exported entry in the activity log.
func (e *Engine) ExportFeed(ctx context.Context) (*domain.ExportFeed, error) {
	changed := false
	defer e.notifyIf(&changed)
	e.mu.Lock()
	defer e.mu.Unlock()

	feed := &domain.ExportFeed{
		Leads:      e.allLeadsLocked(),
		Stages:     append([]domain.Stage(nil), e.stages...),
		Analytics:  e.analyticsLocked(),
		ExportedAt: time.Now().UTC(),
	}
	e.record(domain.ActivityActionExported, uuid.Nil, "", "", "")

	changed = true
	return feed, e.persistLocked(ctx, "export")
}
