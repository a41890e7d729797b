package domain

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest carries the fields accepted when adding a lead. Stage is
// optional; an empty stage falls back to the board's configured default.
type CreateLeadRequest struct {
	Name            string       `json:"name" validate:"required,max=200"`
	Email           string       `json:"email" validate:"omitempty,email"`
	Phone           string       `json:"phone" validate:"omitempty,max=50"`
	Website         string       `json:"website" validate:"omitempty,max=500"`
	Contacts        string       `json:"contacts" validate:"omitempty,max=2000"`
	Notes           string       `json:"notes" validate:"omitempty,max=5000"`
	ContentStrategy string       `json:"contentStrategy" validate:"omitempty,max=2000"`
	StrategyIDs     []uuid.UUID  `json:"strategyIds" validate:"omitempty,max=50"`
	Tag             LeadTag      `json:"tag" validate:"omitempty,oneof=none hot cold repeat vip"`
	Priority        LeadPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Stage           string       `json:"stage" validate:"omitempty,max=50"`
}

// UpdateLeadRequest is a partial update; nil fields are left untouched.
type UpdateLeadRequest struct {
	Name            *string       `json:"name" validate:"omitempty,max=200"`
	Email           *string       `json:"email" validate:"omitempty,max=255"`
	Phone           *string       `json:"phone" validate:"omitempty,max=50"`
	Website         *string       `json:"website" validate:"omitempty,max=500"`
	Contacts        *string       `json:"contacts" validate:"omitempty,max=2000"`
	Notes           *string       `json:"notes" validate:"omitempty,max=5000"`
	ContentStrategy *string       `json:"contentStrategy" validate:"omitempty,max=2000"`
	StrategyIDs     *[]uuid.UUID  `json:"strategyIds" validate:"omitempty"`
	Tag             *LeadTag      `json:"tag" validate:"omitempty,oneof=none hot cold repeat vip"`
	Priority        *LeadPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	Stage           *string       `json:"stage" validate:"omitempty,max=50"`
}

// MoveLeadRequest moves a lead to another stage
type MoveLeadRequest struct {
	Stage string `json:"stage" validate:"required,max=50"`
}

// ReorderLeadRequest repositions a lead within its stage. BeforeID nil
// places the lead at the end.
type ReorderLeadRequest struct {
	BeforeID *uuid.UUID `json:"beforeId"`
}

// BulkMoveRequest applies a stage move to each id
type BulkMoveRequest struct {
	IDs   []uuid.UUID `json:"ids" validate:"required,min=1"`
	Stage string      `json:"stage" validate:"required,max=50"`
}

// BulkDeleteRequest deletes each id
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1"`
}

// BulkResult reports per-id, non-atomic bulk outcomes: a success count plus
// the ids that failed, never an all-or-nothing error.
type BulkResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    []uuid.UUID `json:"failed"`
}

// SelectionRequest marks or unmarks a lead for bulk operations
type SelectionRequest struct {
	Selected bool `json:"selected"`
}

// CreateStageRequest adds a funnel stage
type CreateStageRequest struct {
	Key         string `json:"key" validate:"required,max=50,alphanum"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=2000"`
	Capacity    int    `json:"capacity" validate:"omitempty,gte=0"`
}

// UpdateStageRequest is a partial stage update
type UpdateStageRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=2000"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=0"`
}

// CreateStrategyRequest adds a content strategy to a stage
type CreateStrategyRequest struct {
	StageKey                string       `json:"stageKey" validate:"required,max=50"`
	Name                    string       `json:"name" validate:"required,max=200"`
	Description             string       `json:"description" validate:"omitempty,max=2000"`
	Type                    StrategyType `json:"type" validate:"omitempty,oneof=blog ebook video webinar casestudy demo other"`
	Link                    string       `json:"link" validate:"omitempty,url,max=500"`
	TargetConversionPercent float64      `json:"targetConversionPercent" validate:"omitempty,gte=0"`
}

// UpdateStrategyRequest is a partial strategy update
type UpdateStrategyRequest struct {
	StageKey                *string       `json:"stageKey" validate:"omitempty,max=50"`
	Name                    *string       `json:"name" validate:"omitempty,max=200"`
	Description             *string       `json:"description" validate:"omitempty,max=2000"`
	Type                    *StrategyType `json:"type" validate:"omitempty,oneof=blog ebook video webinar casestudy demo other"`
	Link                    *string       `json:"link" validate:"omitempty,url,max=500"`
	TargetConversionPercent *float64      `json:"targetConversionPercent" validate:"omitempty,gte=0"`
}

// StageWithLeadsDTO groups a stage with its ordered leads and fill level
type StageWithLeadsDTO struct {
	Stage    Stage   `json:"stage"`
	Leads    []Lead  `json:"leads"`
	Count    int     `json:"count"`
	AtLimit  bool    `json:"atLimit"`
	FillRate float64 `json:"fillRate,omitempty"`
}

// AnalyticsSnapshot holds the derived metrics the board displays. Rates can
// exceed 100%: the ratio compares two stage populations, not a cohort.
// StageCompletion and the gap fields describe how thoroughly the stages
// themselves are documented, independent of the lead population.
type AnalyticsSnapshot struct {
	ConversionRate  float64  `json:"conversionRate"`
	AvgDwellDays    float64  `json:"avgDwellDays"`
	Forecast        int      `json:"forecast"`
	HorizonDays     int      `json:"horizonDays"`
	TotalLeads      int      `json:"totalLeads"`
	InitialStage    string   `json:"initialStage"`
	TerminalStage   string   `json:"terminalStage"`
	StageCompletion int      `json:"stageCompletion"`
	GapCount        int      `json:"gapCount"`
	GapStages       []string `json:"gapStages,omitempty"`
}

// ExportFeed is the read-only projection exporters consume
type ExportFeed struct {
	Leads      []Lead            `json:"leads"`
	Stages     []Stage           `json:"stages"`
	Analytics  AnalyticsSnapshot `json:"analytics"`
	ExportedAt time.Time         `json:"exportedAt"`
}
