package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadTag is a cosmetic classification of a lead
type LeadTag string

const (
	LeadTagNone   LeadTag = "none"
	LeadTagHot    LeadTag = "hot"
	LeadTagCold   LeadTag = "cold"
	LeadTagRepeat LeadTag = "repeat"
	LeadTagVIP    LeadTag = "vip"
)

// IsValid checks if the LeadTag is a valid enum value
func (t LeadTag) IsValid() bool {
	switch t {
	case LeadTagNone, LeadTagHot, LeadTagCold, LeadTagRepeat, LeadTagVIP:
		return true
	}
	return false
}

// LeadPriority represents the priority level of a lead
type LeadPriority string

const (
	LeadPriorityLow    LeadPriority = "low"
	LeadPriorityMedium LeadPriority = "medium"
	LeadPriorityHigh   LeadPriority = "high"
)

// IsValid checks if the LeadPriority is a valid enum value
func (p LeadPriority) IsValid() bool {
	switch p {
	case LeadPriorityLow, LeadPriorityMedium, LeadPriorityHigh:
		return true
	}
	return false
}

// Lead is a prospective or existing customer record tracked on the board.
// Leads are owned exclusively by the funnel engine; no other component
// mutates them directly.
type Lead struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email,omitempty"`
	Phone           string       `json:"phone,omitempty"`
	Website         string       `json:"website,omitempty"`
	Contacts        string       `json:"contacts,omitempty"`
	Notes           string       `json:"notes,omitempty"`
	ContentStrategy string       `json:"contentStrategy,omitempty"`
	StrategyIDs     []uuid.UUID  `json:"strategyIds,omitempty"`
	Tag             LeadTag      `json:"tag"`
	Priority        LeadPriority `json:"priority"`
	Stage           string       `json:"stage"`
	SortOrder       int          `json:"sortOrder"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// HasStrategy reports whether the lead references the given content strategy
func (l *Lead) HasStrategy(id uuid.UUID) bool {
	for _, sid := range l.StrategyIDs {
		if sid == id {
			return true
		}
	}
	return false
}

// Stage is one of the totally ordered funnel positions a lead occupies
// (e.g. tof/mof/bof). Capacity is a soft limit used only for progress
// signaling; it never blocks a move.
type Stage struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Capacity    int    `json:"capacity,omitempty"`
	Position    int    `json:"position"`
}

// StrategyType classifies a piece of content collateral
type StrategyType string

const (
	StrategyTypeBlog      StrategyType = "blog"
	StrategyTypeEbook     StrategyType = "ebook"
	StrategyTypeVideo     StrategyType = "video"
	StrategyTypeWebinar   StrategyType = "webinar"
	StrategyTypeCaseStudy StrategyType = "casestudy"
	StrategyTypeDemo      StrategyType = "demo"
	StrategyTypeOther     StrategyType = "other"
)

// IsValid checks if the StrategyType is a valid enum value
func (s StrategyType) IsValid() bool {
	switch s {
	case StrategyTypeBlog, StrategyTypeEbook, StrategyTypeVideo, StrategyTypeWebinar,
		StrategyTypeCaseStudy, StrategyTypeDemo, StrategyTypeOther:
		return true
	}
	return false
}

// ContentStrategy is a named piece of collateral associated with one stage.
// Leads reference strategies by id; deleting a strategy prunes those
// references rather than leaving them dangling.
type ContentStrategy struct {
	ID                      uuid.UUID    `json:"id"`
	StageKey                string       `json:"stageKey"`
	Name                    string       `json:"name"`
	Description             string       `json:"description,omitempty"`
	Type                    StrategyType `json:"type"`
	Link                    string       `json:"link,omitempty"`
	TargetConversionPercent float64      `json:"targetConversionPercent,omitempty"`
	CreatedAt               time.Time    `json:"createdAt"`
	UpdatedAt               time.Time    `json:"updatedAt"`
}

// ActivityAction describes a persisted state-changing operation
type ActivityAction string

const (
	ActivityActionAdded           ActivityAction = "added"
	ActivityActionMoved           ActivityAction = "moved"
	ActivityActionPriorityChanged ActivityAction = "priority-changed"
	ActivityActionDeleted         ActivityAction = "deleted"
	ActivityActionExported        ActivityAction = "exported"
)

// ActivityEntry is an immutable record of a state change. LeadName is a
// denormalized snapshot so history survives lead deletion.
type ActivityEntry struct {
	ID        uuid.UUID      `json:"id"`
	Action    ActivityAction `json:"action"`
	LeadID    uuid.UUID      `json:"leadId"`
	LeadName  string         `json:"leadName"`
	Timestamp time.Time      `json:"timestamp"`
	FromStage string         `json:"fromStage,omitempty"`
	ToStage   string         `json:"toStage,omitempty"`
}

// Document is the JSON-serializable snapshot the store persists. Saves are
// idempotent whole-document snapshots; there is no cross-collection
// transaction and concurrent sessions against the same board key are
// last-writer-wins (accepted limitation).
type Document struct {
	Leads       []Lead            `json:"leads"`
	Stages      []Stage           `json:"stages"`
	Strategies  []ContentStrategy `json:"strategies,omitempty"`
	ActivityLog []ActivityEntry   `json:"activityLog"`
}
