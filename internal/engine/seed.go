package engine

import (
	"time"

	"github.com/funneldesk/funnel-api/internal/domain"
)

// seedStages is the default three-stage funnel
var seedStages = []domain.Stage{
	{Key: "tof", Name: "Awareness", Description: "Top of funnel: first contact and qualification", Position: 0},
	{Key: "mof", Name: "Consideration", Description: "Middle of funnel: active evaluation", Position: 1},
	{Key: "bof", Name: "Purchase", Description: "Bottom of funnel: closing", Position: 2},
}

type seedLead struct {
	name     string
	email    string
	stage    string
	tag      domain.LeadTag
	priority domain.LeadPriority
	notes    string
}

var seedLeads = []seedLead{
	{
		name:     "Acme Corp",
		email:    "hello@acme.example",
		stage:    "tof",
		tag:      domain.LeadTagCold,
		priority: domain.LeadPriorityMedium,
		notes:    "Inbound from the pricing page.",
	},
	{
		name:     "Globex",
		email:    "sales@globex.example",
		stage:    "mof",
		tag:      domain.LeadTagHot,
		priority: domain.LeadPriorityHigh,
		notes:    "Requested a comparison sheet.",
	},
	{
		name:     "Global Inc",
		email:    "contact@globalinc.example",
		stage:    "bof",
		tag:      domain.LeadTagVIP,
		priority: domain.LeadPriorityHigh,
		notes:    "Contract in legal review.",
	},
}

// seed installs the default board: three funnel stages and one sample lead
// per stage.
func (e *Engine) seed() {
	now := time.Now().UTC()

	e.stages = append([]domain.Stage(nil), seedStages...)
	e.strategies = nil
	e.leads = make([]*domain.Lead, 0, len(seedLeads))
	for _, s := range seedLeads {
		lead := &domain.Lead{
			ID:        e.ids.NewID(),
			Name:      s.name,
			Email:     s.email,
			Notes:     s.notes,
			Tag:       s.tag,
			Priority:  s.priority,
			Stage:     s.stage,
			SortOrder: 0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		e.leads = append(e.leads, lead)
		e.record(domain.ActivityActionAdded, lead.ID, lead.Name, "", lead.Stage)
	}
}
