package analytics_test

import (
	"testing"
	"time"

	"github.com/funneldesk/funnel-api/internal/analytics"
	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func leadIn(stage string) domain.Lead {
	return domain.Lead{ID: uuid.New(), Name: "L", Stage: stage}
}

func TestConversionRate(t *testing.T) {
	t.Run("percentage with one decimal", func(t *testing.T) {
		leads := []domain.Lead{
			leadIn("tof"), leadIn("tof"), leadIn("tof"),
			leadIn("bof"),
		}
		assert.Equal(t, 33.3, analytics.ConversionRate(leads, "tof", "bof"))
	})

	t.Run("rates above 100 are not capped", func(t *testing.T) {
		leads := []domain.Lead{
			leadIn("tof"),
			leadIn("bof"), leadIn("bof"),
		}
		assert.Equal(t, 200.0, analytics.ConversionRate(leads, "tof", "bof"))
	})

	t.Run("empty initial stage yields zero", func(t *testing.T) {
		leads := []domain.Lead{leadIn("bof")}
		assert.Equal(t, 0.0, analytics.ConversionRate(leads, "tof", "bof"))
	})

	t.Run("middle stages are ignored", func(t *testing.T) {
		leads := []domain.Lead{
			leadIn("tof"), leadIn("mof"), leadIn("mof"), leadIn("bof"),
		}
		assert.Equal(t, 100.0, analytics.ConversionRate(leads, "tof", "bof"))
	})
}

func movedAt(leadID uuid.UUID, ts time.Time) domain.ActivityEntry {
	return domain.ActivityEntry{
		ID:        uuid.New(),
		Action:    domain.ActivityActionMoved,
		LeadID:    leadID,
		Timestamp: ts,
	}
}

func TestAverageDwellDays(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("whole days between adjacent moves of the same lead", func(t *testing.T) {
		id := uuid.New()
		entries := []domain.ActivityEntry{
			movedAt(id, base),
			movedAt(id, base.Add(3*24*time.Hour)),
			movedAt(id, base.Add(8*24*time.Hour)),
		}
		// Pairs of 3 and 5 days
		assert.Equal(t, 4.0, analytics.AverageDwellDays(entries))
	})

	t.Run("partial days truncate", func(t *testing.T) {
		id := uuid.New()
		entries := []domain.ActivityEntry{
			movedAt(id, base),
			movedAt(id, base.Add(47*time.Hour)),
		}
		assert.Equal(t, 1.0, analytics.AverageDwellDays(entries))
	})

	t.Run("adjacent entries of different leads do not pair", func(t *testing.T) {
		entries := []domain.ActivityEntry{
			movedAt(uuid.New(), base),
			movedAt(uuid.New(), base.Add(24*time.Hour)),
		}
		assert.Equal(t, 0.0, analytics.AverageDwellDays(entries))
	})

	t.Run("non-move actions are skipped", func(t *testing.T) {
		id := uuid.New()
		entries := []domain.ActivityEntry{
			movedAt(id, base),
			{ID: uuid.New(), Action: domain.ActivityActionAdded, LeadID: id, Timestamp: base.Add(time.Hour)},
			movedAt(id, base.Add(2*24*time.Hour)),
		}
		assert.Equal(t, 2.0, analytics.AverageDwellDays(entries))
	})

	t.Run("empty log yields zero", func(t *testing.T) {
		assert.Equal(t, 0.0, analytics.AverageDwellDays(nil))
	})
}

func TestForecastCompletions(t *testing.T) {
	t.Run("projects middle-stage flow into the terminal stage", func(t *testing.T) {
		leads := []domain.Lead{
			leadIn("tof"), leadIn("tof"),
			leadIn("mof"), leadIn("mof"), leadIn("mof"), leadIn("mof"),
			leadIn("bof"), leadIn("bof"),
		}
		// 2 + 4 * 0.5 * (30/10) = 8
		got := analytics.ForecastCompletions(leads, "tof", "bof", 10, 50, 30)
		assert.Equal(t, 8, got)
	})

	t.Run("zero dwell falls back to the default", func(t *testing.T) {
		leads := []domain.Lead{
			leadIn("mof"), leadIn("mof"),
			leadIn("bof"),
		}
		// 1 + 2 * 1.0 * (7/7) = 3
		got := analytics.ForecastCompletions(leads, "tof", "bof", 0, 100, analytics.DefaultDwellDays)
		assert.Equal(t, 3, got)
	})

	t.Run("rounds to the nearest whole lead", func(t *testing.T) {
		leads := []domain.Lead{leadIn("mof")}
		// 0 + 1 * 0.5 * (7/7) = 0.5 rounds to 1
		got := analytics.ForecastCompletions(leads, "tof", "bof", 7, 50, 7)
		assert.Equal(t, 1, got)
	})
}

func TestSnapshot(t *testing.T) {
	stages := []domain.Stage{
		{Key: "tof", Position: 0},
		{Key: "mof", Position: 1},
		{Key: "bof", Position: 2},
	}
	leads := []domain.Lead{leadIn("tof"), leadIn("mof"), leadIn("bof")}

	snap := analytics.Snapshot(leads, nil, stages, 30)
	assert.Equal(t, "tof", snap.InitialStage)
	assert.Equal(t, "bof", snap.TerminalStage)
	assert.Equal(t, 100.0, snap.ConversionRate)
	assert.Equal(t, 3, snap.TotalLeads)
	assert.Equal(t, 30, snap.HorizonDays)

	// None of these stages carries a description
	assert.Equal(t, 0, snap.StageCompletion)
	assert.Equal(t, 2, snap.GapCount)
	assert.Equal(t, []string{"tof", "mof", "bof"}, snap.GapStages)

	t.Run("no stages yields an empty snapshot", func(t *testing.T) {
		empty := analytics.Snapshot(leads, nil, nil, 30)
		assert.Equal(t, 0.0, empty.ConversionRate)
		assert.Equal(t, "", empty.InitialStage)
	})
}

func stageAt(key, description string, pos int) domain.Stage {
	return domain.Stage{Key: key, Name: key, Description: description, Position: pos}
}

func TestStageGaps(t *testing.T) {
	t.Run("fully described funnel has no gaps", func(t *testing.T) {
		stages := []domain.Stage{
			stageAt("tof", "reach out", 0),
			stageAt("mof", "nurture", 1),
			stageAt("bof", "close", 2),
		}
		count, keys := analytics.StageGaps(stages)
		assert.Equal(t, 0, count)
		assert.Empty(t, keys)
	})

	t.Run("a blank stage gaps both neighboring pairs", func(t *testing.T) {
		stages := []domain.Stage{
			stageAt("tof", "reach out", 0),
			stageAt("mof", "   ", 1),
			stageAt("bof", "close", 2),
		}
		count, keys := analytics.StageGaps(stages)
		assert.Equal(t, 2, count)
		assert.Equal(t, []string{"tof", "mof", "bof"}, keys)
	})

	t.Run("gap at the end flags only that pair", func(t *testing.T) {
		stages := []domain.Stage{
			stageAt("tof", "reach out", 0),
			stageAt("mof", "nurture", 1),
			stageAt("bof", "", 2),
		}
		count, keys := analytics.StageGaps(stages)
		assert.Equal(t, 1, count)
		assert.Equal(t, []string{"mof", "bof"}, keys)
	})

	t.Run("a single stage has no pairs to gap", func(t *testing.T) {
		count, keys := analytics.StageGaps([]domain.Stage{stageAt("tof", "", 0)})
		assert.Equal(t, 0, count)
		assert.Empty(t, keys)
	})
}

func TestStageCompletion(t *testing.T) {
	t.Run("whole-percent share of described stages", func(t *testing.T) {
		stages := []domain.Stage{
			stageAt("tof", "reach out", 0),
			stageAt("mof", "nurture", 1),
			stageAt("bof", "", 2),
		}
		assert.Equal(t, 67, analytics.StageCompletion(stages))
	})

	t.Run("all described is 100", func(t *testing.T) {
		stages := []domain.Stage{
			stageAt("tof", "reach out", 0),
			stageAt("bof", "close", 1),
		}
		assert.Equal(t, 100, analytics.StageCompletion(stages))
	})

	t.Run("no stages is 0", func(t *testing.T) {
		assert.Equal(t, 0, analytics.StageCompletion(nil))
	})
}
