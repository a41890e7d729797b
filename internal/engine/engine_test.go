package engine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/funneldesk/funnel-api/internal/engine"
	"github.com/funneldesk/funnel-api/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memStore keeps the document in memory so engine tests run without disk
type memStore struct {
	doc     *domain.Document
	saves   int
	failing bool
}

func (m *memStore) Load(ctx context.Context) (*domain.Document, error) {
	if m.doc == nil {
		return nil, store.ErrNotFound
	}
	return m.doc, nil
}

func (m *memStore) Save(ctx context.Context, doc *domain.Document) error {
	if m.failing {
		return assert.AnError
	}
	m.doc = doc
	m.saves++
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestEngine(t *testing.T) (*engine.Engine, *memStore) {
	t.Helper()
	st := &memStore{}
	eng, err := engine.New(context.Background(), st, zap.NewNop(), engine.Options{
		DefaultStage:        "tof",
		ForecastHorizonDays: 30,
	})
	require.NoError(t, err)
	return eng, st
}

func addLead(t *testing.T, eng *engine.Engine, name, stage string) *domain.Lead {
	t.Helper()
	lead, err := eng.AddLead(context.Background(), domain.CreateLeadRequest{
		Name:  name,
		Stage: stage,
	})
	require.NoError(t, err)
	return lead
}

func TestEngine_SeedsOnFirstRun(t *testing.T) {
	eng, st := newTestEngine(t)

	stages := eng.Stages()
	require.Len(t, stages, 3)
	assert.Equal(t, "tof", stages[0].Key)
	assert.Equal(t, "mof", stages[1].Key)
	assert.Equal(t, "bof", stages[2].Key)
	assert.Equal(t, "Awareness", stages[0].Name)
	assert.Equal(t, "Consideration", stages[1].Name)
	assert.Equal(t, "Purchase", stages[2].Name)

	leads := eng.AllLeads()
	require.Len(t, leads, 3)
	assert.Equal(t, "Acme Corp", leads[0].Name)
	assert.Equal(t, "tof", leads[0].Stage)
	assert.Equal(t, "Globex", leads[1].Name)
	assert.Equal(t, "mof", leads[1].Stage)
	assert.Equal(t, "Global Inc", leads[2].Name)
	assert.Equal(t, "bof", leads[2].Stage)

	// Seed is persisted immediately
	assert.NotNil(t, st.doc)
}

func TestEngine_AddLead(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("assigns unique ids and the default stage", func(t *testing.T) {
		a, err := eng.AddLead(ctx, domain.CreateLeadRequest{Name: "First"})
		require.NoError(t, err)
		b, err := eng.AddLead(ctx, domain.CreateLeadRequest{Name: "Second"})
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		assert.Equal(t, "tof", a.Stage)
		assert.Equal(t, "tof", b.Stage)
		assert.Equal(t, domain.LeadTagNone, a.Tag)
		assert.Equal(t, domain.LeadPriorityMedium, a.Priority)
	})

	t.Run("rejects whitespace-only names", func(t *testing.T) {
		_, err := eng.AddLead(ctx, domain.CreateLeadRequest{Name: "   \t  "})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("rejects unknown stages", func(t *testing.T) {
		_, err := eng.AddLead(ctx, domain.CreateLeadRequest{Name: "X", Stage: "nope"})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("trims free-text fields", func(t *testing.T) {
		lead, err := eng.AddLead(ctx, domain.CreateLeadRequest{
			Name:  "  Padded  ",
			Notes: "  note  ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Padded", lead.Name)
		assert.Equal(t, "note", lead.Notes)
	})
}

func TestEngine_MoveLead(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	lead := addLead(t, eng, "Mover", "tof")

	t.Run("records one entry and advances updatedAt", func(t *testing.T) {
		entriesBefore := len(eng.Recent(100))
		before := lead.UpdatedAt

		moved, wasMoved, err := eng.MoveLead(ctx, lead.ID, "mof")
		require.NoError(t, err)
		assert.True(t, wasMoved)
		assert.Equal(t, "mof", moved.Stage)
		assert.True(t, moved.UpdatedAt.After(before))

		entries := eng.Recent(100)
		require.Len(t, entries, entriesBefore+1)
		assert.Equal(t, domain.ActivityActionMoved, entries[0].Action)
		assert.Equal(t, "tof", entries[0].FromStage)
		assert.Equal(t, "mof", entries[0].ToStage)
		assert.Equal(t, "Mover", entries[0].LeadName)
	})

	t.Run("same-stage move is a silent no-op", func(t *testing.T) {
		entriesBefore := len(eng.Recent(100))

		_, wasMoved, err := eng.MoveLead(ctx, lead.ID, "mof")
		require.NoError(t, err)
		assert.False(t, wasMoved)
		assert.Len(t, eng.Recent(100), entriesBefore)
	})

	t.Run("unknown lead returns not found", func(t *testing.T) {
		_, _, err := eng.MoveLead(ctx, uuid.New(), "mof")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("unknown stage returns not found", func(t *testing.T) {
		_, _, err := eng.MoveLead(ctx, lead.ID, "nope")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestEngine_UpdateLead_StrictlyIncreasingUpdatedAt(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	lead := addLead(t, eng, "Ticker", "tof")

	prev := lead.UpdatedAt
	for i := 0; i < 5; i++ {
		notes := "round"
		updated, err := eng.UpdateLead(ctx, lead.ID, domain.UpdateLeadRequest{Notes: &notes})
		require.NoError(t, err)
		assert.True(t, updated.UpdatedAt.After(prev))
		prev = updated.UpdatedAt
	}
}

func TestEngine_UpdateLead_PriorityChangeIsLogged(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	lead := addLead(t, eng, "Prio", "tof")

	high := domain.LeadPriorityHigh
	_, err := eng.UpdateLead(ctx, lead.ID, domain.UpdateLeadRequest{Priority: &high})
	require.NoError(t, err)

	entries := eng.Recent(1)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityActionPriorityChanged, entries[0].Action)

	// Setting the same priority again logs nothing
	before := len(eng.Recent(100))
	_, err = eng.UpdateLead(ctx, lead.ID, domain.UpdateLeadRequest{Priority: &high})
	require.NoError(t, err)
	assert.Len(t, eng.Recent(100), before)
}

func TestEngine_DeleteLead(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	lead := addLead(t, eng, "Doomed", "tof")

	require.NoError(t, eng.ToggleSelection(lead.ID, true))
	require.Contains(t, eng.SelectedIDs(), lead.ID)

	require.NoError(t, eng.DeleteLead(ctx, lead.ID))

	_, err := eng.Lead(lead.ID)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
	assert.NotContains(t, eng.SelectedIDs(), lead.ID)

	// Second delete reports not found
	err = eng.DeleteLead(ctx, lead.ID)
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestEngine_ReorderWithinStage(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	a := addLead(t, eng, "A", "mof")
	b := addLead(t, eng, "B", "mof")
	c := addLead(t, eng, "C", "mof")

	names := func() []string {
		leads, err := eng.LeadsByStage("mof")
		require.NoError(t, err)
		out := make([]string, 0, len(leads))
		for _, l := range leads {
			out = append(out, l.Name)
		}
		return out
	}

	// Seeded Globex sits first in mof
	require.Equal(t, []string{"Globex", "A", "B", "C"}, names())

	require.NoError(t, eng.ReorderWithinStage(ctx, c.ID, &a.ID))
	assert.Equal(t, []string{"Globex", "C", "A", "B"}, names())

	// Nil beforeID places the lead last
	require.NoError(t, eng.ReorderWithinStage(ctx, c.ID, nil))
	assert.Equal(t, []string{"Globex", "A", "B", "C"}, names())

	// Unknown anchor fails without touching the order
	bogus := uuid.New()
	err := eng.ReorderWithinStage(ctx, b.ID, &bogus)
	require.Error(t, err)
	assert.Equal(t, []string{"Globex", "A", "B", "C"}, names())

	// Anchoring a lead on itself is a no-op, not a missing anchor
	require.NoError(t, eng.ReorderWithinStage(ctx, b.ID, &b.ID))
	assert.Equal(t, []string{"Globex", "A", "B", "C"}, names())
}

func TestEngine_UpdateLead_FailedUpdateLeavesStateUntouched(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()
	lead := addLead(t, eng, "Original", "tof")
	logBefore := len(eng.Recent(100))

	name := "Renamed"
	high := domain.LeadPriorityHigh
	bogus := "bogus"

	t.Run("unknown stage rejects the whole patch", func(t *testing.T) {
		_, err := eng.UpdateLead(ctx, lead.ID, domain.UpdateLeadRequest{
			Name:     &name,
			Priority: &high,
			Stage:    &bogus,
		})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))

		got, err := eng.Lead(lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Name)
		assert.Equal(t, domain.LeadPriorityMedium, got.Priority)
		assert.Equal(t, "tof", got.Stage)
		assert.Len(t, eng.Recent(100), logBefore)
	})

	t.Run("blank name rejects the whole patch", func(t *testing.T) {
		blank := "   "
		_, err := eng.UpdateLead(ctx, lead.ID, domain.UpdateLeadRequest{
			Name:     &blank,
			Priority: &high,
		})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))

		got, err := eng.Lead(lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "Original", got.Name)
		assert.Equal(t, domain.LeadPriorityMedium, got.Priority)
		assert.Len(t, eng.Recent(100), logBefore)
	})
}

func TestEngine_BulkOperations(t *testing.T) {
	ctx := context.Background()

	t.Run("bulk delete reports per-id outcomes", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		a := addLead(t, eng, "A", "tof")
		b := addLead(t, eng, "B", "tof")
		unknown := uuid.New()

		result, err := eng.BulkDelete(ctx, []uuid.UUID{a.ID, unknown, b.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)
		assert.Equal(t, []uuid.UUID{unknown}, result.Failed)
	})

	t.Run("bulk delete persists a single snapshot", func(t *testing.T) {
		eng, st := newTestEngine(t)
		a := addLead(t, eng, "A", "tof")
		b := addLead(t, eng, "B", "tof")
		before := st.saves

		_, err := eng.BulkDelete(ctx, []uuid.UUID{a.ID, b.ID})
		require.NoError(t, err)
		assert.Equal(t, before+1, st.saves)
	})

	t.Run("bulk move clears the selection", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		a := addLead(t, eng, "A", "tof")
		b := addLead(t, eng, "B", "tof")
		require.NoError(t, eng.ToggleSelection(a.ID, true))
		require.NoError(t, eng.ToggleSelection(b.ID, true))

		result, err := eng.BulkMove(ctx, eng.SelectedIDs(), "bof")
		require.NoError(t, err)
		assert.Equal(t, 2, result.Succeeded)
		assert.Empty(t, result.Failed)
		assert.Empty(t, eng.SelectedIDs())

		leads, err := eng.LeadsByStage("bof")
		require.NoError(t, err)
		assert.Len(t, leads, 3) // seeded Global Inc plus the two moved
	})

	t.Run("bulk move to unknown stage fails whole batch", func(t *testing.T) {
		eng, _ := newTestEngine(t)
		a := addLead(t, eng, "A", "tof")

		_, err := eng.BulkMove(ctx, []uuid.UUID{a.ID}, "nope")
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestEngine_ConversionRateScenario(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	// Seed leaves one lead in tof and one in bof. Two more purchases make
	// the terminal stage outnumber the initial one.
	addLead(t, eng, "Buyer One", "bof")
	addLead(t, eng, "Buyer Two", "bof")

	snap := eng.Analytics()
	assert.Equal(t, "tof", snap.InitialStage)
	assert.Equal(t, "bof", snap.TerminalStage)
	assert.Equal(t, 300.0, snap.ConversionRate)
	assert.Equal(t, 5, snap.TotalLeads)

	// Emptying the initial stage collapses the rate to zero
	leads, err := eng.LeadsByStage("tof")
	require.NoError(t, err)
	require.NoError(t, eng.DeleteLead(ctx, leads[0].ID))
	assert.Equal(t, 0.0, eng.Analytics().ConversionRate)
}

func TestEngine_ActivityLogStaysBounded(t *testing.T) {
	eng, _ := newTestEngine(t)

	for i := 0; i < 150; i++ {
		addLead(t, eng, "Lead "+strings.Repeat("x", i%5+1), "tof")
	}

	assert.Len(t, eng.Recent(1000), 100)
}

func TestEngine_RoundTripThroughStore(t *testing.T) {
	st := &memStore{}
	ctx := context.Background()

	eng, err := engine.New(ctx, st, zap.NewNop(), engine.Options{DefaultStage: "tof"})
	require.NoError(t, err)

	lead := addLead(t, eng, "Persistent", "mof")
	_, _, err = eng.MoveLead(ctx, lead.ID, "bof")
	require.NoError(t, err)
	require.NoError(t, eng.Flush(ctx))

	reloaded, err := engine.New(ctx, st, zap.NewNop(), engine.Options{DefaultStage: "tof"})
	require.NoError(t, err)

	got, err := reloaded.Lead(lead.ID)
	require.NoError(t, err)
	assert.Equal(t, "Persistent", got.Name)
	assert.Equal(t, "bof", got.Stage)
	assert.Len(t, reloaded.AllLeads(), len(eng.AllLeads()))
}

func TestEngine_StorageFailureKeepsMutation(t *testing.T) {
	eng, st := newTestEngine(t)
	ctx := context.Background()

	st.failing = true
	lead, err := eng.AddLead(ctx, domain.CreateLeadRequest{Name: "Unsaved"})
	require.Error(t, err)
	assert.True(t, domain.IsStorage(err))
	require.NotNil(t, lead)

	// The lead exists in memory despite the failed save
	got, getErr := eng.Lead(lead.ID)
	require.NoError(t, getErr)
	assert.Equal(t, "Unsaved", got.Name)

	// Once the store recovers, a flush writes everything out
	st.failing = false
	require.NoError(t, eng.Flush(ctx))
	assert.NotNil(t, st.doc)
}

func TestEngine_StageLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	t.Run("add and reorder", func(t *testing.T) {
		_, err := eng.AddStage(ctx, domain.CreateStageRequest{Key: "retention", Name: "Retention"})
		require.NoError(t, err)
		require.Len(t, eng.Stages(), 4)
		assert.Equal(t, "retention", eng.Stages()[3].Key)

		require.NoError(t, eng.ReorderStage(ctx, "retention", 0))
		assert.Equal(t, "retention", eng.Stages()[0].Key)
		assert.Equal(t, 0, eng.Stages()[0].Position)

		// New initial stage changes the analytics anchors
		assert.Equal(t, "retention", eng.Analytics().InitialStage)

		require.NoError(t, eng.ReorderStage(ctx, "retention", 3))
	})

	t.Run("duplicate key is rejected", func(t *testing.T) {
		_, err := eng.AddStage(ctx, domain.CreateStageRequest{Key: "tof", Name: "Again"})
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("deleting a non-empty stage requires a target", func(t *testing.T) {
		err := eng.DeleteStage(ctx, "mof", "")
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("delete migrates leads and logs moves", func(t *testing.T) {
		mofLeads, err := eng.LeadsByStage("mof")
		require.NoError(t, err)
		require.NotEmpty(t, mofLeads)

		require.NoError(t, eng.DeleteStage(ctx, "mof", "tof"))
		require.Len(t, eng.Stages(), 3)

		_, err = eng.LeadsByStage("mof")
		require.Error(t, err)

		tofLeads, err := eng.LeadsByStage("tof")
		require.NoError(t, err)
		names := make([]string, 0, len(tofLeads))
		for _, l := range tofLeads {
			names = append(names, l.Name)
		}
		assert.Contains(t, names, "Globex")

		entries := eng.Recent(len(mofLeads))
		assert.Equal(t, domain.ActivityActionMoved, entries[0].Action)
	})

	t.Run("last stage cannot be deleted", func(t *testing.T) {
		require.NoError(t, eng.DeleteStage(ctx, "retention", "tof"))
		require.NoError(t, eng.DeleteStage(ctx, "bof", "tof"))
		err := eng.DeleteStage(ctx, "tof", "")
		require.Error(t, err)
		assert.True(t, domain.IsValidation(err))
	})
}

func TestEngine_StrategyLifecycle(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx := context.Background()

	strategy, err := eng.AddStrategy(ctx, domain.CreateStrategyRequest{
		StageKey: "mof",
		Name:     "Comparison guide",
		Type:     domain.StrategyTypeEbook,
	})
	require.NoError(t, err)

	lead, err := eng.AddLead(ctx, domain.CreateLeadRequest{
		Name:        "Reader",
		Stage:       "mof",
		StrategyIDs: []uuid.UUID{strategy.ID, uuid.New()},
	})
	require.NoError(t, err)
	// Unknown references are dropped on the way in
	assert.Equal(t, []uuid.UUID{strategy.ID}, lead.StrategyIDs)

	t.Run("filtered listing", func(t *testing.T) {
		assert.Len(t, eng.Strategies("mof"), 1)
		assert.Empty(t, eng.Strategies("tof"))
	})

	t.Run("unknown stage is rejected", func(t *testing.T) {
		_, err := eng.AddStrategy(ctx, domain.CreateStrategyRequest{StageKey: "nope", Name: "X"})
		require.Error(t, err)
		assert.True(t, domain.IsNotFound(err))
	})

	t.Run("deletion prunes lead references", func(t *testing.T) {
		require.NoError(t, eng.DeleteStrategy(ctx, strategy.ID))

		got, err := eng.Lead(lead.ID)
		require.NoError(t, err)
		assert.Empty(t, got.StrategyIDs)
		assert.Empty(t, eng.Strategies(""))
	})
}

func TestEngine_ExportFeed(t *testing.T) {
	eng, _ := newTestEngine(t)

	feed, err := eng.ExportFeed(context.Background())
	require.NoError(t, err)
	assert.Len(t, feed.Leads, 3)
	assert.Len(t, feed.Stages, 3)
	assert.Equal(t, 3, feed.Analytics.TotalLeads)
	assert.False(t, feed.ExportedAt.IsZero())

	entries := eng.Recent(1)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ActivityActionExported, entries[0].Action)
}

func TestEngine_SubscribersFireAfterMutations(t *testing.T) {
	eng, _ := newTestEngine(t)

	fired := 0
	eng.Subscribe(func() { fired++ })

	addLead(t, eng, "Ping", "tof")
	assert.Equal(t, 1, fired)

	// Read-only calls stay silent
	eng.AllLeads()
	eng.Analytics()
	assert.Equal(t, 1, fired)
}
