package activity_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/funneldesk/funnel-api/internal/activity"
	"github.com/funneldesk/funnel-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(n int) domain.ActivityEntry {
	return domain.ActivityEntry{
		ID:        uuid.New(),
		Action:    domain.ActivityActionAdded,
		LeadID:    uuid.New(),
		LeadName:  fmt.Sprintf("lead-%d", n),
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(n) * time.Minute),
	}
}

func TestLog_AppendEvictsOldest(t *testing.T) {
	log := activity.NewLog()

	for i := 0; i < activity.MemoryLimit+20; i++ {
		log.Append(entry(i))
	}

	assert.Equal(t, activity.MemoryLimit, log.Len())

	all := log.All()
	require.Len(t, all, activity.MemoryLimit)
	// The 20 oldest are gone
	assert.Equal(t, "lead-20", all[0].LeadName)
	assert.Equal(t, fmt.Sprintf("lead-%d", activity.MemoryLimit+19), all[len(all)-1].LeadName)
}

func TestLog_RecentIsNewestFirst(t *testing.T) {
	log := activity.NewLog()
	for i := 0; i < 5; i++ {
		log.Append(entry(i))
	}

	recent := log.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, "lead-4", recent[0].LeadName)
	assert.Equal(t, "lead-3", recent[1].LeadName)
	assert.Equal(t, "lead-2", recent[2].LeadName)

	// Requests beyond the held count clamp
	assert.Len(t, log.Recent(50), 5)
	assert.Empty(t, log.Recent(0))
}

func TestLog_ForPersistenceTrims(t *testing.T) {
	log := activity.NewLog()
	for i := 0; i < activity.PersistLimit+10; i++ {
		log.Append(entry(i))
	}

	persisted := log.ForPersistence()
	require.Len(t, persisted, activity.PersistLimit)
	// Chronological order, most recent PersistLimit entries
	assert.Equal(t, "lead-10", persisted[0].LeadName)
	assert.Equal(t, fmt.Sprintf("lead-%d", activity.PersistLimit+9), persisted[len(persisted)-1].LeadName)
}

func TestLog_HydrateClampsToMemoryLimit(t *testing.T) {
	entries := make([]domain.ActivityEntry, activity.MemoryLimit+30)
	for i := range entries {
		entries[i] = entry(i)
	}

	log := activity.NewLog()
	log.Hydrate(entries)

	assert.Equal(t, activity.MemoryLimit, log.Len())
	assert.Equal(t, "lead-30", log.All()[0].LeadName)
}
