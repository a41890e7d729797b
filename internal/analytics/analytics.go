// Package analytics derives board metrics from snapshots of leads and the
// activity log. All functions are pure and recomputed on demand; nothing is
// cached.
package analytics

import (
	"math"
	"strings"
	"time"

	"github.com/funneldesk/funnel-api/internal/domain"
)

// DefaultDwellDays substitutes for the average dwell time in the forecast
// when no stage moves have been logged yet.
const DefaultDwellDays = 7

// ConversionRate compares the terminal-stage population against the
// initial-stage population, as a percentage rounded to one decimal. The
// ratio is deliberately uncapped (a rate above 100% just means the bottom
// of the funnel currently outnumbers the top) and is 0, not an error, when
// the initial stage is empty.
func ConversionRate(leads []domain.Lead, initialStage, terminalStage string) float64 {
	var initial, terminal int
	for _, l := range leads {
		switch l.Stage {
		case initialStage:
			initial++
		case terminalStage:
			terminal++
		}
	}
	if initial == 0 {
		return 0
	}
	rate := float64(terminal) / float64(initial) * 100
	return math.Round(rate*10) / 10
}

// AverageDwellDays approximates how long leads sit between stage moves. It
// scans the log's moved entries in chronological order and, for each
// adjacent pair sharing a leadId, counts the elapsed whole days; the result
// is the mean over those pairs, or 0 when none exist. Adjacency in the
// trimmed log is an approximation of true per-stage duration and is kept
// as the documented behavior.
func AverageDwellDays(entries []domain.ActivityEntry) float64 {
	var moved []domain.ActivityEntry
	for _, e := range entries {
		if e.Action == domain.ActivityActionMoved {
			moved = append(moved, e)
		}
	}

	var totalDays, pairs int
	for i := 1; i < len(moved); i++ {
		if moved[i].LeadID != moved[i-1].LeadID {
			continue
		}
		elapsed := moved[i].Timestamp.Sub(moved[i-1].Timestamp)
		totalDays += int(elapsed / (24 * time.Hour))
		pairs++
	}
	if pairs == 0 {
		return 0
	}
	return float64(totalDays) / float64(pairs)
}

// ForecastCompletions projects how many leads will sit in the terminal
// stage after horizonDays: the current terminal count plus the middle-stage
// population scaled by the conversion rate and by how many dwell periods
// fit in the horizon. A zero avgDwellDays falls back to DefaultDwellDays.
func ForecastCompletions(leads []domain.Lead, initialStage, terminalStage string, avgDwellDays, conversionRate float64, horizonDays int) int {
	if avgDwellDays == 0 {
		avgDwellDays = DefaultDwellDays
	}

	var terminal, middle int
	for _, l := range leads {
		switch l.Stage {
		case terminalStage:
			terminal++
		case initialStage:
		default:
			middle++
		}
	}

	projected := float64(terminal) + float64(middle)*(conversionRate/100)*(float64(horizonDays)/avgDwellDays)
	return int(math.Round(projected))
}

// StageGaps flags adjacent stage pairs where either side's description is
// blank after trimming. It returns the number of gapped pairs and the keys
// of the stages involved, deduplicated in funnel order, so the board can
// highlight where the journey narrative breaks down.
func StageGaps(stages []domain.Stage) (int, []string) {
	var count int
	flagged := make(map[string]bool)
	for i := 0; i+1 < len(stages); i++ {
		cur := strings.TrimSpace(stages[i].Description)
		next := strings.TrimSpace(stages[i+1].Description)
		if cur == "" || next == "" {
			count++
			flagged[stages[i].Key] = true
			flagged[stages[i+1].Key] = true
		}
	}

	var keys []string
	for _, s := range stages {
		if flagged[s.Key] {
			keys = append(keys, s.Key)
		}
	}
	return count, keys
}

// StageCompletion is the share of stages carrying a non-blank description,
// as a whole percentage. An empty funnel is 0.
func StageCompletion(stages []domain.Stage) int {
	if len(stages) == 0 {
		return 0
	}
	var described int
	for _, s := range stages {
		if strings.TrimSpace(s.Description) != "" {
			described++
		}
	}
	return int(math.Round(float64(described) / float64(len(stages)) * 100))
}

// Snapshot computes the full derived-metrics view for the given stage
// order. Stages must be non-empty; the first is the initial stage and the
// last the terminal one.
func Snapshot(leads []domain.Lead, entries []domain.ActivityEntry, stages []domain.Stage, horizonDays int) domain.AnalyticsSnapshot {
	if len(stages) == 0 {
		return domain.AnalyticsSnapshot{HorizonDays: horizonDays}
	}

	initial := stages[0].Key
	terminal := stages[len(stages)-1].Key

	rate := ConversionRate(leads, initial, terminal)
	dwell := AverageDwellDays(entries)
	gapCount, gapStages := StageGaps(stages)

	return domain.AnalyticsSnapshot{
		ConversionRate:  rate,
		AvgDwellDays:    dwell,
		Forecast:        ForecastCompletions(leads, initial, terminal, dwell, rate, horizonDays),
		HorizonDays:     horizonDays,
		TotalLeads:      len(leads),
		InitialStage:    initial,
		TerminalStage:   terminal,
		StageCompletion: StageCompletion(stages),
		GapCount:        gapCount,
		GapStages:       gapStages,
	}
}
