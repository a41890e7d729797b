package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// AutosaveJobName is the name of the periodic board snapshot job
const AutosaveJobName = "autosave"

// DefaultAutosaveTimeout bounds a single snapshot write
const DefaultAutosaveTimeout = 10 * time.Second

// BoardFlusher persists the current board state. The interface lets the job
// trigger saves without importing the engine package directly.
type BoardFlusher interface {
	Flush(ctx context.Context) error
}

// AutosaveJob periodically mirrors the board to the store. It is a safety
// net behind the per-mutation saves: a save that failed at mutation time
// gets retried here with the then-current state.
type AutosaveJob struct {
	board   BoardFlusher
	logger  *zap.Logger
	timeout time.Duration
}

// NewAutosaveJob creates a new autosave job.
func NewAutosaveJob(board BoardFlusher, logger *zap.Logger, timeout time.Duration) *AutosaveJob {
	if timeout <= 0 {
		timeout = DefaultAutosaveTimeout
	}
	return &AutosaveJob{board: board, logger: logger, timeout: timeout}
}

// Run executes one snapshot write. Called by the scheduler.
func (j *AutosaveJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.board.Flush(ctx); err != nil {
		j.logger.Warn("autosave failed", zap.Error(err))
	}
}

// RegisterAutosaveJob registers the autosave job with the scheduler at the
// given interval.
func RegisterAutosaveJob(scheduler *Scheduler, board BoardFlusher, logger *zap.Logger, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("autosave interval must be positive, got %s", interval)
	}
	job := NewAutosaveJob(board, logger, DefaultAutosaveTimeout)
	return scheduler.AddJob(AutosaveJobName, fmt.Sprintf("@every %s", interval), job.Run)
}
