// Package activity keeps the bounded append-only history of state-changing
// board operations.
package activity

import "github.com/funneldesk/funnel-api/internal/domain"

const (
	// MemoryLimit caps the entries kept in memory.
	MemoryLimit = 100
	// PersistLimit caps the entries handed to the store. Persisting less
	// than the working set bounds storage growth.
	PersistLimit = 50
)

// Log is an in-memory, append-only activity history. Oldest entries are
// evicted FIFO once the memory cap is reached. Append is the only mutation;
// the Log itself is not safe for concurrent use and relies on the engine's
// serialization.
type Log struct {
	entries []domain.ActivityEntry
}

// NewLog creates an empty activity log
func NewLog() *Log {
	return &Log{entries: make([]domain.ActivityEntry, 0, MemoryLimit)}
}

// Hydrate replaces the log contents with persisted entries, oldest first,
// clamping to the in-memory cap.
func (l *Log) Hydrate(entries []domain.ActivityEntry) {
	if len(entries) > MemoryLimit {
		entries = entries[len(entries)-MemoryLimit:]
	}
	l.entries = append(l.entries[:0], entries...)
}

// Append records an entry, evicting the oldest ones beyond the memory cap.
func (l *Log) Append(entry domain.ActivityEntry) {
	l.entries = append(l.entries, entry)
	if len(l.entries) > MemoryLimit {
		l.entries = l.entries[len(l.entries)-MemoryLimit:]
	}
}

// Len returns the number of entries held in memory
func (l *Log) Len() int {
	return len(l.entries)
}

// Recent returns the n most recent entries, newest first.
func (l *Log) Recent(n int) []domain.ActivityEntry {
	if n < 0 {
		n = 0
	}
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]domain.ActivityEntry, 0, n)
	for i := len(l.entries) - 1; i >= len(l.entries)-n; i-- {
		out = append(out, l.entries[i])
	}
	return out
}

// All returns every in-memory entry in chronological order, oldest first.
func (l *Log) All() []domain.ActivityEntry {
	out := make([]domain.ActivityEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ForPersistence returns at most the most recent PersistLimit entries in
// chronological order, ready to be written by the store.
func (l *Log) ForPersistence() []domain.ActivityEntry {
	entries := l.entries
	if len(entries) > PersistLimit {
		entries = entries[len(entries)-PersistLimit:]
	}
	out := make([]domain.ActivityEntry, len(entries))
	copy(out, entries)
	return out
}
