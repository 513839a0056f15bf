package status

import (
	"sync"

	"go.uber.org/zap"
)

// Board keeps the latest tracker of every subject.
type Board struct {
	mu     sync.RWMutex
	runs   map[string]*Tracker
	logger *zap.Logger
}

// NewBoard creates an empty board.
func NewBoard(logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		runs:   make(map[string]*Tracker),
		logger: logger.Named("status"),
	}
}

// Begin installs a fresh tracker for subjectID, replacing any previous one.
func (b *Board) Begin(subjectID, runID string) *Tracker {
	t := NewTracker(subjectID, runID, b.logger)

	b.mu.Lock()
	b.runs[subjectID] = t
	b.mu.Unlock()

	return t
}

// Tracker returns the live tracker of subjectID.
func (b *Board) Tracker(subjectID string) (*Tracker, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.runs[subjectID]
	return t, ok
}

// Get returns a snapshot of subjectID's latest run.
func (b *Board) Get(subjectID string) (RunStatus, bool) {
	t, ok := b.Tracker(subjectID)
	if !ok {
		return Unknown(subjectID), false
	}
	return t.Snapshot(), true
}

// Clear forgets a finished run. Active runs are kept and false is returned.
func (b *Board) Clear(subjectID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.runs[subjectID]
	if !ok {
		return true
	}
	if !t.State().Terminal() {
		return false
	}
	delete(b.runs, subjectID)
	return true
}
