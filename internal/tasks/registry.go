// Package tasks tracks the runs executing in this process and the stop
// requests addressed to them.
package tasks

import (
	"context"
	"errors"
	"sync"
)

var ErrAlreadyRegistered = errors.New("a task is already registered for this subject")

type entry struct {
	runID  string
	cancel context.CancelFunc
}

// Registry maps subject ids to the cancel handle of their active run.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]entry)}
}

// Register records the active run of subjectID. It fails if another run is
// already registered for the same subject.
func (r *Registry) Register(subjectID, runID string, cancel context.CancelFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[subjectID]; exists {
		return ErrAlreadyRegistered
	}
	r.tasks[subjectID] = entry{runID: runID, cancel: cancel}
	return nil
}

// Cancel cancels the run of subjectID and reports whether one was running.
// Cancelling an unknown or finished subject is a no-op.
func (r *Registry) Cancel(subjectID string) bool {
	r.mu.Lock()
	e, ok := r.tasks[subjectID]
	r.mu.Unlock()

	if !ok {
		return false
	}
	e.cancel()
	return true
}

// Unregister removes subjectID if it is still owned by runID.
func (r *Registry) Unregister(subjectID, runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.tasks[subjectID]; ok && e.runID == runID {
		delete(r.tasks, subjectID)
	}
}

// Active reports whether subjectID has a registered run.
func (r *Registry) Active(subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tasks[subjectID]
	return ok
}

// Len returns the number of registered runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.tasks)
}

// CancelAll cancels every registered run. Used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(r.tasks))
	for _, e := range r.tasks {
		cancels = append(cancels, e.cancel)
	}
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
}
