package tasks

import (
	"context"
	"sync"
)

// StopFlags is an in-process set of subjects that were asked to stop.
type StopFlags struct {
	mu    sync.RWMutex
	flags map[string]struct{}
}

// NewStopFlags creates an empty flag set.
func NewStopFlags() *StopFlags {
	return &StopFlags{flags: make(map[string]struct{})}
}

func (s *StopFlags) RequestStop(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flags[subjectID] = struct{}{}
	return nil
}

func (s *StopFlags) Clear(_ context.Context, subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.flags, subjectID)
	return nil
}

func (s *StopFlags) IsStopRequested(_ context.Context, subjectID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.flags[subjectID]
	return ok
}
