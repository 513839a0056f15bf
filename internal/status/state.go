package status

import (
	"errors"
	"fmt"
)

// State is the phase of a run.
type State string

const (
	StateUnknown    State = "unknown"
	StateGenerating State = "generating"
	StateSearching  State = "searching"
	StateAnalyzing  State = "analyzing"
	StateDone       State = "done"
	StateError      State = "error"
	StateStopped    State = "stopped"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions only moves forward. Terminal states have no way out.
var validTransitions = map[State][]State{
	StateGenerating: {StateSearching, StateError, StateStopped},
	StateSearching:  {StateAnalyzing, StateError, StateStopped},
	StateAnalyzing:  {StateDone, StateError, StateStopped},
}

// IsTransitionAllowed checks whether moving from -> to is permitted.
func IsTransitionAllowed(from, to State) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError || s == StateStopped
}

func transitionError(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
