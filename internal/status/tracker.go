package status

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LogCapacity is the number of log entries kept per run.
const LogCapacity = 100

// Counter names one of the run counters.
type Counter int

const (
	Found Counter = iota
	New
	Duplicates
	SkippedIrrelevant
	ProviderErrors
	Saved
)

// Counters are the tallies of one run.
type Counters struct {
	Found             int `json:"found"`
	New               int `json:"new"`
	Duplicates        int `json:"duplicates"`
	SkippedIrrelevant int `json:"skipped_irrelevant"`
	ProviderErrors    int `json:"provider_errors"`
	Saved             int `json:"saved"`
}

// LogEntry is one line of the rolling run log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// RunStatus is a point-in-time copy of a run's progress.
type RunStatus struct {
	RunID            string     `json:"run_id,omitempty"`
	SubjectID        string     `json:"subject_id,omitempty"`
	State            State      `json:"state"`
	TotalUnits       int        `json:"total_units"`
	CurrentUnitIndex int        `json:"current_unit_index"`
	CurrentLabel     string     `json:"current_label,omitempty"`
	Counters         Counters   `json:"counters"`
	Log              []LogEntry `json:"log"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ErrorMessage     string     `json:"error_message,omitempty"`
}

// Unknown is returned to pollers asking about a subject with no run.
func Unknown(subjectID string) RunStatus {
	return RunStatus{SubjectID: subjectID, State: StateUnknown, Log: []LogEntry{}}
}

// ringLog is a fixed-size FIFO; appends past capacity overwrite the oldest entry.
type ringLog struct {
	entries [LogCapacity]LogEntry
	start   int
	size    int
}

func (r *ringLog) append(e LogEntry) {
	idx := (r.start + r.size) % LogCapacity
	r.entries[idx] = e
	if r.size < LogCapacity {
		r.size++
		return
	}
	r.start = (r.start + 1) % LogCapacity
}

func (r *ringLog) items() []LogEntry {
	out := make([]LogEntry, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.entries[(r.start+i)%LogCapacity]
	}
	return out
}

// Tracker holds the live status of one run. The run writes to it, any number
// of pollers read snapshots concurrently.
type Tracker struct {
	mu     sync.RWMutex
	status RunStatus
	log    ringLog
	now    func() time.Time
	logger *zap.Logger
}

// NewTracker creates a tracker in the generating state.
func NewTracker(subjectID, runID string, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		now:    time.Now,
		logger: logger.With(zap.String("subject_id", subjectID), zap.String("run_id", runID)),
	}
	t.status = RunStatus{
		RunID:     runID,
		SubjectID: subjectID,
		State:     StateGenerating,
		StartedAt: t.now(),
	}
	return t
}

// Transition moves the run to another state. Backward or repeated transitions
// are rejected.
func (t *Tracker) Transition(to State) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.transitionLocked(to)
}

func (t *Tracker) transitionLocked(to State) error {
	from := t.status.State
	if !IsTransitionAllowed(from, to) {
		return transitionError(from, to)
	}
	t.status.State = to
	if to.Terminal() {
		finished := t.now()
		t.status.FinishedAt = &finished
	}
	t.logger.Debug("run state changed", zap.String("from", string(from)), zap.String("to", string(to)))
	return nil
}

// Fail moves the run to the error state and records msg.
func (t *Tracker) Fail(msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.transitionLocked(StateError); err != nil {
		return err
	}
	t.status.ErrorMessage = msg
	t.appendLocked("Error: " + msg)
	return nil
}

// SetTotal sets the number of units of the current phase and resets progress.
func (t *Tracker) SetTotal(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.TotalUnits = n
	t.status.CurrentUnitIndex = 0
	t.status.CurrentLabel = ""
}

// SetProgress records the unit currently being worked on.
func (t *Tracker) SetProgress(index int, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status.CurrentUnitIndex = index
	t.status.CurrentLabel = label
}

// Add increments a counter by n.
func (t *Tracker) Add(c Counter, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch c {
	case Found:
		t.status.Counters.Found += n
	case New:
		t.status.Counters.New += n
	case Duplicates:
		t.status.Counters.Duplicates += n
	case SkippedIrrelevant:
		t.status.Counters.SkippedIrrelevant += n
	case ProviderErrors:
		t.status.Counters.ProviderErrors += n
	case Saved:
		t.status.Counters.Saved += n
	}
}

// Logf appends a line to the rolling log.
func (t *Tracker) Logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.appendLocked(msg)
}

func (t *Tracker) appendLocked(msg string) {
	t.log.append(LogEntry{Timestamp: t.now(), Message: msg})
	t.logger.Debug(msg)
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.status.State
}

// Snapshot returns a consistent copy of the status, log included.
func (t *Tracker) Snapshot() RunStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snap := t.status
	snap.Log = t.log.items()
	if t.status.FinishedAt != nil {
		finished := *t.status.FinishedAt
		snap.FinishedAt = &finished
	}
	return snap
}
