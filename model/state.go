package model

// State is the closed set of lifecycle states a process can occupy. Every
// transition is validated against the state machine below; there is no way
// to leave a terminal state.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// validTransitions enumerates the full state machine. Queued processes were
// never allocated, so they may be cancelled or failed directly.
var validTransitions = map[State][]State{
	StateQueued:  {StateRunning, StateCancelled, StateFailed},
	StateRunning: {StatePaused, StateCompleted, StateCancelled, StateFailed},
	StatePaused:  {StateRunning, StateCancelled, StateFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, candidate := range validTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s is final. Terminal processes are archived and
// never mutated again.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Active reports whether the process still owns, or may re-acquire, an
// allocation.
func (s State) Active() bool {
	return s == StateQueued || s == StateRunning || s == StatePaused
}

// Priority orders queued processes; higher values are promoted first.
type Priority int

const (
	PriorityLow      Priority = 1
	PriorityNormal   Priority = 5
	PriorityHigh     Priority = 10
	PriorityCritical Priority = 15
)
