package lifecycle

import "errors"

// State is a phase of the session state machine.
type State int

const (
	StateInit      State = iota // Dataset and config bound, no timers
	StateCountdown              // Fixed lead-in, non-interactive
	StateActive                 // Timers running, interactions accepted
	StatePaused                 // Timers frozen, interactions refused
	StateEnded                  // Terminal
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateCountdown:
		return "countdown"
	case StateActive:
		return "active"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	}
	return "unknown"
}

// EndReason is why a session ended.
type EndReason string

const (
	EndTimeUp      EndReason = "time_up"
	EndGoalReached EndReason = "goal_reached"
	EndExhausted   EndReason = "exhausted"
	EndQuit        EndReason = "quit"
)

// Completed reports whether the learner played the session to a natural end.
func (r EndReason) Completed() bool {
	return r != EndQuit && r != ""
}

var (
	// ErrNotReady is returned by Begin when the sink has no started session.
	ErrNotReady = errors.New("session sink not ready")
	// ErrInvalidTransition is returned for a transition the current state does not allow.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrNotActive is returned for interactions outside the active state.
	ErrNotActive = errors.New("session not active")
	// ErrItemNotLive is returned when an action targets an item not in play.
	ErrItemNotLive = errors.New("item not in play")
	// ErrEmptyDataset is returned when a session is built without items.
	ErrEmptyDataset = errors.New("dataset has no items")
)
