package generation

// State is the UI-facing lifecycle of one generation session.
type State string

const (
	StateIdle         State = "idle"
	StateSelectingKey State = "selecting_key"
	StateLoading      State = "loading"
	StatePolling      State = "polling"
	StateSuccess      State = "success"
	StateError        State = "error"
)

// CanSubmit reports whether a new generation may start from this state. Only
// idle accepts a submission; the UI keeps the trigger disabled everywhere else.
func (s State) CanSubmit() bool {
	return s == StateIdle
}

// Terminal reports whether the state ends a generation run.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateError, StateSelectingKey:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is a legal step of the
// state machine: idle → loading → polling → {success|error}, with
// selecting_key reachable from any state on a key failure and reset returning
// a terminal state to idle (or selecting_key when the key was revoked).
func (s State) CanTransition(next State) bool {
	if next == StateSelectingKey {
		return true
	}
	switch s {
	case StateIdle:
		return next == StateLoading
	case StateLoading:
		return next == StatePolling || next == StateSuccess || next == StateError
	case StatePolling:
		return next == StateSuccess || next == StateError
	case StateSuccess, StateError:
		return next == StateIdle
	case StateSelectingKey:
		return next == StateIdle
	}
	return false
}
