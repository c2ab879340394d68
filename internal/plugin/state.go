package plugin

// State represents the lifecycle state of a registered plugin.
type State int

// Plugin states.
const (
	// StateRegistered - Descriptor accepted, setup not run yet.
	StateRegistered State = iota

	// StateInitializing - Setup is running.
	StateInitializing

	// StateReady - Setup completed.
	StateReady

	// StateDestroying - Teardown is running.
	StateDestroying

	// StateDestroyed - Torn down. The name may be registered again.
	StateDestroyed

	// StateFailed - Setup failed or a dependency never became ready. The name
	// may be registered again.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateDestroying:
		return "destroying"
	case StateDestroyed:
		return "destroyed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsLive reports whether the state holds the plugin's name.
func (s State) IsLive() bool {
	return s != StateDestroyed && s != StateFailed
}

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateRegistered:
		return next == StateInitializing || next == StateFailed || next == StateDestroyed
	case StateInitializing:
		return next == StateReady || next == StateFailed
	case StateReady:
		return next == StateDestroying
	case StateDestroying:
		return next == StateDestroyed
	case StateFailed:
		return next == StateDestroyed
	default:
		return false
	}
}
