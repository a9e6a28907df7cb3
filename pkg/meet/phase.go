package meet

// Phase represents the session controller state
type Phase int

const (
	PhaseIdle            Phase = 0 // No session requested
	PhaseAwaitingLibrary Phase = 1 // Request made, waiting for the library to become constructible
	PhaseConnecting      Phase = 2 // Handle constructed, waiting for join confirmation
	PhaseActive          Phase = 3 // Join confirmed
	PhaseError           Phase = 4 // Attempt failed; transient, folds back to Idle
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingLibrary:
		return "awaiting_library"
	case PhaseConnecting:
		return "connecting"
	case PhaseActive:
		return "active"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Snapshot is the observable state tuple reported to the presentation shell.
type Snapshot struct {
	Phase       Phase
	IsLoading   bool
	Room        string
	DisplayName string
}
