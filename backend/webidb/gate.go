package webidb

// ReadyState tracks how far a backend instance has come in hydrating its
// settings file from the object database. The gate only ever moves forward:
// a hydrated instance never becomes un-hydrated again, and StateFailed is
// terminal.
type ReadyState int

const (
	// StateUnready is the construction state; no check has been issued yet.
	StateUnready ReadyState = iota
	// StateChecking means the existence check is in flight.
	StateChecking
	// StateLoading means a stored blob exists and is being fetched.
	StateLoading
	// StateReady means the local file mirrors the stored blob (or nothing
	// was stored) and the embedded engine is enabled.
	StateReady
	// StateFailed means an async operation reported an error. A failed
	// instance never recovers; the only way out is a new instance.
	StateFailed
)

func (s ReadyState) String() string {
	switch s {
	case StateUnready:
		return "unready"
	case StateChecking:
		return "checking"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// advance moves the gate forward and reports whether the transition took.
// Backward transitions are ignored, as is anything once StateFailed holds.
func (s *ReadyState) advance(next ReadyState) bool {
	if *s == StateFailed || next <= *s {
		return false
	}
	*s = next
	return true
}
