package data

// Status is the instance-level health flag of a settings backend. Failures
// are never raised as errors across the settings contract; they are absorbed
// into the owning instance's status, and callers observe them by querying it.
type Status int

const (
	// StatusNoError means the backend can read and write persistent storage.
	StatusNoError Status = iota
	// StatusAccessError means persistent storage cannot be read or written:
	// the organization name was empty, the sandbox denied storage, or an
	// asynchronous database operation failed.
	StatusAccessError
	// StatusFormatError means the persisted document could not be parsed.
	StatusFormatError
)

func (s Status) String() string {
	switch s {
	case StatusNoError:
		return "no error"
	case StatusAccessError:
		return "access error"
	case StatusFormatError:
		return "format error"
	default:
		return "unknown"
	}
}

// OK reports whether the backend is fully usable.
func (s Status) OK() bool {
	return s == StatusNoError
}
