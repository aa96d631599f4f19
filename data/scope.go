package data

// Scope selects whether settings apply to the current user only or to every
// user of the sandbox. System-scoped entries act as a shared fallback layer;
// writes always target the most specific user-scoped prefix.
type Scope int

const (
	ScopeUser Scope = iota
	ScopeSystem
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeSystem:
		return "system"
	default:
		return "unknown"
	}
}

// ParseScope converts a scope name ("user" or "system") into a Scope.
// Unknown names fall back to ScopeUser.
func ParseScope(name string) Scope {
	if name == "system" {
		return ScopeSystem
	}
	return ScopeUser
}
