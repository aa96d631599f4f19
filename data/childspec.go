package data

// ChildSpec selects what an enumeration under a key prefix yields: every
// descendant key, only the direct child keys (no further separator in the
// remainder), or only the direct child groups (the first segment of deeper
// keys).
type ChildSpec int

const (
	AllKeys ChildSpec = iota
	ChildKeys
	ChildGroups
)

func (c ChildSpec) String() string {
	switch c {
	case AllKeys:
		return "all-keys"
	case ChildKeys:
		return "child-keys"
	case ChildGroups:
		return "child-groups"
	default:
		return "unknown"
	}
}
