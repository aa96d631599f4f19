package data

// Format identifies the storage backend a settings instance persists through.
//
// FormatNative resolves to the sandbox's preferred primitive at open time
// (the synchronous web store, when one is configured). FormatIni always uses
// the conventional file-based engine over the sandbox filesystem; it is also
// the fallback when the sandbox denies persistent storage. The custom slots
// mirror the file-based formats applications may register on top of the
// conventional engine.
type Format int

const (
	FormatInvalid Format = iota
	FormatNative
	FormatIni
	FormatWebStore
	FormatWebIDB

	FormatCustom1
	FormatCustom2
	FormatCustom3
	FormatCustom4
	FormatCustom5
	FormatCustom6
	FormatCustom7
	FormatCustom8
	FormatCustom9
	FormatCustom10
	FormatCustom11
	FormatCustom12
	FormatCustom13
	FormatCustom14
	FormatCustom15
	FormatCustom16
)

func (f Format) String() string {
	switch f {
	case FormatNative:
		return "native"
	case FormatIni:
		return "ini"
	case FormatWebStore:
		return "webstore"
	case FormatWebIDB:
		return "webidb"
	case FormatInvalid:
		return "invalid"
	default:
		if f >= FormatCustom1 && f <= FormatCustom16 {
			return "custom"
		}
		return "unknown"
	}
}

// IsCustom reports whether f is one of the application-registered file-based
// format slots handled by the conventional engine.
func (f Format) IsCustom() bool {
	return f >= FormatCustom1 && f <= FormatCustom16
}
