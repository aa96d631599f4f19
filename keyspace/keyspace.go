// Package keyspace derives the physical storage prefixes that isolate one
// application's settings from every other tenant of a shared sandbox store.
//
// A stored key is built from a fixed namespace tag, a format version, the
// escaped organization name, optionally the escaped application name and a
// system-scope marker, followed by the logical key:
//
//	qt-v0-{org}-{app}-key
//	qt-v0-{org}-all-apps-key
//	qt-v0-{org}-{app}-sys-tem-key
//	qt-v0-{org}-all-apps-sys-tem-key
//
// The namespace tag keeps settings apart from unrelated keys in the same
// store, and the version tag allows the layout to change later. Organization
// and application names are escaped by doubling every literal separator, so
// the single separator remains an unambiguous field delimiter. The list is
// ordered most-specific first: reads fall back through it, writes only ever
// use the first entry.
package keyspace

import (
	"strings"

	"github.com/mwantia/prefs/data"
)

const (
	// namespaceTag separates settings entries from other keys sharing the
	// store; the version tag allows future changes to the key layout.
	namespaceTag = "qt-v0"

	separator       = "-"
	doubleSeparator = "--"

	allAppsMarker = "all-apps"
	systemMarker  = "sys-tem"
)

// Sandbox filesystem locations consumed by the file-backed engines.
const (
	// UserConfRoot is the per-user configuration directory inside the sandbox.
	UserConfRoot = "/home/web_user/.config"
	// SystemConfRoot is the system-wide configuration directory inside the sandbox.
	SystemConfRoot = "/etc/xdg"
	// TempRoot holds the throwaway files used when persistent storage is denied.
	TempRoot = "/tmp"
)

// Escape doubles every literal separator in a name so it cannot be mistaken
// for a field boundary inside a stored key.
func Escape(name string) string {
	return strings.ReplaceAll(name, separator, doubleSeparator)
}

// BuildPrefixes derives the ordered prefix list for the given coordinates.
// The first entry is the most specific applicable prefix and the only one
// writes go through; the remaining entries are the read fallback chain.
//
// User scope falls back from the application prefix through the all-apps
// prefix into the system-scoped entries. System scope only yields the
// system-scoped entries. An empty application omits the app-specific
// entries. An empty organization returns data.ErrEmptyOrganization, since
// such settings could not be told apart from any other application's.
func BuildPrefixes(scope data.Scope, organization, application string) ([]string, error) {
	if organization == "" {
		return nil, data.ErrEmptyOrganization
	}

	org := Escape(organization)
	app := Escape(application)
	base := namespaceTag + separator + org + separator

	var prefixes []string
	if scope == data.ScopeUser {
		if app != "" {
			prefixes = append(prefixes, base+app+separator)
		}
		prefixes = append(prefixes, base+allAppsMarker+separator)
	}
	if app != "" {
		prefixes = append(prefixes, base+app+separator+systemMarker+separator)
	}
	prefixes = append(prefixes, base+allAppsMarker+separator+systemMarker+separator)

	return prefixes, nil
}

// StripPrefix returns the logical remainder of storedKey after prefix.
// The second return is false when storedKey does not start with prefix.
func StripPrefix(prefix, storedKey string) (string, bool) {
	if !strings.HasPrefix(storedKey, prefix) {
		return "", false
	}
	return storedKey[len(prefix):], true
}

// SplitChild reduces a logical key (already relative to the enumeration
// prefix) to the entry it contributes under the given spec. ChildKeys keeps
// only keys with no further path separator, ChildGroups keeps the first
// segment of deeper keys, AllKeys keeps everything.
func SplitChild(relKey string, spec data.ChildSpec) (string, bool) {
	if spec == data.AllKeys {
		return relKey, true
	}

	slash := strings.IndexByte(relKey, '/')
	if spec == data.ChildKeys {
		if slash >= 0 {
			return "", false
		}
		return relKey, true
	}

	// ChildGroups
	if slash < 0 {
		return "", false
	}
	return relKey[:slash], true
}

// ConfPath returns the deterministic sandbox path of the configuration file
// for the given coordinates. The transactional backend keys its database
// blob by this path, and the conventional engine reads and writes it.
func ConfPath(scope data.Scope, organization, application string) string {
	root := UserConfRoot
	if scope == data.ScopeSystem {
		root = SystemConfRoot
	}

	if application == "" {
		return root + "/" + organization + ".conf"
	}
	return root + "/" + organization + "/" + application + ".conf"
}

// TempConfPath returns the sandbox path used when a web format falls back to
// the conventional engine because persistent storage is unavailable. Files
// under it do not survive the sandbox.
func TempConfPath(organization, application string) string {
	if application == "" {
		return TempRoot + "/" + organization + ".conf"
	}
	return TempRoot + "/" + organization + "/" + application + ".conf"
}
