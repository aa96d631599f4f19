package data

import "errors"

// Standard errors shared across the settings packages.
var (
	// Construction errors
	ErrEmptyOrganization = errors.New("prefs: organization name is empty")
	ErrInvalidFormat     = errors.New("prefs: invalid settings format")
	ErrNoKeyValueStore   = errors.New("prefs: sandbox has no key-value store configured")
	ErrNoObjectDatabase  = errors.New("prefs: sandbox has no object database configured")
)
