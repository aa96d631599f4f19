package objectdb

import "errors"

var (
	// ErrNotExist is returned by Load when no blob is stored under the
	// requested path.
	ErrNotExist = errors.New("objectdb: blob does not exist")

	// ErrClosed is returned by operations issued after Close.
	ErrClosed = errors.New("objectdb: database is closed")
)
