package kvstore

import "errors"

var (
	// ErrQuotaExceeded is returned by SetItem when a write would overflow
	// the store's capacity.
	ErrQuotaExceeded = errors.New("kvstore: storage quota exceeded")
)
