// Package liveness tracks which settings instances are still alive so that
// late asynchronous completions can be dropped instead of touching a closed
// instance.
//
// A completion never captures the instance it belongs to. It captures the
// opaque token issued at registration and resolves it through the registry
// when it finally runs; if the instance was closed in the meantime the
// lookup misses and the completion falls through silently. Tokens are
// random identifiers rather than addresses, so a recycled allocation can
// never impersonate a closed instance.
package liveness

import (
	"sync"

	"github.com/google/uuid"
)

// Token identifies a registered instance. The zero value matches nothing.
type Token string

type Registry[T any] struct {
	mu      sync.Mutex
	entries map[Token]T
}

func NewRegistry[T any]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[Token]T),
	}
}

// Register adds an instance and returns its token.
func (r *Registry[T]) Register(instance T) Token {
	token := Token(uuid.NewString())

	r.mu.Lock()
	r.entries[token] = instance
	r.mu.Unlock()

	return token
}

// Lookup resolves a token. The second return is false when the token was
// never issued or has been deregistered.
func (r *Registry[T]) Lookup(token Token) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	instance, ok := r.entries[token]
	return instance, ok
}

// Deregister removes a token. Removing an unknown token is a no-op.
func (r *Registry[T]) Deregister(token Token) {
	r.mu.Lock()
	delete(r.entries, token)
	r.mu.Unlock()
}

// Len returns the number of live registrations.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
