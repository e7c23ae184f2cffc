// Package store holds the visitor's persistent key/value storage backends.
//
// A Storage is scoped to one browser. It is the server-side stand-in for the
// browser's local storage: string keys, string values, and a Clear that wipes
// everything in scope.
package store

import "context"

// Storage is the get/set/clear capability the reconciler needs.
type Storage interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Clear removes every key in scope, not only the ones this service writes.
	Clear(ctx context.Context) error
}

// BagOpener opens server-side storage for an opaque per-browser bag id.
type BagOpener interface {
	Open(bagID string) Storage
}
