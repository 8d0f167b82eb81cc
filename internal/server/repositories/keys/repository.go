// Package keys holds the storage backends for identity signing keys.
//
// A backend stores opaque private key records under a derived name. Writes
// are exclusive: a record, once stored, is never replaced, and a partially
// written record is never visible to readers.
package keys

import "context"

// Repository is a byte-addressable, create-only key store.
type Repository interface {
	// Get returns the stored record or common.ErrorNotFound.
	Get(ctx context.Context, name string) ([]byte, error)
	// Exists reports whether a record is stored under name.
	Exists(ctx context.Context, name string) (bool, error)
	// CreateIfAbsent stores data under name unless a record already exists.
	// It reports false, nil when another writer got there first.
	CreateIfAbsent(ctx context.Context, name string, data []byte) (bool, error)
}
