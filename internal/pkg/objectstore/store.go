package objectstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no object exists at the key.
	ErrNotFound = errors.New("object not found")
	// ErrKeyExists is returned by PutIfAbsent when the key is already taken.
	ErrKeyExists = errors.New("object already exists")
)

// Store is a flat key -> JSON blob object store. Keys carry their own
// namespacing ("receipts/stripe/evt_1.json"); there are no folders, no
// transactions and no secondary indexes.
type Store interface {
	// Get returns the object at key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put writes the object unconditionally (last writer wins).
	Put(ctx context.Context, key string, data []byte) error
	// PutIfAbsent writes the object only when the key does not exist yet and
	// returns ErrKeyExists otherwise. Backs write-once receipts and
	// single-use login tokens.
	PutIfAbsent(ctx context.Context, key string, data []byte) error
	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns all keys under the given prefix, sorted ascending.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes the object at key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error
}
