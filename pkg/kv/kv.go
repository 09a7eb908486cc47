package kv

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("key not found")

	// ErrConflict is returned when an Update keeps losing the optimistic
	// race against concurrent writers and runs out of retries.
	ErrConflict = errors.New("update conflict")
)

// UpdateFunc receives the current value of a key (nil when the key does not
// exist) and returns the value to write. Returning an error aborts the
// update and surfaces that error unchanged.
type UpdateFunc func(current []byte) ([]byte, error)

// Store is a flat key-value store with point reads, point writes and a
// single-key atomic read-modify-write primitive. Update re-reads the current
// value at apply time, so concurrent updates to the same key serialize
// instead of clobbering each other.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}
