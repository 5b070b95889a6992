package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("key not found")

// Store defines the interface for the key-value persistence collaborator.
// Values are serialized text; the session service owns the serialization
// format and treats this as an opaque durable map. This allows for mocking
// in tests and switching between backends (Redis for hosted deployments, a
// local JSON file for the single-machine case).
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set writes value under key, overwriting any previous value.
	Set(ctx context.Context, key string, value string) error
}
