package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Collections known to pulsecheck.
const (
	Users  = "users"
	Tokens = "tokens"
	Checks = "checks"
)

// Collections lists every collection a backend must be able to hold.
var Collections = []string{Users, Tokens, Checks}

var (
	// ErrNotFound is returned when no record exists at (collection, key).
	ErrNotFound = errors.New("record not found")

	// ErrExists is returned by Create when a record already exists.
	ErrExists = errors.New("record already exists")

	// ErrUnknownCollection is returned for a collection outside [Collections].
	ErrUnknownCollection = errors.New("unknown collection")
)

// Store is a durable map of JSON documents addressed by (collection, key).
//
// Implementations must be safe for concurrent access. Each call touches a
// single record; there are no multi-record transactions, so callers that
// write several records accept partial failure.
type Store interface {
	// Create writes v at (collection, key). Returns ErrExists if a record is
	// already present.
	Create(ctx context.Context, collection, key string, v any) error

	// Read decodes the record at (collection, key) into v. Returns
	// ErrNotFound if absent, or a decode error if the body is malformed.
	Read(ctx context.Context, collection, key string, v any) error

	// ReadRaw returns the undecoded record body.
	ReadRaw(ctx context.Context, collection, key string) ([]byte, error)

	// Update replaces the record at (collection, key). Returns ErrNotFound if absent.
	Update(ctx context.Context, collection, key string, v any) error

	// Delete removes the record at (collection, key). Returns ErrNotFound if absent.
	Delete(ctx context.Context, collection, key string) error

	// List returns every key in the collection, sorted.
	List(ctx context.Context, collection string) ([]string, error)

	// Close releases the backend.
	Close() error
}

func encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return data, nil
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	return nil
}

func checkCollection(collection string) error {
	for _, c := range Collections {
		if c == collection {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownCollection, collection)
}
