package pulsecheck

import (
	"context"
	"time"
)

// State represents the health state of a check.
//
// State is a string type so that it serializes directly into check records
// and log lines.
type State string

const (
	// StateUp indicates the last probe received an accepted status code.
	StateUp State = "up"

	// StateDown indicates the last probe failed, timed out or received a
	// status code outside the check's success codes. New checks start down.
	StateDown State = "down"
)

// String returns the string representation of the state.
// This implements the fmt.Stringer interface.
func (s State) String() string {
	return string(s)
}

// Result holds the outcome of processing one probe.
//
// Result is a snapshot; the callback receiving it may keep it.
type Result struct {
	// CheckID is the id of the probed check.
	CheckID string

	// Phone is the owner of the check.
	Phone string

	// URL is the target that was probed, including the scheme.
	URL string

	// Previous is the state stored before this probe.
	Previous State

	// State is the state derived from this probe.
	State State

	// StatusCode is the HTTP status received. Zero if no response arrived.
	StatusCode int

	// Reason is "timeout" or the transport error text when no response arrived.
	Reason string

	// Latency is the time until the outcome was recorded.
	Latency time.Duration

	// CheckedAt is when the result was persisted.
	CheckedAt time.Time

	// Persisted is false when the store rejected the update.
	Persisted bool

	// Alerted is true when an alert for this transition was accepted by the
	// notifier.
	Alerted bool
}

// Notifier delivers alert messages to a phone number.
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// RecordStore persists JSON records addressed by collection and key.
//
// Collections used are "users", "tokens" and "checks". Implementations must
// be safe for concurrent use. The config package provides memory, bbolt and
// SQLite backends.
type RecordStore interface {
	Create(ctx context.Context, collection, key string, v any) error
	Read(ctx context.Context, collection, key string, v any) error
	ReadRaw(ctx context.Context, collection, key string) ([]byte, error)
	Update(ctx context.Context, collection, key string, v any) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) ([]string, error)
	Close() error
}
