package store

import (
	"context"
	"errors"
)

// ErrUnavailable marks operations that failed because the backing store
// could not be reached.
var ErrUnavailable = errors.New("store unavailable")

// Store exposes the key-value primitives the chat relay needs: bounded
// lists for message logs, hashes for room metadata, and sets for
// membership. Implementations must make Delete a single atomic multi-key
// removal so room teardown can never be observed half-done.
type Store interface {
	ListPush(ctx context.Context, key string, value []byte) error
	ListTrim(ctx context.Context, key string, start, stop int64) error
	ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error)

	HashSetAll(ctx context.Context, key string, fields map[string]string) error
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	SetAdd(ctx context.Context, key, member string) error
	SetRemove(ctx context.Context, key, member string) error
	SetMembers(ctx context.Context, key string) ([]string, error)
	SetSize(ctx context.Context, key string) (int64, error)

	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// BusMessage is one payload received from a pub/sub subscription.
type BusMessage struct {
	Channel string
	Payload []byte
}

// Bus is the cross-instance fan-out channel, kept separate from Store so
// deployments can swap the backbone without touching persistence.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// PSubscribe subscribes to all channels matching pattern. The returned
	// channel is closed when ctx is cancelled.
	PSubscribe(ctx context.Context, pattern string) (<-chan BusMessage, error)
}
