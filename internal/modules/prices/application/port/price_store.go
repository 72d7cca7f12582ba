package port

import (
	"context"
	"errors"
	"time"

	"gridfeed/internal/modules/prices/domain"
)

var (
	// ErrNotFound marks a cache miss; absence only means "never observed".
	ErrNotFound = errors.New("price entry not found")
	// ErrStoreUnavailable marks a backing store that cannot be reached.
	ErrStoreUnavailable = errors.New("price store unavailable")
)

// PriceStore is the single read/write contract both cache backings satisfy:
// the in-process map that lives and dies with the service, and the Redis
// store that outlives bounded sync runs. Put replaces an entry wholesale
// (last write wins, no merging) and keeps the per-topic date index in step
// with the entries, so ListDays never reports a date without data.
type PriceStore interface {
	Get(ctx context.Context, topic domain.Topic, day string) (domain.Document, error)
	Put(ctx context.Context, doc domain.Document) error
	ListDays(ctx context.Context, topic domain.Topic) ([]string, error)
	EntryCount(ctx context.Context) (int, error)
}

// SyncMarker records when a bounded sync run last completed. Only durable
// stores implement it; the stamp is written once per run, after every message
// observed within that run's budget has been applied.
type SyncMarker interface {
	MarkSynced(ctx context.Context, completedAt time.Time) error
	LastSynced(ctx context.Context) (time.Time, error)
}
