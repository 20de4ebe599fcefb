package domain

import (
	"context"
	"time"
)

// ActivityFeed fetches raw trade records for a user address from the upstream
// activity feed. Records arrive sorted by time descending, but callers must
// not rely on that ordering.
type ActivityFeed interface {
	GetActivities(ctx context.Context, address string, limit int) ([]RawTrade, error)
}

// ActivityStore persists aggregated activities for history display and
// retention cleanup.
type ActivityStore interface {
	Add(ctx context.Context, activity Activity) error
	ListRecent(ctx context.Context, limit int) ([]Activity, error)
	// ListBefore returns all activities with a representative timestamp
	// strictly before the cutoff, oldest first (for archival).
	ListBefore(ctx context.Context, before time.Time) ([]Activity, error)
	// DeleteOlderThan removes activities with a representative timestamp
	// strictly before the cutoff and returns the number deleted.
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// TransactionLedger records transaction hashes that have already been
// announced. It is the sole cross-invocation dedup coordination point.
type TransactionLedger interface {
	// Add marks a hash as seen, associated with the activity's timestamp so
	// that retention can range-delete old entries.
	Add(ctx context.Context, hash string, activityTime time.Time) error
	Exists(ctx context.Context, hash string) (bool, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// AddressProvider yields the set of tracked user addresses for one pipeline
// run. Implementations may read a static config list or a persisted registry.
type AddressProvider interface {
	Addresses(ctx context.Context) ([]string, error)
}

// AddressStore is the persisted tracked-address registry.
type AddressStore interface {
	Add(ctx context.Context, address string) error
	Remove(ctx context.Context, address string) error
	List(ctx context.Context) ([]string, error)
}

// SignalBus is a lightweight pub/sub fabric used to stream pipeline events to
// the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Archiver copies expiring activity rows to cold storage before retention
// deletes them.
type Archiver interface {
	ArchiveActivities(ctx context.Context, before time.Time) (int64, error)
}
