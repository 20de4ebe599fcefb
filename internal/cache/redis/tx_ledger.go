package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/polywatch/polywatch/internal/domain"
)

// ledgerKey is the sorted set holding announced transaction hashes, scored by
// the unix time of the activity they belong to.
const ledgerKey = "polywatch:tx_ledger"

// TransactionLedger implements domain.TransactionLedger on a Redis sorted set.
// Scoring members by activity time makes retention a single ZREMRANGEBYSCORE.
type TransactionLedger struct {
	rdb *redis.Client
}

// NewTransactionLedger creates a TransactionLedger backed by the given Client.
func NewTransactionLedger(c *Client) *TransactionLedger {
	return &TransactionLedger{rdb: c.Underlying()}
}

// Add marks a transaction hash as announced. Re-adding an existing hash only
// refreshes its score.
func (l *TransactionLedger) Add(ctx context.Context, hash string, activityTime time.Time) error {
	member := redis.Z{
		Score:  float64(activityTime.Unix()),
		Member: hash,
	}
	if err := l.rdb.ZAdd(ctx, ledgerKey, member).Err(); err != nil {
		return fmt.Errorf("redis: ledger add %s: %w", hash, err)
	}
	return nil
}

// Exists reports whether a transaction hash has been announced before.
func (l *TransactionLedger) Exists(ctx context.Context, hash string) (bool, error) {
	err := l.rdb.ZScore(ctx, ledgerKey, hash).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: ledger lookup %s: %w", hash, err)
	}
	return true, nil
}

// DeleteOlderThan removes hashes whose activity time is strictly before the
// cutoff and returns the number removed.
func (l *TransactionLedger) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	maxScore := fmt.Sprintf("(%d", before.Unix())
	removed, err := l.rdb.ZRemRangeByScore(ctx, ledgerKey, "-inf", maxScore).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: ledger cleanup: %w", err)
	}
	return removed, nil
}

// Compile-time interface check.
var _ domain.TransactionLedger = (*TransactionLedger)(nil)
