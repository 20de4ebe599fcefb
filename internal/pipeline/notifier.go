// Package pipeline drives the activity notification flow: fetch raw trades,
// aggregate, decide which activities are new, announce each exactly once, and
// enforce retention.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/polywatch/polywatch/internal/domain"
	"github.com/polywatch/polywatch/internal/notify"
)

// activityChannel is the signal-bus channel new activities are published on.
const activityChannel = "activities"

// ActivityFetcher yields aggregated activities for one address, bounded by a
// fetch limit and an inclusive lookback cutoff in unix milliseconds.
type ActivityFetcher interface {
	FetchActivities(ctx context.Context, address string, limit int, fromTimeMillis int64) ([]domain.Activity, error)
}

// Dispatcher delivers one formatted message to all configured channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, text string) error
}

// Config holds the tunables of the notification pipeline.
type Config struct {
	FetchLimit        int
	Lookback          time.Duration // 0 disables the lookback filter
	ActivityRetention time.Duration
	LedgerRetention   time.Duration
}

// ActivityNotifier runs the per-address notify pipeline. Dedup follows the
// all-or-nothing transaction-hash ledger policy: an activity is announced only
// when none of its contributing hashes have been seen before, and a partially
// seen activity is skipped entirely rather than re-announced.
type ActivityNotifier struct {
	cfg        Config
	fetcher    ActivityFetcher
	store      domain.ActivityStore
	ledger     domain.TransactionLedger
	addresses  domain.AddressProvider
	dispatcher Dispatcher
	archiver   domain.Archiver  // optional
	bus        domain.SignalBus // optional
	logger     *slog.Logger
	now        func() time.Time
}

// NewActivityNotifier creates an ActivityNotifier. archiver and bus may be nil
// to disable cold-storage archival and event streaming respectively.
func NewActivityNotifier(
	cfg Config,
	fetcher ActivityFetcher,
	store domain.ActivityStore,
	ledger domain.TransactionLedger,
	addresses domain.AddressProvider,
	dispatcher Dispatcher,
	archiver domain.Archiver,
	bus domain.SignalBus,
	logger *slog.Logger,
) *ActivityNotifier {
	return &ActivityNotifier{
		cfg:        cfg,
		fetcher:    fetcher,
		store:      store,
		ledger:     ledger,
		addresses:  addresses,
		dispatcher: dispatcher,
		archiver:   archiver,
		bus:        bus,
		logger:     logger.With(slog.String("component", "pipeline")),
		now:        time.Now,
	}
}

// NotifyNewActivities runs the pipeline for every tracked address. With zero
// tracked addresses nothing happens at all: no fetch, no dispatch, no cleanup.
// A failure for one address is logged and does not stop the others.
func (n *ActivityNotifier) NotifyNewActivities(ctx context.Context) error {
	addrs, err := n.addresses.Addresses(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: resolve addresses: %w", err)
	}
	if len(addrs) == 0 {
		n.logger.InfoContext(ctx, "no tracked addresses, skipping run")
		return nil
	}

	runID := uuid.NewString()
	logger := n.logger.With(slog.String("run_id", runID))

	var failures []string
	for _, addr := range addrs {
		if err := n.notifyForAddress(ctx, logger, addr, n.cfg.FetchLimit); err != nil {
			logger.ErrorContext(ctx, "address iteration failed",
				slog.String("address", addr),
				slog.String("error", err.Error()),
			)
			failures = append(failures, addr)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("pipeline: %d of %d addresses failed: %s",
			len(failures), len(addrs), strings.Join(failures, ", "))
	}
	return nil
}

// NotifyAddress runs the pipeline for a single address, as used by the manual
// trigger endpoint. limit <= 0 falls back to the configured fetch limit.
func (n *ActivityNotifier) NotifyAddress(ctx context.Context, address string, limit int) error {
	if limit <= 0 {
		limit = n.cfg.FetchLimit
	}
	logger := n.logger.With(slog.String("run_id", uuid.NewString()))
	return n.notifyForAddress(ctx, logger, address, limit)
}

func (n *ActivityNotifier) notifyForAddress(ctx context.Context, logger *slog.Logger, address string, limit int) error {
	var fromMillis int64
	if n.cfg.Lookback > 0 {
		fromMillis = n.now().Add(-n.cfg.Lookback).UnixMilli()
	}

	activities, err := n.fetcher.FetchActivities(ctx, address, limit, fromMillis)
	if err != nil {
		return fmt.Errorf("fetch activities for %s: %w", address, err)
	}

	fresh, err := n.filterNew(ctx, activities)
	if err != nil {
		return fmt.Errorf("dedup check for %s: %w", address, err)
	}

	logger.InfoContext(ctx, "sending notifications",
		slog.String("address", address),
		slog.Int("aggregated", len(activities)),
		slog.Int("new", len(fresh)),
	)

	for _, act := range fresh {
		n.announce(ctx, logger, address, act)
	}

	n.cleanup(ctx, logger, address)
	return nil
}

// announce formats, dispatches, persists, and records one activity. A
// dispatch failure skips persistence and ledger recording so the activity is
// retried on the next poll; a persistence failure still records the hashes so
// the notification is not repeated.
func (n *ActivityNotifier) announce(ctx context.Context, logger *slog.Logger, address string, act domain.Activity) {
	msg := notify.FormatActivity(act)

	if err := n.dispatcher.Dispatch(ctx, msg); err != nil {
		logger.ErrorContext(ctx, "dispatch failed, will retry next poll",
			slog.String("address", address),
			slog.String("market", act.MarketSlug),
			slog.Any("tx_hashes", act.TransactionHashes),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := n.store.Add(ctx, act); err != nil {
		logger.ErrorContext(ctx, "persist failed",
			slog.String("address", address),
			slog.String("market", act.MarketSlug),
			slog.String("error", err.Error()),
		)
	}

	activityTime := time.Unix(act.Timestamp, 0)
	for _, hash := range act.TransactionHashes {
		if err := n.ledger.Add(ctx, hash, activityTime); err != nil {
			logger.ErrorContext(ctx, "ledger record failed",
				slog.String("address", address),
				slog.String("tx_hash", hash),
				slog.String("error", err.Error()),
			)
		}
	}

	n.publish(ctx, logger, address, act)
}

// filterNew returns the activities whose hashes are all unseen, preserving the
// aggregation engine's sort order. Membership checks run concurrently since
// they are independent reads.
func (n *ActivityNotifier) filterNew(ctx context.Context, activities []domain.Activity) ([]domain.Activity, error) {
	if len(activities) == 0 {
		return nil, nil
	}

	seen := make([]bool, len(activities))
	g, gctx := errgroup.WithContext(ctx)
	for i, act := range activities {
		g.Go(func() error {
			for _, hash := range act.TransactionHashes {
				ok, err := n.ledger.Exists(gctx, hash)
				if err != nil {
					return err
				}
				if ok {
					seen[i] = true
					return nil
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fresh := make([]domain.Activity, 0, len(activities))
	for i, act := range activities {
		if !seen[i] {
			fresh = append(fresh, act)
		}
	}
	return fresh, nil
}

// cleanup enforces retention. It runs on every address iteration, also when
// nothing new was found, so stale rows never outlive their window. Cleanup
// failures are logged but never abort the run.
func (n *ActivityNotifier) cleanup(ctx context.Context, logger *slog.Logger, address string) {
	activityCutoff := n.now().Add(-n.cfg.ActivityRetention)

	if n.archiver != nil {
		if _, err := n.archiver.ArchiveActivities(ctx, activityCutoff); err != nil {
			logger.ErrorContext(ctx, "archive before cleanup failed",
				slog.String("address", address),
				slog.String("error", err.Error()),
			)
		}
	}

	if _, err := n.store.DeleteOlderThan(ctx, activityCutoff); err != nil {
		logger.ErrorContext(ctx, "activity retention cleanup failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
	}

	ledgerCutoff := n.now().Add(-n.cfg.LedgerRetention)
	if _, err := n.ledger.DeleteOlderThan(ctx, ledgerCutoff); err != nil {
		logger.ErrorContext(ctx, "ledger retention cleanup failed",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
	}
}

// publish streams the new activity over the signal bus for WebSocket clients.
func (n *ActivityNotifier) publish(ctx context.Context, logger *slog.Logger, address string, act domain.Activity) {
	if n.bus == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"type":     "activity",
		"address":  address,
		"activity": act,
	})
	if err != nil {
		return
	}
	if err := n.bus.Publish(ctx, activityChannel, payload); err != nil {
		logger.WarnContext(ctx, "activity event publish failed",
			slog.String("error", err.Error()),
		)
	}
}
