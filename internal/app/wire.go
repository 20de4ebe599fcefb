package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/polywatch/polywatch/internal/activity"
	s3blob "github.com/polywatch/polywatch/internal/blob/s3"
	"github.com/polywatch/polywatch/internal/cache/redis"
	"github.com/polywatch/polywatch/internal/config"
	"github.com/polywatch/polywatch/internal/domain"
	"github.com/polywatch/polywatch/internal/notify"
	"github.com/polywatch/polywatch/internal/pipeline"
	"github.com/polywatch/polywatch/internal/platform/polymarket"
	"github.com/polywatch/polywatch/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	ActivityStore domain.ActivityStore
	AddressStore  domain.AddressStore
	Ledger        domain.TransactionLedger
	SignalBus     domain.SignalBus
	Archiver      domain.Archiver // nil when S3 archival is disabled

	Notifier *notify.Notifier
	Service  *activity.Service
	Pipeline *pipeline.ActivityNotifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	activityStore := postgres.NewActivityStore(pgClient)
	addressStore := postgres.NewAddressStore(pgClient)
	deps.ActivityStore = activityStore
	deps.AddressStore = addressStore

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Ledger = redis.NewTransactionLedger(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 archive (optional) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.Archiver = s3blob.NewActivityArchiver(s3blob.NewWriter(s3Client), activityStore)
	}

	// --- Notification senders ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatIDs,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, logger)

	// --- Feed + aggregation ---
	feed := polymarket.NewDataClient(cfg.Polymarket.DataHost)
	deps.Service = activity.NewService(feed, logger)

	// --- Address source ---
	var provider domain.AddressProvider
	if strings.ToLower(cfg.Watch.AddressSource) == "registry" {
		provider = addressStore
	} else {
		provider = pipeline.NewStaticAddressProvider(cfg.Watch.Addresses)
	}

	// --- Pipeline ---
	deps.Pipeline = pipeline.NewActivityNotifier(
		pipeline.Config{
			FetchLimit:        cfg.Watch.FetchLimit,
			Lookback:          cfg.Watch.Lookback.Duration,
			ActivityRetention: time.Duration(cfg.Watch.RetentionDays) * 24 * time.Hour,
			LedgerRetention:   cfg.Watch.LedgerRetention.Duration,
		},
		deps.Service,
		activityStore,
		deps.Ledger,
		provider,
		deps.Notifier,
		deps.Archiver,
		deps.SignalBus,
		logger,
	)

	return deps, cleanup, nil
}
