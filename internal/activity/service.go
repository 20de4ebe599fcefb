package activity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/polywatch/polywatch/internal/domain"
)

// Service fetches raw trade records from the upstream feed, applies the
// lookback filter, and aggregates the remainder.
type Service struct {
	feed   domain.ActivityFeed
	logger *slog.Logger
}

// NewService creates a Service backed by the given feed client.
func NewService(feed domain.ActivityFeed, logger *slog.Logger) *Service {
	return &Service{
		feed:   feed,
		logger: logger.With(slog.String("component", "activity")),
	}
}

// FetchActivities fetches up to limit raw records for the address and returns
// them aggregated. When fromTimeMillis is positive, records strictly older
// than it are dropped; a record whose timestamp*1000 equals fromTimeMillis is
// kept (the boundary is inclusive).
func (s *Service) FetchActivities(ctx context.Context, address string, limit int, fromTimeMillis int64) ([]domain.Activity, error) {
	records, err := s.feed.GetActivities(ctx, address, limit)
	if err != nil {
		return nil, fmt.Errorf("activity: fetch %s: %w", address, err)
	}

	if fromTimeMillis > 0 {
		kept := records[:0:0]
		for _, r := range records {
			if r.Timestamp*1000 >= fromTimeMillis {
				kept = append(kept, r)
			}
		}
		s.logger.DebugContext(ctx, "lookback filter applied",
			slog.String("address", address),
			slog.Int("fetched", len(records)),
			slog.Int("kept", len(kept)),
		)
		records = kept
	}

	return Aggregate(records), nil
}
