package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/polywatch/polywatch/internal/domain"
)

// ActivityStore persists aggregated activities in PostgreSQL.
type ActivityStore struct {
	client *Client
}

// NewActivityStore creates an ActivityStore backed by the given client.
func NewActivityStore(client *Client) *ActivityStore {
	return &ActivityStore{client: client}
}

const activityColumns = `
	id, transaction_hashes, activity_timestamp, event_title, event_link,
	market_slug, outcome_purchased, side, total_price_usd, num_tokens,
	avg_price_per_token, activity_count, orders`

// Add inserts one aggregated activity.
func (s *ActivityStore) Add(ctx context.Context, activity domain.Activity) error {
	orders, err := json.Marshal(activity.Orders)
	if err != nil {
		return fmt.Errorf("postgres: marshal orders: %w", err)
	}

	query := `
		INSERT INTO polymarket_activities (
			transaction_hashes, activity_timestamp, event_title, event_link,
			market_slug, outcome_purchased, side, total_price_usd, num_tokens,
			avg_price_per_token, activity_count, orders
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = s.client.pool.Exec(ctx, query,
		activity.TransactionHashes,
		time.Unix(activity.Timestamp, 0).UTC(),
		activity.EventTitle,
		activity.EventLink,
		activity.MarketSlug,
		activity.OutcomePurchased,
		activity.Side,
		activity.TotalPriceUsd,
		activity.NumTokens,
		activity.AvgPricePerToken,
		activity.ActivityCount,
		orders,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert activity: %w", err)
	}
	return nil
}

// ListRecent returns the most recent activities, newest first.
func (s *ActivityStore) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM polymarket_activities
		ORDER BY activity_timestamp DESC, id DESC
		LIMIT $1`

	rows, err := s.client.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent activities: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// ListBefore returns all activities timestamped strictly before the cutoff,
// oldest first.
func (s *ActivityStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Activity, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM polymarket_activities
		WHERE activity_timestamp < $1
		ORDER BY activity_timestamp ASC, id ASC`

	rows, err := s.client.pool.Query(ctx, query, before.UTC())
	if err != nil {
		return nil, fmt.Errorf("postgres: list activities before cutoff: %w", err)
	}
	defer rows.Close()

	return scanActivities(rows)
}

// DeleteOlderThan removes activities timestamped strictly before the cutoff
// and returns the number of rows deleted.
func (s *ActivityStore) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.client.pool.Exec(ctx,
		"DELETE FROM polymarket_activities WHERE activity_timestamp < $1",
		before.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete old activities: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanActivities(rows pgx.Rows) ([]domain.Activity, error) {
	var activities []domain.Activity
	for rows.Next() {
		var (
			act       domain.Activity
			ts        time.Time
			ordersRaw []byte
		)
		err := rows.Scan(
			&act.ID,
			&act.TransactionHashes,
			&ts,
			&act.EventTitle,
			&act.EventLink,
			&act.MarketSlug,
			&act.OutcomePurchased,
			&act.Side,
			&act.TotalPriceUsd,
			&act.NumTokens,
			&act.AvgPricePerToken,
			&act.ActivityCount,
			&ordersRaw,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan activity row: %w", err)
		}
		act.Timestamp = ts.Unix()
		if len(ordersRaw) > 0 {
			if err := json.Unmarshal(ordersRaw, &act.Orders); err != nil {
				return nil, fmt.Errorf("postgres: unmarshal orders: %w", err)
			}
		}
		activities = append(activities, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate activity rows: %w", err)
	}
	return activities, nil
}
