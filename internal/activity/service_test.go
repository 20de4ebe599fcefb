package activity

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polywatch/polywatch/internal/domain"
)

type stubFeed struct {
	records []domain.RawTrade
	err     error

	gotAddress string
	gotLimit   int
}

func (f *stubFeed) GetActivities(ctx context.Context, address string, limit int) ([]domain.RawTrade, error) {
	f.gotAddress = address
	f.gotLimit = limit
	return f.records, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFetchActivitiesLookbackBoundary(t *testing.T) {
	feed := &stubFeed{records: []domain.RawTrade{
		rawTrade("0xOLD", 999, "old-market", "Yes", "BUY", 1.0, 2.0, 0.5),
		rawTrade("0xEDGE", 1000, "edge-market", "Yes", "BUY", 1.0, 2.0, 0.5),
		rawTrade("0xNEW", 1001, "new-market", "Yes", "BUY", 1.0, 2.0, 0.5),
	}}
	svc := NewService(feed, discardLogger())

	// Cutoff sits exactly on the middle record: timestamp*1000 == 1000000.
	got, err := svc.FetchActivities(context.Background(), "0xAddr", 50, 1000000)
	require.NoError(t, err)
	require.Len(t, got, 2)

	slugs := []string{got[0].MarketSlug, got[1].MarketSlug}
	assert.ElementsMatch(t, []string{"edge-market", "new-market"}, slugs)
	assert.Equal(t, "0xAddr", feed.gotAddress)
	assert.Equal(t, 50, feed.gotLimit)
}

func TestFetchActivitiesLookbackDisabled(t *testing.T) {
	feed := &stubFeed{records: []domain.RawTrade{
		rawTrade("0xOLD", 1, "old-market", "Yes", "BUY", 1.0, 2.0, 0.5),
		rawTrade("0xNEW", 1700000000, "new-market", "Yes", "BUY", 1.0, 2.0, 0.5),
	}}
	svc := NewService(feed, discardLogger())

	got, err := svc.FetchActivities(context.Background(), "0xAddr", 100, 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFetchActivitiesFeedError(t *testing.T) {
	feedErr := errors.New("upstream down")
	svc := NewService(&stubFeed{err: feedErr}, discardLogger())

	_, err := svc.FetchActivities(context.Background(), "0xAddr", 100, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, feedErr)
}
