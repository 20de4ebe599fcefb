package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polywatch/polywatch/internal/domain"
)

// ---------------------------------------------------------------------------
// fakes
// ---------------------------------------------------------------------------

type fakeFetcher struct {
	mu         sync.Mutex
	byAddress  map[string][]domain.Activity
	err        map[string]error
	fetchCalls int
	gotLimit   int
	gotFrom    int64
}

func (f *fakeFetcher) FetchActivities(ctx context.Context, address string, limit int, fromTimeMillis int64) ([]domain.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	f.gotLimit = limit
	f.gotFrom = fromTimeMillis
	if err := f.err[address]; err != nil {
		return nil, err
	}
	return f.byAddress[address], nil
}

type fakeStore struct {
	mu          sync.Mutex
	added       []domain.Activity
	addErr      error
	deleteCalls int
}

func (s *fakeStore) Add(ctx context.Context, a domain.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addErr != nil {
		return s.addErr
	}
	s.added = append(s.added, a)
	return nil
}

func (s *fakeStore) ListRecent(ctx context.Context, limit int) ([]domain.Activity, error) {
	return nil, nil
}

func (s *fakeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Activity, error) {
	return nil, nil
}

func (s *fakeStore) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteCalls++
	return 0, nil
}

type fakeLedger struct {
	mu          sync.Mutex
	seen        map[string]bool
	deleteCalls int
}

func newFakeLedger(hashes ...string) *fakeLedger {
	l := &fakeLedger{seen: map[string]bool{}}
	for _, h := range hashes {
		l.seen[h] = true
	}
	return l
}

func (l *fakeLedger) Add(ctx context.Context, hash string, activityTime time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[hash] = true
	return nil
}

func (l *fakeLedger) Exists(ctx context.Context, hash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[hash], nil
}

func (l *fakeLedger) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deleteCalls++
	return 0, nil
}

type fakeAddresses struct {
	addrs []string
}

func (p *fakeAddresses) Addresses(ctx context.Context) ([]string, error) {
	return p.addrs, nil
}

type fakeDispatcher struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (d *fakeDispatcher) Dispatch(ctx context.Context, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.messages = append(d.messages, text)
	return nil
}

type fakeArchiver struct {
	mu    sync.Mutex
	calls int
}

func (a *fakeArchiver) ArchiveActivities(ctx context.Context, before time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return 0, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func testActivity(hash string, ts int64, slug string) domain.Activity {
	return domain.Activity{
		TransactionHashes: []string{hash},
		Timestamp:         ts,
		EventTitle:        "Test Event",
		EventLink:         "https://polymarket.com/event/test-event",
		MarketSlug:        slug,
		OutcomePurchased:  "Yes",
		Side:              "BUY",
		TotalPriceUsd:     10.0,
		NumTokens:         20.0,
		AvgPricePerToken:  0.5,
		ActivityCount:     1,
		Orders:            []domain.Order{{TokenPrice: 0.5, NumTokens: 20.0, PriceUsdt: 10.0}},
	}
}

type testEnv struct {
	notifier   *ActivityNotifier
	fetcher    *fakeFetcher
	store      *fakeStore
	ledger     *fakeLedger
	dispatcher *fakeDispatcher
	archiver   *fakeArchiver
}

func newTestEnv(addrs []string, byAddress map[string][]domain.Activity) *testEnv {
	env := &testEnv{
		fetcher:    &fakeFetcher{byAddress: byAddress, err: map[string]error{}},
		store:      &fakeStore{},
		ledger:     newFakeLedger(),
		dispatcher: &fakeDispatcher{},
		archiver:   &fakeArchiver{},
	}
	env.notifier = NewActivityNotifier(
		Config{
			FetchLimit:        100,
			Lookback:          time.Hour,
			ActivityRetention: 60 * 24 * time.Hour,
			LedgerRetention:   time.Hour,
		},
		env.fetcher,
		env.store,
		env.ledger,
		&fakeAddresses{addrs: addrs},
		env.dispatcher,
		env.archiver,
		nil,
		slog.New(slog.DiscardHandler),
	)
	return env
}

// ---------------------------------------------------------------------------
// tests
// ---------------------------------------------------------------------------

func TestNotifyAllNewActivities(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {
			testActivity("0x1", 1700000200, "market-a"),
			testActivity("0x2", 1700000100, "market-b"),
		},
	})

	err := env.notifier.NotifyNewActivities(context.Background())
	require.NoError(t, err)

	assert.Len(t, env.dispatcher.messages, 2)
	assert.Len(t, env.store.added, 2)
	assert.True(t, env.ledger.seen["0x1"])
	assert.True(t, env.ledger.seen["0x2"])
	assert.Equal(t, 1, env.store.deleteCalls)
	assert.Equal(t, 1, env.ledger.deleteCalls)
	assert.Equal(t, 1, env.archiver.calls)
}

func TestNotifySecondRunIsIdempotent(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {testActivity("0x1", 1700000200, "market-a")},
	})

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))
	require.Len(t, env.dispatcher.messages, 1)

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	// The same activity must not be announced or persisted again, but
	// retention cleanup still runs for the second cycle.
	assert.Len(t, env.dispatcher.messages, 1)
	assert.Len(t, env.store.added, 1)
	assert.Equal(t, 2, env.store.deleteCalls)
	assert.Equal(t, 2, env.ledger.deleteCalls)
}

func TestNotifySkipsPartiallySeenActivity(t *testing.T) {
	merged := domain.Activity{
		TransactionHashes: []string{"0xseen", "0xnew"},
		Timestamp:         1700000200,
		MarketSlug:        "market-a",
		OutcomePurchased:  "Yes",
		Side:              "BUY",
		ActivityCount:     2,
	}
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {merged},
	})
	env.ledger.seen["0xseen"] = true

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	// Any previously seen hash suppresses the whole activity.
	assert.Empty(t, env.dispatcher.messages)
	assert.Empty(t, env.store.added)
	assert.False(t, env.ledger.seen["0xnew"])
}

func TestNotifyDispatchFailureSkipsPersistAndLedger(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {testActivity("0x1", 1700000200, "market-a")},
	})
	env.dispatcher.err = errors.New("telegram down")

	// A dispatch failure is retried on the next poll, not escalated.
	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	assert.Empty(t, env.store.added)
	assert.False(t, env.ledger.seen["0x1"])
	assert.Equal(t, 1, env.store.deleteCalls)

	// Once dispatch recovers, the activity goes out.
	env.dispatcher.err = nil
	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))
	assert.Len(t, env.dispatcher.messages, 1)
	assert.Len(t, env.store.added, 1)
	assert.True(t, env.ledger.seen["0x1"])
}

func TestNotifyPersistFailureStillRecordsHashes(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {testActivity("0x1", 1700000200, "market-a")},
	})
	env.store.addErr = errors.New("db down")

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	// The message went out, so the hash is recorded to avoid a duplicate
	// announcement on the next poll.
	assert.Len(t, env.dispatcher.messages, 1)
	assert.True(t, env.ledger.seen["0x1"])
}

func TestNotifyNoTrackedAddresses(t *testing.T) {
	env := newTestEnv(nil, nil)

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	assert.Zero(t, env.fetcher.fetchCalls)
	assert.Empty(t, env.dispatcher.messages)
	assert.Zero(t, env.store.deleteCalls)
	assert.Zero(t, env.ledger.deleteCalls)
}

func TestNotifyAddressFailureIsIsolated(t *testing.T) {
	env := newTestEnv([]string{"0xbad", "0xgood"}, map[string][]domain.Activity{
		"0xgood": {testActivity("0x1", 1700000200, "market-a")},
	})
	env.fetcher.err["0xbad"] = errors.New("feed timeout")

	err := env.notifier.NotifyNewActivities(context.Background())

	// The failing address is reported, the healthy one still completes.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0xbad")
	assert.Len(t, env.dispatcher.messages, 1)
	assert.Len(t, env.store.added, 1)
}

func TestNotifyEmptyFeedStillCleansUp(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{})

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	assert.Empty(t, env.dispatcher.messages)
	assert.Equal(t, 1, env.store.deleteCalls)
	assert.Equal(t, 1, env.ledger.deleteCalls)
	assert.Equal(t, 1, env.archiver.calls)
}

func TestNotifyAddressUsesConfiguredLimitFallback(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {testActivity("0x1", 1700000200, "market-a")},
	})

	require.NoError(t, env.notifier.NotifyAddress(context.Background(), "0xaaa", 0))
	assert.Equal(t, 100, env.fetcher.gotLimit)

	require.NoError(t, env.notifier.NotifyAddress(context.Background(), "0xaaa", 25))
	assert.Equal(t, 25, env.fetcher.gotLimit)
}

func TestNotifyLookbackCutoffPassedToFetcher(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, nil)
	fixed := time.Date(2023, 11, 15, 12, 0, 0, 0, time.UTC)
	env.notifier.now = func() time.Time { return fixed }

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))

	assert.Equal(t, fixed.Add(-time.Hour).UnixMilli(), env.fetcher.gotFrom)
}

func TestNotifyWithoutArchiver(t *testing.T) {
	env := newTestEnv([]string{"0xaaa"}, map[string][]domain.Activity{
		"0xaaa": {testActivity("0x1", 1700000200, "market-a")},
	})
	env.notifier.archiver = nil

	require.NoError(t, env.notifier.NotifyNewActivities(context.Background()))
	assert.Len(t, env.dispatcher.messages, 1)
	assert.Equal(t, 1, env.store.deleteCalls)
}
