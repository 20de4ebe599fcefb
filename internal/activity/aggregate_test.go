package activity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polywatch/polywatch/internal/domain"
)

func rawTrade(hash string, ts int64, slug, outcome, side string, usdc, size, price float64) domain.RawTrade {
	return domain.RawTrade{
		TransactionHash: hash,
		Timestamp:       ts,
		Title:           "Will it rain tomorrow?",
		EventSlug:       "will-it-rain-tomorrow",
		Slug:            slug,
		Outcome:         outcome,
		Side:            side,
		UsdcSize:        usdc,
		Size:            size,
		Price:           price,
	}
}

func TestAggregateSingleRecord(t *testing.T) {
	records := []domain.RawTrade{
		rawTrade("0xabc", 1700000000, "rain-market", "Yes", "BUY", 7.5, 15.0, 0.51234),
	}

	got := Aggregate(records)
	require.Len(t, got, 1)

	act := got[0]
	assert.Equal(t, []string{"0xabc"}, act.TransactionHashes)
	assert.Equal(t, int64(1700000000), act.Timestamp)
	assert.Equal(t, "Will it rain tomorrow?", act.EventTitle)
	assert.Equal(t, "https://polymarket.com/event/will-it-rain-tomorrow", act.EventLink)
	assert.Equal(t, "rain-market", act.MarketSlug)
	assert.Equal(t, "Yes", act.OutcomePurchased)
	assert.Equal(t, "BUY", act.Side)
	assert.Equal(t, 7.5, act.TotalPriceUsd)
	assert.Equal(t, 15.0, act.NumTokens)
	// A single fill keeps its own price, rounded to 4 decimals.
	assert.Equal(t, 0.5123, act.AvgPricePerToken)
	assert.Equal(t, 1, act.ActivityCount)
	require.Len(t, act.Orders, 1)
	assert.Equal(t, 0.51234, act.Orders[0].TokenPrice)
	assert.Equal(t, 15.0, act.Orders[0].NumTokens)
	assert.Equal(t, 7.5, act.Orders[0].PriceUsdt)
}

func TestAggregateMergesIdenticalIdentityAcrossHashes(t *testing.T) {
	records := []domain.RawTrade{
		rawTrade("0xA", 1700000000, "rain-market", "Yes", "BUY", 7.5, 15.0, 0.5),
		rawTrade("0xB", 1700000000, "rain-market", "Yes", "BUY", 7.5, 15.0, 0.5),
	}

	got := Aggregate(records)
	require.Len(t, got, 1)

	act := got[0]
	assert.Equal(t, []string{"0xA", "0xB"}, act.TransactionHashes)
	assert.Equal(t, 15.0, act.TotalPriceUsd)
	assert.Equal(t, 30.0, act.NumTokens)
	assert.Equal(t, 0.5, act.AvgPricePerToken)
	assert.Equal(t, 2, act.ActivityCount)
	assert.Len(t, act.Orders, 2)
}

func TestAggregateDoesNotMergeOnAnyIdentityDifference(t *testing.T) {
	base := rawTrade("0xA", 1700000000, "rain-market", "Yes", "BUY", 7.5, 15.0, 0.5)

	cases := map[string]domain.RawTrade{
		"timestamp": rawTrade("0xB", 1700000001, "rain-market", "Yes", "BUY", 7.5, 15.0, 0.5),
		"market":    rawTrade("0xB", 1700000000, "snow-market", "Yes", "BUY", 7.5, 15.0, 0.5),
		"outcome":   rawTrade("0xB", 1700000000, "rain-market", "No", "BUY", 7.5, 15.0, 0.5),
		"side":      rawTrade("0xB", 1700000000, "rain-market", "Yes", "SELL", 7.5, 15.0, 0.5),
	}

	for name, other := range cases {
		t.Run(name, func(t *testing.T) {
			got := Aggregate([]domain.RawTrade{base, other})
			assert.Len(t, got, 2)
		})
	}
}

func TestAggregateSameHashDifferentOutcomes(t *testing.T) {
	// One on-chain transaction buying both outcomes yields one Activity per
	// outcome, both carrying the same hash.
	records := []domain.RawTrade{
		rawTrade("0xdead", 1700000000, "rain-market", "Yes", "BUY", 5.0, 10.0, 0.5),
		rawTrade("0xdead", 1700000000, "rain-market", "No", "BUY", 5.0, 10.0, 0.5),
	}

	got := Aggregate(records)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"0xdead"}, got[0].TransactionHashes)
	assert.Equal(t, []string{"0xdead"}, got[1].TransactionHashes)
	outcomes := []string{got[0].OutcomePurchased, got[1].OutcomePurchased}
	assert.ElementsMatch(t, []string{"Yes", "No"}, outcomes)
}

func TestAggregateMissingHashFallback(t *testing.T) {
	records := []domain.RawTrade{
		rawTrade("", 1700000000, "rain-market", "Yes", "BUY", 5.0, 10.0, 0.5),
		rawTrade("", 1700000000, "rain-market", "Yes", "BUY", 5.0, 10.0, 0.5),
	}

	got := Aggregate(records)
	require.Len(t, got, 1)
	// Both fills collapse onto the same synthetic hash.
	assert.Equal(t, []string{"unknown_1700000000"}, got[0].TransactionHashes)
	assert.Equal(t, 2, got[0].ActivityCount)
}

func TestAggregateSortsNewestFirstWithZeroLast(t *testing.T) {
	records := []domain.RawTrade{
		rawTrade("0xA", 0, "no-time-market", "Yes", "BUY", 1.0, 2.0, 0.5),
		rawTrade("0xB", 1700000100, "mid-market", "Yes", "BUY", 1.0, 2.0, 0.5),
		rawTrade("0xC", 1700000200, "new-market", "Yes", "BUY", 1.0, 2.0, 0.5),
		rawTrade("0xD", 1700000100, "mid-market-2", "Yes", "BUY", 1.0, 2.0, 0.5),
	}

	got := Aggregate(records)
	require.Len(t, got, 4)

	assert.Equal(t, "new-market", got[0].MarketSlug)
	// Equal timestamps keep their encounter order.
	assert.Equal(t, "mid-market", got[1].MarketSlug)
	assert.Equal(t, "mid-market-2", got[2].MarketSlug)
	// Missing timestamps sort last and render as N/A.
	assert.Equal(t, "no-time-market", got[3].MarketSlug)
	assert.Equal(t, int64(0), got[3].Timestamp)
	assert.Equal(t, "N/A", got[3].DateString())
}

func TestAggregateDefaultsForMissingFields(t *testing.T) {
	records := []domain.RawTrade{
		{
			TransactionHash: "0xabc",
			Timestamp:       1700000000,
			Slug:            "bare-market",
			UsdcSize:        1.0,
			Size:            2.0,
			Price:           0.5,
		},
	}

	got := Aggregate(records)
	require.Len(t, got, 1)

	act := got[0]
	assert.Equal(t, "Unknown Event", act.EventTitle)
	assert.Equal(t, "N/A", act.EventLink)
	assert.Equal(t, "Unknown", act.OutcomePurchased)
	assert.Equal(t, "N/A", act.Side)
}

func TestAggregateRounding(t *testing.T) {
	records := []domain.RawTrade{
		rawTrade("0xA", 1700000000, "rain-market", "Yes", "BUY", 1.114, 1.5, 0.742),
		rawTrade("0xB", 1700000000, "rain-market", "Yes", "BUY", 1.114, 1.5, 0.743),
	}

	got := Aggregate(records)
	require.Len(t, got, 1)

	act := got[0]
	// Totals round half away from zero to 2 decimals.
	assert.Equal(t, 2.23, act.TotalPriceUsd)
	assert.Equal(t, 3.0, act.NumTokens)
	// Average derives from the rounded totals, to 4 decimals.
	assert.Equal(t, 0.7433, act.AvgPricePerToken)
}

func TestAggregateZeroTokensAverage(t *testing.T) {
	records := []domain.RawTrade{
		rawTrade("0xA", 1700000000, "rain-market", "Yes", "BUY", 0, 0, 0.5),
		rawTrade("0xB", 1700000000, "rain-market", "Yes", "BUY", 0, 0, 0.5),
	}

	got := Aggregate(records)
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].AvgPricePerToken)
}

func TestAggregateEmptyInput(t *testing.T) {
	assert.Empty(t, Aggregate(nil))
	assert.Empty(t, Aggregate([]domain.RawTrade{}))
}
