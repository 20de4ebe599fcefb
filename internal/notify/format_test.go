package notify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/polywatch/polywatch/internal/domain"
)

func sampleActivity() domain.Activity {
	return domain.Activity{
		TransactionHashes: []string{"0xabc"},
		Timestamp:         1700000000,
		EventTitle:        "Will it rain tomorrow?",
		EventLink:         "https://polymarket.com/event/will-it-rain-tomorrow",
		MarketSlug:        "rain-market",
		OutcomePurchased:  "Yes",
		Side:              "BUY",
		TotalPriceUsd:     15.0,
		NumTokens:         30.0,
		AvgPricePerToken:  0.5,
		ActivityCount:     2,
		Orders: []domain.Order{
			{TokenPrice: 0.5, NumTokens: 15.0, PriceUsdt: 7.5},
			{TokenPrice: 0.5, NumTokens: 15.0, PriceUsdt: 7.5},
		},
	}
}

func TestFormatActivityLayout(t *testing.T) {
	msg := FormatActivity(sampleActivity())

	want := strings.Join([]string{
		"🎯 <b>Will it rain tomorrow?</b>",
		"",
		"📅 <b>Date:</b> 2023-11-14 22:13:20 UTC",
		"💰 <b>Total (USD):</b> $15.00",
		"🪙 <b>Tokens:</b> 30.00",
		"📊 <b>Avg Price:</b> $0.5000",
		"🏷️ <b>Outcome:</b> Yes",
		"⬆️ <b>Side:</b> BUY",
		"🔢 <b>Trades in group:</b> 2",
		"",
		`🔗 <a href="https://polymarket.com/event/will-it-rain-tomorrow">View on Polymarket</a>`,
	}, "\n")

	assert.Equal(t, want, msg)
}

func TestFormatActivityPriceBreakdown(t *testing.T) {
	act := sampleActivity()
	act.Orders = []domain.Order{
		{TokenPrice: 0.52, NumTokens: 10.0, PriceUsdt: 5.2},
		{TokenPrice: 0.48, NumTokens: 20.0, PriceUsdt: 9.6},
		{TokenPrice: 0.52, NumTokens: 5.0, PriceUsdt: 2.6},
	}

	msg := FormatActivity(act)

	// Distinct price levels get a breakdown line, ascending by price, with
	// tokens summed per level.
	assert.Contains(t, msg, "📊 <b>Avg Price:</b> $0.5000\n   ↳ $0.4800 × 20.00t · $0.5200 × 15.00t")
}

func TestFormatActivitySinglePriceLevelNoBreakdown(t *testing.T) {
	msg := FormatActivity(sampleActivity())
	assert.NotContains(t, msg, "↳")
}

func TestFormatActivityMissingValues(t *testing.T) {
	act := sampleActivity()
	act.Timestamp = 0
	act.EventLink = "N/A"

	msg := FormatActivity(act)
	assert.Contains(t, msg, "📅 <b>Date:</b> N/A")
	assert.Contains(t, msg, "🔗 N/A")
	assert.NotContains(t, msg, "<a href")
}
