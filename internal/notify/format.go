package notify

import (
	"fmt"
	"sort"
	"strings"

	"github.com/polywatch/polywatch/internal/domain"
)

// FormatActivity renders an Activity as a Telegram message using the HTML
// subset Telegram supports (bold and anchor tags). It is a pure function and
// never fails for a well-formed Activity.
func FormatActivity(a domain.Activity) string {
	link := "🔗 N/A"
	if a.EventLink != "" && a.EventLink != "N/A" {
		link = fmt.Sprintf(`🔗 <a href="%s">View on Polymarket</a>`, a.EventLink)
	}

	lines := []string{
		fmt.Sprintf("🎯 <b>%s</b>", a.EventTitle),
		"",
		fmt.Sprintf("📅 <b>Date:</b> %s", a.DateString()),
		fmt.Sprintf("💰 <b>Total (USD):</b> $%.2f", a.TotalPriceUsd),
		fmt.Sprintf("🪙 <b>Tokens:</b> %.2f", a.NumTokens),
		priceSection(a),
		fmt.Sprintf("🏷️ <b>Outcome:</b> %s", a.OutcomePurchased),
		fmt.Sprintf("⬆️ <b>Side:</b> %s", a.Side),
		fmt.Sprintf("🔢 <b>Trades in group:</b> %d", a.ActivityCount),
		"",
		link,
	}

	return strings.Join(lines, "\n")
}

// priceSection renders the average-price line, extended with a per-price-level
// breakdown when the underlying fills span more than one distinct price.
func priceSection(a domain.Activity) string {
	avgLine := fmt.Sprintf("📊 <b>Avg Price:</b> $%.4f", a.AvgPricePerToken)

	levels := make(map[float64]float64)
	for _, o := range a.Orders {
		levels[o.TokenPrice] += o.NumTokens
	}
	if len(levels) <= 1 {
		return avgLine
	}

	prices := make([]float64, 0, len(levels))
	for p := range levels {
		prices = append(prices, p)
	}
	sort.Float64s(prices)

	parts := make([]string, 0, len(prices))
	for _, p := range prices {
		parts = append(parts, fmt.Sprintf("$%.4f × %.2ft", p, levels[p]))
	}

	return avgLine + "\n   ↳ " + strings.Join(parts, " · ")
}
