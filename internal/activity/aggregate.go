// Package activity implements the aggregation engine that turns raw trade
// fills from the Polymarket activity feed into deduplicated, semantically
// meaningful Activity summaries.
package activity

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/polywatch/polywatch/internal/domain"
)

const (
	defaultEventTitle = "Unknown Event"
	defaultOutcome    = "Unknown"
	noValue           = "N/A"
	eventLinkBase     = "https://polymarket.com/event/"
)

// aggregationKey is the economic identity of a trade. Two raw fills belong to
// the same Activity exactly when all four fields match. Structural equality
// makes it usable as a map key directly.
type aggregationKey struct {
	timestamp  int64
	marketSlug string
	outcome    string
	side       string
}

// Aggregate groups raw trade records by their composite economic identity and
// folds each group into one Activity. One on-chain transaction split across
// outcomes produces one Activity per outcome; one logical trade split across
// several transactions at the same timestamp merges into a single Activity
// carrying every contributing hash.
//
// The result is sorted by representative timestamp descending. A missing
// timestamp is treated as 0 and sorts after every real timestamp; ties keep
// their encounter order. The input need not be sorted.
func Aggregate(records []domain.RawTrade) []domain.Activity {
	groups := make(map[aggregationKey][]domain.RawTrade)
	var encounter []aggregationKey

	for _, r := range records {
		k := aggregationKey{
			timestamp:  r.Timestamp,
			marketSlug: r.Slug,
			outcome:    outcomeOrDefault(r.Outcome),
			side:       sideOrDefault(r.Side),
		}
		if _, ok := groups[k]; !ok {
			encounter = append(encounter, k)
		}
		groups[k] = append(groups[k], r)
	}

	activities := make([]domain.Activity, 0, len(encounter))
	for _, k := range encounter {
		activities = append(activities, buildActivity(k, groups[k]))
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].Timestamp > activities[j].Timestamp
	})

	return activities
}

// buildActivity folds one group of raw fills into an immutable Activity.
// Descriptive fields come from the first encountered record; numeric fields
// are derived from the whole group.
func buildActivity(k aggregationKey, records []domain.RawTrade) domain.Activity {
	first := records[0]

	hashes := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	orders := make([]domain.Order, 0, len(records))

	totalUsd := decimal.Zero
	totalTokens := decimal.Zero

	for _, r := range records {
		h := r.TransactionHash
		if h == "" {
			// Synthetic fallback so hash-less fills still participate in
			// ledger dedup.
			h = fmt.Sprintf("unknown_%d", r.Timestamp)
		}
		if !seen[h] {
			seen[h] = true
			hashes = append(hashes, h)
		}

		orders = append(orders, domain.Order{
			TokenPrice: r.Price,
			NumTokens:  r.Size,
			PriceUsdt:  r.UsdcSize,
		})

		totalUsd = totalUsd.Add(decimal.NewFromFloat(r.UsdcSize))
		totalTokens = totalTokens.Add(decimal.NewFromFloat(r.Size))
	}

	totalPriceUsd := totalUsd.Round(2)
	numTokens := totalTokens.Round(2)

	var avg decimal.Decimal
	switch {
	case len(records) == 1:
		// A single fill keeps its own price; recomputing the ratio would
		// reintroduce float noise.
		avg = decimal.NewFromFloat(first.Price).Round(4)
	case numTokens.IsZero():
		avg = decimal.Zero
	default:
		avg = totalPriceUsd.Div(numTokens).Round(4)
	}

	title := first.Title
	if title == "" {
		title = defaultEventTitle
	}
	link := noValue
	if first.EventSlug != "" {
		link = eventLinkBase + first.EventSlug
	}

	return domain.Activity{
		TransactionHashes: hashes,
		Timestamp:         k.timestamp,
		EventTitle:        title,
		EventLink:         link,
		MarketSlug:        k.marketSlug,
		OutcomePurchased:  k.outcome,
		Side:              k.side,
		TotalPriceUsd:     totalPriceUsd.InexactFloat64(),
		NumTokens:         numTokens.InexactFloat64(),
		AvgPricePerToken:  avg.InexactFloat64(),
		ActivityCount:     len(records),
		Orders:            orders,
	}
}

func outcomeOrDefault(outcome string) string {
	if outcome == "" {
		return defaultOutcome
	}
	return outcome
}

func sideOrDefault(side string) string {
	if side == "" {
		return noValue
	}
	return side
}
