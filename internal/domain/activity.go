package domain

import "time"

// Order is a verbatim per-fill snapshot kept inside an Activity so
// notifications can show a price-level breakdown.
type Order struct {
	TokenPrice float64 `json:"tokenPrice"`
	NumTokens  float64 `json:"numTokens"`
	PriceUsdt  float64 `json:"priceUsdt"`
}

// Activity is an aggregated, deduplicated trade summary produced by the
// aggregation engine. All numeric fields are derived during aggregation; an
// Activity is never mutated after construction.
type Activity struct {
	ID                int64    `json:"id,omitempty"`
	TransactionHashes []string `json:"transactionHashes"`
	// Timestamp is the representative unix-second time of the group. 0 is a
	// valid value meaning "unknown"; it sorts after every real timestamp and
	// renders as "N/A".
	Timestamp        int64   `json:"timestamp"`
	EventTitle       string  `json:"eventTitle"`
	EventLink        string  `json:"eventLink"`
	MarketSlug       string  `json:"marketSlug"`
	OutcomePurchased string  `json:"outcomePurchased"`
	Side             string  `json:"side"`
	TotalPriceUsd    float64 `json:"totalPriceUsd"`
	NumTokens        float64 `json:"numTokens"`
	AvgPricePerToken float64 `json:"avgPricePerToken"`
	ActivityCount    int     `json:"activityCount"`
	Orders           []Order `json:"orders"`
}

// DateString renders the representative timestamp for display. A zero
// timestamp renders as the literal "N/A".
func (a Activity) DateString() string {
	if a.Timestamp == 0 {
		return "N/A"
	}
	return time.Unix(a.Timestamp, 0).UTC().Format("2006-01-02 15:04:05 MST")
}
