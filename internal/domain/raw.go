package domain

// RawTrade represents a single trade fill as reported by the Polymarket Data
// API activity feed. Every field is optional in the upstream payload; the zero
// value stands in for a missing field and downstream code must tolerate it.
type RawTrade struct {
	TransactionHash string  `json:"transactionHash"`
	Timestamp       int64   `json:"timestamp"` // unix seconds, 0 when absent
	Title           string  `json:"title"`
	EventSlug       string  `json:"eventSlug"`
	Slug            string  `json:"slug"`
	Outcome         string  `json:"outcome"`
	Side            string  `json:"side"`
	UsdcSize        float64 `json:"usdcSize"`
	Size            float64 `json:"size"`
	Price           float64 `json:"price"`
}
