// Package polymarket implements the REST client for the Polymarket Data API,
// which exposes the public per-user trade activity feed.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/polywatch/polywatch/internal/domain"
)

// DataClient is the REST client for the Polymarket Data API.
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GetActivities returns up to limit trade records for the given user address,
// sorted by the provider descending by timestamp. Addresses are lowercased
// because the Data API matches them case-sensitively.
func (d *DataClient) GetActivities(ctx context.Context, address string, limit int) ([]domain.RawTrade, error) {
	params := url.Values{}
	params.Set("user", strings.ToLower(address))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("type", "TRADE")
	params.Set("sortBy", "TIMESTAMP")
	params.Set("sortDirection", "DESC")

	path := "/activity?" + params.Encode()

	body, err := d.doGet(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get activities: %w", err)
	}

	var records []domain.RawTrade
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode activities: %w", err)
	}

	return records, nil
}

// doGet sends an unauthenticated GET request to the Data API.
func (d *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := body
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(snippet))
	}

	return body, nil
}
