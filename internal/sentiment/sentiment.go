// Package sentiment fetches the market fear/greed index. Failures are
// non-fatal; callers fall back to neutral defaults.
package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const defaultEndpoint = "https://api.alternative.me/fng/?limit=1"

// Reading is one fear/greed observation
type Reading struct {
	Value     float64   `json:"value"` // 0 (extreme fear) to 100 (extreme greed)
	Label     string    `json:"label"` // "Extreme Fear" .. "Extreme Greed"
	FetchedAt time.Time `json:"fetched_at"`
}

// fearGreedResponse mirrors the alternative.me payload
type fearGreedResponse struct {
	Data []struct {
		Value               string `json:"value"`
		ValueClassification string `json:"value_classification"`
	} `json:"data"`
}

// Client fetches and caches the fear/greed index. The cache avoids
// hammering the upstream on every analysis call.
type Client struct {
	endpoint   string
	httpClient *http.Client
	cacheTTL   time.Duration

	mu     sync.RWMutex
	cached *Reading
}

// NewClient builds a sentiment client. endpoint may be empty to use the
// public alternative.me API.
func NewClient(endpoint string, cacheTTL time.Duration) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if cacheTTL <= 0 {
		cacheTTL = 15 * time.Minute
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cacheTTL:   cacheTTL,
	}
}

// FearGreed returns the current index reading, served from cache within
// the TTL
func (c *Client) FearGreed(ctx context.Context) (*Reading, error) {
	c.mu.RLock()
	if c.cached != nil && time.Since(c.cached.FetchedAt) < c.cacheTTL {
		r := *c.cached
		c.mu.RUnlock()
		return &r, nil
	}
	c.mu.RUnlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fear/greed fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fear/greed fetch: status %d", resp.StatusCode)
	}

	var payload fearGreedResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("fear/greed decode: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("fear/greed fetch: empty payload")
	}

	value, err := strconv.ParseFloat(payload.Data[0].Value, 64)
	if err != nil {
		return nil, fmt.Errorf("fear/greed value %q: %w", payload.Data[0].Value, err)
	}

	reading := &Reading{
		Value:     value,
		Label:     payload.Data[0].ValueClassification,
		FetchedAt: time.Now(),
	}

	c.mu.Lock()
	c.cached = reading
	c.mu.Unlock()

	r := *reading
	return &r, nil
}
