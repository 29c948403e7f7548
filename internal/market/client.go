package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const klinesPerRequest = 1000

// Client fetches OHLCV candles from the Binance public REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new market data client. baseURL defaults to the
// public Binance endpoint when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// FetchCandles pages through the klines endpoint until the requested
// lookback window is covered or the exchange runs out of history.
func (c *Client) FetchCandles(ctx context.Context, symbol, timeframe string, lookbackDays int) ([]Candle, error) {
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	since := time.Now().UTC().Add(-time.Duration(lookbackDays) * 24 * time.Hour)
	sinceMs := since.UnixMilli()
	nowMs := time.Now().UTC().UnixMilli()

	var all []Candle
	for {
		chunk, err := c.fetchPage(ctx, symbol, timeframe, sinceMs)
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		all = append(all, chunk...)
		sinceMs = chunk[len(chunk)-1].OpenTime.UnixMilli() + 1
		if len(chunk) < klinesPerRequest || sinceMs >= nowMs {
			break
		}
	}

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, timeframe)
	}
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, symbol, timeframe string, startMs int64) ([]Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", timeframe)
	params.Set("startTime", strconv.FormatInt(startMs, 10))
	params.Set("limit", strconv.Itoa(klinesPerRequest))

	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("error building klines request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Source: "binance", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ConnectivityError{Source: "binance", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines API error (%d): %s", resp.StatusCode, string(body))
	}

	var rawKlines [][]interface{}
	if err := json.Unmarshal(body, &rawKlines); err != nil {
		return nil, fmt.Errorf("error parsing klines: %w", err)
	}

	candles := make([]Candle, len(rawKlines))
	for i, raw := range rawKlines {
		candles[i] = Candle{
			OpenTime:  time.UnixMilli(int64(raw[0].(float64))).UTC(),
			Open:      parseFloat(raw[1]),
			High:      parseFloat(raw[2]),
			Low:       parseFloat(raw[3]),
			Close:     parseFloat(raw[4]),
			Volume:    parseFloat(raw[5]),
			CloseTime: time.UnixMilli(int64(raw[6].(float64))).UTC(),
		}
	}
	return candles, nil
}

func parseFloat(v interface{}) float64 {
	switch val := v.(type) {
	case string:
		f, _ := strconv.ParseFloat(val, 64)
		return f
	case float64:
		return val
	default:
		return 0
	}
}
