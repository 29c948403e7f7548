package market

import "time"

// Candle represents one OHLCV bar
type Candle struct {
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

// TimeframeDuration returns the bar duration for a timeframe string
// ("5m", "1h", "4h", "1d", "1w"). Unknown timeframes default to one hour.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w":
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// BarsPerYear returns the approximate number of bars in a calendar year for
// the given timeframe. Used to annualize per-bar volatility.
func BarsPerYear(timeframe string) float64 {
	d := TimeframeDuration(timeframe)
	return float64(365*24*time.Hour) / float64(d)
}
