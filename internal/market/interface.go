package market

import "context"

// Source defines candle retrieval for one exchange or cache layer
type Source interface {
	// FetchCandles returns chronological OHLCV bars for the symbol and
	// timeframe covering the last lookbackDays days. It returns ErrNoData
	// when the symbol yields no bars and a *ConnectivityError when the
	// source is unreachable.
	FetchCandles(ctx context.Context, symbol, timeframe string, lookbackDays int) ([]Candle, error)
}

// Ensure both Client and MockSource implement Source
var _ Source = (*Client)(nil)
var _ Source = (*MockSource)(nil)
