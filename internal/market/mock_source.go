package market

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MockSource provides simulated candle data for development and testing.
// Safe for concurrent use; the walk state is behind a mutex.
type MockSource struct {
	basePrices map[string]float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockSource creates a mock source with deterministic output for a seed
func NewMockSource(seed int64) *MockSource {
	return &MockSource{
		basePrices: map[string]float64{
			"BTCUSDT": 104500.00,
			"ETHUSDT": 3900.00,
			"BNBUSDT": 710.00,
			"SOLUSDT": 220.00,
			"XRPUSDT": 2.35,
			"ADAUSDT": 1.05,
		},
		rng: rand.New(rand.NewSource(seed)),
	}
}

// FetchCandles generates a random-walk series around the symbol's base price
func (m *MockSource) FetchCandles(_ context.Context, symbol, timeframe string, lookbackDays int) ([]Candle, error) {
	base, ok := m.basePrices[symbol]
	if !ok {
		return nil, ErrNoData
	}
	if lookbackDays <= 0 {
		lookbackDays = 30
	}

	step := TimeframeDuration(timeframe)
	count := int(time.Duration(lookbackDays) * 24 * time.Hour / step)
	if count > 3000 {
		count = 3000
	}
	if count < 1 {
		count = 1
	}

	start := time.Now().UTC().Add(-time.Duration(count) * step).Truncate(step)
	price := base

	candles := make([]Candle, count)
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < count; i++ {
		drift := m.rng.NormFloat64() * 0.004 * price
		open := price
		closeP := price + drift
		high := math.Max(open, closeP) * (1 + m.rng.Float64()*0.002)
		low := math.Min(open, closeP) * (1 - m.rng.Float64()*0.002)
		volume := 500 + m.rng.Float64()*1500

		openTime := start.Add(time.Duration(i) * step)
		candles[i] = Candle{
			OpenTime:  openTime,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
			CloseTime: openTime.Add(step),
		}
		price = closeP
	}
	return candles, nil
}
