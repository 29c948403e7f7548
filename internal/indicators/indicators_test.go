package indicators

import (
	"math"
	"testing"
	"time"

	"signal-analyzer/internal/market"
)

func syntheticCandles(closes []float64) []market.Candle {
	candles := make([]market.Candle, len(closes))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		candles[i] = market.Candle{
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c * 1.01,
			Low:       c * 0.99,
			Close:     c,
			Volume:    1000,
			CloseTime: start.Add(time.Duration(i+1) * time.Hour),
		}
	}
	return candles
}

func risingCloses(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestEnrichEmptySeries(t *testing.T) {
	if _, err := Enrich(nil, "1h"); err != ErrEmptySeries {
		t.Fatalf("expected ErrEmptySeries, got %v", err)
	}
}

func TestEMAWarmupAndSeed(t *testing.T) {
	closes := risingCloses(60, 100, 1)
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	// before the window fills the EMA is undefined
	if !math.IsNaN(bars[EMAFastPeriod-2].EMA20) {
		t.Errorf("EMA20 should be NaN at index %d, got %f", EMAFastPeriod-2, bars[EMAFastPeriod-2].EMA20)
	}

	// the seed is the SMA of the first 20 closes: mean of 100..119 = 109.5
	got := bars[EMAFastPeriod-1].EMA20
	if math.Abs(got-109.5) > 1e-9 {
		t.Errorf("EMA20 seed = %f, want 109.5", got)
	}

	// EMA200 never warms up on 60 bars
	if !math.IsNaN(bars[59].EMA200) {
		t.Errorf("EMA200 should be NaN on a 60-bar series, got %f", bars[59].EMA200)
	}
}

func TestRSISaturatesOnMonotonicRise(t *testing.T) {
	closes := risingCloses(40, 100, 2)
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	// every change is a gain so average loss is zero
	if got := bars[39].RSI; got != 100 {
		t.Errorf("RSI on monotonic rise = %f, want 100", got)
	}
	if !math.IsNaN(bars[RSIPeriod-1].RSI) {
		t.Errorf("RSI should be NaN before warm-up, got %f", bars[RSIPeriod-1].RSI)
	}
}

func TestATRConstantRange(t *testing.T) {
	// flat closes with a fixed 2% high-low spread: TR is constant
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	// high-low = 100*1.01 - 100*0.99 = 2
	if got := bars[39].ATR; math.Abs(got-2) > 1e-9 {
		t.Errorf("ATR = %f, want 2", got)
	}
}

func TestTrendLabel(t *testing.T) {
	// 260 rising bars: EMA50 sits above EMA200 once both are defined
	closes := risingCloses(260, 100, 0.5)
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	last := bars[len(bars)-1]
	if last.Trend != TrendUp {
		t.Errorf("trend on rising series = %s, want %s", last.Trend, TrendUp)
	}

	// before EMA200 warms up the label defaults to down
	if bars[100].Trend != TrendDown {
		t.Errorf("trend before slow EMA warm-up = %s, want %s", bars[100].Trend, TrendDown)
	}
}

func TestMACDSignalDefined(t *testing.T) {
	closes := risingCloses(80, 100, 1)
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	last := bars[len(bars)-1]
	if math.IsNaN(last.MACD) || math.IsNaN(last.MACDSignal) {
		t.Fatalf("MACD/signal should be defined at the end of an 80-bar series: macd=%f signal=%f", last.MACD, last.MACDSignal)
	}
	// on a steady rise the fast EMA tracks price more closely than the slow
	if last.MACD <= 0 {
		t.Errorf("MACD on rising series = %f, want > 0", last.MACD)
	}
}

func TestADXBounds(t *testing.T) {
	closes := risingCloses(120, 100, 1)
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	last := bars[len(bars)-1]
	if math.IsNaN(last.ADX) {
		t.Fatal("ADX should be defined after 120 bars")
	}
	if last.ADX < 0 || last.ADX > 100 {
		t.Errorf("ADX = %f, want within [0, 100]", last.ADX)
	}
	// a persistent one-way move is a strong trend
	if last.ADX < 25 {
		t.Errorf("ADX on monotonic rise = %f, want >= 25", last.ADX)
	}
}

func TestVolIndexRange(t *testing.T) {
	closes := make([]float64, 100)
	for i := range closes {
		closes[i] = 100 + 5*math.Sin(float64(i)/4)
	}
	bars, err := Enrich(syntheticCandles(closes), "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}

	for i, b := range bars {
		if math.IsNaN(b.VolIndex) {
			continue
		}
		if b.VolIndex < 0 || b.VolIndex > 100 {
			t.Fatalf("VolIndex[%d] = %f, want within [0, 100]", i, b.VolIndex)
		}
	}
}

func TestCheckHistory(t *testing.T) {
	tests := []struct {
		name    string
		got     int
		wantErr string
	}{
		{"empty", 0, "empty"},
		{"too short", MinBars - 1, "insufficient"},
		{"exactly enough", MinBars, ""},
		{"plenty", 500, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckHistory("BTCUSDT", "1h", tt.got)
			switch tt.wantErr {
			case "":
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			case "empty":
				if err != ErrEmptySeries {
					t.Errorf("expected ErrEmptySeries, got %v", err)
				}
			case "insufficient":
				if !IsInsufficientHistory(err) {
					t.Errorf("expected insufficient-history error, got %v", err)
				}
			}
		})
	}
}
