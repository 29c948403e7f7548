package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestTimeframeDuration(t *testing.T) {
	tests := []struct {
		timeframe string
		want      time.Duration
	}{
		{"1m", time.Minute},
		{"5m", 5 * time.Minute},
		{"15m", 15 * time.Minute},
		{"30m", 30 * time.Minute},
		{"1h", time.Hour},
		{"4h", 4 * time.Hour},
		{"1d", 24 * time.Hour},
		{"1w", 7 * 24 * time.Hour},
		{"bogus", time.Hour},
	}
	for _, tt := range tests {
		if got := TimeframeDuration(tt.timeframe); got != tt.want {
			t.Errorf("TimeframeDuration(%q) = %v, want %v", tt.timeframe, got, tt.want)
		}
	}
}

func TestBarsPerYear(t *testing.T) {
	if got := BarsPerYear("1d"); got != 365 {
		t.Errorf("BarsPerYear(1d) = %f, want 365", got)
	}
	if got := BarsPerYear("1h"); got != 365*24 {
		t.Errorf("BarsPerYear(1h) = %f, want %d", got, 365*24)
	}
}

func TestMockSourceDeterministic(t *testing.T) {
	a, err := NewMockSource(7).FetchCandles(context.Background(), "BTCUSDT", "1h", 30)
	if err != nil {
		t.Fatalf("FetchCandles failed: %v", err)
	}
	b, err := NewMockSource(7).FetchCandles(context.Background(), "BTCUSDT", "1h", 30)
	if err != nil {
		t.Fatalf("FetchCandles failed: %v", err)
	}
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Close != b[i].Close || a[i].High != b[i].High || a[i].Low != b[i].Low {
			t.Fatalf("candle %d differs across identical seeds", i)
		}
	}
}

func TestMockSourceBarShape(t *testing.T) {
	candles, err := NewMockSource(1).FetchCandles(context.Background(), "ETHUSDT", "1h", 30)
	if err != nil {
		t.Fatalf("FetchCandles failed: %v", err)
	}
	if want := 30 * 24; len(candles) != want {
		t.Errorf("len = %d, want %d", len(candles), want)
	}
	for i, c := range candles {
		if c.High < c.Open || c.High < c.Close {
			t.Fatalf("candle %d high %f below open/close", i, c.High)
		}
		if c.Low > c.Open || c.Low > c.Close {
			t.Fatalf("candle %d low %f above open/close", i, c.Low)
		}
		if !c.CloseTime.After(c.OpenTime) {
			t.Fatalf("candle %d close time not after open time", i)
		}
		if i > 0 && !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			t.Fatalf("candle %d out of chronological order", i)
		}
	}
}

func TestMockSourceConcurrentFetch(t *testing.T) {
	src := NewMockSource(9)
	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			candles, err := src.FetchCandles(context.Background(), "BTCUSDT", "1h", 30)
			if err != nil {
				errs <- err
				return
			}
			if want := 30 * 24; len(candles) != want {
				errs <- fmt.Errorf("len = %d, want %d", len(candles), want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent FetchCandles: %v", err)
	}
}

func TestMockSourceUnknownSymbol(t *testing.T) {
	_, err := NewMockSource(1).FetchCandles(context.Background(), "DOGEFOO", "1h", 30)
	if !errors.Is(err, ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}
