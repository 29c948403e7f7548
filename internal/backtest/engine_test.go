package backtest

import (
	"math"
	"testing"
	"time"

	"signal-analyzer/internal/confirm"
	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/market"
	"signal-analyzer/internal/strategy"
)

func seriesBars(t *testing.T, n int, start, step float64) []indicators.Bar {
	t.Helper()
	candles := make([]market.Candle, n)
	open := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range candles {
		c := start + float64(i)*step
		candles[i] = market.Candle{
			OpenTime:  open.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c * 1.02,
			Low:       c * 0.98,
			Close:     c,
			Volume:    1000,
			CloseTime: open.Add(time.Duration(i+1) * time.Hour),
		}
	}
	bars, err := indicators.Enrich(candles, "1h")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	return bars
}

func defaultConfig() Config {
	return Config{
		StartingCapital: 10000,
		RiskFraction:    0.02,
		CommissionRate:  0.001,
		SpreadPct:       0.05,
	}
}

func TestRunRejectsShortSeries(t *testing.T) {
	bars := seriesBars(t, MinBars-1, 100, 0.5)
	if _, err := Run(bars, strategy.DefaultProfile(), []confirm.Kind{confirm.KindRSI}, defaultConfig()); err == nil {
		t.Fatal("expected error for series shorter than the minimum")
	}
}

func TestRunRejectsNonPositiveCapital(t *testing.T) {
	bars := seriesBars(t, 150, 100, 0.5)
	cfg := defaultConfig()
	cfg.StartingCapital = 0
	if _, err := Run(bars, strategy.DefaultProfile(), []confirm.Kind{confirm.KindRSI}, cfg); err == nil {
		t.Fatal("expected error for zero starting capital")
	}
}

func TestRunNoQualifyingSignals(t *testing.T) {
	// falling closes keep the fast EMA under the mid EMA, so the EMA check
	// never passes
	bars := seriesBars(t, 200, 500, -1)
	res, err := Run(bars, strategy.DefaultProfile(), []confirm.Kind{confirm.KindEMA}, defaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.TotalTrades != 0 {
		t.Errorf("total trades = %d, want 0", res.TotalTrades)
	}
	if len(res.EquityCurve) != 1 {
		t.Fatalf("equity curve length = %d, want 1", len(res.EquityCurve))
	}
	if res.EquityCurve[0].Equity != 10000 {
		t.Errorf("equity point = %f, want starting capital 10000", res.EquityCurve[0].Equity)
	}
	if res.WinRate != 0 || res.TotalReturnPct != 0 || res.MaxDrawdown != 0 {
		t.Errorf("zero-trade metrics not zeroed: %+v", res)
	}
}

func TestRunUptrendInvariants(t *testing.T) {
	bars := seriesBars(t, 400, 100, 0.5)
	cfg := defaultConfig()
	// the aggressive profile enters at the close, so orders fill on the
	// signal bar and the run produces trades to check
	profile, _ := strategy.ProfileByName("aggressive")
	res, err := Run(bars, profile, []confirm.Kind{confirm.KindRSI}, cfg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.TotalTrades == 0 {
		t.Fatal("expected trades on a monotonic uptrend with the momentum check")
	}
	if res.WinningTrades+res.LosingTrades != res.TotalTrades {
		t.Errorf("wins %d + losses %d != total %d", res.WinningTrades, res.LosingTrades, res.TotalTrades)
	}
	if res.WinRate < 0 || res.WinRate > 100 {
		t.Errorf("win rate = %f outside [0, 100]", res.WinRate)
	}
	if res.TotalReturnPct < -100 || res.TotalReturnPct > 1000 {
		t.Errorf("total return = %f outside [-100, 1000]", res.TotalReturnPct)
	}
	if res.FinalCapital < 0 || res.FinalCapital > cfg.StartingCapital*capitalCeilingMult {
		t.Errorf("final capital = %f outside [0, %f]", res.FinalCapital, cfg.StartingCapital*capitalCeilingMult)
	}
	if res.MaxDrawdown < 0 || res.MaxDrawdown > 100 {
		t.Errorf("max drawdown = %f outside [0, 100]", res.MaxDrawdown)
	}
	if len(res.EquityCurve) > maxEquityPoints {
		t.Errorf("equity curve has %d points, cap is %d", len(res.EquityCurve), maxEquityPoints)
	}

	for i, tr := range res.Trades {
		if math.IsNaN(tr.Profit) || math.IsInf(tr.Profit, 0) {
			t.Fatalf("trade %d profit is not finite: %f", i, tr.Profit)
		}
		if tr.CapitalAfter < 0 {
			t.Errorf("trade %d capital after = %f, want >= 0", i, tr.CapitalAfter)
		}
		if tr.ExitReason == "" {
			t.Errorf("trade %d missing exit reason", i)
		}
	}
}

func TestRunSkipsBarsBeforeSlowEMA(t *testing.T) {
	bars := seriesBars(t, 400, 100, 0.5)
	profile, _ := strategy.ProfileByName("aggressive")
	res, err := Run(bars, profile, []confirm.Kind{confirm.KindRSI}, defaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.TotalTrades == 0 {
		t.Fatal("expected trades on a monotonic uptrend")
	}

	// before the slow EMA warms up the trend label carries no information,
	// so no bar in that region may open a trade
	firstLabeled := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(indicators.EMASlowPeriod-1) * time.Hour)
	for i, tr := range res.Trades {
		if tr.EntryTime.Before(firstLabeled) {
			t.Errorf("trade %d entered at %s, before the slow EMA is defined at %s",
				i, tr.EntryTime, firstLabeled)
		}
		if tr.Direction == strategy.DirectionShort {
			t.Errorf("trade %d is a short on a monotonic uptrend", i)
		}
	}
}

func TestRunSkipsUnreachedEntries(t *testing.T) {
	// on a steep ramp the mid EMA trails the close by far more than the
	// bar's range, so EMA-anchored limit orders are never reached and no
	// trades may be recorded
	bars := seriesBars(t, 400, 100, 5)
	profile, _ := strategy.ProfileByName("conservative")
	res, err := Run(bars, profile, []confirm.Kind{confirm.KindRSI}, defaultConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.TotalTrades != 0 {
		t.Errorf("total trades = %d, want 0 when entry levels never trade", res.TotalTrades)
	}
	if len(res.EquityCurve) != 1 {
		t.Errorf("equity curve length = %d, want 1", len(res.EquityCurve))
	}
}

func TestTradingCosts(t *testing.T) {
	cfg := Config{CommissionRate: 0.001, SpreadPct: 0.05}
	// entry notional 1000, exit notional 1100
	got := tradingCosts(100, 110, 10, cfg)
	want := (1000.0+1100.0)*0.001 + (1000.0+1100.0)*0.0005
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("tradingCosts = %f, want %f", got, want)
	}
}

func TestDownsampleKeepsEnds(t *testing.T) {
	curve := make([]EquityPoint, 500)
	for i := range curve {
		curve[i] = EquityPoint{Equity: float64(i)}
	}
	out := downsample(curve, maxEquityPoints)
	if len(out) != maxEquityPoints {
		t.Fatalf("len = %d, want %d", len(out), maxEquityPoints)
	}
	if out[0].Equity != 0 {
		t.Errorf("first point = %f, want 0", out[0].Equity)
	}
	if out[len(out)-1].Equity != 499 {
		t.Errorf("last point = %f, want 499", out[len(out)-1].Equity)
	}
}

func TestMaxDrawdown(t *testing.T) {
	curve := []EquityPoint{
		{Equity: 11000},
		{Equity: 12000},
		{Equity: 9000},
		{Equity: 10000},
	}
	got := maxDrawdown(curve, 10000)
	want := (12000.0 - 9000.0) / 12000.0 * 100
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("maxDrawdown = %f, want %f", got, want)
	}
}
