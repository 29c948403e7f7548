package confirm

import (
	"math"
	"testing"

	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/market"
)

func bullishBar() indicators.Bar {
	return indicators.Bar{
		Candle: market.Candle{Close: 100, Volume: 1000},
		Snapshot: indicators.Snapshot{
			EMA20:      100.5,
			EMA50:      99.0,
			RSI:        72,
			MACD:       0.8,
			MACDSignal: 0.5,
			ADX:        30,
			VWMA:       99.5,
			BBUpper:    103,
			BBMiddle:   100,
			BBLower:    97,
			Trend:      indicators.TrendUp,
		},
	}
}

func TestEvaluateEMAandRSI(t *testing.T) {
	bar := bullishBar()
	res := Evaluate(bar, nil, []Kind{KindEMA, KindRSI})

	if res.Passed != 2 || res.Total != 2 {
		t.Errorf("passed/total = %d/%d, want 2/2", res.Passed, res.Total)
	}
	if res.Rating != 100 {
		t.Errorf("rating = %f, want 100", res.Rating)
	}
	if res.NoSelection {
		t.Error("NoSelection set on a non-empty selection")
	}
}

func TestEvaluateEmptySelection(t *testing.T) {
	res := Evaluate(bullishBar(), nil, nil)
	if res.Rating != 0 {
		t.Errorf("rating = %f, want 0", res.Rating)
	}
	if !res.NoSelection {
		t.Error("NoSelection not set on empty selection")
	}
}

func TestEvaluateAllFixesTotal(t *testing.T) {
	res := Evaluate(bullishBar(), nil, []Kind{KindAll})
	if res.Total != len(allKinds) {
		t.Errorf("total = %d, want %d", res.Total, len(allKinds))
	}
	if len(res.Checks) != len(allKinds) {
		t.Errorf("checks = %d, want %d", len(res.Checks), len(allKinds))
	}
}

func TestEvaluateNaNFieldsFail(t *testing.T) {
	bar := bullishBar()
	bar.RSI = math.NaN()
	bar.MACD = math.NaN()

	res := Evaluate(bar, nil, []Kind{KindRSI, KindMACD})
	if res.Passed != 0 {
		t.Errorf("passed = %d, want 0 when inputs are NaN", res.Passed)
	}
	if res.Rating != 0 {
		t.Errorf("rating = %f, want 0", res.Rating)
	}
}

func TestBandReentry(t *testing.T) {
	cur := bullishBar() // close 100 inside [97, 103]

	prevOutside := bullishBar()
	prevOutside.Close = 104 // above the upper band

	prevInside := bullishBar()
	prevInside.Close = 101

	tests := []struct {
		name string
		prev *indicators.Bar
		want bool
	}{
		{"re-entry after breakout", &prevOutside, true},
		{"no breakout on previous bar", &prevInside, false},
		{"no previous bar falls back to within-bands", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(cur, tt.prev, []Kind{KindBB})
			got := res.Passed == 1
			if got != tt.want {
				t.Errorf("BB check = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKinds(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  int
		all   bool
	}{
		{"mixed case", []string{"ema", "Rsi", " macd "}, 3, false},
		{"unrecognized dropped", []string{"EMA", "bogus", "RSI"}, 2, false},
		{"all collapses", []string{"EMA", "all"}, 1, true},
		{"empty", nil, 0, false},
		{"only unrecognized", []string{"stochastic"}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kinds := ParseKinds(tt.input)
			if len(kinds) != tt.want {
				t.Errorf("len = %d, want %d", len(kinds), tt.want)
			}
			if tt.all && (len(kinds) != 1 || kinds[0] != KindAll) {
				t.Errorf("expected collapsed ALL, got %v", kinds)
			}
		})
	}
}

func TestRatingAlwaysInRange(t *testing.T) {
	bar := bullishBar()
	bar.EMA20 = 90 // EMA check fails

	res := Evaluate(bar, nil, []Kind{KindAll})
	if res.Rating < 0 || res.Rating > 100 {
		t.Errorf("rating = %f outside [0, 100]", res.Rating)
	}
	if res.Passed > res.Total {
		t.Errorf("passed %d exceeds total %d", res.Passed, res.Total)
	}
}
