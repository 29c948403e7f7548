// Package forecast estimates expected outcome for the current setup by
// replaying the strategy from past bars whose indicator snapshot resembles
// the current one.
package forecast

import (
	"math"
	"sort"

	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/strategy"
)

const (
	// MinHistoryBars is the smallest series the forecaster will scan
	MinHistoryBars = 50
	// replayHorizon caps the forward replay from each analog bar
	replayHorizon = 50
	// similarityThreshold bounds the relative difference in RSI and ADX
	// for a bar to count as an analog
	similarityThreshold = 0.15
)

// Forecast aggregates the replayed analog outcomes
type Forecast struct {
	ExpectedProfitPct  float64 `json:"expected_profit_pct"`
	SuccessProbability float64 `json:"success_probability"`
	MinProfitPct       float64 `json:"min_profit_pct"`
	MaxProfitPct       float64 `json:"max_profit_pct"`
	Cases              int     `json:"cases"`
}

// Estimate scans history for bars similar to the current snapshot and
// replays the strategy's levels from each. Returns nil when history is too
// short or no analogs match; callers treat nil as "no forecast".
func Estimate(bars []indicators.Bar, current indicators.Bar, profile strategy.Profile, dir strategy.Direction) *Forecast {
	if len(bars) < MinHistoryBars {
		return nil
	}
	// the trend label is undefined until the slow EMA has warmed up
	if math.IsNaN(current.RSI) || math.IsNaN(current.ADX) || math.IsNaN(current.EMA200) {
		return nil
	}

	var profits []float64
	successes := 0

	// the trailing window is excluded so every analog has a full replay
	for i := 0; i < len(bars)-replayHorizon; i++ {
		b := bars[i]
		if math.IsNaN(b.RSI) || math.IsNaN(b.ADX) || math.IsNaN(b.EMA200) || b.Trend != current.Trend {
			continue
		}
		if relDiff(b.RSI, current.RSI) > similarityThreshold ||
			relDiff(b.ADX, current.ADX) > similarityThreshold {
			continue
		}

		// levels come from the analog bar's own indicators, then replay
		// forward against the price action that actually followed
		plan := strategy.BuildPlan(b, profile, dir, 1, 1, strategy.TrailingConfig{})
		profitPct, success := replay(bars, i, plan)
		profits = append(profits, profitPct)
		if success {
			successes++
		}
	}

	if len(profits) == 0 {
		return nil
	}

	prob := float64(successes) / float64(len(profits)) * 100
	expected := mean(profits)

	// outlier horizon exits can drag the naive mean below zero even when
	// nearly every analog succeeded; fall back to the successful subset
	if successes > 0 {
		successProfits := positiveSubset(profits)
		if prob >= 99.5 && expected < 0 {
			expected = mean(successProfits)
		} else if prob > 80 && expected < -50 {
			expected = median(successProfits)
		}
	}

	minP, maxP := profits[0], profits[0]
	for _, p := range profits[1:] {
		if p < minP {
			minP = p
		}
		if p > maxP {
			maxP = p
		}
	}

	return &Forecast{
		ExpectedProfitPct:  expected,
		SuccessProbability: prob,
		MinProfitPct:       minP,
		MaxProfitPct:       maxP,
		Cases:              len(profits),
	}
}

// replay walks forward from the analog bar until target or stop is touched,
// or closes at the horizon. Profit is the directional price move in percent
// of entry.
func replay(bars []indicators.Bar, start int, plan strategy.TradePlan) (profitPct float64, success bool) {
	end := start + replayHorizon
	if end > len(bars) {
		end = len(bars)
	}

	exit := bars[end-1].Close
	for j := start; j < end; j++ {
		b := bars[j]
		if plan.Direction == strategy.DirectionLong {
			if b.Low <= plan.StopLoss {
				exit = plan.StopLoss
				break
			}
			if b.High >= plan.TakeProfit {
				exit = plan.TakeProfit
				break
			}
		} else {
			if b.High >= plan.StopLoss {
				exit = plan.StopLoss
				break
			}
			if b.Low <= plan.TakeProfit {
				exit = plan.TakeProfit
				break
			}
		}
	}

	move := exit - plan.Entry
	if plan.Direction == strategy.DirectionShort {
		move = -move
	}
	if plan.Entry > 0 {
		profitPct = move / plan.Entry * 100
	}
	return profitPct, profitPct > 0
}

func relDiff(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom < 1e-9 {
		return 0
	}
	return math.Abs(a-b) / denom
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func positiveSubset(vals []float64) []float64 {
	var out []float64
	for _, v := range vals {
		if v > 0 {
			out = append(out, v)
		}
	}
	return out
}
