// Package backtest replays the confirmation and level logic bar by bar
// over a historical window and aggregates the simulated outcomes.
package backtest

import (
	"fmt"
	"math"
	"time"

	"signal-analyzer/internal/confirm"
	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/strategy"
)

const (
	// MinBars is the smallest series a backtest will accept
	MinBars = 100
	// warmupBars are skipped at the start so every evaluated bar has a
	// usable indicator snapshot
	warmupBars = 50
	// fillWindow is how many bars (including the signal bar) price has to
	// touch the entry level before the order is considered unfilled
	fillWindow = 3
	// exitHorizon caps the forward scan for a target or stop touch
	exitHorizon = 200
	// maxEquityPoints bounds the equity curve returned for charting
	maxEquityPoints = 100

	// stability clamps: per-trade profit and running-capital bounds
	profitCapRiskMult  = 10.0
	profitCapCapital   = 0.5
	capitalCeilingMult = 11.0
)

// Config holds the simulation parameters for one run
type Config struct {
	StartingCapital float64 `json:"starting_capital"`
	RiskFraction    float64 `json:"risk_fraction"`
	CommissionRate  float64 `json:"commission_rate"` // per side, on notional
	SpreadPct       float64 `json:"spread_pct"`      // per side, percent of notional
}

// Trade is one simulated round trip
type Trade struct {
	EntryTime    time.Time          `json:"entry_time"`
	ExitTime     time.Time          `json:"exit_time"`
	Direction    strategy.Direction `json:"direction"`
	EntryPrice   float64            `json:"entry_price"`
	ExitPrice    float64            `json:"exit_price"`
	Units        float64            `json:"units"`
	Profit       float64            `json:"profit"`
	ProfitPct    float64            `json:"profit_pct"`
	Success      bool               `json:"success"`
	RealizedR    float64            `json:"realized_r"`
	CapitalAfter float64            `json:"capital_after"`
	ExitReason   string             `json:"exit_reason"` // "take_profit", "stop_loss", "horizon"
}

// EquityPoint is account equity after a closed trade
type EquityPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Equity    float64   `json:"equity"`
}

// Result aggregates one backtest run. A run with no qualifying signals is
// still a valid Result with zeroed metrics, never nil.
type Result struct {
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	LosingTrades   int           `json:"losing_trades"`
	WinRate        float64       `json:"win_rate"`
	TotalReturnPct float64       `json:"total_return_pct"`
	MaxDrawdown    float64       `json:"max_drawdown"`
	AverageRR      float64       `json:"average_rr"`
	FinalCapital   float64       `json:"final_capital"`
	Trades         []Trade       `json:"trades"`
	EquityCurve    []EquityPoint `json:"equity_curve"`
}

// Run replays the strategy over the series. Direction at each signal bar
// follows that bar's own trend label, and levels are recomputed from that
// bar's indicators so the replay stays historical.
func Run(bars []indicators.Bar, profile strategy.Profile, kinds []confirm.Kind, cfg Config) (*Result, error) {
	if len(bars) < MinBars {
		return nil, fmt.Errorf("backtest requires at least %d bars, got %d", MinBars, len(bars))
	}
	if cfg.StartingCapital <= 0 {
		return nil, fmt.Errorf("starting capital must be positive, got %.2f", cfg.StartingCapital)
	}

	capital := cfg.StartingCapital
	ceiling := cfg.StartingCapital * capitalCeilingMult
	adxSized := hasADX(kinds)

	res := &Result{
		Trades:      make([]Trade, 0),
		EquityCurve: make([]EquityPoint, 0),
	}

	for i := warmupBars; i < len(bars); i++ {
		bar := bars[i]
		// the trend label is undefined until the slow EMA has warmed up;
		// a defaulted label must not pick the trade direction
		if math.IsNaN(bar.EMA50) || math.IsNaN(bar.EMA200) {
			continue
		}
		score := confirm.Evaluate(bar, &bars[i-1], kinds)
		if score.Passed == 0 {
			continue
		}

		dir := strategy.DirectionShort
		if bar.Trend == indicators.TrendUp {
			dir = strategy.DirectionLong
		}

		riskFraction := strategy.AdjustRisk(cfg.RiskFraction, bar.RSI, bar.Trend, bar.ADX, score.Rating)
		if adxSized && !math.IsNaN(bar.ADX) {
			if bar.ADX > 25 {
				riskFraction *= 1.1
			} else {
				riskFraction *= 0.9
			}
		}

		// fill is checked against the raw trigger level; an order that
		// price never reaches within the window is not a trade
		entry := strategy.EntryLevel(bar, profile, dir)
		fillIdx, ok := findFill(bars, i, entry)
		if !ok {
			continue
		}

		plan := strategy.BuildPlanAt(bar, profile, dir, entry, riskFraction, capital, strategy.TrailingConfig{})
		if plan.Units <= 0 {
			continue
		}

		trade := simulateExit(bars, fillIdx, plan, capital, riskFraction, cfg)

		trade.CapitalAfter = clampCapital(capital+trade.Profit, ceiling)
		capital = trade.CapitalAfter

		res.Trades = append(res.Trades, trade)
		res.EquityCurve = append(res.EquityCurve, EquityPoint{
			Timestamp: trade.ExitTime,
			Equity:    capital,
		})
	}

	finalize(res, cfg.StartingCapital, capital)
	return res, nil
}

// findFill reports the first bar within the fill window whose range
// touches the entry level
func findFill(bars []indicators.Bar, signalIdx int, entry float64) (int, bool) {
	end := signalIdx + fillWindow
	if end > len(bars) {
		end = len(bars)
	}
	for j := signalIdx; j < end; j++ {
		if bars[j].Low <= entry && entry <= bars[j].High {
			return j, true
		}
	}
	return 0, false
}

// simulateExit scans forward from the fill bar for the first stop or
// target touch. If neither is reached within the horizon the trade closes
// at the horizon bar's close, with profit pro-rated against the original
// risk distance. The stop is checked first on a bar that touches both.
func simulateExit(bars []indicators.Bar, fillIdx int, plan strategy.TradePlan, capital, riskFraction float64, cfg Config) Trade {
	riskDist := math.Abs(plan.Entry - plan.StopLoss)
	riskAmount := capital * riskFraction
	rr := plan.RiskReward

	trade := Trade{
		EntryTime:  bars[fillIdx].OpenTime,
		Direction:  plan.Direction,
		EntryPrice: plan.Entry,
		Units:      plan.Units,
	}

	end := fillIdx + exitHorizon
	if end > len(bars) {
		end = len(bars)
	}

	var gross float64
	exitIdx := end - 1
	trade.ExitReason = "horizon"
	trade.ExitPrice = bars[exitIdx].Close

	for j := fillIdx; j < end; j++ {
		b := bars[j]
		if plan.Direction == strategy.DirectionLong {
			if b.Low <= plan.StopLoss {
				trade.ExitReason, trade.ExitPrice, exitIdx = "stop_loss", plan.StopLoss, j
				break
			}
			if b.High >= plan.TakeProfit {
				trade.ExitReason, trade.ExitPrice, exitIdx = "take_profit", plan.TakeProfit, j
				break
			}
		} else {
			if b.High >= plan.StopLoss {
				trade.ExitReason, trade.ExitPrice, exitIdx = "stop_loss", plan.StopLoss, j
				break
			}
			if b.Low <= plan.TakeProfit {
				trade.ExitReason, trade.ExitPrice, exitIdx = "take_profit", plan.TakeProfit, j
				break
			}
		}
	}

	switch trade.ExitReason {
	case "take_profit":
		trade.RealizedR = rr
	case "stop_loss":
		trade.RealizedR = -1
	default:
		trade.RealizedR = realizedR(plan, trade.ExitPrice, riskDist)
	}
	gross = riskAmount * trade.RealizedR

	trade.ExitTime = bars[exitIdx].CloseTime

	costs := tradingCosts(plan.Entry, trade.ExitPrice, plan.Units, cfg)
	profit := gross - costs

	// per-trade stability clamps
	if cap := riskAmount * profitCapRiskMult; profit > cap {
		profit = cap
	}
	if cap := capital * profitCapCapital; profit > cap {
		profit = cap
	}

	trade.Profit = profit
	trade.Success = profit > 0
	if notional := plan.Entry * plan.Units; notional > 0 {
		trade.ProfitPct = profit / notional * 100
	}
	return trade
}

// realizedR measures the horizon exit's price move in risk-distance units
func realizedR(plan strategy.TradePlan, exitPrice, riskDist float64) float64 {
	if riskDist <= 0 {
		return 0
	}
	move := exitPrice - plan.Entry
	if plan.Direction == strategy.DirectionShort {
		move = -move
	}
	return move / riskDist
}

// tradingCosts applies commission and spread on entry and exit notional
// separately
func tradingCosts(entry, exit, units float64, cfg Config) float64 {
	entryNotional := entry * units
	exitNotional := exit * units
	commission := (entryNotional + exitNotional) * cfg.CommissionRate
	spread := (entryNotional + exitNotional) * (cfg.SpreadPct / 100)
	return commission + spread
}

func clampCapital(capital, ceiling float64) float64 {
	if capital < 0 {
		return 0
	}
	if capital > ceiling {
		return ceiling
	}
	return capital
}

func finalize(res *Result, initial, final float64) {
	res.TotalTrades = len(res.Trades)
	res.FinalCapital = final

	if res.TotalTrades == 0 {
		res.EquityCurve = []EquityPoint{{Equity: initial}}
		return
	}

	var rrSum float64
	for _, t := range res.Trades {
		if t.Success {
			res.WinningTrades++
			rrSum += t.RealizedR
		} else {
			res.LosingTrades++
		}
	}
	res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades) * 100
	if res.WinningTrades > 0 {
		res.AverageRR = rrSum / float64(res.WinningTrades)
	}

	ret := (final - initial) / initial * 100
	if ret < -100 {
		ret = -100
	}
	if ret > 1000 {
		ret = 1000
	}
	res.TotalReturnPct = ret

	res.MaxDrawdown = maxDrawdown(res.EquityCurve, initial)
	res.EquityCurve = downsample(res.EquityCurve, maxEquityPoints)
}

func maxDrawdown(curve []EquityPoint, initial float64) float64 {
	peak := initial
	worst := 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			dd := (peak - p.Equity) / peak * 100
			if dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// downsample keeps at most n evenly spaced points, always including the
// last one
func downsample(curve []EquityPoint, n int) []EquityPoint {
	if len(curve) <= n {
		return curve
	}
	out := make([]EquityPoint, 0, n)
	step := float64(len(curve)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, curve[int(math.Round(float64(i)*step))])
	}
	return out
}

func hasADX(kinds []confirm.Kind) bool {
	for _, k := range kinds {
		if k == confirm.KindADX || k == confirm.KindAll {
			return true
		}
	}
	return false
}
