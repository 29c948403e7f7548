package strategy

import (
	"math"

	"signal-analyzer/internal/indicators"
)

const (
	// atrFloorPct replaces a degenerate ATR before stop/target math
	atrFloorPct = 0.001
	// minDistancePct is the final floor on stop/target distance so sizing
	// never divides by zero
	minDistancePct = 0.0005
	// zeroDistance guards position sizing against a collapsed stop
	zeroDistance = 1e-9
)

// TradePlan is the computed setup for one direction. Derived fresh on every
// call; never persisted here.
type TradePlan struct {
	Direction  Direction `json:"direction"`
	Entry      float64   `json:"entry"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	Units      float64   `json:"units"`
	Notional   float64   `json:"notional"`
	RiskReward float64   `json:"risk_reward"`
}

// TrailingConfig controls optional stop tightening
type TrailingConfig struct {
	Enabled  bool
	Fraction float64 // fraction of the target distance the stop moves toward entry
}

// BuildPlan computes entry, stop, target and sizing for one direction from
// the bar's own indicator snapshot. riskFraction is the (already adjusted)
// fraction of capital at risk.
func BuildPlan(bar indicators.Bar, p Profile, dir Direction, riskFraction, capital float64, trailing TrailingConfig) TradePlan {
	return planAt(bar, p, dir, entryPrice(bar, p, dir), riskFraction, capital, trailing)
}

// BuildPlanAt computes levels and sizing for a known entry price. Replay
// engines use it after establishing a fill at the raw trigger level, where
// the executable-range clamp of BuildPlan would not apply.
func BuildPlanAt(bar indicators.Bar, p Profile, dir Direction, entry, riskFraction, capital float64, trailing TrailingConfig) TradePlan {
	if math.IsNaN(entry) || entry <= 0 {
		entry = bar.Close
	}
	return planAt(bar, p, dir, entry, riskFraction, capital, trailing)
}

func planAt(bar indicators.Bar, p Profile, dir Direction, entry, riskFraction, capital float64, trailing TrailingConfig) TradePlan {
	atr := effectiveATR(bar.ATR, entry)

	stopDist := floorDistance(p.StopATR*atr, entry)
	targetDist := floorDistance(p.TargetATR*atr, entry)

	var stop, target float64
	if dir == DirectionLong {
		stop = entry - stopDist
		target = entry + targetDist
	} else {
		stop = entry + stopDist
		target = entry - targetDist
	}

	if trailing.Enabled && trailing.Fraction > 0 {
		stop = trailStop(entry, stop, target, dir, trailing.Fraction)
	}

	units, notional := PositionSize(capital, riskFraction, entry, stop)

	return TradePlan{
		Direction:  dir,
		Entry:      entry,
		StopLoss:   stop,
		TakeProfit: target,
		Units:      units,
		Notional:   notional,
		RiskReward: RiskReward(entry, stop, target),
	}
}

// EntryLevel anchors the entry trigger per the strategy and offsets it by
// the buffer in the stop-entry direction. Long setups anchor to the slower
// EMA, shorts to the fast EMA; the aggressive profile anchors to the close.
// The level may sit outside the bar's traded range; it is the price an
// order would wait at, not a guaranteed fill.
func EntryLevel(bar indicators.Bar, p Profile, dir Direction) float64 {
	var base float64
	switch {
	case p.EntryAnchor == AnchorClose:
		base = bar.Close
	case dir == DirectionLong:
		base = bar.EMA50
	default:
		base = bar.EMA20
	}
	if math.IsNaN(base) || base <= 0 {
		base = bar.Close
	}

	var entry float64
	if dir == DirectionLong {
		entry = base * (1 + p.EntryBuffer)
	} else {
		entry = base * (1 - p.EntryBuffer)
	}
	if entry <= 0 {
		return bar.Close
	}
	return entry
}

// entryPrice clamps the trigger into the bar's traded range so a live plan
// describes an executable price
func entryPrice(bar indicators.Bar, p Profile, dir Direction) float64 {
	entry := EntryLevel(bar, p, dir)
	if bar.Low > 0 && entry < bar.Low {
		entry = bar.Low
	}
	if bar.High > 0 && entry > bar.High {
		entry = bar.High
	}
	return entry
}

// effectiveATR substitutes the price-relative floor for a degenerate ATR
func effectiveATR(atr, price float64) float64 {
	floor := price * atrFloorPct
	if math.IsNaN(atr) || atr < floor {
		return floor
	}
	return atr
}

func floorDistance(dist, price float64) float64 {
	floor := price * minDistancePct
	if dist < floor {
		return floor
	}
	return dist
}

// trailStop moves the stop toward entry by a fraction of the target
// distance. Trailing only ever tightens: the result never crosses entry and
// never sits farther from entry than the original stop.
func trailStop(entry, stop, target float64, dir Direction, fraction float64) float64 {
	targetDist := math.Abs(target - entry)
	shift := fraction * targetDist

	if dir == DirectionLong {
		trailed := stop + shift
		limit := entry * (1 - minDistancePct)
		if trailed > limit {
			trailed = limit
		}
		if trailed < stop {
			trailed = stop
		}
		return trailed
	}

	trailed := stop - shift
	limit := entry * (1 + minDistancePct)
	if trailed < limit {
		trailed = limit
	}
	if trailed > stop {
		trailed = stop
	}
	return trailed
}

// PositionSize converts capital at risk into asset units and notional value.
// A collapsed stop distance yields (0, 0) rather than a division blowup.
func PositionSize(capital, riskFraction, entry, stop float64) (units, notional float64) {
	if capital <= 0 || riskFraction <= 0 || entry <= 0 {
		return 0, 0
	}
	dist := math.Abs(entry - stop)
	if dist < zeroDistance {
		return 0, 0
	}
	riskAmount := capital * riskFraction
	units = riskAmount / dist
	return units, units * entry
}

// RiskReward returns |target-entry| / |entry-stop| rounded to 2 decimals,
// or 0 when the stop distance has collapsed.
func RiskReward(entry, stop, target float64) float64 {
	stopDist := math.Abs(entry - stop)
	if stopDist < zeroDistance {
		return 0
	}
	return math.Round(math.Abs(target-entry)/stopDist*100) / 100
}

// AdjustRisk applies the dynamic risk policy to a base risk fraction using
// the latest momentum, trend, trend-strength and historical reliability
// readings. Pure and deterministic; a NaN momentum reading returns the base
// unchanged. The result stays within [0.5x, 1.3x] of the base.
func AdjustRisk(base, rsi float64, trend indicators.Trend, adx, reliability float64) float64 {
	if base <= 0 || math.IsNaN(rsi) {
		return base
	}

	adj := base
	switch {
	case rsi < 45 || trend == indicators.TrendDown:
		adj *= 0.7
	case rsi > 60 && trend == indicators.TrendUp:
		// overheated momentum in an uptrend is treated cautiously
		adj *= 0.85
	default:
		if !math.IsNaN(adx) && adx > 30 {
			adj *= 1.1
		}
		if reliability > 80 {
			adj *= 1.2
		}
	}

	if adj > base*1.3 {
		adj = base * 1.3
	}
	if adj < base*0.5 {
		adj = base * 0.5
	}
	return adj
}
