// Package confirm scores a user-selected set of indicator conditions
// against the latest bar and yields a 0-100 reliability rating.
package confirm

import (
	"fmt"
	"math"
	"strings"

	"signal-analyzer/internal/indicators"
)

// Kind identifies one confirmation condition
type Kind string

const (
	KindEMA  Kind = "EMA"
	KindRSI  Kind = "RSI"
	KindMACD Kind = "MACD"
	KindADX  Kind = "ADX"
	KindVWMA Kind = "VWMA"
	KindBB   Kind = "BB"

	// KindAll expands to every condition and fixes the rating denominator
	// at the full condition count
	KindAll Kind = "ALL"
)

// allKinds is the closed set KindAll expands to. Its length is the rating
// denominator for "all" selections.
var allKinds = []Kind{KindEMA, KindRSI, KindMACD, KindADX, KindVWMA, KindBB}

const adxThreshold = 25.0

// Check is one evaluated condition with its outcome
type Check struct {
	Kind   Kind   `json:"kind"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// Result is the tally over the selected conditions
type Result struct {
	Passed      int     `json:"passed"`
	Total       int     `json:"total"`
	Rating      float64 `json:"rating"`
	Checks      []Check `json:"checks"`
	NoSelection bool    `json:"no_selection,omitempty"`
}

// ParseKinds normalizes raw condition names, dropping anything it does not
// recognize. A single "all" (any case) collapses to the full set.
func ParseKinds(names []string) []Kind {
	var kinds []Kind
	for _, n := range names {
		k := Kind(strings.ToUpper(strings.TrimSpace(n)))
		switch k {
		case KindAll:
			return []Kind{KindAll}
		case KindEMA, KindRSI, KindMACD, KindADX, KindVWMA, KindBB:
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Evaluate runs each selected condition against the current bar. prev is
// only needed for the band re-entry check and may be nil. An empty or
// unrecognized selection degrades to a zero rating, never an error.
func Evaluate(cur indicators.Bar, prev *indicators.Bar, kinds []Kind) Result {
	selected := expand(kinds)
	if len(selected) == 0 {
		return Result{NoSelection: true}
	}

	res := Result{Total: len(selected)}
	for _, k := range selected {
		c := evaluateOne(cur, prev, k)
		if c.Passed {
			res.Passed++
		}
		res.Checks = append(res.Checks, c)
	}
	res.Rating = float64(res.Passed) / float64(res.Total) * 100
	return res
}

func expand(kinds []Kind) []Kind {
	for _, k := range kinds {
		if k == KindAll {
			return allKinds
		}
	}
	return kinds
}

func evaluateOne(cur indicators.Bar, prev *indicators.Bar, k Kind) Check {
	switch k {
	case KindEMA:
		ok := defined(cur.EMA20, cur.EMA50) && cur.EMA20 > cur.EMA50
		return check(k, ok, "EMA20 %.4f vs EMA50 %.4f", cur.EMA20, cur.EMA50)
	case KindRSI:
		ok := defined(cur.RSI) && cur.RSI > 50
		return check(k, ok, "RSI %.2f vs midpoint 50", cur.RSI)
	case KindMACD:
		ok := defined(cur.MACD, cur.MACDSignal) && cur.MACD > cur.MACDSignal
		return check(k, ok, "MACD %.4f vs signal %.4f", cur.MACD, cur.MACDSignal)
	case KindADX:
		ok := defined(cur.ADX) && cur.ADX > adxThreshold
		return check(k, ok, "ADX %.2f vs threshold %.0f", cur.ADX, adxThreshold)
	case KindVWMA:
		ok := defined(cur.VWMA) && cur.Close > cur.VWMA
		return check(k, ok, "close %.4f vs VWMA %.4f", cur.Close, cur.VWMA)
	case KindBB:
		return bbCheck(cur, prev)
	}
	return Check{Kind: k}
}

// bbCheck flags a failed breakout: price outside a band on the previous
// bar that has re-entered on this one. Without a previous bar it falls
// back to "currently within both bands".
func bbCheck(cur indicators.Bar, prev *indicators.Bar) Check {
	if !defined(cur.BBUpper, cur.BBLower) {
		return check(KindBB, false, "bands not yet defined")
	}
	inside := cur.Close <= cur.BBUpper && cur.Close >= cur.BBLower
	if prev == nil || !defined(prev.BBUpper, prev.BBLower) {
		return check(KindBB, inside, "close %.4f within bands [%.4f, %.4f]", cur.Close, cur.BBLower, cur.BBUpper)
	}
	wasOutside := prev.Close > prev.BBUpper || prev.Close < prev.BBLower
	return check(KindBB, wasOutside && inside, "band re-entry after breakout")
}

func check(k Kind, ok bool, format string, args ...interface{}) Check {
	return Check{Kind: k, Passed: ok, Detail: fmt.Sprintf(format, args...)}
}

func defined(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}
