// Package ml estimates success probability for the current setup by
// similarity against previously completed trades.
package ml

import (
	"math"

	"signal-analyzer/internal/confirm"
	"signal-analyzer/internal/strategy"
)

const (
	// MinRecords is the smallest history the matcher will score against
	MinRecords = 5
	// similarityThreshold sets the match cutoff at 1 - threshold
	similarityThreshold = 0.2

	categoricalWeight = 0.6
	rrWeight          = 0.2
	confirmWeight     = 0.2
)

// Tier labels how much history backs an estimate
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Descriptor captures the parameters that characterize one trade setup
type Descriptor struct {
	Strategy      string             `json:"strategy"`
	TradingType   string             `json:"trading_type"`
	Direction     strategy.Direction `json:"direction"`
	Trend         string             `json:"trend"`
	RiskReward    float64            `json:"risk_reward"`
	Confirmations []confirm.Kind     `json:"confirmations"`
}

// Record is a completed trade with its descriptor and known outcome
type Record struct {
	Descriptor
	Success bool `json:"success"`
}

// Estimate is the matcher's output for one descriptor
type Estimate struct {
	SuccessProbability float64 `json:"success_probability"`
	MatchedCases       int     `json:"matched_cases"`
	Tier               Tier    `json:"tier"`
}

// Predict scores the descriptor against history. Returns nil when fewer
// than MinRecords completed trades exist or nothing matches.
func Predict(current Descriptor, history []Record) *Estimate {
	if len(history) < MinRecords {
		return nil
	}

	matches, successes := 0, 0
	for _, rec := range history {
		if similarity(current, rec.Descriptor) >= 1-similarityThreshold {
			matches++
			if rec.Success {
				successes++
			}
		}
	}
	if matches == 0 {
		return nil
	}

	return &Estimate{
		SuccessProbability: float64(successes) / float64(matches) * 100,
		MatchedCases:       matches,
		Tier:               tierFor(matches),
	}
}

// similarity blends exact categorical matches, R:R closeness and
// confirmation-set overlap into [0, 1]
func similarity(a, b Descriptor) float64 {
	categorical := 0
	if a.Strategy == b.Strategy {
		categorical++
	}
	if a.TradingType == b.TradingType {
		categorical++
	}
	if a.Direction == b.Direction {
		categorical++
	}
	if a.Trend == b.Trend {
		categorical++
	}

	score := categoricalWeight * float64(categorical) / 4
	score += rrWeight * rrCloseness(a.RiskReward, b.RiskReward)
	score += confirmWeight * jaccard(a.Confirmations, b.Confirmations)
	return score
}

func rrCloseness(a, b float64) float64 {
	denom := math.Max(math.Abs(a), math.Abs(b))
	if denom < 1e-9 {
		return 1
	}
	c := 1 - math.Abs(a-b)/denom
	if c < 0 {
		return 0
	}
	return c
}

func jaccard(a, b []confirm.Kind) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	setA := make(map[confirm.Kind]bool, len(a))
	for _, k := range a {
		setA[k] = true
	}
	setB := make(map[confirm.Kind]bool, len(b))
	for _, k := range b {
		setB[k] = true
	}

	inter, union := 0, len(setB)
	for k := range setA {
		if setB[k] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 1
	}
	return float64(inter) / float64(union)
}

func tierFor(matches int) Tier {
	switch {
	case matches >= 20:
		return TierHigh
	case matches >= 10:
		return TierMedium
	default:
		return TierLow
	}
}
