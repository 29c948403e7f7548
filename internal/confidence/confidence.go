// Package confidence blends the confirmation reliability rating with
// auxiliary market signals into a single 0-100 score.
package confidence

import "math"

const neutral = 50.0

// Weights for each input signal. Reliability carries most of the score;
// fear/greed and volatility nudge it. The score is normalized by the sum
// of weights so partial weight sets still land on the 0-100 scale.
type Weights struct {
	Reliability float64 `json:"reliability"`
	FearGreed   float64 `json:"fear_greed"`
	Volatility  float64 `json:"volatility"`
}

// DefaultWeights counts reliability exactly once at 80% with two 5%
// auxiliary adjustments.
func DefaultWeights() Weights {
	return Weights{Reliability: 0.80, FearGreed: 0.05, Volatility: 0.05}
}

// Inputs carries the signals for one scoring call. Optional signals use
// pointers; nil falls back to a neutral 50. OrderBookImbalance and
// CorrelationStrength are reserved for future sources and stay nil.
type Inputs struct {
	Reliability         float64
	FearGreed           *float64
	VolatilityIndex     *float64
	OrderBookImbalance  *float64
	CorrelationStrength *float64
}

// Score returns the blended confidence in [0, 100]
func Score(in Inputs, w Weights) float64 {
	total := w.Reliability + w.FearGreed + w.Volatility
	if total <= 0 {
		return clamp(in.Reliability)
	}

	sum := clamp(in.Reliability) * w.Reliability
	sum += signal(in.FearGreed) * w.FearGreed
	sum += signal(in.VolatilityIndex) * w.Volatility

	return clamp(sum / total)
}

func signal(v *float64) float64 {
	if v == nil || math.IsNaN(*v) {
		return neutral
	}
	return clamp(*v)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
