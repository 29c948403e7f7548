package confidence

import (
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestScoreNeutralDefaults(t *testing.T) {
	// with no auxiliary signals both fall back to 50
	got := Score(Inputs{Reliability: 80}, DefaultWeights())
	want := (80*0.80 + 50*0.05 + 50*0.05) / 0.90
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %f, want %f", got, want)
	}
}

func TestScoreWithAllSignals(t *testing.T) {
	got := Score(Inputs{
		Reliability:     100,
		FearGreed:       ptr(100),
		VolatilityIndex: ptr(100),
	}, DefaultWeights())
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("Score with all signals at max = %f, want 100", got)
	}
}

func TestScoreClamped(t *testing.T) {
	tests := []struct {
		name string
		in   Inputs
	}{
		{"reliability above range", Inputs{Reliability: 250}},
		{"negative reliability", Inputs{Reliability: -10}},
		{"NaN fear greed", Inputs{Reliability: 60, FearGreed: ptr(math.NaN())}},
		{"signals above range", Inputs{Reliability: 60, FearGreed: ptr(500), VolatilityIndex: ptr(-40)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.in, DefaultWeights())
			if got < 0 || got > 100 || math.IsNaN(got) {
				t.Errorf("Score = %f, want within [0, 100]", got)
			}
		})
	}
}

func TestScoreZeroWeights(t *testing.T) {
	got := Score(Inputs{Reliability: 70}, Weights{})
	if got != 70 {
		t.Errorf("Score with zero weights = %f, want reliability passthrough 70", got)
	}
}

func TestScoreCustomWeights(t *testing.T) {
	w := Weights{Reliability: 1, FearGreed: 0, Volatility: 0}
	got := Score(Inputs{Reliability: 42, FearGreed: ptr(90)}, w)
	if math.Abs(got-42) > 1e-9 {
		t.Errorf("Score = %f, want 42 when only reliability is weighted", got)
	}
}
