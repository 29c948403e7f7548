package indicators

import (
	"math"

	"signal-analyzer/internal/market"
)

// Indicator window lengths. Fixed lookup data, not user-editable.
const (
	EMAFastPeriod   = 20
	EMAMidPeriod    = 50
	EMASlowPeriod   = 200
	RSIPeriod       = 14
	MACDFastPeriod  = 12
	MACDSlowPeriod  = 26
	MACDSignalSpan  = 9
	ATRPeriod       = 14
	ADXPeriod       = 14
	VWMAPeriod      = 20
	BBPeriod        = 20
	BBStdDevMult    = 2.0
	VolReturnWindow = 20
)

// MinBars is the minimum series length for price-level math: ATR needs one
// prior close plus a full window.
const MinBars = ATRPeriod + 1

// Trend labels the medium-vs-slow EMA relationship
type Trend string

const (
	TrendUp   Trend = "Uptrend"
	TrendDown Trend = "Downtrend"
)

// Snapshot holds the derived indicator values for one bar. Values are NaN
// until the corresponding window has warmed up; consumers must not feed NaN
// into price-level math.
type Snapshot struct {
	EMA20  float64 `json:"ema20"`
	EMA50  float64 `json:"ema50"`
	EMA200 float64 `json:"ema200"`

	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`

	ATR float64 `json:"atr"`
	ADX float64 `json:"adx"`

	VWMA     float64 `json:"vwma"`
	BBUpper  float64 `json:"bb_upper"`
	BBMiddle float64 `json:"bb_middle"`
	BBLower  float64 `json:"bb_lower"`

	Trend Trend `json:"trend"`

	// HistVolatility is the annualized standard deviation of bar returns,
	// in percent. VolIndex is that value min-max scaled to 0-100 against a
	// trailing one-year window (neutral 50 when the window is flat).
	HistVolatility float64 `json:"hist_volatility"`
	VolIndex       float64 `json:"vol_index"`
}

// Bar is one candle together with its indicator snapshot
type Bar struct {
	market.Candle
	Snapshot
}

// Enrich computes an indicator snapshot for every candle in the series.
// The series must be chronological. Returns ErrEmptySeries on empty input;
// leading bars carry NaN for indicators whose window has not warmed up.
func Enrich(candles []market.Candle, timeframe string) ([]Bar, error) {
	n := len(candles)
	if n == 0 {
		return nil, ErrEmptySeries
	}

	closes := make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
	}

	ema20 := emaSeries(closes, EMAFastPeriod)
	ema50 := emaSeries(closes, EMAMidPeriod)
	ema200 := emaSeries(closes, EMASlowPeriod)
	rsi := rsiSeries(closes, RSIPeriod)
	macd, macdSignal := macdSeries(closes)
	tr := trueRangeSeries(candles)
	atr := rollingMean(tr, ATRPeriod)
	adx := adxSeries(candles, tr, atr, ADXPeriod)
	vwma := vwmaSeries(candles, VWMAPeriod)
	bbUpper, bbMiddle, bbLower := bollingerSeries(closes, BBPeriod, BBStdDevMult)
	histVol, volIndex := volatilitySeries(closes, timeframe)

	bars := make([]Bar, n)
	for i := 0; i < n; i++ {
		trend := TrendDown
		if !math.IsNaN(ema50[i]) && !math.IsNaN(ema200[i]) && ema50[i] > ema200[i] {
			trend = TrendUp
		}
		bars[i] = Bar{
			Candle: candles[i],
			Snapshot: Snapshot{
				EMA20:          ema20[i],
				EMA50:          ema50[i],
				EMA200:         ema200[i],
				RSI:            rsi[i],
				MACD:           macd[i],
				MACDSignal:     macdSignal[i],
				ATR:            atr[i],
				ADX:            adx[i],
				VWMA:           vwma[i],
				BBUpper:        bbUpper[i],
				BBMiddle:       bbMiddle[i],
				BBLower:        bbLower[i],
				Trend:          trend,
				HistVolatility: histVol[i],
				VolIndex:       volIndex[i],
			},
		}
	}
	return bars, nil
}

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// emaSeries computes an exponential moving average seeded with the SMA of
// the first period values. Entries before the seed are NaN.
func emaSeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if len(values) < period {
		return out
	}

	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[period-1] = ema

	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
		out[i] = ema
	}
	return out
}

func vwmaSeries(candles []market.Candle, period int) []float64 {
	out := nanSlice(len(candles))
	if len(candles) < period {
		return out
	}

	for i := period - 1; i < len(candles); i++ {
		var pvSum, vSum float64
		for j := i - period + 1; j <= i; j++ {
			pvSum += candles[j].Close * candles[j].Volume
			vSum += candles[j].Volume
		}
		if vSum > 0 {
			out[i] = pvSum / vSum
		}
	}
	return out
}

// ============================================================================
// OSCILLATORS
// ============================================================================

// rsiSeries computes the relative strength index from rolling average gains
// and losses. A zero average loss saturates the oscillator at 100.
func rsiSeries(closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n < period+1 {
		return out
	}

	gains := make([]float64, n)
	losses := make([]float64, n)
	for i := 1; i < n; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := period; i < n; i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// macdSeries computes the EMA(12)-EMA(26) difference and a true EMA(9)
// signal line over the difference series.
func macdSeries(closes []float64) (macd, signal []float64) {
	n := len(closes)
	macd = nanSlice(n)
	signal = nanSlice(n)

	fast := emaSeries(closes, MACDFastPeriod)
	slow := emaSeries(closes, MACDSlowPeriod)

	firstDefined := -1
	for i := 0; i < n; i++ {
		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) {
			macd[i] = fast[i] - slow[i]
			if firstDefined < 0 {
				firstDefined = i
			}
		}
	}
	if firstDefined < 0 || n-firstDefined < MACDSignalSpan {
		return macd, signal
	}

	// EMA of the defined portion of the MACD line
	sub := emaSeries(macd[firstDefined:], MACDSignalSpan)
	for i, v := range sub {
		signal[firstDefined+i] = v
	}
	return macd, signal
}

// ============================================================================
// VOLATILITY
// ============================================================================

func trueRangeSeries(candles []market.Candle) []float64 {
	out := nanSlice(len(candles))
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close
		out[i] = math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
	}
	return out
}

func bollingerSeries(closes []float64, period int, mult float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = nanSlice(n)
	middle = nanSlice(n)
	lower = nanSlice(n)

	for i := period - 1; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
		}
		mean := sum / float64(period)

		var variance float64
		for j := i - period + 1; j <= i; j++ {
			diff := closes[j] - mean
			variance += diff * diff
		}
		// sample standard deviation
		stdDev := math.Sqrt(variance / float64(period-1))

		middle[i] = mean
		upper[i] = mean + mult*stdDev
		lower[i] = mean - mult*stdDev
	}
	return upper, middle, lower
}

// volatilitySeries computes annualized rolling return volatility in percent
// and its 0-100 min-max index over a trailing one-year window. When less
// than a year of data exists the whole series is the window; a flat window
// yields the neutral value 50.
func volatilitySeries(closes []float64, timeframe string) (histVol, volIndex []float64) {
	n := len(closes)
	histVol = nanSlice(n)
	volIndex = nanSlice(n)

	returns := nanSlice(n)
	for i := 1; i < n; i++ {
		if closes[i-1] != 0 {
			returns[i] = (closes[i] - closes[i-1]) / closes[i-1]
		}
	}

	annualize := math.Sqrt(market.BarsPerYear(timeframe))
	for i := VolReturnWindow; i < n; i++ {
		var sum, count float64
		for j := i - VolReturnWindow + 1; j <= i; j++ {
			if !math.IsNaN(returns[j]) {
				sum += returns[j]
				count++
			}
		}
		if count < 2 {
			continue
		}
		mean := sum / count
		var variance float64
		for j := i - VolReturnWindow + 1; j <= i; j++ {
			if !math.IsNaN(returns[j]) {
				diff := returns[j] - mean
				variance += diff * diff
			}
		}
		histVol[i] = math.Sqrt(variance/(count-1)) * annualize * 100
	}

	yearWindow := int(market.BarsPerYear(timeframe))
	for i := 0; i < n; i++ {
		if math.IsNaN(histVol[i]) {
			continue
		}
		lo := 0
		if yearWindow > 0 && i-yearWindow+1 > 0 {
			lo = i - yearWindow + 1
		}
		minV, maxV := math.Inf(1), math.Inf(-1)
		for j := lo; j <= i; j++ {
			if math.IsNaN(histVol[j]) {
				continue
			}
			minV = math.Min(minV, histVol[j])
			maxV = math.Max(maxV, histVol[j])
		}
		if maxV-minV < 1e-12 {
			volIndex[i] = 50
			continue
		}
		volIndex[i] = (histVol[i] - minV) / (maxV - minV) * 100
	}
	return histVol, volIndex
}

// ============================================================================
// TREND STRENGTH (ADX)
// ============================================================================

// adxSeries computes the average directional index from rolling directional
// movement sums. Zero true-range or DI sums yield 0, never NaN or Inf.
func adxSeries(candles []market.Candle, tr, atr []float64, period int) []float64 {
	n := len(candles)
	out := nanSlice(n)
	if n < 2*period+1 {
		return out
	}

	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low
		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	dx := nanSlice(n)
	for i := period; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			dx[i] = 0
			continue
		}
		var plusSum, minusSum float64
		for j := i - period + 1; j <= i; j++ {
			plusSum += plusDM[j]
			minusSum += minusDM[j]
		}
		plusDI := 100 * plusSum / float64(period) / atr[i]
		minusDI := 100 * minusSum / float64(period) / atr[i]
		if plusDI+minusDI == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}

	for i := 2 * period; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += dx[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// ============================================================================
// HELPERS
// ============================================================================

// rollingMean computes a simple rolling mean over defined values, skipping
// the leading NaN entries of the input.
func rollingMean(values []float64, period int) []float64 {
	n := len(values)
	out := nanSlice(n)

	first := -1
	for i, v := range values {
		if !math.IsNaN(v) {
			first = i
			break
		}
	}
	if first < 0 || n-first < period {
		return out
	}

	for i := first + period - 1; i < n; i++ {
		var sum float64
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

func nanSlice(n int) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}
