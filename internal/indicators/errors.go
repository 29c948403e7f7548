package indicators

import (
	"errors"
	"fmt"
)

// ErrEmptySeries indicates the candle series has no bars at all. No analysis
// is possible; the caller must stop.
var ErrEmptySeries = errors.New("indicators: empty candle series")

// InsufficientHistoryError indicates the series is too short to warm up the
// indicators that price-level math depends on (notably ATR).
type InsufficientHistoryError struct {
	Symbol    string
	Timeframe string
	Got       int
	Need      int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("indicators: insufficient history for %s %s: got %d bars, need at least %d",
		e.Symbol, e.Timeframe, e.Got, e.Need)
}

// CheckHistory validates that got bars are enough for level computation.
func CheckHistory(symbol, timeframe string, got int) error {
	if got == 0 {
		return ErrEmptySeries
	}
	if got < MinBars {
		return &InsufficientHistoryError{Symbol: symbol, Timeframe: timeframe, Got: got, Need: MinBars}
	}
	return nil
}

// IsInsufficientHistory reports whether err is an insufficient-history error.
func IsInsufficientHistory(err error) bool {
	var ihe *InsufficientHistoryError
	return errors.As(err, &ihe)
}
