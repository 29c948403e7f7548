package market

import (
	"errors"
	"fmt"
)

// ErrNoData indicates the exchange answered but returned no candles for the
// symbol/timeframe combination. Distinct from connectivity failures so the
// caller can tell "invalid symbol" apart from "network down".
var ErrNoData = errors.New("market: no candle data for symbol")

// ConnectivityError wraps a transport-level failure reaching the data source.
type ConnectivityError struct {
	Source string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("market: %s unreachable: %v", e.Source, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// IsConnectivity reports whether err is a transport-level failure.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}
