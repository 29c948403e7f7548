package strategy

import (
	"sort"
	"strings"
	"time"
)

// Direction of a trade setup
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// Anchor selects the price a strategy's entry trigger is derived from
type Anchor string

const (
	AnchorClose Anchor = "close"
	AnchorEMA20 Anchor = "ema20"
	AnchorEMA50 Anchor = "ema50"
)

// Profile is a named strategy configuration. Profiles are immutable lookup
// data; callers receive copies.
type Profile struct {
	Name        string
	EntryAnchor Anchor
	StopATR     float64 // stop distance in ATR multiples
	TargetATR   float64 // target distance in ATR multiples
	EntryBuffer float64 // multiplicative offset applied to the anchor price
	RSIFilter   float64 // momentum threshold for the directional bias
}

var profiles = map[string]Profile{
	"conservative": {
		Name:        "conservative",
		EntryAnchor: AnchorEMA50,
		StopATR:     1.5,
		TargetATR:   1.8,
		EntryBuffer: 0.001,
		RSIFilter:   55,
	},
	"balanced": {
		Name:        "balanced",
		EntryAnchor: AnchorEMA20,
		StopATR:     1.2,
		TargetATR:   1.8,
		EntryBuffer: 0.0007,
		RSIFilter:   50,
	},
	"aggressive": {
		Name:        "aggressive",
		EntryAnchor: AnchorClose,
		StopATR:     1.0,
		TargetATR:   1.5,
		EntryBuffer: 0.0,
		RSIFilter:   45,
	},
}

// ProfileByName looks up a canonical strategy profile
func ProfileByName(name string) (Profile, bool) {
	p, ok := profiles[strings.ToLower(name)]
	return p, ok
}

// DefaultProfile is the balanced profile
func DefaultProfile() Profile {
	return profiles["balanced"]
}

// ProfileNames lists the canonical strategy names, sorted
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TradingType maps a trading horizon to its default timeframe, lookback and
// auto-signal check cadence. Immutable lookup data.
type TradingType struct {
	Name          string
	Timeframe     string
	LookbackDays  int
	CheckInterval time.Duration
}

var tradingTypes = map[string]TradingType{
	"scalping":    {Name: "scalping", Timeframe: "5m", LookbackDays: 7, CheckInterval: 5 * time.Minute},
	"daytrading":  {Name: "daytrading", Timeframe: "1h", LookbackDays: 30, CheckInterval: 30 * time.Minute},
	"swing":       {Name: "swing", Timeframe: "4h", LookbackDays: 90, CheckInterval: 4 * time.Hour},
	"medium_term": {Name: "medium_term", Timeframe: "1d", LookbackDays: 180, CheckInterval: 24 * time.Hour},
	"long_term":   {Name: "long_term", Timeframe: "1w", LookbackDays: 180, CheckInterval: 24 * time.Hour},
}

// TradingTypeByName looks up a canonical trading-type profile
func TradingTypeByName(name string) (TradingType, bool) {
	t, ok := tradingTypes[strings.ToLower(name)]
	return t, ok
}

// DefaultTradingType is daytrading
func DefaultTradingType() TradingType {
	return tradingTypes["daytrading"]
}

// TradingTypeNames lists the canonical trading-type names, sorted
func TradingTypeNames() []string {
	names := make([]string, 0, len(tradingTypes))
	for name := range tradingTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
