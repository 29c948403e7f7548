// Command backtest replays a strategy over historical candles from the
// command line and prints the run summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"signal-analyzer/internal/backtest"
	"signal-analyzer/internal/confirm"
	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/market"
	"signal-analyzer/internal/strategy"
)

func main() {
	_ = godotenv.Load()

	var (
		symbol        = flag.String("symbol", "BTCUSDT", "trading pair to backtest")
		strategyName  = flag.String("strategy", "balanced", "strategy profile: conservative, balanced, aggressive")
		tradingType   = flag.String("type", "daytrading", "trading type: scalping, daytrading, swing, medium_term, long_term")
		confirmations = flag.String("confirmations", "ALL", "comma-separated confirmation set, or ALL")
		capital       = flag.Float64("capital", 10000, "starting capital")
		risk          = flag.Float64("risk", 0.02, "risk fraction per trade")
		commission    = flag.Float64("commission", 0.001, "commission rate per side")
		spread        = flag.Float64("spread", 0.05, "spread percent per side")
		mock          = flag.Bool("mock", false, "use simulated candles instead of live data")
		baseURL       = flag.String("base-url", "", "market data base URL")
	)
	flag.Parse()

	profile, ok := strategy.ProfileByName(*strategyName)
	if !ok {
		fail("unknown strategy %q (want one of %s)", *strategyName, strings.Join(strategy.ProfileNames(), ", "))
	}
	tt, ok := strategy.TradingTypeByName(*tradingType)
	if !ok {
		fail("unknown trading type %q (want one of %s)", *tradingType, strings.Join(strategy.TradingTypeNames(), ", "))
	}

	var source market.Source
	if *mock {
		source = market.NewMockSource(time.Now().UnixNano())
	} else {
		source = market.NewClient(*baseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	candles, err := source.FetchCandles(ctx, *symbol, tt.Timeframe, tt.LookbackDays)
	if err != nil {
		fail("fetching candles: %v", err)
	}

	bars, err := indicators.Enrich(candles, tt.Timeframe)
	if err != nil {
		fail("computing indicators: %v", err)
	}

	result, err := backtest.Run(bars, profile, confirm.ParseKinds(strings.Split(*confirmations, ",")), backtest.Config{
		StartingCapital: *capital,
		RiskFraction:    *risk,
		CommissionRate:  *commission,
		SpreadPct:       *spread,
	})
	if err != nil {
		fail("backtest: %v", err)
	}

	printResult(*symbol, profile.Name, tt.Name, len(bars), result)
}

func printResult(symbol, profileName, ttName string, bars int, r *backtest.Result) {
	fmt.Printf("Backtest: %s  strategy=%s  type=%s  bars=%d\n\n", symbol, profileName, ttName, bars)
	fmt.Printf("Total trades:   %d\n", r.TotalTrades)
	fmt.Printf("Winning trades: %d\n", r.WinningTrades)
	fmt.Printf("Losing trades:  %d\n", r.LosingTrades)
	fmt.Printf("Win rate:       %.1f%%\n", r.WinRate)
	fmt.Printf("Total return:   %.2f%%\n", r.TotalReturnPct)
	fmt.Printf("Max drawdown:   %.2f%%\n", r.MaxDrawdown)
	fmt.Printf("Average R:R:    %.2f\n", r.AverageRR)
	fmt.Printf("Final capital:  %.2f\n", r.FinalCapital)

	if len(r.Trades) > 0 {
		fmt.Println("\nLast trades:")
		start := len(r.Trades) - 5
		if start < 0 {
			start = 0
		}
		for _, t := range r.Trades[start:] {
			fmt.Printf("  %s %s entry=%.4f exit=%.4f profit=%.2f (%s)\n",
				t.EntryTime.Format("2006-01-02 15:04"), t.Direction, t.EntryPrice, t.ExitPrice, t.Profit, t.ExitReason)
		}
	}
}

func fail(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
