package analyzer

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"signal-analyzer/internal/market"
	"signal-analyzer/internal/ml"
	"signal-analyzer/internal/strategy"
)

func newTestService() *Service {
	return NewService(market.NewMockSource(42), nil, nil, Options{}, zerolog.Nop())
}

func baseRequest() Request {
	return Request{
		Symbol:       "BTCUSDT",
		Strategy:     "balanced",
		TradingType:  "daytrading",
		Capital:      10000,
		RiskFraction: 0.02,
	}
}

func TestAnalyzeRoundTrip(t *testing.T) {
	svc := newTestService()
	report, err := svc.Analyze(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if report.ID == "" {
		t.Error("report has no ID")
	}
	if report.Symbol != "BTCUSDT" {
		t.Errorf("Symbol = %q, want BTCUSDT", report.Symbol)
	}
	if report.Strategy != "balanced" || report.TradingType != "daytrading" {
		t.Errorf("profile echo = %q/%q", report.Strategy, report.TradingType)
	}
	if report.Timeframe != "1h" {
		t.Errorf("Timeframe = %q, want 1h", report.Timeframe)
	}
	if report.Price <= 0 {
		t.Errorf("Price = %f, want positive", report.Price)
	}
	if report.Confidence < 0 || report.Confidence > 100 {
		t.Errorf("Confidence = %f outside [0, 100]", report.Confidence)
	}

	long, short := report.LongPlan, report.ShortPlan
	if long.StopLoss >= long.Entry {
		t.Errorf("long stop %f not below entry %f", long.StopLoss, long.Entry)
	}
	if long.TakeProfit <= long.Entry {
		t.Errorf("long target %f not above entry %f", long.TakeProfit, long.Entry)
	}
	if short.StopLoss <= short.Entry {
		t.Errorf("short stop %f not above entry %f", short.StopLoss, short.Entry)
	}
	if short.TakeProfit >= short.Entry {
		t.Errorf("short target %f not below entry %f", short.TakeProfit, short.Entry)
	}
	if long.RiskReward <= 0 {
		t.Errorf("long RiskReward = %f, want positive", long.RiskReward)
	}
}

func TestAnalyzeDefaultsWhenUnset(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	req.Strategy = ""
	req.TradingType = ""

	report, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Strategy != strategy.DefaultProfile().Name {
		t.Errorf("Strategy = %q, want default %q", report.Strategy, strategy.DefaultProfile().Name)
	}
	if report.TradingType != strategy.DefaultTradingType().Name {
		t.Errorf("TradingType = %q, want default %q", report.TradingType, strategy.DefaultTradingType().Name)
	}
}

func TestAnalyzeUsesConfiguredDefaults(t *testing.T) {
	opts := Options{DefaultStrategy: "aggressive", DefaultTradingType: "swing"}
	svc := NewService(market.NewMockSource(42), nil, nil, opts, zerolog.Nop())
	req := baseRequest()
	req.Strategy = ""
	req.TradingType = ""

	report, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Strategy != "aggressive" {
		t.Errorf("Strategy = %q, want configured default aggressive", report.Strategy)
	}
	if report.TradingType != "swing" {
		t.Errorf("TradingType = %q, want configured default swing", report.TradingType)
	}
	if report.Timeframe != "4h" {
		t.Errorf("Timeframe = %q, want 4h for swing", report.Timeframe)
	}

	// an explicit request still overrides the configured default
	req.Strategy = "balanced"
	req.TradingType = "daytrading"
	report, err = svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Strategy != "balanced" || report.TradingType != "daytrading" {
		t.Errorf("override echo = %q/%q", report.Strategy, report.TradingType)
	}
}

func TestAnalyzeRejectsBadRequest(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"unknown strategy", func(r *Request) { r.Strategy = "yolo" }},
		{"unknown trading type", func(r *Request) { r.TradingType = "hodl" }},
		{"zero capital", func(r *Request) { r.Capital = 0 }},
		{"negative risk", func(r *Request) { r.RiskFraction = -0.01 }},
		{"risk above one", func(r *Request) { r.RiskFraction = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := baseRequest()
			tt.mutate(&req)
			if _, err := svc.Analyze(context.Background(), req); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestAnalyzeWithConfirmations(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	req.Confirmations = []string{"EMA", "RSI", "MACD"}

	report, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Confirmation.NoSelection {
		t.Error("confirmation marked NoSelection despite explicit kinds")
	}
	if report.Confirmation.Total != 3 {
		t.Errorf("Confirmation.Total = %d, want 3", report.Confirmation.Total)
	}
	if report.Confirmation.Rating < 0 || report.Confirmation.Rating > 100 {
		t.Errorf("Rating = %f outside [0, 100]", report.Confirmation.Rating)
	}
}

func TestAnalyzeOptionalSectionsAbsentByDefault(t *testing.T) {
	svc := newTestService()
	report, err := svc.Analyze(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.FearGreed != nil {
		t.Error("FearGreed set without a sentiment source")
	}
	if report.Backtest != nil {
		t.Error("Backtest set without being requested")
	}
	if report.MLEstimate != nil {
		t.Error("MLEstimate set without trade history")
	}
}

func TestAnalyzeRunBacktest(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	req.Confirmations = []string{"RSI"}
	req.RunBacktest = true

	report, err := svc.Analyze(context.Background(), req)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.Backtest == nil {
		t.Fatal("expected a backtest section")
	}
	if report.Backtest.FinalCapital < 0 {
		t.Errorf("backtest final capital = %f, want non-negative", report.Backtest.FinalCapital)
	}
	if len(report.Backtest.EquityCurve) == 0 {
		t.Error("backtest has no equity curve")
	}
}

type stubHistory struct {
	records []ml.Record
	err     error
}

func (s *stubHistory) ListCompletedTrades(ctx context.Context) ([]ml.Record, error) {
	return s.records, s.err
}

func TestAnalyzeHistoryErrorDegrades(t *testing.T) {
	svc := NewService(market.NewMockSource(42), nil, &stubHistory{err: context.DeadlineExceeded}, Options{}, zerolog.Nop())
	report, err := svc.Analyze(context.Background(), baseRequest())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if report.MLEstimate != nil {
		t.Error("MLEstimate set despite history error")
	}
}

func TestBacktestMethod(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	req.Confirmations = []string{"RSI"}

	res, err := svc.Backtest(context.Background(), req)
	if err != nil {
		t.Fatalf("Backtest failed: %v", err)
	}
	if res.FinalCapital < 0 {
		t.Errorf("FinalCapital = %f, want non-negative", res.FinalCapital)
	}
	if res.WinRate < 0 || res.WinRate > 100 {
		t.Errorf("WinRate = %f outside [0, 100]", res.WinRate)
	}
}

func TestBacktestMethodUnknownStrategy(t *testing.T) {
	svc := newTestService()
	req := baseRequest()
	req.Strategy = "yolo"
	if _, err := svc.Backtest(context.Background(), req); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
