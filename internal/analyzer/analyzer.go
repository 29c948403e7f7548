// Package analyzer orchestrates one full analysis run: candles in,
// structured signal report out.
package analyzer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"signal-analyzer/internal/backtest"
	"signal-analyzer/internal/confidence"
	"signal-analyzer/internal/confirm"
	"signal-analyzer/internal/forecast"
	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/market"
	"signal-analyzer/internal/ml"
	"signal-analyzer/internal/sentiment"
	"signal-analyzer/internal/strategy"
)

// SentimentSource supplies the optional fear/greed reading
type SentimentSource interface {
	FearGreed(ctx context.Context) (*sentiment.Reading, error)
}

// TradeHistory supplies completed trade records for the pattern matcher
type TradeHistory interface {
	ListCompletedTrades(ctx context.Context) ([]ml.Record, error)
}

// Request describes one analysis run
type Request struct {
	Symbol        string   `json:"symbol"`
	Strategy      string   `json:"strategy"`
	TradingType   string   `json:"trading_type"`
	Confirmations []string `json:"confirmations"`
	Capital       float64  `json:"capital"`
	RiskFraction  float64  `json:"risk_fraction"`
	RunBacktest   bool     `json:"run_backtest"`
	RunForecast   bool     `json:"run_forecast"`
}

// Report is the structured result of one run. Optional sections are nil
// when their inputs were unavailable or not requested.
type Report struct {
	ID           string               `json:"id"`
	Symbol       string               `json:"symbol"`
	Strategy     string               `json:"strategy"`
	TradingType  string               `json:"trading_type"`
	Timeframe    string               `json:"timeframe"`
	GeneratedAt  time.Time            `json:"generated_at"`
	Price        float64              `json:"price"`
	Snapshot     indicators.Snapshot  `json:"snapshot"`
	Direction    strategy.Direction   `json:"direction,omitempty"`
	LongPlan     strategy.TradePlan   `json:"long_plan"`
	ShortPlan    strategy.TradePlan   `json:"short_plan"`
	Confirmation confirm.Result       `json:"confirmation"`
	Confidence   float64              `json:"confidence"`
	FearGreed    *sentiment.Reading   `json:"fear_greed,omitempty"`
	Backtest     *backtest.Result     `json:"backtest,omitempty"`
	Forecast     *forecast.Forecast   `json:"forecast,omitempty"`
	MLEstimate   *ml.Estimate         `json:"ml_estimate,omitempty"`
}

// Options tunes service-wide behavior. DefaultStrategy and
// DefaultTradingType name the profiles used when a request leaves them
// blank; unknown or empty names fall back to the package defaults.
type Options struct {
	DefaultStrategy    string
	DefaultTradingType string
	Weights            confidence.Weights
	Backtest           backtest.Config
	Trailing           strategy.TrailingConfig
}

// Service wires the pipeline together. Sentiment and history are optional;
// nil degrades those report sections gracefully.
type Service struct {
	source         market.Source
	sentiment      SentimentSource
	history        TradeHistory
	opts           Options
	defaultProfile strategy.Profile
	defaultType    strategy.TradingType
	logger         zerolog.Logger
}

// NewService builds an analyzer over the given market-data source
func NewService(source market.Source, sent SentimentSource, history TradeHistory, opts Options, logger zerolog.Logger) *Service {
	if opts.Weights == (confidence.Weights{}) {
		opts.Weights = confidence.DefaultWeights()
	}
	defaultProfile := strategy.DefaultProfile()
	if p, ok := strategy.ProfileByName(opts.DefaultStrategy); ok {
		defaultProfile = p
	}
	defaultType := strategy.DefaultTradingType()
	if tt, ok := strategy.TradingTypeByName(opts.DefaultTradingType); ok {
		defaultType = tt
	}
	return &Service{
		source:         source,
		sentiment:      sent,
		history:        history,
		opts:           opts,
		defaultProfile: defaultProfile,
		defaultType:    defaultType,
		logger:         logger.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze runs the full pipeline for one request
func (s *Service) Analyze(ctx context.Context, req Request) (*Report, error) {
	profile := s.defaultProfile
	if req.Strategy != "" {
		var ok bool
		if profile, ok = strategy.ProfileByName(req.Strategy); !ok {
			return nil, fmt.Errorf("unknown strategy %q", req.Strategy)
		}
	}
	tt := s.defaultType
	if req.TradingType != "" {
		var ok bool
		if tt, ok = strategy.TradingTypeByName(req.TradingType); !ok {
			return nil, fmt.Errorf("unknown trading type %q", req.TradingType)
		}
	}
	if req.Capital <= 0 {
		return nil, fmt.Errorf("capital must be positive, got %.2f", req.Capital)
	}
	if req.RiskFraction <= 0 || req.RiskFraction > 1 {
		return nil, fmt.Errorf("risk fraction must be in (0, 1], got %.4f", req.RiskFraction)
	}

	candles, err := s.source.FetchCandles(ctx, req.Symbol, tt.Timeframe, tt.LookbackDays)
	if err != nil {
		return nil, err
	}

	bars, err := indicators.Enrich(candles, tt.Timeframe)
	if err != nil {
		return nil, err
	}
	if err := indicators.CheckHistory(req.Symbol, tt.Timeframe, len(bars)); err != nil {
		return nil, err
	}

	latest := bars[len(bars)-1]
	var prev *indicators.Bar
	if len(bars) > 1 {
		prev = &bars[len(bars)-2]
	}

	kinds := confirm.ParseKinds(req.Confirmations)
	score := confirm.Evaluate(latest, prev, kinds)

	riskFraction := strategy.AdjustRisk(req.RiskFraction, latest.RSI, latest.Trend, latest.ADX, score.Rating)
	longPlan := strategy.BuildPlan(latest, profile, strategy.DirectionLong, riskFraction, req.Capital, s.opts.Trailing)
	shortPlan := strategy.BuildPlan(latest, profile, strategy.DirectionShort, riskFraction, req.Capital, s.opts.Trailing)

	report := &Report{
		ID:           uuid.New().String(),
		Symbol:       req.Symbol,
		Strategy:     profile.Name,
		TradingType:  tt.Name,
		Timeframe:    tt.Timeframe,
		GeneratedAt:  time.Now().UTC(),
		Price:        latest.Close,
		Snapshot:     latest.Snapshot,
		Direction:    recommend(latest, profile),
		LongPlan:     longPlan,
		ShortPlan:    shortPlan,
		Confirmation: score,
	}

	report.FearGreed = s.fetchSentiment(ctx, req.Symbol)
	report.Confidence = confidence.Score(confidence.Inputs{
		Reliability:     score.Rating,
		FearGreed:       fgValue(report.FearGreed),
		VolatilityIndex: volValue(latest.Snapshot),
	}, s.opts.Weights)

	if req.RunBacktest {
		cfg := s.opts.Backtest
		cfg.StartingCapital = req.Capital
		cfg.RiskFraction = req.RiskFraction
		bt, err := backtest.Run(bars, profile, kinds, cfg)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", req.Symbol).Msg("backtest skipped")
		} else {
			report.Backtest = bt
		}
	}

	if req.RunForecast && report.Direction != "" {
		report.Forecast = forecast.Estimate(bars, latest, profile, report.Direction)
	}

	report.MLEstimate = s.matchHistory(ctx, report, kinds)

	s.logger.Info().
		Str("symbol", req.Symbol).
		Str("strategy", profile.Name).
		Str("direction", string(report.Direction)).
		Float64("confidence", report.Confidence).
		Int("bars", len(bars)).
		Msg("analysis complete")

	return report, nil
}

// Backtest fetches history for the request and replays the strategy over
// it. Unlike the optional backtest section of Analyze, errors here are
// returned to the caller.
func (s *Service) Backtest(ctx context.Context, req Request) (*backtest.Result, error) {
	profile := s.defaultProfile
	if req.Strategy != "" {
		var ok bool
		if profile, ok = strategy.ProfileByName(req.Strategy); !ok {
			return nil, fmt.Errorf("unknown strategy %q", req.Strategy)
		}
	}
	tt := s.defaultType
	if req.TradingType != "" {
		var ok bool
		if tt, ok = strategy.TradingTypeByName(req.TradingType); !ok {
			return nil, fmt.Errorf("unknown trading type %q", req.TradingType)
		}
	}

	candles, err := s.source.FetchCandles(ctx, req.Symbol, tt.Timeframe, tt.LookbackDays)
	if err != nil {
		return nil, err
	}
	bars, err := indicators.Enrich(candles, tt.Timeframe)
	if err != nil {
		return nil, err
	}

	cfg := s.opts.Backtest
	if req.Capital > 0 {
		cfg.StartingCapital = req.Capital
	}
	if req.RiskFraction > 0 {
		cfg.RiskFraction = req.RiskFraction
	}
	return backtest.Run(bars, profile, confirm.ParseKinds(req.Confirmations), cfg)
}

// recommend derives the directional bias from trend and momentum. An
// ambiguous read yields no recommendation.
func recommend(bar indicators.Bar, p strategy.Profile) strategy.Direction {
	if math.IsNaN(bar.RSI) {
		return ""
	}
	if bar.Trend == indicators.TrendUp && bar.RSI > p.RSIFilter {
		return strategy.DirectionLong
	}
	if bar.Trend == indicators.TrendDown && bar.RSI < p.RSIFilter {
		return strategy.DirectionShort
	}
	return ""
}

func (s *Service) fetchSentiment(ctx context.Context, symbol string) *sentiment.Reading {
	if s.sentiment == nil {
		return nil
	}
	reading, err := s.sentiment.FearGreed(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Msg("sentiment unavailable, using neutral defaults")
		return nil
	}
	return reading
}

func (s *Service) matchHistory(ctx context.Context, report *Report, kinds []confirm.Kind) *ml.Estimate {
	if s.history == nil || report.Direction == "" {
		return nil
	}
	records, err := s.history.ListCompletedTrades(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("trade history unavailable")
		return nil
	}

	best := report.LongPlan.RiskReward
	if report.ShortPlan.RiskReward > best {
		best = report.ShortPlan.RiskReward
	}
	return ml.Predict(ml.Descriptor{
		Strategy:      report.Strategy,
		TradingType:   report.TradingType,
		Direction:     report.Direction,
		Trend:         string(report.Snapshot.Trend),
		RiskReward:    best,
		Confirmations: kinds,
	}, records)
}

func fgValue(r *sentiment.Reading) *float64 {
	if r == nil {
		return nil
	}
	v := r.Value
	return &v
}

func volValue(s indicators.Snapshot) *float64 {
	if math.IsNaN(s.VolIndex) {
		return nil
	}
	v := s.VolIndex
	return &v
}
