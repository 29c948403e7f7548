// Package worker runs the auto-signal loop: it periodically re-analyzes
// subscribed symbols and pushes alerts when a qualifying signal appears.
package worker

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"signal-analyzer/internal/analyzer"
	"signal-analyzer/internal/database"
	"signal-analyzer/internal/notification"
	"signal-analyzer/internal/strategy"
)

// repeatSignalThreshold suppresses alerts until price has moved at least
// this fraction from the last alerted price
const repeatSignalThreshold = 0.01

// Broadcaster pushes a live signal to connected clients
type Broadcaster interface {
	BroadcastSignal(report *analyzer.Report)
}

// Store is the subscription persistence the worker needs
type Store interface {
	ListActiveSubscriptions(ctx context.Context) ([]database.Subscription, error)
	MarkSubscriptionChecked(ctx context.Context, id int64, checkedAt time.Time, signalPrice *float64) error
}

// Worker drives periodic subscription checks
type Worker struct {
	analyzer    *analyzer.Service
	store       Store
	notifier    *notification.Manager
	broadcaster Broadcaster
	interval    time.Duration
	logger      zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// New builds a worker. notifier and broadcaster may be nil.
func New(svc *analyzer.Service, store Store, notifier *notification.Manager, broadcaster Broadcaster, interval time.Duration, logger zerolog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		analyzer:    svc,
		store:       store,
		notifier:    notifier,
		broadcaster: broadcaster,
		interval:    interval,
		logger:      logger.With().Str("component", "signal_worker").Logger(),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start launches the check loop in the background
func (w *Worker) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop signals the loop to exit and waits for it
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info().Dur("interval", w.interval).Msg("signal worker started")
	w.checkAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			w.logger.Info().Msg("signal worker stopped")
			return
		case <-ticker.C:
			w.checkAll(ctx)
		}
	}
}

func (w *Worker) checkAll(ctx context.Context) {
	subs, err := w.store.ListActiveSubscriptions(ctx)
	if err != nil {
		w.logger.Error().Err(err).Msg("failed to load subscriptions")
		return
	}

	now := time.Now()
	for _, sub := range subs {
		if !w.due(sub, now) {
			continue
		}
		w.check(ctx, sub, now)
	}
}

// due applies the subscription's trading-type cadence
func (w *Worker) due(sub database.Subscription, now time.Time) bool {
	if sub.LastCheck == nil {
		return true
	}
	tt, ok := strategy.TradingTypeByName(sub.TradingType)
	if !ok {
		tt = strategy.DefaultTradingType()
	}
	return now.Sub(*sub.LastCheck) >= tt.CheckInterval
}

func (w *Worker) check(ctx context.Context, sub database.Subscription, now time.Time) {
	report, err := w.analyzer.Analyze(ctx, analyzer.Request{
		Symbol:        sub.Symbol,
		Strategy:      sub.Strategy,
		TradingType:   sub.TradingType,
		Confirmations: sub.Confirmations,
		Capital:       sub.Capital,
		RiskFraction:  sub.RiskFraction,
	})
	if err != nil {
		w.logger.Warn().Err(err).Str("symbol", sub.Symbol).Int64("subscription", sub.ID).Msg("subscription check failed")
		w.markChecked(ctx, sub.ID, now, nil)
		return
	}

	if !w.qualifies(sub, report) {
		w.markChecked(ctx, sub.ID, now, nil)
		return
	}

	w.logger.Info().
		Str("symbol", sub.Symbol).
		Str("direction", string(report.Direction)).
		Float64("reliability", report.Confirmation.Rating).
		Msg("auto signal fired")

	if w.notifier != nil {
		plan := report.LongPlan
		if report.Direction == strategy.DirectionShort {
			plan = report.ShortPlan
		}
		if err := w.notifier.SendSignal(notification.SignalAlert{
			Symbol:      report.Symbol,
			Strategy:    report.Strategy,
			Direction:   report.Direction,
			Price:       report.Price,
			Entry:       plan.Entry,
			StopLoss:    plan.StopLoss,
			TakeProfit:  plan.TakeProfit,
			RiskReward:  plan.RiskReward,
			Reliability: report.Confirmation.Rating,
			Confidence:  report.Confidence,
			ChatID:      sub.ChatID,
		}); err != nil {
			w.logger.Warn().Err(err).Str("symbol", sub.Symbol).Msg("signal notification failed")
		}
	}

	if w.broadcaster != nil {
		w.broadcaster.BroadcastSignal(report)
	}

	price := report.Price
	w.markChecked(ctx, sub.ID, now, &price)
}

// qualifies gates a signal on direction, reliability and price movement
// since the previous alert
func (w *Worker) qualifies(sub database.Subscription, report *analyzer.Report) bool {
	if report.Direction == "" {
		return false
	}
	if report.Confirmation.Rating < sub.MinReliability {
		return false
	}
	if sub.LastSignalPrice != nil && *sub.LastSignalPrice > 0 {
		change := math.Abs(report.Price-*sub.LastSignalPrice) / *sub.LastSignalPrice
		if change < repeatSignalThreshold {
			return false
		}
	}
	return true
}

func (w *Worker) markChecked(ctx context.Context, id int64, now time.Time, price *float64) {
	if err := w.store.MarkSubscriptionChecked(ctx, id, now, price); err != nil {
		w.logger.Error().Err(err).Int64("subscription", id).Msg("failed to update subscription")
	}
}
