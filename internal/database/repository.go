package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"signal-analyzer/internal/analyzer"
	"signal-analyzer/internal/confirm"
	"signal-analyzer/internal/ml"
	"signal-analyzer/internal/strategy"
)

// Repository provides data access over the pool
type Repository struct {
	db *DB
}

// NewRepository creates a repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// ReportRow is a stored analysis report summary. The full report lives in
// the payload column.
type ReportRow struct {
	ID          string          `json:"id"`
	Symbol      string          `json:"symbol"`
	Strategy    string          `json:"strategy"`
	TradingType string          `json:"trading_type"`
	Timeframe   string          `json:"timeframe"`
	Direction   string          `json:"direction"`
	Price       float64         `json:"price"`
	Confidence  float64         `json:"confidence"`
	Reliability float64         `json:"reliability"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaveReport persists a completed analysis report
func (r *Repository) SaveReport(ctx context.Context, report *analyzer.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO reports (
			id, symbol, strategy, trading_type, timeframe,
			direction, price, confidence, reliability, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		report.ID, report.Symbol, report.Strategy, report.TradingType, report.Timeframe,
		string(report.Direction), report.Price, report.Confidence,
		report.Confirmation.Rating, payload, report.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// ListReports returns stored report summaries, newest first. symbol may be
// empty to list across all symbols.
func (r *Repository) ListReports(ctx context.Context, symbol string, limit, offset int) ([]ReportRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, symbol, strategy, trading_type, timeframe,
		       COALESCE(direction, ''), price, confidence, reliability, payload, created_at
		FROM reports
		WHERE ($1 = '' OR symbol = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Pool.Query(ctx, query, symbol, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var row ReportRow
		if err := rows.Scan(
			&row.ID, &row.Symbol, &row.Strategy, &row.TradingType, &row.Timeframe,
			&row.Direction, &row.Price, &row.Confidence, &row.Reliability,
			&row.Payload, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SaveTradeRecord stores one completed trade outcome for the pattern
// matcher
func (r *Repository) SaveTradeRecord(ctx context.Context, rec ml.Record) error {
	query := `
		INSERT INTO trade_records (
			strategy, trading_type, direction, trend, risk_reward, confirmations, success
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		rec.Strategy, rec.TradingType, string(rec.Direction), rec.Trend,
		rec.RiskReward, kindsToStrings(rec.Confirmations), rec.Success,
	)
	if err != nil {
		return fmt.Errorf("failed to save trade record: %w", err)
	}
	return nil
}

// ListCompletedTrades returns all stored trade outcomes
func (r *Repository) ListCompletedTrades(ctx context.Context) ([]ml.Record, error) {
	query := `
		SELECT strategy, trading_type, direction, trend, risk_reward, confirmations, success
		FROM trade_records
		ORDER BY created_at DESC
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list trade records: %w", err)
	}
	defer rows.Close()

	var out []ml.Record
	for rows.Next() {
		var rec ml.Record
		var direction string
		var confirmations []string
		if err := rows.Scan(
			&rec.Strategy, &rec.TradingType, &direction, &rec.Trend,
			&rec.RiskReward, &confirmations, &rec.Success,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trade record: %w", err)
		}
		rec.Direction = strategy.Direction(direction)
		rec.Confirmations = confirm.ParseKinds(confirmations)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Subscription is one auto-signal watch
type Subscription struct {
	ID              int64      `json:"id"`
	Symbol          string     `json:"symbol"`
	Strategy        string     `json:"strategy"`
	TradingType     string     `json:"trading_type"`
	Confirmations   []string   `json:"confirmations"`
	MinReliability  float64    `json:"min_reliability"`
	Capital         float64    `json:"capital"`
	RiskFraction    float64    `json:"risk_fraction"`
	ChatID          string     `json:"chat_id"`
	Active          bool       `json:"active"`
	LastCheck       *time.Time `json:"last_check,omitempty"`
	LastSignalPrice *float64   `json:"last_signal_price,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// CreateSubscription registers an auto-signal watch
func (r *Repository) CreateSubscription(ctx context.Context, sub *Subscription) (int64, error) {
	query := `
		INSERT INTO subscriptions (
			symbol, strategy, trading_type, confirmations,
			min_reliability, capital, risk_fraction, chat_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	var id int64
	err := r.db.Pool.QueryRow(ctx, query,
		sub.Symbol, sub.Strategy, sub.TradingType, sub.Confirmations,
		sub.MinReliability, sub.Capital, sub.RiskFraction, sub.ChatID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create subscription: %w", err)
	}
	return id, nil
}

// ListActiveSubscriptions returns every active watch
func (r *Repository) ListActiveSubscriptions(ctx context.Context) ([]Subscription, error) {
	query := `
		SELECT id, symbol, strategy, trading_type, confirmations,
		       min_reliability, capital, risk_fraction, COALESCE(chat_id, ''),
		       active, last_check, last_signal_price, created_at
		FROM subscriptions
		WHERE active = TRUE
		ORDER BY id
	`
	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(
			&sub.ID, &sub.Symbol, &sub.Strategy, &sub.TradingType, &sub.Confirmations,
			&sub.MinReliability, &sub.Capital, &sub.RiskFraction, &sub.ChatID,
			&sub.Active, &sub.LastCheck, &sub.LastSignalPrice, &sub.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

// MarkSubscriptionChecked records the check time and, if a signal fired,
// the price it fired at
func (r *Repository) MarkSubscriptionChecked(ctx context.Context, id int64, checkedAt time.Time, signalPrice *float64) error {
	query := `
		UPDATE subscriptions
		SET last_check = $2,
		    last_signal_price = COALESCE($3, last_signal_price)
		WHERE id = $1
	`
	_, err := r.db.Pool.Exec(ctx, query, id, checkedAt, signalPrice)
	if err != nil {
		return fmt.Errorf("failed to update subscription %d: %w", id, err)
	}
	return nil
}

func kindsToStrings(kinds []confirm.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
