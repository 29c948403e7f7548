package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection pool
func NewDB(cfg Config, logger zerolog.Logger) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log := logger.With().Str("component", "database").Logger()
	log.Info().Str("database", cfg.Database).Msg("connected to PostgreSQL")

	return &DB{Pool: pool, logger: log}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info().Msg("database connection closed")
	}
}

// HealthCheck verifies the database is reachable
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.Pool.Ping(ctx)
}

// RunMigrations executes schema migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	db.logger.Info().Msg("running database migrations")

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS reports (
			id UUID PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			strategy VARCHAR(20) NOT NULL,
			trading_type VARCHAR(20) NOT NULL,
			timeframe VARCHAR(5) NOT NULL,
			direction VARCHAR(5),
			price DECIMAL(20, 8) NOT NULL,
			confidence DECIMAL(5, 2) NOT NULL,
			reliability DECIMAL(5, 2) NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_symbol_created
			ON reports(symbol, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS trade_records (
			id SERIAL PRIMARY KEY,
			strategy VARCHAR(20) NOT NULL,
			trading_type VARCHAR(20) NOT NULL,
			direction VARCHAR(5) NOT NULL,
			trend VARCHAR(10) NOT NULL,
			risk_reward DECIMAL(10, 2) NOT NULL,
			confirmations TEXT[] NOT NULL DEFAULT '{}',
			success BOOLEAN NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id SERIAL PRIMARY KEY,
			symbol VARCHAR(20) NOT NULL,
			strategy VARCHAR(20) NOT NULL,
			trading_type VARCHAR(20) NOT NULL,
			confirmations TEXT[] NOT NULL DEFAULT '{}',
			min_reliability DECIMAL(5, 2) NOT NULL DEFAULT 60,
			capital DECIMAL(20, 8) NOT NULL,
			risk_fraction DECIMAL(6, 4) NOT NULL,
			chat_id VARCHAR(32),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			last_check TIMESTAMPTZ,
			last_signal_price DECIMAL(20, 8),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_active
			ON subscriptions(active, last_check)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	db.logger.Info().Int("count", len(migrations)).Msg("migrations complete")
	return nil
}
