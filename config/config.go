package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	MarketConfig       MarketConfig       `json:"market"`
	AnalysisConfig     AnalysisConfig     `json:"analysis"`
	ConfidenceConfig   ConfidenceConfig   `json:"confidence"`
	SentimentConfig    SentimentConfig    `json:"sentiment"`
	BacktestConfig     BacktestConfig     `json:"backtest"`
	ServerConfig       ServerConfig       `json:"server"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	NotificationConfig NotificationConfig `json:"notification"`
	WorkerConfig       WorkerConfig       `json:"worker"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// MarketConfig holds market-data source settings
type MarketConfig struct {
	BaseURL  string `json:"base_url"`
	MockMode bool   `json:"mock_mode"` // serve simulated candles instead of live data
}

// AnalysisConfig holds defaults for analysis requests
type AnalysisConfig struct {
	DefaultStrategy     string  `json:"default_strategy"`
	DefaultTradingType  string  `json:"default_trading_type"`
	DefaultCapital      float64 `json:"default_capital"`
	DefaultRiskFraction float64 `json:"default_risk_fraction"`
	TrailingEnabled     bool    `json:"trailing_enabled"`
	TrailingFraction    float64 `json:"trailing_fraction"`
}

// ConfidenceConfig exposes the aggregator weights as tunables
type ConfidenceConfig struct {
	ReliabilityWeight float64 `json:"reliability_weight"`
	FearGreedWeight   float64 `json:"fear_greed_weight"`
	VolatilityWeight  float64 `json:"volatility_weight"`
}

// SentimentConfig holds the fear/greed source settings
type SentimentConfig struct {
	Enabled  bool          `json:"enabled"`
	Endpoint string        `json:"endpoint"`
	CacheTTL time.Duration `json:"cache_ttl"`
}

// BacktestConfig holds simulator cost defaults
type BacktestConfig struct {
	CommissionRate float64 `json:"commission_rate"` // per side, on notional
	SpreadPct      float64 `json:"spread_pct"`      // per side, percent of notional
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	ProductionMode bool     `json:"production_mode"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds candle-cache settings
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// NotificationConfig holds alert delivery settings
type NotificationConfig struct {
	Enabled  bool           `json:"enabled"`
	Telegram TelegramConfig `json:"telegram"`
	Discord  DiscordConfig  `json:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled"`
	WebhookURL string `json:"webhook_url"`
}

// WorkerConfig holds the auto-signal loop settings
type WorkerConfig struct {
	Enabled      bool          `json:"enabled"`
	TickInterval time.Duration `json:"tick_interval"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // debug, info, warn, error
	JSONFormat bool   `json:"json_format"` // structured output instead of console
}

// Load reads config.json if present and applies environment overrides on
// top. Environment variables take precedence.
func Load() (*Config, error) {
	cfg, err := loadFromFile("config.json")
	if err != nil {
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	// Market data
	cfg.MarketConfig.BaseURL = getEnvOrDefault("MARKET_BASE_URL", cfg.MarketConfig.BaseURL)
	cfg.MarketConfig.MockMode = getEnvOrDefault("MOCK_MODE", boolString(cfg.MarketConfig.MockMode)) == "true"

	// Analysis defaults
	cfg.AnalysisConfig.DefaultStrategy = getEnvOrDefault("ANALYSIS_DEFAULT_STRATEGY", defaultString(cfg.AnalysisConfig.DefaultStrategy, "balanced"))
	cfg.AnalysisConfig.DefaultTradingType = getEnvOrDefault("ANALYSIS_DEFAULT_TRADING_TYPE", defaultString(cfg.AnalysisConfig.DefaultTradingType, "daytrading"))
	cfg.AnalysisConfig.DefaultCapital = getEnvFloatOrDefault("ANALYSIS_DEFAULT_CAPITAL", defaultFloat(cfg.AnalysisConfig.DefaultCapital, 10000))
	cfg.AnalysisConfig.DefaultRiskFraction = getEnvFloatOrDefault("ANALYSIS_DEFAULT_RISK_FRACTION", defaultFloat(cfg.AnalysisConfig.DefaultRiskFraction, 0.02))
	cfg.AnalysisConfig.TrailingEnabled = getEnvOrDefault("ANALYSIS_TRAILING_ENABLED", boolString(cfg.AnalysisConfig.TrailingEnabled)) == "true"
	cfg.AnalysisConfig.TrailingFraction = getEnvFloatOrDefault("ANALYSIS_TRAILING_FRACTION", defaultFloat(cfg.AnalysisConfig.TrailingFraction, 0.25))

	// Confidence weights
	cfg.ConfidenceConfig.ReliabilityWeight = getEnvFloatOrDefault("CONFIDENCE_RELIABILITY_WEIGHT", defaultFloat(cfg.ConfidenceConfig.ReliabilityWeight, 0.80))
	cfg.ConfidenceConfig.FearGreedWeight = getEnvFloatOrDefault("CONFIDENCE_FEAR_GREED_WEIGHT", defaultFloat(cfg.ConfidenceConfig.FearGreedWeight, 0.05))
	cfg.ConfidenceConfig.VolatilityWeight = getEnvFloatOrDefault("CONFIDENCE_VOLATILITY_WEIGHT", defaultFloat(cfg.ConfidenceConfig.VolatilityWeight, 0.05))

	// Sentiment
	cfg.SentimentConfig.Enabled = getEnvOrDefault("SENTIMENT_ENABLED", "true") == "true"
	cfg.SentimentConfig.Endpoint = getEnvOrDefault("SENTIMENT_ENDPOINT", cfg.SentimentConfig.Endpoint)
	cfg.SentimentConfig.CacheTTL = getEnvDurationOrDefault("SENTIMENT_CACHE_TTL", defaultDuration(cfg.SentimentConfig.CacheTTL, 15*time.Minute))

	// Backtest costs
	cfg.BacktestConfig.CommissionRate = getEnvFloatOrDefault("BACKTEST_COMMISSION_RATE", defaultFloat(cfg.BacktestConfig.CommissionRate, 0.001))
	cfg.BacktestConfig.SpreadPct = getEnvFloatOrDefault("BACKTEST_SPREAD_PCT", defaultFloat(cfg.BacktestConfig.SpreadPct, 0.05))

	// Server
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", defaultString(cfg.ServerConfig.Host, "0.0.0.0"))
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", defaultInt(cfg.ServerConfig.Port, 8080))
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("PRODUCTION_MODE", boolString(cfg.ServerConfig.ProductionMode)) == "true"
	if origins := os.Getenv("SERVER_ALLOWED_ORIGINS"); origins != "" {
		cfg.ServerConfig.AllowedOrigins = strings.Split(origins, ",")
	}

	// Database
	cfg.DatabaseConfig.Enabled = getEnvOrDefault("DB_ENABLED", boolString(cfg.DatabaseConfig.Enabled)) == "true"
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", defaultString(cfg.DatabaseConfig.Host, "localhost"))
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", defaultInt(cfg.DatabaseConfig.Port, 5432))
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", defaultString(cfg.DatabaseConfig.User, "postgres"))
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", defaultString(cfg.DatabaseConfig.Database, "signal_analyzer"))
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", defaultString(cfg.DatabaseConfig.SSLMode, "disable"))

	// Redis
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", boolString(cfg.RedisConfig.Enabled)) == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", defaultString(cfg.RedisConfig.Address, "localhost:6379"))
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", defaultInt(cfg.RedisConfig.PoolSize, 10))

	// Notifications
	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", boolString(cfg.NotificationConfig.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", boolString(cfg.NotificationConfig.Telegram.Enabled)) == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", boolString(cfg.NotificationConfig.Discord.Enabled)) == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)

	// Worker
	cfg.WorkerConfig.Enabled = getEnvOrDefault("WORKER_ENABLED", boolString(cfg.WorkerConfig.Enabled)) == "true"
	cfg.WorkerConfig.TickInterval = getEnvDurationOrDefault("WORKER_TICK_INTERVAL", defaultDuration(cfg.WorkerConfig.TickInterval, time.Minute))

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", defaultString(cfg.LoggingConfig.Level, "info"))
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
}

func (c *Config) validate() error {
	if c.AnalysisConfig.DefaultRiskFraction <= 0 || c.AnalysisConfig.DefaultRiskFraction > 1 {
		return fmt.Errorf("default risk fraction must be in (0, 1], got %.4f", c.AnalysisConfig.DefaultRiskFraction)
	}
	if c.AnalysisConfig.DefaultCapital <= 0 {
		return fmt.Errorf("default capital must be positive, got %.2f", c.AnalysisConfig.DefaultCapital)
	}
	if c.ServerConfig.Port <= 0 || c.ServerConfig.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.ServerConfig.Port)
	}
	return nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func defaultString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func defaultInt(value, fallback int) int {
	if value == 0 {
		return fallback
	}
	return value
}

func defaultFloat(value, fallback float64) float64 {
	if value == 0 {
		return fallback
	}
	return value
}

func defaultDuration(value, fallback time.Duration) time.Duration {
	if value == 0 {
		return fallback
	}
	return value
}
