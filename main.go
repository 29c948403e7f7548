package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"signal-analyzer/config"
	"signal-analyzer/internal/analyzer"
	"signal-analyzer/internal/api"
	"signal-analyzer/internal/backtest"
	"signal-analyzer/internal/cache"
	"signal-analyzer/internal/confidence"
	"signal-analyzer/internal/database"
	"signal-analyzer/internal/logging"
	"signal-analyzer/internal/market"
	"signal-analyzer/internal/notification"
	"signal-analyzer/internal/sentiment"
	"signal-analyzer/internal/strategy"
	"signal-analyzer/internal/worker"
)

func main() {
	// .env is optional; real deployments use actual environment variables
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.Setup("info", true)
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.Setup(cfg.LoggingConfig.Level, cfg.LoggingConfig.JSONFormat)
	logger.Info().Msg("signal analyzer starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// market data source, optionally wrapped in the Redis candle cache
	var source market.Source
	if cfg.MarketConfig.MockMode {
		source = market.NewMockSource(time.Now().UnixNano())
		logger.Warn().Msg("mock market data enabled")
	} else {
		source = market.NewClient(cfg.MarketConfig.BaseURL)
	}
	candleCache := cache.New(source, cache.Config{
		Enabled:  cfg.RedisConfig.Enabled,
		Address:  cfg.RedisConfig.Address,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
		PoolSize: cfg.RedisConfig.PoolSize,
	}, logger)
	defer candleCache.Close()

	var sentimentClient *sentiment.Client
	if cfg.SentimentConfig.Enabled {
		sentimentClient = sentiment.NewClient(cfg.SentimentConfig.Endpoint, cfg.SentimentConfig.CacheTTL)
	}

	var db *database.DB
	var repo *database.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err = database.NewDB(database.Config{
			Host:     cfg.DatabaseConfig.Host,
			Port:     cfg.DatabaseConfig.Port,
			User:     cfg.DatabaseConfig.User,
			Password: cfg.DatabaseConfig.Password,
			Database: cfg.DatabaseConfig.Database,
			SSLMode:  cfg.DatabaseConfig.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("database connection failed")
		}
		defer db.Close()

		if err := db.RunMigrations(ctx); err != nil {
			logger.Fatal().Err(err).Msg("database migrations failed")
		}
		repo = database.NewRepository(db)
	}

	svc := analyzer.NewService(candleCache, sentimentSource(sentimentClient), history(repo), analyzer.Options{
		DefaultStrategy:    cfg.AnalysisConfig.DefaultStrategy,
		DefaultTradingType: cfg.AnalysisConfig.DefaultTradingType,
		Weights: confidence.Weights{
			Reliability: cfg.ConfidenceConfig.ReliabilityWeight,
			FearGreed:   cfg.ConfidenceConfig.FearGreedWeight,
			Volatility:  cfg.ConfidenceConfig.VolatilityWeight,
		},
		Backtest: backtest.Config{
			StartingCapital: cfg.AnalysisConfig.DefaultCapital,
			RiskFraction:    cfg.AnalysisConfig.DefaultRiskFraction,
			CommissionRate:  cfg.BacktestConfig.CommissionRate,
			SpreadPct:       cfg.BacktestConfig.SpreadPct,
		},
		Trailing: strategy.TrailingConfig{
			Enabled:  cfg.AnalysisConfig.TrailingEnabled,
			Fraction: cfg.AnalysisConfig.TrailingFraction,
		},
	}, logger)

	var notifyManager *notification.Manager
	if cfg.NotificationConfig.Enabled {
		notifyManager = notification.NewManager()
		if cfg.NotificationConfig.Telegram.Enabled {
			notifyManager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
				BotToken: cfg.NotificationConfig.Telegram.BotToken,
				ChatID:   cfg.NotificationConfig.Telegram.ChatID,
				Enabled:  true,
			}))
			logger.Info().Msg("telegram notifications enabled")
		}
		if cfg.NotificationConfig.Discord.Enabled {
			notifyManager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
				WebhookURL: cfg.NotificationConfig.Discord.WebhookURL,
				Enabled:    true,
			}))
			logger.Info().Msg("discord notifications enabled")
		}
	}

	server := api.NewServer(api.ServerConfig{
		Host:           cfg.ServerConfig.Host,
		Port:           cfg.ServerConfig.Port,
		ProductionMode: cfg.ServerConfig.ProductionMode,
		AllowOrigins:   cfg.ServerConfig.AllowedOrigins,
	}, svc, repo, healthChecker(db), logger)

	if cfg.WorkerConfig.Enabled && repo != nil {
		w := worker.New(svc, repo, notifyManager, server.Hub(), cfg.WorkerConfig.TickInterval, logger)
		w.Start(ctx)
		defer w.Stop()
		logger.Info().Msg("auto-signal worker enabled")
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		logger.Info().Str("signal", s.String()).Msg("shutdown requested")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("signal analyzer stopped")
}

// typed-nil guards: a nil *sentiment.Client or *database.Repository must
// become a nil interface so the analyzer degrades those sections
func sentimentSource(c *sentiment.Client) analyzer.SentimentSource {
	if c == nil {
		return nil
	}
	return c
}

func history(r *database.Repository) analyzer.TradeHistory {
	if r == nil {
		return nil
	}
	return r
}

func healthChecker(db *database.DB) api.HealthChecker {
	if db == nil {
		return nil
	}
	return db
}
