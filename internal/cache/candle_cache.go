// Package cache provides Redis-backed candle memoization with graceful
// degradation. When Redis is unavailable every fetch falls through to the
// underlying market-data source.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"signal-analyzer/internal/market"
)

// Config holds Redis connection settings
type Config struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	PoolSize int
}

// CandleCache wraps a market.Source and memoizes fetched series keyed by
// symbol, timeframe and lookback. Entries expire after one timeframe
// interval so the latest bar stays fresh.
type CandleCache struct {
	source market.Source
	client *redis.Client
	logger zerolog.Logger
}

var _ market.Source = (*CandleCache)(nil)

// New builds a candle cache over the source. A nil client (Redis disabled)
// yields a pass-through cache.
func New(source market.Source, cfg Config, logger zerolog.Logger) *CandleCache {
	c := &CandleCache{
		source: source,
		logger: logger.With().Str("component", "candle_cache").Logger(),
	}
	if !cfg.Enabled {
		return c
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis unreachable, candle cache degraded to pass-through")
	}
	return c
}

// FetchCandles serves from cache when possible, otherwise delegates and
// stores the result
func (c *CandleCache) FetchCandles(ctx context.Context, symbol, timeframe string, lookbackDays int) ([]market.Candle, error) {
	if c.client == nil {
		return c.source.FetchCandles(ctx, symbol, timeframe, lookbackDays)
	}

	key := fmt.Sprintf("candles:%s:%s:%d", symbol, timeframe, lookbackDays)

	if data, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var candles []market.Candle
		if err := json.Unmarshal(data, &candles); err == nil && len(candles) > 0 {
			return candles, nil
		}
		// corrupted entry, drop it and refetch
		c.client.Del(ctx, key)
	}

	candles, err := c.source.FetchCandles(ctx, symbol, timeframe, lookbackDays)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(candles); err == nil {
		ttl := market.TimeframeDuration(timeframe)
		if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
			c.logger.Debug().Err(err).Str("key", key).Msg("candle cache write failed")
		}
	}
	return candles, nil
}

// Close releases the Redis connection
func (c *CandleCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
