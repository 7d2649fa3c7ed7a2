package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const globalStatsKey = "stats:global:24h"

var ErrStatsCacheMiss = errors.New("stats cache miss")

// StatsCache holds the periodically aggregated 24h call statistics so the
// admin endpoint does not hit the ledger on every request.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewStatsCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StatsCache {
	return &StatsCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("StatsCache"),
	}
}

func (c *StatsCache) SetGlobal(ctx context.Context, stats *call.GlobalStats) error {
	payload, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal global stats: %w", err)
	}

	if err := c.client.Set(ctx, globalStatsKey, payload, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to cache global stats", zap.Error(err))
		return fmt.Errorf("redis error caching global stats: %w", err)
	}

	c.logger.Debug("Cached global call statistics", zap.Duration("ttl", c.ttl))
	return nil
}

func (c *StatsCache) GetGlobal(ctx context.Context) (*call.GlobalStats, error) {
	payload, err := c.client.Get(ctx, globalStatsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrStatsCacheMiss
		}
		c.logger.Error("Failed to read cached global stats", zap.Error(err))
		return nil, fmt.Errorf("redis error reading global stats: %w", err)
	}

	var stats call.GlobalStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		// Treat a corrupt cache entry as a miss; the next aggregation pass
		// overwrites it.
		c.logger.Warn("Corrupt global stats cache entry", zap.Error(err))
		return nil, ErrStatsCacheMiss
	}

	return &stats, nil
}
