package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/marnevik/prompt-service-api/internal/domain/call"
	"github.com/marnevik/prompt-service-api/internal/storage/redis"
	"go.uber.org/zap"
)

const statsWindow = 24 * time.Hour

// StatsService serves the global call statistics, preferring the cached
// aggregate the background worker maintains and falling back to the ledger.
type StatsService struct {
	ledger call.Ledger
	cache  *redis.StatsCache
	logger *zap.Logger
}

func NewStatsService(ledger call.Ledger, cache *redis.StatsCache, logger *zap.Logger) *StatsService {
	return &StatsService{
		ledger: ledger,
		cache:  cache,
		logger: logger.Named("StatsService"),
	}
}

func (s *StatsService) GlobalStats(ctx context.Context) (*call.GlobalStats, error) {
	if s.cache != nil {
		stats, err := s.cache.GetGlobal(ctx)
		if err == nil {
			return stats, nil
		}
		if !errors.Is(err, redis.ErrStatsCacheMiss) {
			// Cache trouble is not worth failing the request over.
			s.logger.Warn("Stats cache unavailable, falling back to ledger", zap.Error(err))
		}
	}

	stats, err := s.ledger.GlobalStatsSince(ctx, time.Now().UTC().Add(-statsWindow))
	if err != nil {
		return nil, fmt.Errorf("ledger error aggregating global stats: %w", err)
	}
	return stats, nil
}

// Refresh recomputes the 24h aggregate and stores it in the cache. Called by
// the scheduled aggregation task.
func (s *StatsService) Refresh(ctx context.Context) error {
	stats, err := s.ledger.GlobalStatsSince(ctx, time.Now().UTC().Add(-statsWindow))
	if err != nil {
		return fmt.Errorf("ledger error aggregating global stats: %w", err)
	}

	if s.cache == nil {
		return nil
	}
	if err := s.cache.SetGlobal(ctx, stats); err != nil {
		return fmt.Errorf("failed to cache global stats: %w", err)
	}

	s.logger.Debug("Global call statistics refreshed", zap.Int64("total_calls", stats.TotalCalls))
	return nil
}
