package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/marnevik/prompt-service-api/internal/service"
	"go.uber.org/zap"
)

type StatsAggregateHandler struct {
	stats  *service.StatsService
	logger *zap.Logger
}

func NewStatsAggregateHandler(stats *service.StatsService, logger *zap.Logger) *StatsAggregateHandler {
	return &StatsAggregateHandler{
		stats:  stats,
		logger: logger.Named("StatsAggregateHandler"),
	}
}

func (h *StatsAggregateHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	if t.Type() != TypeStatsAggregate {
		return fmt.Errorf("unexpected task type: %s", t.Type())
	}

	var p StatsAggregatePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		h.logger.Error("Failed to unmarshal stats aggregation payload", zap.Error(err), zap.ByteString("payload", t.Payload()))
		return fmt.Errorf("invalid payload: %v", err)
	}

	h.logger.Debug("Refreshing global call statistics cache...")

	if err := h.stats.Refresh(ctx); err != nil {
		h.logger.Error("Failed to refresh global call statistics", zap.Error(err))
		return err
	}

	return nil
}
