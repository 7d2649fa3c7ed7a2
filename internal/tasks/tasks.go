package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeStatsAggregate = "stats:aggregate"
)

type StatsAggregatePayload struct{}

func NewStatsAggregateTask(opts ...asynq.Option) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(StatsAggregatePayload{})
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(5 * time.Minute)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypeStatsAggregate, payloadBytes, allOpts...), nil
}
