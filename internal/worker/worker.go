package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/marnevik/prompt-service-api/internal/config"
	"github.com/marnevik/prompt-service-api/internal/service"
	"github.com/marnevik/prompt-service-api/internal/tasks"
	"go.uber.org/zap"
)

// RunWorkers starts the asynq server and scheduler and blocks until ctx is
// canceled. The scheduler enqueues the periodic stats aggregation; the
// server processes it.
func RunWorkers(ctx context.Context, cfg *config.Config, stats *service.StatsService, logger *zap.Logger) error {
	redisConnOpts := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(
		redisConnOpts,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Named("AsynqServerErrorHandler").Error("Asynq task processing failed",
					zap.String("task_type", task.Type()),
					zap.ByteString("payload", task.Payload()),
					zap.Error(err),
				)
			}),
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqServer")),
		},
	)

	mux := asynq.NewServeMux()
	statsHandler := tasks.NewStatsAggregateHandler(stats, logger)
	mux.HandleFunc(tasks.TypeStatsAggregate, statsHandler.ProcessTask)

	scheduler := asynq.NewScheduler(
		redisConnOpts,
		&asynq.SchedulerOpts{
			Logger: NewAsynqLoggerAdapter(logger.Named("AsynqScheduler")),
		},
	)

	statsTask, err := tasks.NewStatsAggregateTask()
	if err != nil {
		return fmt.Errorf("scheduler task creation error: %w", err)
	}

	entryID, err := scheduler.Register("@every 5m", statsTask)
	if err != nil {
		return fmt.Errorf("scheduler registration error: %w", err)
	}
	logger.Info("Registered periodic stats aggregation",
		zap.String("entry_id", entryID),
		zap.String("schedule", "@every 5m"),
	)

	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting Asynq Server...")
		if err := srv.Run(mux); err != nil {
			errChan <- fmt.Errorf("asynq server error: %w", err)
		}
	}()

	go func() {
		logger.Info("Starting Asynq Scheduler...")
		if err := scheduler.Run(); err != nil {
			errChan <- fmt.Errorf("asynq scheduler error: %w", err)
		}
	}()

	select {
	case err := <-errChan:
		scheduler.Shutdown()
		srv.Shutdown()
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down Asynq Scheduler...")
	scheduler.Shutdown()
	logger.Info("Shutting down Asynq Server...")
	srv.Shutdown()
	logger.Info("Asynq components stopped.")

	return nil
}

type asynqLoggerAdapter struct {
	logger *zap.Logger
}

func NewAsynqLoggerAdapter(logger *zap.Logger) *asynqLoggerAdapter {
	return &asynqLoggerAdapter{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLoggerAdapter) Debug(args ...interface{}) {
	l.logger.Debug(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Info(args ...interface{}) {
	l.logger.Info(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Warn(args ...interface{}) {
	l.logger.Warn(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Error(args ...interface{}) {
	l.logger.Error(fmt.Sprint(args...))
}
func (l *asynqLoggerAdapter) Fatal(args ...interface{}) {
	l.logger.Fatal(fmt.Sprint(args...))
}
