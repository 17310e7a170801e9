package main

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"resume-screening/internal/bootstrap"
	"resume-screening/internal/queue"
	"resume-screening/internal/shared/config"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/telemetry"
)

func runAsynq(ctx context.Context, app *bootstrap.App, cfg config.Config) error {
	if app.Redis == nil {
		return fmt.Errorf("asynq backend selected without a redis client")
	}
	if err := app.Redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	srv := queue.NewAsynqServer(cfg.RedisAddr, cfg.WorkerConcurrency)
	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMiddleware())
	mux.Handle(queue.TaskTypeProcessResume, queue.AsynqHandler(app.Runner.Handle))

	if err := srv.Start(mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	telemetry.Info("worker.asynq.started", map[string]any{"redis_addr": cfg.RedisAddr})

	<-ctx.Done()
	srv.Shutdown()
	return nil
}
