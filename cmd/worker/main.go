package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"resume-screening/internal/bootstrap"
	"resume-screening/internal/shared/config"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/telemetry"
)

const (
	defaultVisibilitySeconds  = 1200
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()
	telemetry.SetLevel(cfg.LogLevel)
	defer telemetry.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTimeout := time.Duration(envInt("RA_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	app, err := bootstrap.Build(ctx, cfg, bootstrap.RoleWorker)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer app.Close()

	metricsSrv := serveMetrics(cfg.MetricsAddr)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.Sweeper.Run(ctx)
	}()

	telemetry.Info("worker.started", map[string]any{
		"backend":     cfg.QueueBackend,
		"concurrency": cfg.WorkerConcurrency,
	})

	switch cfg.QueueBackend {
	case "sqs":
		err = runSQS(ctx, app, cfg, shutdownTimeout)
	case "asynq":
		err = runAsynq(ctx, app, cfg)
	default:
		// Inline: the sweeper feeds the in-process queue.
		<-ctx.Done()
	}
	if err != nil {
		telemetry.Error("worker.stopped", map[string]any{"error": err})
	}

	stop()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	telemetry.Info("worker.shutdown", nil)
}

func serveMetrics(addr string) *http.Server {
	if strings.TrimSpace(addr) == "" {
		return nil
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.GET("/metrics", metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error("worker.metrics_listen_failed", map[string]any{"addr": addr, "error": err})
		}
	}()
	return srv
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
