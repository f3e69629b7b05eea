package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/queue"
	"github.com/geocoder89/authhub/internal/queue/asynqueue"
	"github.com/geocoder89/authhub/internal/queue/redisclient"
	"github.com/geocoder89/authhub/internal/queue/worker"
	"github.com/geocoder89/authhub/internal/repo/postgres"
)

const serviceName = "authhub-worker"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, serviceName)
	slog.SetDefault(log)

	if cfg.StoreBackend != config.BackendPostgres || cfg.QueueBackend != config.BackendRedis {
		log.Error("the standalone worker needs STORE_BACKEND=postgres and QUEUE_BACKEND=redis",
			"store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped with error", "err", err)
		os.Exit(1)
	}

	log.Info("worker shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(sctx)
	}()

	prom := observability.NewProm()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := postgres.NewUsersRepo(pool, prom)

	redisCfg := asynqueue.RedisConfig{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	rdb := redisclient.New(redisclient.Config(redisCfg))
	defer rdb.Close()

	inspector := asynqueue.NewInspector(redisCfg, cfg.DeleteQueueName)
	defer inspector.Close()

	consumer := asynqueue.NewConsumer(redisCfg, asynqueue.ConsumerConfig{
		Queue:           cfg.DeleteQueueName,
		Concurrency:     cfg.WorkerConcurrency,
		Backoff:         queue.ExponentialBackoff,
		ShutdownTimeout: 10 * time.Second,
	}, log)

	notifier := notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), notifications.ProtectedNotifierConfig{})
	w := worker.New(users, prom, nil, log).WithNotifier(notifier)

	healthSrv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler: w.HealthHandler(worker.HealthDeps{
			Pingers: map[string]worker.Pinger{
				"postgres": users,
				"redis":    rdb,
			},
			Queue:   inspector,
			Metrics: prom.Handler(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("worker health server starting", "port", cfg.WorkerHealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker health server failed", "err", err)
		}
	}()

	runErr := w.Run(ctx, consumer)

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(sctx); err != nil {
		log.Error("health server shutdown failed", "err", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
