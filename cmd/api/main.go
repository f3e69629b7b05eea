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

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/db"
	httpx "github.com/geocoder89/authhub/internal/http"
	"github.com/geocoder89/authhub/internal/http/handlers"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/queue"
	"github.com/geocoder89/authhub/internal/queue/asynqueue"
	"github.com/geocoder89/authhub/internal/queue/memqueue"
	"github.com/geocoder89/authhub/internal/queue/redisclient"
	"github.com/geocoder89/authhub/internal/queue/worker"
	"github.com/geocoder89/authhub/internal/repo/memory"
	"github.com/geocoder89/authhub/internal/repo/postgres"
	"github.com/geocoder89/authhub/internal/security"
	"github.com/geocoder89/authhub/internal/service"
)

const serviceName = "authhub-api"

type userStore interface {
	service.UserStore
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env, serviceName)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}
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
	checks := map[string]handlers.Check{}

	var store userStore
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := db.NewPool(ctx, cfg.DBURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		store = postgres.NewUsersRepo(pool, prom)
	default:
		log.Warn("using in-memory user store; data is lost on restart")
		store = memory.NewUsersRepo()
	}
	checks["store"] = store.Ping

	var (
		enqueuer queue.Enqueuer
		inproc   *memqueue.Queue
	)
	switch cfg.QueueBackend {
	case config.BackendRedis:
		if cfg.StoreBackend == config.BackendMemory {
			log.Warn("redis queue with in-memory store: the worker process cannot see these users")
		}

		producer := asynqueue.NewProducer(asynqueue.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, cfg.DeleteQueueName)
		defer producer.Close()

		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr(),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		enqueuer = producer
		checks["redis"] = rdb.Ping
	default:
		inproc = memqueue.New(memqueue.Config{
			Name:        cfg.DeleteQueueName,
			Concurrency: cfg.WorkerConcurrency,
		}, log)
		enqueuer = inproc
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)

	authSvc := service.NewAuthService(store, security.NewHasher(cfg.BcryptCost), tokens, log)
	userSvc := service.NewUserService(store, queue.NewDeletionProducer(enqueuer, cfg.WorkerMaxRetry+1, prom, log), log)

	router := httpx.NewRouter(httpx.Deps{
		Env:           cfg.Env,
		ServiceName:   serviceName,
		Log:           log,
		Prom:          prom,
		Auth:          authSvc,
		Users:         userSvc,
		Authenticator: auth.NewGuard(tokens, store, log),
		Checks:        checks,
		CORSOrigins:   cfg.CORSAllowedOrigins,
	})

	// memory queue: the deletion worker runs inside this process
	workerDone := make(chan struct{})
	if inproc != nil {
		notifier := notifications.NewProtectedNotifier(notifications.NewLogNotifier(log), notifications.ProtectedNotifierConfig{})
		w := worker.New(store, prom, nil, log).WithNotifier(notifier)
		checks["worker"] = func(context.Context) error {
			if !w.Ready() {
				return errors.New("worker not running")
			}
			return nil
		}

		go func() {
			defer close(workerDone)
			if err := w.Run(ctx, inproc); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("in-process worker stopped", "err", err)
			}
		}()
	} else {
		close(workerDone)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	}

	log.Info("server shutting down")

	sctx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	select {
	case <-workerDone:
	case <-sctx.Done():
		log.Error("worker shutdown timed out")
	}

	log.Info("shutdown complete")
	return nil
}
