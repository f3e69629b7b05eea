package asynqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/queue"
	"github.com/hibiken/asynq"
)

type ConsumerConfig struct {
	Queue           string
	Concurrency     int
	Backoff         queue.Backoff
	ShutdownTimeout time.Duration
}

type Consumer struct {
	cfg    ConsumerConfig
	server *asynq.Server
	log    *slog.Logger
}

func NewConsumer(redis RedisConfig, cfg ConsumerConfig, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = queue.ExponentialBackoff
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	srv := asynq.NewServer(
		redis.connOpt(),
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      map[string]int{cfg.Queue: 1},
			RetryDelayFunc: func(n int, _ error, _ *asynq.Task) time.Duration {
				return cfg.Backoff(n)
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				id, _ := asynq.GetTaskID(ctx)
				log.WarnContext(ctx, "asynq.task_failed",
					"job_id", id,
					"job_type", task.Type(),
					"retried", retried,
					"max_retry", maxRetry,
					"err", err,
				)
			}),
			Logger:          slogAdapter{log: log.With("component", "asynq")},
			ShutdownTimeout: cfg.ShutdownTimeout,
		},
	)

	return &Consumer{cfg: cfg, server: srv, log: log}
}

// Run starts the asynq server and blocks until ctx is cancelled, then lets
// in-flight tasks finish up to ShutdownTimeout.
func (c *Consumer) Run(ctx context.Context, h queue.Handler) error {
	if err := c.server.Start(Handler(h)); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	c.log.InfoContext(ctx, "asynq.consumer_started", "queue", c.cfg.Queue, "concurrency", c.cfg.Concurrency)

	<-ctx.Done()

	c.server.Shutdown()
	c.log.Info("asynq.consumer_stopped", "queue", c.cfg.Queue)

	return nil
}

// Handler sends every task type to h. A type h does not know fails
// permanently there and is archived without retries.
func Handler(h queue.Handler) asynq.Handler {
	return asynq.HandlerFunc(Wrap(h))
}

// Wrap adapts a queue.Handler to asynq. Permanent failures skip the remaining
// retries and go straight to the archive.
func Wrap(h queue.Handler) func(context.Context, *asynq.Task) error {
	return func(ctx context.Context, task *asynq.Task) error {
		j := jobFromTask(ctx, task)

		err := h(ctx, j)
		if err != nil && jobs.IsPermanent(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
}

func jobFromTask(ctx context.Context, task *asynq.Task) jobs.Job {
	id, _ := asynq.GetTaskID(ctx)
	retried, _ := asynq.GetRetryCount(ctx)

	maxTries := jobs.DefaultMaxTries
	if maxRetry, ok := asynq.GetMaxRetry(ctx); ok {
		maxTries = maxRetry + 1
	}

	now := time.Now().UTC()

	return jobs.Job{
		ID:        id,
		Type:      jobs.JobType(task.Type()),
		Payload:   task.Payload(),
		Status:    jobs.JobInProgress,
		Attempts:  retried + 1,
		MaxTries:  maxTries,
		RunAt:     now,
		UpdatedAt: now,
	}
}

// slogAdapter satisfies asynq.Logger.
type slogAdapter struct {
	log *slog.Logger
}

func (a slogAdapter) Debug(args ...interface{}) { a.log.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.log.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.log.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.log.Error(fmt.Sprint(args...)) }

func (a slogAdapter) Fatal(args ...interface{}) {
	a.log.Error(fmt.Sprint(args...))
	panic(fmt.Sprint(args...))
}
