// Package asynqueue backs the deletion queue with Redis through asynq.
package asynqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/hibiken/asynq"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) connOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

type Producer struct {
	client *asynq.Client
	queue  string
}

func NewProducer(cfg RedisConfig, queue string) *Producer {
	return &Producer{client: asynq.NewClient(cfg.connOpt()), queue: queue}
}

// Enqueue hands the job to Redis. The job id becomes the task id, so enqueueing
// the same job twice is a no-op rather than a duplicate delete.
func (p *Producer) Enqueue(ctx context.Context, j jobs.Job) error {
	opts := []asynq.Option{
		asynq.Queue(p.queue),
		asynq.TaskID(j.ID),
		asynq.MaxRetry(maxRetry(j)),
	}
	if !j.RunAt.IsZero() && j.RunAt.After(time.Now()) {
		opts = append(opts, asynq.ProcessAt(j.RunAt))
	}

	task := asynq.NewTask(string(j.Type), j.Payload)

	_, err := p.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("failed to enqueue task: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	return p.client.Close()
}

// asynq counts retries, not deliveries.
func maxRetry(j jobs.Job) int {
	if j.MaxTries <= 1 {
		return 0
	}
	return j.MaxTries - 1
}
