package asynqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/authhub/internal/queue"
	"github.com/hibiken/asynq"
)

type Inspector struct {
	insp  *asynq.Inspector
	queue string
}

func NewInspector(cfg RedisConfig, queueName string) *Inspector {
	return &Inspector{insp: asynq.NewInspector(cfg.connOpt()), queue: queueName}
}

// Stats reads the queue counters. A queue nobody has written to yet reports zeros.
func (i *Inspector) Stats(_ context.Context) (queue.Stats, error) {
	info, err := i.insp.GetQueueInfo(i.queue)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return queue.Stats{Queue: i.queue}, nil
		}
		return queue.Stats{}, fmt.Errorf("queue info: %w", err)
	}

	return queue.Stats{
		Queue:     info.Queue,
		Pending:   info.Pending,
		Active:    info.Active,
		Scheduled: info.Scheduled,
		Retry:     info.Retry,
		Archived:  info.Archived,
		Completed: info.Completed,
		Processed: info.Processed,
		Failed:    info.Failed,
	}, nil
}

func (i *Inspector) Close() error {
	return i.insp.Close()
}
