// Package queue defines how the API hands deletion work to the worker and how
// the worker receives it. Backends live in asynqueue (Redis) and memqueue
// (in-process).
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/observability"
)

var ErrQueueFull = errors.New("queue full")

// Handler processes one delivery of a job. A nil return acknowledges it; an
// error asks for redelivery unless jobs.IsPermanent says it never succeeds.
type Handler func(ctx context.Context, j jobs.Job) error

type Enqueuer interface {
	Enqueue(ctx context.Context, j jobs.Job) error
}

// Consumer delivers jobs to h until ctx is cancelled. Delivery is at least once.
type Consumer interface {
	Run(ctx context.Context, h Handler) error
}

type Stats struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Scheduled int    `json:"scheduled"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Completed int    `json:"completed"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

type StatsReader interface {
	Stats(ctx context.Context) (Stats, error)
}

// DeletionProducer turns "delete this user" into a queued job.
type DeletionProducer struct {
	q        Enqueuer
	maxTries int
	prom     *observability.Prom
	log      *slog.Logger
}

func NewDeletionProducer(q Enqueuer, maxTries int, prom *observability.Prom, log *slog.Logger) *DeletionProducer {
	if log == nil {
		log = slog.Default()
	}
	if maxTries <= 0 {
		maxTries = jobs.DefaultMaxTries
	}
	return &DeletionProducer{q: q, maxTries: maxTries, prom: prom, log: log}
}

// EnqueueUserDeletion returns once the job is accepted by the queue, before
// any delete runs.
func (p *DeletionProducer) EnqueueUserDeletion(ctx context.Context, userID string) error {
	payload, err := jobs.EncodePayload(jobs.JobDeleteUser, jobs.DeleteUserPayload{
		UserID:      userID,
		RequestedAt: time.Now().UTC(),
		RequestID:   actorctx.RequestIDFrom(ctx),
	})
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	j, err := jobs.NewJob(jobs.JobDeleteUser, payload, time.Time{})
	if err != nil {
		return err
	}
	j.MaxTries = p.maxTries

	if err := p.q.Enqueue(ctx, j); err != nil {
		p.observe("error")
		return fmt.Errorf("enqueue %s: %w", j.Type, err)
	}
	p.observe("ok")

	p.log.DebugContext(ctx, "job.enqueued", "job_id", j.ID, "job_type", j.Type, "user_id", userID)

	return nil
}

func (p *DeletionProducer) observe(result string) {
	if p.prom != nil {
		p.prom.JobsEnqueued.WithLabelValues(string(jobs.JobDeleteUser), result).Inc()
	}
}
