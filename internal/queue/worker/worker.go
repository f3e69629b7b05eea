package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/notifications"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/geocoder89/authhub/internal/queue"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// UserDeleter removes a user record. A missing record is user.ErrNotFound.
type UserDeleter interface {
	Delete(ctx context.Context, id string) error
}

type Worker struct {
	users    UserDeleter
	log      *slog.Logger
	prom     *observability.Prom
	stats    *observability.JobStats
	tracer   trace.Tracer
	notifier notifications.Notifier

	ready atomic.Bool
}

func New(users UserDeleter, prom *observability.Prom, stats *observability.JobStats, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	if stats == nil {
		stats = observability.NewJobStats()
	}
	return &Worker{
		users:  users,
		log:    log,
		prom:   prom,
		stats:  stats,
		tracer: otel.Tracer("authhub/worker"),
	}
}

// WithNotifier reports every job's terminal outcome to n.
func (w *Worker) WithNotifier(n notifications.Notifier) *Worker {
	w.notifier = n
	return w
}

// Run consumes until ctx is cancelled. The worker reports ready only while
// the consumer is running.
func (w *Worker) Run(ctx context.Context, consumer queue.Consumer) error {
	w.ready.Store(true)
	defer w.ready.Store(false)

	w.log.InfoContext(ctx, "worker.started")
	err := consumer.Run(ctx, w.Handle)
	w.log.Info("worker.stopped")

	return err
}

func (w *Worker) Ready() bool {
	return w.ready.Load()
}

func (w *Worker) Stats() *observability.JobStats {
	return w.stats
}

// Handle dispatches one delivery by job type and records its outcome.
func (w *Worker) Handle(ctx context.Context, j jobs.Job) error {
	ctx, span := w.tracer.Start(ctx, "job.process", trace.WithAttributes(
		attribute.String("job.id", j.ID),
		attribute.String("job.type", string(j.Type)),
		attribute.Int("job.attempt", j.Attempts),
	))
	defer span.End()

	log := w.log.With("job_id", j.ID, "job_type", j.Type, "attempt", j.Attempts, "max_tries", j.MaxTries)

	w.stats.IncStarted()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	var (
		err     error
		payload jobs.DeleteUserPayload
		gone    bool
	)
	switch j.Type {
	case jobs.JobDeleteUser:
		payload, gone, err = w.deleteUser(ctx, j)
	default:
		err = fmt.Errorf("%w: %q", jobs.ErrInvalidJobType, j.Type)
	}

	elapsed := time.Since(start)
	w.stats.ObserveDuration(elapsed)

	result := outcome(j, err)
	if w.prom != nil {
		w.prom.JobResults.WithLabelValues(string(j.Type), result).Inc()
		w.prom.JobDuration.WithLabelValues(string(j.Type), result).Observe(elapsed.Seconds())
	}

	switch result {
	case "done":
		w.stats.IncDone()
		log.InfoContext(ctx, "job.done", "duration_ms", elapsed.Milliseconds())
	case "retry":
		w.stats.IncRetried()
		span.RecordError(err)
		log.WarnContext(ctx, "job.retry", "err", err)
	default:
		w.stats.IncFailed()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorContext(ctx, "job.failed", "err", err, "permanent", jobs.IsPermanent(err))
	}

	if result != "retry" {
		w.notify(ctx, j, payload, gone, err)
	}

	return err
}

// ProcessDelete removes the user named by the payload. The record being gone
// already counts as success: a redelivered job must not fail forever.
func (w *Worker) ProcessDelete(ctx context.Context, j jobs.Job) error {
	_, _, err := w.deleteUser(ctx, j)
	return err
}

func (w *Worker) deleteUser(ctx context.Context, j jobs.Job) (jobs.DeleteUserPayload, bool, error) {
	decoded, err := jobs.DecodePayload(j)
	if err != nil {
		return jobs.DeleteUserPayload{}, false, err
	}

	p, ok := decoded.(jobs.DeleteUserPayload)
	if !ok {
		return jobs.DeleteUserPayload{}, false, jobs.ErrPayloadTypeMismatch
	}

	err = w.users.Delete(ctx, p.UserID)
	if errors.Is(err, user.ErrNotFound) {
		w.stats.IncGone()
		w.log.InfoContext(ctx, "job.already_gone", "job_id", j.ID, "user_id", p.UserID, "request_id", p.RequestID)
		return p, true, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("delete user: %w", err)
	}

	w.log.InfoContext(ctx, "user.deleted", "job_id", j.ID, "user_id", p.UserID, "request_id", p.RequestID)

	return p, false, nil
}

func (w *Worker) notify(ctx context.Context, j jobs.Job, p jobs.DeleteUserPayload, gone bool, jobErr error) {
	if w.notifier == nil {
		return
	}

	r := notifications.DeletionReport{
		JobID:     j.ID,
		UserID:    p.UserID,
		RequestID: p.RequestID,
		Outcome:   notifications.OutcomeCompleted,
		Attempts:  j.Attempts,
	}
	switch {
	case jobErr != nil:
		r.Outcome = notifications.OutcomeFailed
		r.Err = jobErr.Error()
	case gone:
		r.Outcome = notifications.OutcomeAlreadyGone
	}

	if err := w.notifier.NotifyDeletion(ctx, r); err != nil {
		w.log.WarnContext(ctx, "job.notify_failed", "job_id", j.ID, "err", err)
	}
}

func outcome(j jobs.Job, err error) string {
	switch {
	case err == nil:
		return "done"
	case jobs.IsPermanent(err) || (j.MaxTries > 0 && j.Attempts >= j.MaxTries):
		return "failed"
	default:
		return "retry"
	}
}
