// Package memqueue is an in-process deletion queue for single-binary and test
// deployments. Jobs do not survive a restart.
package memqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/queue"
)

const defaultBuffer = 1024

type Config struct {
	Name        string
	Buffer      int
	Concurrency int
	Backoff     queue.Backoff
}

type Queue struct {
	cfg Config
	log *slog.Logger
	ch  chan jobs.Job

	mu       sync.Mutex
	jobs     map[string]jobs.Job
	active   int
	retrying int
	stopped  bool
	timers   map[string]*time.Timer
}

func New(cfg Config, log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultBuffer
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Backoff == nil {
		cfg.Backoff = queue.ExponentialBackoff
	}

	return &Queue{
		cfg:    cfg,
		log:    log,
		ch:     make(chan jobs.Job, cfg.Buffer),
		jobs:   make(map[string]jobs.Job),
		timers: make(map[string]*time.Timer),
	}
}

// Enqueue accepts a job without blocking. A job id already known to the queue
// is ignored.
func (q *Queue) Enqueue(_ context.Context, j jobs.Job) error {
	if j.MaxTries <= 0 {
		j.MaxTries = jobs.DefaultMaxTries
	}
	j.Status = jobs.JobEnqueued

	q.mu.Lock()
	defer q.mu.Unlock()

	if _, seen := q.jobs[j.ID]; seen {
		return nil
	}

	select {
	case q.ch <- j:
		q.jobs[j.ID] = j
		return nil
	default:
		return queue.ErrQueueFull
	}
}

// Run starts Concurrency workers feeding h and blocks until ctx is cancelled
// and every in-flight delivery has returned. Pending retries are dropped.
func (q *Queue) Run(ctx context.Context, h queue.Handler) error {
	q.mu.Lock()
	q.stopped = false
	q.mu.Unlock()

	var wg sync.WaitGroup

	for i := 0; i < q.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case j := <-q.ch:
					q.deliver(ctx, j, h)
				}
			}
		}()
	}

	wg.Wait()

	q.mu.Lock()
	q.stopped = true
	for id, t := range q.timers {
		if t.Stop() {
			q.retrying--
		}
		delete(q.timers, id)
	}
	q.mu.Unlock()

	return nil
}

func (q *Queue) deliver(ctx context.Context, j jobs.Job, h queue.Handler) {
	j.Attempts++
	j.Status = jobs.JobInProgress
	j.UpdatedAt = time.Now().UTC()
	q.track(j, +1)

	err := h(ctx, j)

	j.UpdatedAt = time.Now().UTC()

	switch {
	case err == nil:
		j.Status = jobs.JobCompleted
		j.LastError = nil
		q.track(j, -1)

	case jobs.IsPermanent(err) || j.Attempts >= j.MaxTries:
		msg := err.Error()
		j.Status = jobs.JobFailed
		j.LastError = &msg
		q.track(j, -1)
		q.log.WarnContext(ctx, "memqueue.job_dead", "job_id", j.ID, "job_type", j.Type, "attempts", j.Attempts, "err", err)

	default:
		msg := err.Error()
		j.Status = jobs.JobEnqueued
		j.LastError = &msg
		delay := q.cfg.Backoff(j.Attempts - 1)
		j.RunAt = j.UpdatedAt.Add(delay)
		q.track(j, -1)
		q.scheduleRetry(j, delay)
	}
}

func (q *Queue) scheduleRetry(j jobs.Job, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}

	q.retrying++
	q.timers[j.ID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		q.retrying--
		delete(q.timers, j.ID)

		select {
		case q.ch <- j:
		default:
			msg := queue.ErrQueueFull.Error()
			j.Status = jobs.JobFailed
			j.LastError = &msg
			q.jobs[j.ID] = j
		}
	})
}

func (q *Queue) track(j jobs.Job, activeDelta int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.jobs[j.ID] = j
	q.active += activeDelta
}

// Status returns the last known state of a job.
func (q *Queue) Status(id string) (jobs.Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	j, ok := q.jobs[id]
	return j, ok
}

func (q *Queue) Stats(_ context.Context) (queue.Stats, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := queue.Stats{
		Queue:   q.cfg.Name,
		Pending: len(q.ch),
		Active:  q.active,
		Retry:   q.retrying,
	}
	for _, j := range q.jobs {
		switch j.Status {
		case jobs.JobCompleted:
			s.Completed++
			s.Processed++
		case jobs.JobFailed:
			s.Archived++
			s.Failed++
			s.Processed++
		}
	}
	return s, nil
}
