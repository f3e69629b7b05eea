package memqueue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(int) time.Duration { return 5 * time.Millisecond }

func newJob(t *testing.T, maxTries int) jobs.Job {
	t.Helper()

	payload, err := jobs.EncodePayload(jobs.JobDeleteUser, jobs.DeleteUserPayload{UserID: "u1"})
	require.NoError(t, err)

	j, err := jobs.NewJob(jobs.JobDeleteUser, payload, time.Time{})
	require.NoError(t, err)
	j.MaxTries = maxTries
	return j
}

func runQueue(t *testing.T, q *Queue, h queue.Handler) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = q.Run(ctx, h)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitStatus(t *testing.T, q *Queue, id string, want jobs.JobStatus) jobs.Job {
	t.Helper()

	var got jobs.Job
	require.Eventually(t, func() bool {
		j, ok := q.Status(id)
		got = j
		return ok && j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_DeliversOnce(t *testing.T) {
	q := New(Config{Backoff: fastBackoff}, nil)
	var calls atomic.Int32

	runQueue(t, q, func(context.Context, jobs.Job) error {
		calls.Add(1)
		return nil
	})

	j := newJob(t, 3)
	require.NoError(t, q.Enqueue(context.Background(), j))

	got := waitStatus(t, q, j.ID, jobs.JobCompleted)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueue_RetriesTransientFailures(t *testing.T) {
	q := New(Config{Backoff: fastBackoff}, nil)
	var calls atomic.Int32

	runQueue(t, q, func(context.Context, jobs.Job) error {
		if calls.Add(1) < 3 {
			return errors.New("db unavailable")
		}
		return nil
	})

	j := newJob(t, 5)
	require.NoError(t, q.Enqueue(context.Background(), j))

	got := waitStatus(t, q, j.ID, jobs.JobCompleted)
	assert.Equal(t, 3, got.Attempts)
	assert.Nil(t, got.LastError)
}

func TestQueue_GivesUpAfterMaxTries(t *testing.T) {
	q := New(Config{Backoff: fastBackoff}, nil)
	var calls atomic.Int32

	runQueue(t, q, func(context.Context, jobs.Job) error {
		calls.Add(1)
		return errors.New("db unavailable")
	})

	j := newJob(t, 2)
	require.NoError(t, q.Enqueue(context.Background(), j))

	got := waitStatus(t, q, j.ID, jobs.JobFailed)
	assert.Equal(t, 2, got.Attempts)
	require.NotNil(t, got.LastError)
	assert.Equal(t, "db unavailable", *got.LastError)
	assert.Equal(t, int32(2), calls.Load())
}

func TestQueue_PermanentErrorNotRetried(t *testing.T) {
	q := New(Config{Backoff: fastBackoff}, nil)
	var calls atomic.Int32

	runQueue(t, q, func(context.Context, jobs.Job) error {
		calls.Add(1)
		return jobs.ErrInvalidJobPayload
	})

	j := newJob(t, 5)
	require.NoError(t, q.Enqueue(context.Background(), j))

	got := waitStatus(t, q, j.ID, jobs.JobFailed)
	assert.Equal(t, 1, got.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestQueue_EnqueueDedupesAndFills(t *testing.T) {
	q := New(Config{Buffer: 1}, nil)
	ctx := context.Background()

	j := newJob(t, 1)
	require.NoError(t, q.Enqueue(ctx, j))
	require.NoError(t, q.Enqueue(ctx, j))

	err := q.Enqueue(ctx, newJob(t, 1))
	assert.ErrorIs(t, err, queue.ErrQueueFull)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, "default", stats.Queue)
}

func TestQueue_Stats(t *testing.T) {
	q := New(Config{Name: "deletions", Backoff: fastBackoff}, nil)

	runQueue(t, q, func(_ context.Context, j jobs.Job) error {
		if j.MaxTries == 1 {
			return errors.New("nope")
		}
		return nil
	})

	ok := newJob(t, 2)
	bad := newJob(t, 1)
	require.NoError(t, q.Enqueue(context.Background(), ok))
	require.NoError(t, q.Enqueue(context.Background(), bad))

	waitStatus(t, q, ok.ID, jobs.JobCompleted)
	waitStatus(t, q, bad.ID, jobs.JobFailed)

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deletions", stats.Queue)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 0, stats.Active)
}
