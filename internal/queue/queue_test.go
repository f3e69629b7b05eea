package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/actorctx"
	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEnqueuer struct {
	got []jobs.Job
	err error
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, j jobs.Job) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, j)
	return nil
}

func TestDeletionProducer_EnqueueUserDeletion(t *testing.T) {
	rec := &recordingEnqueuer{}
	p := NewDeletionProducer(rec, 3, observability.NewProm(), nil)

	ctx := actorctx.WithRequestID(context.Background(), "req-1")
	require.NoError(t, p.EnqueueUserDeletion(ctx, "u1"))
	require.Len(t, rec.got, 1)

	j := rec.got[0]
	assert.Equal(t, jobs.JobDeleteUser, j.Type)
	assert.Equal(t, jobs.JobEnqueued, j.Status)
	assert.Equal(t, 3, j.MaxTries)
	assert.NotEmpty(t, j.ID)

	var payload jobs.DeleteUserPayload
	require.NoError(t, json.Unmarshal(j.Payload, &payload))
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "req-1", payload.RequestID)
	assert.WithinDuration(t, time.Now(), payload.RequestedAt, time.Minute)
}

func TestDeletionProducer_DefaultsAndErrors(t *testing.T) {
	rec := &recordingEnqueuer{}
	p := NewDeletionProducer(rec, 0, nil, nil)

	require.NoError(t, p.EnqueueUserDeletion(context.Background(), "u1"))
	assert.Equal(t, jobs.DefaultMaxTries, rec.got[0].MaxTries)

	err := p.EnqueueUserDeletion(context.Background(), "  ")
	assert.ErrorIs(t, err, jobs.ErrInvalidJobPayload)

	rec.err = errors.New("redis down")
	err = p.EnqueueUserDeletion(context.Background(), "u2")
	assert.ErrorContains(t, err, "redis down")
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		min     time.Duration
	}{
		{attempt: 0, min: 2 * time.Second},
		{attempt: 1, min: 4 * time.Second},
		{attempt: 2, min: 8 * time.Second},
		{attempt: 20, min: 5 * time.Minute},
	}

	for _, tt := range tests {
		d := ExponentialBackoff(tt.attempt)
		assert.GreaterOrEqual(t, d, tt.min, "attempt %d", tt.attempt)
		assert.Less(t, d, tt.min+250*time.Millisecond, "attempt %d", tt.attempt)
	}
}

func TestNewExponentialBackoff_Caps(t *testing.T) {
	b := NewExponentialBackoff(8*time.Millisecond, 40*time.Millisecond)

	assert.GreaterOrEqual(t, b(0), 8*time.Millisecond)
	assert.GreaterOrEqual(t, b(10), 40*time.Millisecond)
	assert.Less(t, b(10), 41*time.Millisecond)
	assert.GreaterOrEqual(t, b(-1), 8*time.Millisecond)
}
