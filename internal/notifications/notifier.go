// Package notifications reports the terminal outcome of account deletion jobs.
package notifications

import "context"

type Outcome string

const (
	OutcomeCompleted   Outcome = "completed"
	OutcomeAlreadyGone Outcome = "already_gone"
	OutcomeFailed      Outcome = "failed"
)

type DeletionReport struct {
	JobID     string
	UserID    string
	RequestID string
	Outcome   Outcome
	Attempts  int
	Err       string
}

// Notifier is told once per job, after the last attempt. A notify error never
// changes the job's outcome.
type Notifier interface {
	NotifyDeletion(ctx context.Context, r DeletionReport) error
}
