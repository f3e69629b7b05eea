package jobs

// JobStatus follows a job from the producer to the worker:
// enqueued -> in_progress -> completed | failed. A failed attempt that will be
// redelivered goes back to enqueued.
type JobStatus string

const (
	JobEnqueued   JobStatus = "enqueued"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) IsValid() bool {
	switch s {
	case JobEnqueued, JobInProgress, JobCompleted, JobFailed:
		return true
	default:
		return false
	}
}

func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}
