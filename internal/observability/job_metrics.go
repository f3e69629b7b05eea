package observability

import (
	"sync/atomic"
	"time"
)

// JobStats are per-process deletion counters served on the worker's /queuez.
// Prometheus holds the same numbers; these exist so an operator can read them
// without a scraper.
type JobStats struct {
	started atomic.Uint64
	done    atomic.Uint64
	gone    atomic.Uint64
	retried atomic.Uint64
	failed  atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewJobStats() *JobStats {
	return &JobStats{}
}

func (m *JobStats) IncStarted() {
	m.started.Add(1)
}

func (m *JobStats) IncDone() {
	m.done.Add(1)
}

// IncGone counts jobs whose user was already deleted.
func (m *JobStats) IncGone() {
	m.gone.Add(1)
}

func (m *JobStats) IncRetried() {
	m.retried.Add(1)
}

func (m *JobStats) IncFailed() {
	m.failed.Add(1)
}

func (m *JobStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type JobStatsSnapshot struct {
	Started         uint64        `json:"started"`
	Done            uint64        `json:"done"`
	AlreadyGone     uint64        `json:"alreadyGone"`
	Retried         uint64        `json:"retried"`
	Failed          uint64        `json:"failed"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (m *JobStats) Snapshot() JobStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return JobStatsSnapshot{
		Started:         m.started.Load(),
		Done:            m.done.Load(),
		AlreadyGone:     m.gone.Load(),
		Retried:         m.retried.Load(),
		Failed:          m.failed.Load(),
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
