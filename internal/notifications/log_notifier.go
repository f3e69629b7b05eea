package notifications

import (
	"context"
	"log/slog"
)

type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log}
}

func (n *LogNotifier) NotifyDeletion(ctx context.Context, r DeletionReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	level := slog.LevelInfo
	if r.Outcome == OutcomeFailed {
		level = slog.LevelWarn
	}

	n.log.Log(ctx, level, "notification.user_deletion",
		"job_id", r.JobID,
		"user_id", r.UserID,
		"request_id", r.RequestID,
		"outcome", r.Outcome,
		"attempts", r.Attempts,
		"err", r.Err,
	)
	return nil
}
