package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
)

type dlqBacklogRepo interface {
	Backlog(ctx context.Context) ([]outbox.DLQBacklog, error)
}

// NewDLQBacklogJob reports saga events stranded in outbox_dlq. Each one is a
// transaction that will stay Pending, or a history that stays incomplete,
// until the row is replayed.
func NewDLQBacklogJob(repo dlqBacklogRepo) (Job, error) {
	if repo == nil {
		return nil, fmt.Errorf("dlq repository required")
	}
	return &dlqBacklogJob{repo: repo}, nil
}

type dlqBacklogJob struct {
	repo dlqBacklogRepo
}

func (j *dlqBacklogJob) Name() string { return "dlq-backlog" }

func (j *dlqBacklogJob) Run(ctx context.Context) (Report, error) {
	backlog, err := j.repo.Backlog(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("read dlq backlog: %w", err)
	}
	var total, replayable int64
	byType := map[string]int64{}
	for _, row := range backlog {
		total += row.Count
		byType[string(row.EventType)] += row.Count
		if row.ErrorReason.Replayable() {
			replayable += row.Count
		}
	}
	return Report{
		Affected: total,
		Fields: map[string]any{
			"by_event_type": byType,
			"replayable":    replayable,
		},
	}, nil
}
