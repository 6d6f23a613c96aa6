package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const processedRetention = 90 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type processedRetentionRepo interface {
	DeleteProcessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewProcessedRetentionJob prunes the ledger's processed-message claims. The
// retention must outlast the longest broker redelivery window, otherwise a
// late TransactionCreated duplicate would move money twice.
func NewProcessedRetentionJob(db txRunner, claims processedRetentionRepo, retention time.Duration) (Job, error) {
	if db == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if claims == nil {
		return nil, fmt.Errorf("processed message repository required")
	}
	if retention <= 0 {
		retention = processedRetention
	}
	return &processedRetentionJob{db: db, claims: claims, retention: retention, now: time.Now}, nil
}

type processedRetentionJob struct {
	db        txRunner
	claims    processedRetentionRepo
	retention time.Duration
	now       func() time.Time
}

func (j *processedRetentionJob) Name() string { return "processed-message-retention" }

func (j *processedRetentionJob) Run(ctx context.Context) (Report, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		deleted, err = j.claims.DeleteProcessedBefore(ctx, tx, cutoff)
		return err
	})
	if err != nil {
		return Report{}, fmt.Errorf("prune processed messages before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return Report{
		Affected: deleted,
		Fields: map[string]any{
			"cutoff":    cutoff,
			"retention": j.retention.String(),
		},
	}, nil
}
