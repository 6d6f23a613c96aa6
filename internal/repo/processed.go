package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
)

// ProcessedMessages records which messages a consumer has applied. Claims are
// made inside the consumer's own transaction so they commit or roll back with
// the side effects they guard.
type ProcessedMessages struct {
	Base
}

func NewProcessedMessages(db *gorm.DB) *ProcessedMessages {
	return &ProcessedMessages{Base: NewBase(db)}
}

func (r *ProcessedMessages) WithTx(tx *gorm.DB) *ProcessedMessages {
	return &ProcessedMessages{Base: r.Base.WithTx(tx)}
}

// Claim inserts (consumer, key) and reports whether this call created it.
// ON CONFLICT DO NOTHING keeps a postgres transaction usable after a duplicate.
func (r *ProcessedMessages) Claim(ctx context.Context, consumer, key string) (bool, error) {
	consumer = strings.TrimSpace(consumer)
	key = strings.TrimSpace(key)
	if consumer == "" || key == "" {
		return false, errors.New("consumer and message key are required")
	}
	row := models.ProcessedMessage{
		Consumer:    consumer,
		MessageKey:  key,
		ProcessedAt: time.Now().UTC(),
	}
	result := r.DB(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// DeleteProcessedBefore prunes claims older than cutoff.
func (r *ProcessedMessages) DeleteProcessedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	result := tx.WithContext(ctx).
		Where("processed_at < ?", cutoff).
		Delete(&models.ProcessedMessage{})
	return result.RowsAffected, result.Error
}
