package outbox

import (
	"context"
	"errors"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
)

// Publisher error text can embed a whole gRPC status; keep the column bounded.
const maxDLQErrorLen = 1024

// DLQRepository stores saga events the publisher gave up on. Each row is a
// transaction stuck between two saga steps until someone replays it.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx writes entry in the same transaction that marks the outbox row
// terminal, so an event is never both pending and dead-lettered.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncateDLQError(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// DLQBacklog counts dead-lettered events of one type and reason.
type DLQBacklog struct {
	EventType   enums.OutboxEventType
	ErrorReason enums.OutboxDLQErrorReason
	Count       int64
}

// Backlog groups the DLQ by event type and reason.
func (r *DLQRepository) Backlog(ctx context.Context) ([]DLQBacklog, error) {
	var rows []DLQBacklog
	err := r.db.WithContext(ctx).
		Model(&models.OutboxDLQ{}).
		Select("event_type, error_reason, COUNT(*) AS count").
		Group("event_type, error_reason").
		Order("event_type, error_reason").
		Scan(&rows).Error
	return rows, err
}

// truncateDLQError cuts on a rune boundary.
func truncateDLQError(message string) string {
	if len(message) <= maxDLQErrorLen {
		return message
	}
	cut := message[:maxDLQErrorLen]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
