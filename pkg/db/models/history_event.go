package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// HistoryEvent is one append-only audit entry; one row per consumed message.
type HistoryEvent struct {
	ID                   uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransactionID        string                  `gorm:"column:transaction_id;not null"`
	AccountNumber        string                  `gorm:"column:account_number;not null"`
	RelatedAccountNumber string                  `gorm:"column:related_account_number"`
	EventType            enums.HistoryEventType  `gorm:"column:event_type;type:smallint;not null"`
	TransactionType      enums.TransactionType   `gorm:"column:transaction_type;type:smallint"`
	TransactionStatus    enums.TransactionStatus `gorm:"column:transaction_status;type:smallint"`
	Amount               types.Amount            `gorm:"column:amount;type:numeric(18,2);not null"`
	PerformedBy          string                  `gorm:"column:performed_by"`
	PerformedByService   string                  `gorm:"column:performed_by_service"`
	Details              string                  `gorm:"column:details"`
	SourceEventID        *uuid.UUID              `gorm:"column:source_event_id;type:uuid"`
	CreatedAt            time.Time               `gorm:"column:created_at;autoCreateTime"`
}

func (h *HistoryEvent) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
