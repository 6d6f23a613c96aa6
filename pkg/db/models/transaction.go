package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// Transaction is the originator's record of a money movement. The ID doubles as
// the saga correlation key carried by every message.
type Transaction struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type        enums.TransactionType   `gorm:"column:type;type:smallint;not null"`
	Status      enums.TransactionStatus `gorm:"column:status;type:smallint;not null"`
	FromAccount *string                 `gorm:"column:from_account"`
	ToAccount   *string                 `gorm:"column:to_account"`
	Amount      types.Amount            `gorm:"column:amount;type:numeric(18,2);not null"`
	PerformedBy string                  `gorm:"column:performed_by;not null"`
	Details     *string                 `gorm:"column:details"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
