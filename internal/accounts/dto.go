package accounts

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/pagination"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// AccountDTO is the transport shape for an account.
type AccountDTO struct {
	ID        uuid.UUID    `json:"id"`
	UserID    uuid.UUID    `json:"userId"`
	Balance   types.Amount `json:"balance"`
	IsActive  bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
}

// CreateInput carries the optional fields of POST /accounts.
type CreateInput struct {
	UserID         *uuid.UUID
	InitialBalance *types.Amount
}

func toDTO(row models.Account) AccountDTO {
	return AccountDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Balance:   row.Balance,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt,
	}
}

func cursorOf(dto AccountDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: dto.CreatedAt, ID: dto.ID}
}
