package transactions

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/pagination"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// TransactionDTO is what callers see; a freshly created row is always Pending.
type TransactionDTO struct {
	TransactionID     uuid.UUID               `json:"transactionId"`
	TransactionType   enums.TransactionType   `json:"transactionType"`
	FromAccount       string                  `json:"fromAccount"`
	ToAccount         *string                 `json:"toAccount"`
	Amount            types.Amount            `json:"amount"`
	Timestamp         time.Time               `json:"timestamp"`
	PerformedBy       string                  `json:"performedBy"`
	TransactionStatus enums.TransactionStatus `json:"transactionStatus"`
	Details           *string                 `json:"details,omitempty"`
}

// DepositInput is the body of POST /transactions/deposit.
type DepositInput struct {
	AccountNumber string
	Amount        types.Amount
}

// WithdrawInput is the body of POST /transactions/withdraw.
type WithdrawInput struct {
	AccountNumber string
	Amount        types.Amount
}

// TransferInput is the body of POST /transactions/transfer.
type TransferInput struct {
	FromAccountNumber string
	ToAccountNumber   string
	Amount            types.Amount
}

// ListParams filters GET /transactions.
type ListParams struct {
	pagination.Params
	Status *enums.TransactionStatus
	Type   *enums.TransactionType
}

func toDTO(row models.Transaction) TransactionDTO {
	dto := TransactionDTO{
		TransactionID:     row.ID,
		TransactionType:   row.Type,
		ToAccount:         row.ToAccount,
		Amount:            row.Amount,
		Timestamp:         row.CreatedAt,
		PerformedBy:       row.PerformedBy,
		TransactionStatus: row.Status,
		Details:           row.Details,
	}
	if row.FromAccount != nil {
		dto.FromAccount = *row.FromAccount
	}
	return dto
}

func cursorOf(dto TransactionDTO) pagination.Cursor {
	return pagination.Cursor{CreatedAt: dto.Timestamp, ID: dto.TransactionID}
}
