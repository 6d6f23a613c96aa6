package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// maxResults caps every history read.
const maxResults = 500

const msgNoMatch = "No history events found matching the criteria."

// EventDTO is the transport shape of a history entry.
type EventDTO struct {
	ID                   uuid.UUID               `json:"id"`
	TransactionID        string                  `json:"transactionId"`
	AccountNumber        string                  `json:"accountNumber"`
	RelatedAccountNumber string                  `json:"relatedAccountNumber,omitempty"`
	EventType            enums.HistoryEventType  `json:"eventType"`
	TransactionType      enums.TransactionType   `json:"transactionType"`
	TransactionStatus    enums.TransactionStatus `json:"transactionStatus"`
	Amount               types.Amount            `json:"amount"`
	PerformedBy          string                  `json:"performedBy"`
	PerformedByService   string                  `json:"performedByService"`
	Details              string                  `json:"details"`
	Timestamp            time.Time               `json:"timestamp"`
}

// Service serves the admin history queries.
type Service interface {
	Search(ctx context.Context, filter SearchFilter) ([]EventDTO, error)
	ByTransaction(ctx context.Context, transactionID string) ([]EventDTO, error)
	ByAccount(ctx context.Context, accountNumber string) ([]EventDTO, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "history repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Search(ctx context.Context, filter SearchFilter) ([]EventDTO, error) {
	if filter.EventType != nil && !filter.EventType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid eventType")
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must not be after to")
	}
	filter.TransactionID = strings.TrimSpace(filter.TransactionID)
	filter.AccountNumber = strings.TrimSpace(filter.AccountNumber)
	filter.RelatedAccountNumber = strings.TrimSpace(filter.RelatedAccountNumber)
	filter.PerformedBy = strings.TrimSpace(filter.PerformedBy)
	filter.PerformedByService = strings.TrimSpace(filter.PerformedByService)
	if filter.Limit <= 0 || filter.Limit > maxResults {
		filter.Limit = maxResults
	}

	rows, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search history")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, msgNoMatch)
	}
	return toDTOs(rows), nil
}

func (s *service) ByTransaction(ctx context.Context, transactionID string) ([]EventDTO, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	rows, err := s.repo.ByTransaction(ctx, transactionID, maxResults)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction history")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("No events found for transaction ID %s", transactionID))
	}
	return toDTOs(rows), nil
}

func (s *service) ByAccount(ctx context.Context, accountNumber string) ([]EventDTO, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account number required")
	}
	rows, err := s.repo.ByAccount(ctx, accountNumber, maxResults)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account history")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("No events found for account number %s", accountNumber))
	}
	return toDTOs(rows), nil
}

func toDTOs(rows []models.HistoryEvent) []EventDTO {
	out := make([]EventDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, EventDTO{
			ID:                   row.ID,
			TransactionID:        row.TransactionID,
			AccountNumber:        row.AccountNumber,
			RelatedAccountNumber: row.RelatedAccountNumber,
			EventType:            row.EventType,
			TransactionType:      row.TransactionType,
			TransactionStatus:    row.TransactionStatus,
			Amount:               row.Amount,
			PerformedBy:          row.PerformedBy,
			PerformedByService:   row.PerformedByService,
			Details:              row.Details,
			Timestamp:            row.CreatedAt,
		})
	}
	return out
}
