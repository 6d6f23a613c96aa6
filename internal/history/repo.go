package history

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
)

// Repository is append-only: rows are inserted and read, never changed.
type Repository interface {
	Append(ctx context.Context, event *models.HistoryEvent) error
	Search(ctx context.Context, filter SearchFilter) ([]models.HistoryEvent, error)
	ByTransaction(ctx context.Context, transactionID string, limit int) ([]models.HistoryEvent, error)
	ByAccount(ctx context.Context, accountNumber string, limit int) ([]models.HistoryEvent, error)
}

// SearchFilter narrows GET /history/search. Zero values are ignored.
type SearchFilter struct {
	TransactionID        string
	AccountNumber        string
	RelatedAccountNumber string
	EventType            *enums.HistoryEventType
	Status               *enums.TransactionStatus
	PerformedBy          string
	PerformedByService   string
	From                 *time.Time
	To                   *time.Time
	Limit                int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a history repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, event *models.HistoryEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Search returns matching events newest first.
func (r *repository) Search(ctx context.Context, filter SearchFilter) ([]models.HistoryEvent, error) {
	query := r.db.WithContext(ctx).Model(&models.HistoryEvent{})
	if filter.TransactionID != "" {
		query = query.Where("transaction_id = ?", filter.TransactionID)
	}
	if filter.AccountNumber != "" {
		query = query.Where("account_number = ?", filter.AccountNumber)
	}
	if filter.RelatedAccountNumber != "" {
		query = query.Where("related_account_number = ?", filter.RelatedAccountNumber)
	}
	if filter.EventType != nil {
		query = query.Where("event_type = ?", *filter.EventType)
	}
	if filter.Status != nil {
		query = query.Where("transaction_status = ?", *filter.Status)
	}
	if filter.PerformedBy != "" {
		query = query.Where("performed_by = ?", filter.PerformedBy)
	}
	if filter.PerformedByService != "" {
		query = query.Where("performed_by_service = ?", filter.PerformedByService)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", filter.To.UTC())
	}

	var rows []models.HistoryEvent
	err := query.Order("created_at DESC, id DESC").Limit(filter.Limit).Find(&rows).Error
	return rows, err
}

// ByTransaction returns the saga's events in the order they were recorded.
func (r *repository) ByTransaction(ctx context.Context, transactionID string, limit int) ([]models.HistoryEvent, error) {
	var rows []models.HistoryEvent
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) ByAccount(ctx context.Context, accountNumber string, limit int) ([]models.HistoryEvent, error) {
	var rows []models.HistoryEvent
	err := r.db.WithContext(ctx).
		Where("account_number = ?", accountNumber).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
