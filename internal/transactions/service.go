package transactions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/sagabank-backend/pkg/auth"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox"
	"github.com/angelmondragon/sagabank-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/sagabank-backend/pkg/pagination"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

const (
	detailCreated         = "Transaction created"
	msgAmountNotPositive  = "Amount must be greater than zero."
	msgAmountScale        = "Amount must have at most two decimal places."
	msgAmountTooLarge     = "Amount exceeds the maximum allowed value."
	msgAccountRequired    = "Account number is required."
	msgDestinationMissing = "Destination account is required."
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service originates money movements and serves transaction reads.
type Service interface {
	Deposit(ctx context.Context, caller auth.Principal, input DepositInput) (*TransactionDTO, error)
	Withdraw(ctx context.Context, caller auth.Principal, input WithdrawInput) (*TransactionDTO, error)
	Transfer(ctx context.Context, caller auth.Principal, input TransferInput) (*TransactionDTO, error)
	Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*TransactionDTO, error)
	List(ctx context.Context, caller auth.Principal, params ListParams) (*pagination.Page[TransactionDTO], error)
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outbox.Emitter
	logg   *logger.Logger
}

// NewService wires originator dependencies.
func NewService(tx txRunner, repo Repository, emitter outbox.Emitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transactions repository required")
	}
	if emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox emitter required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	return &service{tx: tx, repo: repo, outbox: emitter, logg: logg}, nil
}

func (s *service) Deposit(ctx context.Context, caller auth.Principal, input DepositInput) (*TransactionDTO, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	account := strings.TrimSpace(input.AccountNumber)
	if account == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgAccountRequired)
	}
	row := &models.Transaction{
		Type:      enums.TransactionTypeDeposit,
		ToAccount: &account,
		Amount:    input.Amount,
	}
	return s.originate(ctx, caller, row, account, "")
}

func (s *service) Withdraw(ctx context.Context, caller auth.Principal, input WithdrawInput) (*TransactionDTO, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	account := strings.TrimSpace(input.AccountNumber)
	if account == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgAccountRequired)
	}
	row := &models.Transaction{
		Type:        enums.TransactionTypeWithdraw,
		FromAccount: &account,
		Amount:      input.Amount,
	}
	return s.originate(ctx, caller, row, account, "")
}

func (s *service) Transfer(ctx context.Context, caller auth.Principal, input TransferInput) (*TransactionDTO, error) {
	if err := validateAmount(input.Amount); err != nil {
		return nil, err
	}
	to := strings.TrimSpace(input.ToAccountNumber)
	if to == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgDestinationMissing)
	}
	from := strings.TrimSpace(input.FromAccountNumber)
	if from == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgAccountRequired)
	}
	row := &models.Transaction{
		Type:        enums.TransactionTypeTransfer,
		FromAccount: &from,
		ToAccount:   &to,
		Amount:      input.Amount,
	}
	return s.originate(ctx, caller, row, from, to)
}

// originate stores the Pending row and queues TransactionCreated in the same
// local transaction.
func (s *service) originate(ctx context.Context, caller auth.Principal, row *models.Transaction, account, related string) (*TransactionDTO, error) {
	if caller.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller required")
	}
	row.Status = enums.TransactionStatusPending
	row.PerformedBy = caller.UserID.String()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transaction")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransactionCreated,
			AggregateType: enums.AggregateTransaction,
			AggregateID:   row.ID,
			Actor:         &outbox.ActorRef{UserID: caller.UserID.String(), Role: caller.Role.String()},
			Data: payloads.TransactionCreatedEvent{TransactionMessage: payloads.TransactionMessage{
				TransactionID:        row.ID.String(),
				AccountNumber:        account,
				RelatedAccountNumber: related,
				Amount:               row.Amount,
				TransactionType:      row.Type,
				TransactionStatus:    row.Status,
				PerformedBy:          row.PerformedBy,
				PerformedByService:   payloads.ServiceTransaction,
				Details:              detailCreated,
			}},
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue transaction created")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"transaction_id":   row.ID.String(),
		"transaction_type": row.Type.String(),
	}), "transaction originated")
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*TransactionDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transaction")
	}
	if row == nil || (!caller.IsAdmin() && row.PerformedBy != caller.UserID.String()) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found")
	}
	dto := toDTO(*row)
	return &dto, nil
}

// List returns transactions newest first. Non-admins only see their own.
func (s *service) List(ctx context.Context, caller auth.Principal, params ListParams) (*pagination.Page[TransactionDTO], error) {
	query := listParams{
		Status: params.Status,
		Type:   params.Type,
		Limit:  pagination.LimitWithBuffer(params.Limit),
	}
	if !caller.IsAdmin() {
		if caller.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller required")
		}
		performer := caller.UserID.String()
		query.PerformedBy = &performer
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transactions")
	}
	items := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	page := pagination.BuildPage(items, params.Limit, cursorOf)
	return &page, nil
}

func validateAmount(amount types.Amount) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, msgAmountNotPositive)
	}
	if !amount.HasValidScale() {
		return pkgerrors.New(pkgerrors.CodeValidation, msgAmountScale)
	}
	if amount.GreaterThan(types.MaxAmount) {
		return pkgerrors.New(pkgerrors.CodeValidation, msgAmountTooLarge)
	}
	return nil
}
