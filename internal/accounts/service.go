package accounts

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/auth"
	"github.com/angelmondragon/sagabank-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/pagination"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

// Service defines the account HTTP operations.
type Service interface {
	Create(ctx context.Context, caller auth.Principal, input CreateInput) (*AccountDTO, error)
	Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*AccountDTO, error)
	List(ctx context.Context, caller auth.Principal, params pagination.Params) (*pagination.Page[AccountDTO], error)
}

type service struct {
	repo Repository
}

// NewService wires account dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "accounts repository required")
	}
	return &service{repo: repo}, nil
}

// Create opens an account. Users may only open zero-balance accounts for
// themselves; admins may open one for anyone with an initial balance.
func (s *service) Create(ctx context.Context, caller auth.Principal, input CreateInput) (*AccountDTO, error) {
	if caller.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller required")
	}

	owner := caller.UserID
	if input.UserID != nil && *input.UserID != uuid.Nil {
		owner = *input.UserID
	}
	if owner != caller.UserID && !caller.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot open an account for another user")
	}

	balance := types.AmountFromInt(0)
	if input.InitialBalance != nil {
		balance = *input.InitialBalance
	}
	if !balance.IsZero() && !caller.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may set an initial balance")
	}
	if balance.IsNegative() || !balance.Fits() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial balance must be a non-negative amount with at most two decimals")
	}

	account := &models.Account{UserID: owner, Balance: balance, IsActive: true}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
	}
	dto := toDTO(*account)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, caller auth.Principal, id uuid.UUID) (*AccountDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	if account == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
	}
	if !caller.CanAccess(account.UserID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "account belongs to another user")
	}
	dto := toDTO(*account)
	return &dto, nil
}

func (s *service) List(ctx context.Context, caller auth.Principal, params pagination.Params) (*pagination.Page[AccountDTO], error) {
	query := listParams{Limit: pagination.LimitWithBuffer(params.Limit)}
	if !caller.IsAdmin() {
		if caller.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "caller required")
		}
		owner := caller.UserID
		query.OwnerID = &owner
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	query.Cursor = cursor

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accounts")
	}
	items := make([]AccountDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, toDTO(row))
	}
	page := pagination.BuildPage(items, params.Limit, cursorOf)
	return &page, nil
}
