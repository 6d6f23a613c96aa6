package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/sagabank-backend/api/middleware"
	"github.com/angelmondragon/sagabank-backend/api/responses"
	"github.com/angelmondragon/sagabank-backend/api/validators"
	"github.com/angelmondragon/sagabank-backend/internal/transactions"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

type depositRequest struct {
	AccountNumber string        `json:"accountNumber" validate:"required"`
	Amount        *types.Amount `json:"amount" validate:"required"`
}

type withdrawRequest struct {
	AccountNumber string        `json:"accountNumber" validate:"required"`
	Amount        *types.Amount `json:"amount" validate:"required"`
}

type transferRequest struct {
	FromAccountNumber string        `json:"fromAccountNumber" validate:"required"`
	ToAccountNumber   string        `json:"toAccountNumber"`
	Amount            *types.Amount `json:"amount" validate:"required"`
}

// TransactionDeposit originates a deposit saga.
func TransactionDeposit(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		var payload depositRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Deposit(r.Context(), middleware.PrincipalFromContext(r.Context()), transactions.DepositInput{
			AccountNumber: payload.AccountNumber,
			Amount:        *payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TransactionWithdraw originates a withdraw saga.
func TransactionWithdraw(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		var payload withdrawRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Withdraw(r.Context(), middleware.PrincipalFromContext(r.Context()), transactions.WithdrawInput{
			AccountNumber: payload.AccountNumber,
			Amount:        *payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

// TransactionTransfer originates a transfer saga. A missing destination is
// reported by the service with its own message.
func TransactionTransfer(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		var payload transferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Transfer(r.Context(), middleware.PrincipalFromContext(r.Context()), transactions.TransferInput{
			FromAccountNumber: payload.FromAccountNumber,
			ToAccountNumber:   payload.ToAccountNumber,
			Amount:            *payload.Amount,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func TransactionGet(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		id, err := uuidParam(r, "transactionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dto, err := svc.Get(r.Context(), middleware.PrincipalFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto)
	}
}

func TransactionList(svc transactions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transaction service unavailable"))
			return
		}
		page, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := transactions.ListParams{Params: page}

		query := r.URL.Query()
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, err := enums.ParseTransactionStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &status
		}
		if raw := strings.TrimSpace(query.Get("type")); raw != "" {
			txType, err := enums.ParseTransactionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid type"))
				return
			}
			params.Type = &txType
		}

		list, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
