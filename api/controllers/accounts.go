package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/api/middleware"
	"github.com/angelmondragon/sagabank-backend/api/responses"
	"github.com/angelmondragon/sagabank-backend/api/validators"
	"github.com/angelmondragon/sagabank-backend/internal/accounts"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/types"
)

type accountCreateRequest struct {
	UserID         *string       `json:"userId" validate:"omitempty,uuid"`
	InitialBalance *types.Amount `json:"initialBalance"`
}

// AccountCreate opens an account. Only admins may pick the owner or seed a balance.
func AccountCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		var payload accountCreateRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := accounts.CreateInput{InitialBalance: payload.InitialBalance}
		if payload.UserID != nil {
			id, err := uuid.Parse(*payload.UserID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid userId"))
				return
			}
			input.UserID = &id
		}

		dto, err := svc.Create(r.Context(), middleware.PrincipalFromContext(r.Context()), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

func AccountGet(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		id, err := uuidParam(r, "accountId")
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

func AccountList(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.List(r.Context(), middleware.PrincipalFromContext(r.Context()), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
