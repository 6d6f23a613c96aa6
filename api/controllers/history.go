package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sagabank-backend/api/responses"
	"github.com/angelmondragon/sagabank-backend/api/validators"
	"github.com/angelmondragon/sagabank-backend/internal/history"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
)

const maxFilterLen = 128

// HistorySearch serves the admin audit search.
func HistorySearch(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		filter, err := searchFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.Search(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

func searchFilter(r *http.Request) (history.SearchFilter, error) {
	query := r.URL.Query()
	var filter history.SearchFilter
	for key, dest := range map[string]*string{
		"transactionId":        &filter.TransactionID,
		"accountNumber":        &filter.AccountNumber,
		"relatedAccountNumber": &filter.RelatedAccountNumber,
		"performedBy":          &filter.PerformedBy,
		"performedByService":   &filter.PerformedByService,
	} {
		value, err := validators.ParseQueryText(r, key, maxFilterLen)
		if err != nil {
			return filter, err
		}
		*dest = value
	}
	if raw := strings.TrimSpace(query.Get("eventType")); raw != "" {
		eventType, err := enums.ParseHistoryEventType(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid eventType")
		}
		filter.EventType = &eventType
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseTransactionStatus(raw)
		if err != nil {
			return filter, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
		}
		filter.Status = &status
	}
	from, err := validators.ParseQueryTime(r, "from")
	if err != nil {
		return filter, err
	}
	to, err := validators.ParseQueryTime(r, "to")
	if err != nil {
		return filter, err
	}
	filter.From, filter.To = from, to

	limit, err := validators.ParseQueryInt(r, "limit", 0, 0, 500)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	return filter, nil
}

func HistoryByTransaction(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		events, err := svc.ByTransaction(r.Context(), chi.URLParam(r, "transactionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

func HistoryByAccount(svc history.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "history service unavailable"))
			return
		}
		events, err := svc.ByAccount(r.Context(), chi.URLParam(r, "accountNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}
