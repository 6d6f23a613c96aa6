package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sagabank-backend/api/controllers"
	"github.com/angelmondragon/sagabank-backend/api/middleware"
	"github.com/angelmondragon/sagabank-backend/internal/accounts"
	"github.com/angelmondragon/sagabank-backend/internal/history"
	"github.com/angelmondragon/sagabank-backend/internal/transactions"
	"github.com/angelmondragon/sagabank-backend/pkg/config"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
	"github.com/angelmondragon/sagabank-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/sagabank-backend/pkg/redis"
)

// Dependencies selects which surfaces a binary exposes. Nil services are not
// mounted, so each cmd passes only what it owns.
type Dependencies struct {
	Ready          map[string]controllers.Pinger
	Idempotency    pkgredis.IdempotencyStore
	HTTPMetrics    *metrics.HTTPMetrics
	MetricsHandler http.Handler

	Transactions transactions.Service
	Accounts     accounts.Service
	History      history.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Ready))
	})
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Get("/me", controllers.Whoami())

		if deps.Transactions != nil {
			r.Route("/transactions", func(r chi.Router) {
				r.Post("/deposit", controllers.TransactionDeposit(deps.Transactions, logg))
				r.Post("/withdraw", controllers.TransactionWithdraw(deps.Transactions, logg))
				r.Post("/transfer", controllers.TransactionTransfer(deps.Transactions, logg))
				r.Get("/", controllers.TransactionList(deps.Transactions, logg))
				r.Get("/{transactionId}", controllers.TransactionGet(deps.Transactions, logg))
			})
		}

		if deps.Accounts != nil {
			r.Route("/accounts", func(r chi.Router) {
				r.Post("/", controllers.AccountCreate(deps.Accounts, logg))
				r.Get("/", controllers.AccountList(deps.Accounts, logg))
				r.Get("/{accountId}", controllers.AccountGet(deps.Accounts, logg))
			})
		}

		if deps.History != nil {
			r.Route("/history", func(r chi.Router) {
				r.Use(middleware.RequireRole(enums.RoleAdmin, logg))
				r.Get("/search", controllers.HistorySearch(deps.History, logg))
				r.Get("/transaction/{transactionId}", controllers.HistoryByTransaction(deps.History, logg))
				r.Get("/account/{accountNumber}", controllers.HistoryByAccount(deps.History, logg))
			})
		}
	})

	return r
}
