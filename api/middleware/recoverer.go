package middleware

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/sagabank-backend/api/responses"
	pkgerrors "github.com/angelmondragon/sagabank-backend/pkg/errors"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. A panic before the
// transaction's outbox row committed leaves nothing behind; one after it
// leaves a Pending transaction the saga still completes, so the client is
// told to check the transaction rather than retry blindly.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				value := recover()
				if value == nil {
					return
				}
				if value == http.ErrAbortHandler {
					panic(value)
				}
				err, ok := value.(error)
				if !ok {
					err = fmt.Errorf("%v", value)
				}
				ctx := r.Context()
				if logg != nil {
					route := r.URL.Path
					if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
						route = rc.RoutePattern()
					}
					logg.Error(logg.WithFields(ctx, map[string]any{
						"route":           route,
						"method":          r.Method,
						"headers_written": rec.status != 0,
					}), "handler panicked", err)
				}
				if rec.status != 0 {
					return
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "handler panicked"))
			}()
			next.ServeHTTP(rec, r)
		})
	}
}
