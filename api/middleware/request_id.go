package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/correlation"
	"github.com/angelmondragon/sagabank-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID assigns a request id and derives the saga correlation id from
// X-Correlation-Id, falling back to the request id.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			corrID := r.Header.Get(correlation.Header)
			if corrID == "" {
				corrID = reqID
			}

			w.Header().Set(requestIDHeader, reqID)
			w.Header().Set(correlation.Header, corrID)

			ctx := correlation.WithID(r.Context(), corrID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
				ctx = logg.WithCorrelationID(ctx, corrID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
