// Package correlation carries the saga correlation id across the HTTP boundary,
// the outbox envelope and Pub/Sub attributes.
package correlation

import (
	"context"
	"strings"
)

const (
	// Header is read on inbound requests and echoed on responses.
	Header = "X-Correlation-Id"
	// Attribute is the Pub/Sub message attribute name.
	Attribute = "correlation_id"
)

type ctxKey struct{}

// WithID stores id on ctx. Blank ids leave ctx untouched.
func WithID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the id stored on ctx, if any.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(ctxKey{}).(string); ok {
		return id
	}
	return ""
}
