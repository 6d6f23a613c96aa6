package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/auth"
	"github.com/angelmondragon/sagabank-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// PrincipalFromContext rebuilds the caller seeded by Auth. Unauthenticated
// contexts yield the zero Principal.
func PrincipalFromContext(ctx context.Context) auth.Principal {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil {
		return auth.Principal{}
	}
	role, err := enums.ParseRole(RoleFromContext(ctx))
	if err != nil {
		return auth.Principal{}
	}
	return auth.Principal{UserID: userID, Role: role}
}

// WithPrincipal injects the caller into the context.
func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, p.UserID.String())
	return context.WithValue(ctx, ctxRole, string(p.Role))
}
