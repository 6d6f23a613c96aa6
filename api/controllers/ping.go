package controllers

import (
	"net/http"

	"github.com/angelmondragon/sagabank-backend/api/middleware"
	"github.com/angelmondragon/sagabank-backend/api/responses"
)

type whoamiResponse struct {
	Scope  string `json:"scope"`
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// Whoami echoes the authenticated caller so clients can check a token.
func Whoami() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal := middleware.PrincipalFromContext(r.Context())
		scope := "user"
		if principal.IsAdmin() {
			scope = "admin"
		}
		responses.WriteSuccess(w, whoamiResponse{
			Scope:  scope,
			UserID: principal.UserID.String(),
			Role:   string(principal.Role),
		})
	}
}
