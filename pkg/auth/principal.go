package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/sagabank-backend/pkg/enums"
)

// Principal is the authenticated caller as seen by domain services.
type Principal struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == enums.RoleAdmin
}

// CanAccess reports whether the caller may read a resource owned by ownerID.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsAdmin() || (p.UserID != uuid.Nil && p.UserID == ownerID)
}

// Principal converts verified claims into the domain-facing caller.
func (c *AccessTokenClaims) Principal() Principal {
	if c == nil {
		return Principal{}
	}
	return Principal{UserID: c.UserID, Role: c.Role}
}
