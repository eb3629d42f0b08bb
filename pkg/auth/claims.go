package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the JWT body issued by the identity service.
type AccessTokenClaims struct {
	UserID  uuid.UUID `json:"user_id"`
	IsStaff bool      `json:"is_staff,omitempty"`
	jwt.RegisteredClaims
}

// Actor returns the identity the claims authenticate.
func (c AccessTokenClaims) Actor() Actor {
	return Actor{UserID: c.UserID, IsStaff: c.IsStaff}
}
