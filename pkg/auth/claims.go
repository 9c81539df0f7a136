package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// AccessTokenClaims is the HS256 session token shape shared with the
// session provider.
type AccessTokenClaims struct {
	UserID     string     `json:"user_id"`
	Name       string     `json:"name,omitempty"`
	Role       enums.Role `json:"role"`
	University string     `json:"university,omitempty"`
	Address    string     `json:"address,omitempty"`
	jwt.RegisteredClaims
}

func (c AccessTokenClaims) Identity() Identity {
	return Identity{
		UserID:     c.UserID,
		Name:       c.Name,
		Role:       c.Role,
		University: c.University,
		Address:    c.Address,
	}
}
