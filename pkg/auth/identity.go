package auth

import (
	"context"
	"strings"

	"github.com/angelmondragon/univend-backend/pkg/enums"
)

// Identity is the verified caller. Sessions are issued by the identity
// provider; the API only reads these fields from the bearer token.
type Identity struct {
	UserID     string     `json:"userId"`
	Name       string     `json:"name,omitempty"`
	Role       enums.Role `json:"role"`
	University string     `json:"university,omitempty"`
	Address    string     `json:"address,omitempty"`
}

// SystemUserID marks transitions started by background jobs.
const SystemUserID = "system"

// System is the identity used by the cron worker.
func System() Identity {
	return Identity{UserID: SystemUserID, Role: enums.RoleAdmin, Name: "system"}
}

func (i Identity) IsSystem() bool {
	return i.UserID == SystemUserID
}

func (i Identity) HasRole(roles ...enums.Role) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

// SameUniversity reports whether both sides carry a university and it
// matches. Identities without a university are not restricted.
func (i Identity) SameUniversity(other string) bool {
	a := strings.TrimSpace(i.University)
	b := strings.TrimSpace(other)
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(a, b)
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}
