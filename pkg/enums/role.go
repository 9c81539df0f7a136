package enums

import (
	"slices"
	"strings"
)

// Role is the marketplace persona carried by an authenticated identity.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleVendor Role = "vendor"
	RoleRider  Role = "rider"
	RoleAdmin  Role = "admin"
)

var validRoles = []Role{
	RoleBuyer,
	RoleVendor,
	RoleRider,
	RoleAdmin,
}

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

// ParseRole converts raw claim values into a Role.
func ParseRole(value string) (Role, error) {
	return parseEnum(validRoles, "role", strings.ToLower(strings.TrimSpace(value)))
}
