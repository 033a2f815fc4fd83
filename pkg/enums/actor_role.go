package enums

import (
	"fmt"
	"strings"
)

// ActorRole is the role an authenticated caller acts under.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleVendor   ActorRole = "vendor"
	ActorRoleDriver   ActorRole = "driver"
	ActorRoleManager  ActorRole = "manager"
	ActorRoleAdmin    ActorRole = "admin"
	ActorRoleSystem   ActorRole = "system"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleVendor,
	ActorRoleDriver,
	ActorRoleManager,
	ActorRoleAdmin,
	ActorRoleSystem,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole. Matching is case-insensitive.
func ParseActorRole(value string) (ActorRole, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validActorRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
