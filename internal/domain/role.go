package domain

import "strings"

// Role is the actor tier supplied by the identity provider in the access token.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOwner       Role = "owner"
	RoleOperational Role = "operational"
)

// ParseRole maps a raw claim to a known role. Anything unrecognised is
// returned as-is so the visibility policy can apply its fail-closed default.
func ParseRole(raw string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch r {
	case RoleAdmin, RoleOwner, RoleOperational:
		return r
	default:
		return Role(strings.TrimSpace(raw))
	}
}

func (r Role) Known() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleOperational:
		return true
	default:
		return false
	}
}
