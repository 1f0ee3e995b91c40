package domain

import (
	"fmt"
	"strings"
)

// Role is the coarse account role a user holds.
type Role string

const (
	RoleMember    Role = "member"
	RoleExpert    Role = "expert"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Capabilities are the permissions derived from a role.
type Capabilities struct {
	IsExpert    bool
	IsAdmin     bool
	CanModerate bool
}

// CapabilitiesFor maps a role to its capability set. Unknown roles get none.
func CapabilitiesFor(role Role) Capabilities {
	switch role {
	case RoleExpert:
		return Capabilities{IsExpert: true}
	case RoleModerator:
		return Capabilities{CanModerate: true}
	case RoleAdmin:
		return Capabilities{IsExpert: true, IsAdmin: true, CanModerate: true}
	default:
		return Capabilities{}
	}
}

// CanAnswer reports whether the holder may author answers.
func (c Capabilities) CanAnswer() bool {
	return c.IsExpert || c.IsAdmin
}

// ParseRole parses a role label.
func ParseRole(value string) (Role, error) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case RoleMember, RoleExpert, RoleModerator, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// User is the slice of an account this service reads.
type User struct {
	ID          string
	DisplayName string
	Role        Role
	Reputation  int
}

// Capabilities evaluates the user's role once.
func (u User) Capabilities() Capabilities {
	return CapabilitiesFor(u.Role)
}
