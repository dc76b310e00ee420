package identity

import "strings"

// Role gates which dashboard sections an operator sees.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// ParseRole maps free text to a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleEditor:
		return RoleEditor, true
	default:
		return "", false
	}
}

func (r Role) String() string { return string(r) }
