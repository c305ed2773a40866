package auth

// UserRole is the user's role
type UserRole = string

const (
	// RoleUser is the default role given at registration
	RoleUser UserRole = "user"
	// RoleAdmin may administer other accounts
	RoleAdmin UserRole = "admin"
)

// IsValidRole checks if the role is one of the predefined roles
func IsValidRole(r string) bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// GetAllRoles returns all predefined roles
func GetAllRoles() []UserRole {
	return []UserRole{RoleUser, RoleAdmin}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}
