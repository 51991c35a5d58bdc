package auth

import "slices"

// Admin role constants.
const (
	RoleViewer     = "viewer"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// AllAdminRoles returns all valid admin roles.
func AllAdminRoles() []string {
	return []string{RoleViewer, RoleAdmin, RoleSuperAdmin}
}

// WriteRoles returns roles that can change volunteer records.
func WriteRoles() []string {
	return []string{RoleAdmin, RoleSuperAdmin}
}

// ValidRole reports whether role is a known admin role.
func ValidRole(role string) bool {
	return slices.Contains(AllAdminRoles(), role)
}
