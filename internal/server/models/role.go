package models

// Roles recognised by the portal, in decreasing order of privilege.
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleUser       = "user"
	RoleGuest      = "guest"
)

// Role pairs a role name with its human-readable permission summary,
// as shown on the roles page.
type Role struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AllRoles lists every assignable role with its permission summary.
func AllRoles() []Role {
	return []Role{
		{Name: RoleSuperAdmin, Description: "Full access, including user management"},
		{Name: RoleAdmin, Description: "Manage roles and all uploads"},
		{Name: RoleManager, Description: "Upload files and view all uploads"},
		{Name: RoleUser, Description: "Upload files and view own uploads"},
		{Name: RoleGuest, Description: "View shared uploads only"},
	}
}

// ValidRole reports whether name is one of the assignable roles.
func ValidRole(name string) bool {
	switch name {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleUser, RoleGuest:
		return true
	default:
		return false
	}
}
