package auth

import "strings"

const (
	// RoleSuperAdmin bypasses department scoping entirely.
	RoleSuperAdmin = "super_admin"

	authorRolePrefix = "author_"
)

// Claims is the identity snapshot embedded in every access token. It is
// built once at login (or refresh) from the directory and never
// re-fetched until the token expires or rotates, so role or permission
// edits do not retroactively affect already-issued tokens.
type Claims struct {
	Subject     string   `json:"sub"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
}

// HasPermission reports whether the claims carry the named permission.
func (c Claims) HasPermission(name string) bool {
	for _, p := range c.Permissions {
		if p == name {
			return true
		}
	}
	return false
}

// HasRole reports whether the claims carry exactly the named role.
func (c Claims) HasRole(name string) bool {
	return c.RoleName == name
}

// DepartmentOf derives a department from a role name. super_admin has no
// department because it is unscoped; any role outside the author_<dept>
// convention has no department either, which scoped checks treat as a
// denial, not a bypass.
func DepartmentOf(roleName string) (string, bool) {
	if roleName == RoleSuperAdmin {
		return "", false
	}
	if dept, ok := strings.CutPrefix(roleName, authorRolePrefix); ok && dept != "" {
		return dept, true
	}
	return "", false
}

// EnsureSameDepartmentOrSuperAdmin authorizes actor against a target
// role name under the department rule. Only the literal super_admin role
// is unscoped; an actor without a derivable department is denied against
// every target.
func EnsureSameDepartmentOrSuperAdmin(actor Claims, targetRoleName string) error {
	if actor.RoleName == RoleSuperAdmin {
		return nil
	}
	actorDept, ok := DepartmentOf(actor.RoleName)
	if !ok {
		return ErrCrossDepartment
	}
	targetDept, ok := DepartmentOf(targetRoleName)
	if !ok || actorDept != targetDept {
		return ErrCrossDepartment
	}
	return nil
}
