package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"inkpress.org/internal/auth"
)

type accountResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	RoleName  string `json:"role_name"`
}

// handleAccountGet serves GET /v1/accounts/{id}. The caller needs the
// user.manage permission and must share a department with the target
// account unless it holds the super_admin role.
func (a *API) handleAccountGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	claims, err := requirePermission(r, auth.PermUserManage)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	account, err := a.directory.FindByID(r.Context(), id)
	if err != nil {
		// A scoped caller must not be able to tell absent accounts from
		// accounts outside its department, so both come back as the
		// same denial. Only super_admin sees a real 404.
		if errors.Is(err, auth.ErrNotFound) && !claims.HasRole(auth.RoleSuperAdmin) {
			handleAuthError(w, r, auth.ErrCrossDepartment)
			return
		}
		handleAuthError(w, r, err)
		return
	}

	if err := auth.EnsureSameDepartmentOrSuperAdmin(claims, account.RoleName); err != nil {
		handleAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, accountResponse{
		ID:        account.ID,
		Email:     account.Email,
		FirstName: account.FirstName,
		LastName:  account.LastName,
		RoleName:  account.RoleName,
	})
}
