package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"inkpress.org/internal/auth"
)

type fakeDirectory struct {
	accounts map[string]*auth.Account
}

func (d *fakeDirectory) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	for _, account := range d.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (d *fakeDirectory) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	if account, ok := d.accounts[id]; ok {
		return account, nil
	}
	return nil, auth.ErrNotFound
}

type testEnv struct {
	t       *testing.T
	handler http.Handler
}

func newTestAPI(t *testing.T) *testEnv {
	t.Helper()

	digest, err := auth.HashSecret("Admin123!")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	directory := &fakeDirectory{accounts: map[string]*auth.Account{
		"user-admin": {
			ID: "user-admin", Email: "admin@ceit.edu", FirstName: "Super", LastName: "Admin",
			PasswordHash: digest, RoleName: "super_admin",
			Permissions: auth.BuiltinPermissions,
		},
		"user-ce": {
			ID: "user-ce", Email: "ce.author@ceit.edu", FirstName: "Civil", LastName: "Engineer",
			PasswordHash: digest, RoleName: "author_ce",
			Permissions: []string{auth.PermUserManage, auth.PermArticleCreate},
		},
		"user-ce-2": {
			ID: "user-ce-2", Email: "ce.reviewer@ceit.edu", FirstName: "Second", LastName: "Civil",
			PasswordHash: digest, RoleName: "author_ce",
			Permissions: []string{auth.PermArticleCreate},
		},
		"user-ee": {
			ID: "user-ee", Email: "ee.author@ceit.edu", FirstName: "Electrical", LastName: "Engineer",
			PasswordHash: digest, RoleName: "author_ee",
			Permissions: []string{auth.PermUserManage},
		},
	}}

	svc, err := auth.NewService(directory, "test-secret",
		auth.WithIssuer("test-issuer"),
		auth.WithAccessTTL(time.Hour),
		auth.WithRefreshTTL(24*time.Hour),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	api := New(ReadyProbe{}, "test", svc, directory)
	return &testEnv{t: t, handler: api.Handler()}
}

func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.0.0.1:1234"
	// Pin the id so error payloads are byte-comparable across requests.
	req.Header.Set("X-Request-Id", "test-request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) login(email, password string) tokenResponse {
	e.t.Helper()
	rr := e.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": email, "password": password}, "")
	if rr.Code != http.StatusOK {
		e.t.Fatalf("login %s: expected 200, got %d (%s)", email, rr.Code, rr.Body)
	}
	var resp tokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		e.t.Fatalf("decode login response: %v", err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	env := newTestAPI(t)
	rr := env.do(http.MethodGet, "/healthz", nil, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestLoginReturnsBearerPair(t *testing.T) {
	env := newTestAPI(t)

	resp := env.login("ce.author@ceit.edu", "Admin123!")
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", resp)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("unexpected token type %q", resp.TokenType)
	}
}

func TestLoginRejectsBadCredentialsUniformly(t *testing.T) {
	env := newTestAPI(t)

	unknown := env.do(http.MethodPost, "/v1/auth/login",
		map[string]string{"email": "nobody@ceit.edu", "password": "Admin123!"}, "")
	wrongPw := env.do(http.MethodPost, "/v1/auth/login",
		map[string]string{"email": "ce.author@ceit.edu", "password": "nope"}, "")

	for _, rr := range []*httptest.ResponseRecorder{unknown, wrongPw} {
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if rr.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("expected WWW-Authenticate header")
		}
	}
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("login failures must be indistinguishable: %s vs %s", unknown.Body, wrongPw.Body)
	}
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	env := newTestAPI(t)

	rr := env.do(http.MethodGet, "/v1/accounts/user-ce", nil, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/v1/accounts/user-ce", nil, "not-a-token")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rr.Code)
	}
}

func TestAccountGetDepartmentScoping(t *testing.T) {
	env := newTestAPI(t)

	ce := env.login("ce.author@ceit.edu", "Admin123!")
	ee := env.login("ee.author@ceit.edu", "Admin123!")
	admin := env.login("admin@ceit.edu", "Admin123!")
	reviewer := env.login("ce.reviewer@ceit.edu", "Admin123!")

	// Same department passes.
	rr := env.do(http.MethodGet, "/v1/accounts/user-ce-2", nil, ce.AccessToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("same-department lookup: expected 200, got %d (%s)", rr.Code, rr.Body)
	}
	var account accountResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &account); err != nil {
		t.Fatalf("decode account: %v", err)
	}
	if account.RoleName != "author_ce" {
		t.Fatalf("unexpected role in response: %s", account.RoleName)
	}

	// Cross-department is forbidden.
	rr = env.do(http.MethodGet, "/v1/accounts/user-ce", nil, ee.AccessToken)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("cross-department lookup: expected 403, got %d", rr.Code)
	}

	// super_admin bypasses scoping entirely.
	for _, id := range []string{"user-ce", "user-ee", "user-admin"} {
		rr = env.do(http.MethodGet, "/v1/accounts/"+id, nil, admin.AccessToken)
		if rr.Code != http.StatusOK {
			t.Fatalf("super_admin lookup of %s: expected 200, got %d", id, rr.Code)
		}
	}

	// Missing the user.manage permission is forbidden even in-department.
	rr = env.do(http.MethodGet, "/v1/accounts/user-ce", nil, reviewer.AccessToken)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("missing permission: expected 403, got %d", rr.Code)
	}
}

func TestAccountGetHidesExistenceFromScopedCallers(t *testing.T) {
	env := newTestAPI(t)

	ce := env.login("ce.author@ceit.edu", "Admin123!")
	admin := env.login("admin@ceit.edu", "Admin123!")

	// A scoped author gets the identical denial for an absent account
	// and for a cross-department one, so 404-vs-403 cannot probe which
	// ids exist.
	absent := env.do(http.MethodGet, "/v1/accounts/no-such-user", nil, ce.AccessToken)
	crossDept := env.do(http.MethodGet, "/v1/accounts/user-ee", nil, ce.AccessToken)
	if absent.Code != http.StatusForbidden {
		t.Fatalf("absent account: expected 403 for scoped caller, got %d", absent.Code)
	}
	if crossDept.Code != http.StatusForbidden {
		t.Fatalf("cross-department account: expected 403, got %d", crossDept.Code)
	}
	if absent.Body.String() != crossDept.Body.String() {
		t.Fatalf("denials must be indistinguishable: %s vs %s", absent.Body, crossDept.Body)
	}

	// super_admin still sees the real outcome.
	rr := env.do(http.MethodGet, "/v1/accounts/no-such-user", nil, admin.AccessToken)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("absent account for super_admin: expected 404, got %d", rr.Code)
	}
}

func TestRefreshRotation(t *testing.T) {
	env := newTestAPI(t)

	first := env.login("ce.author@ceit.edu", "Admin123!")

	rr := env.do(http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": first.RefreshToken}, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", rr.Code, rr.Body)
	}
	var second tokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh must rotate the refresh token")
	}

	// Reusing the consumed token is rejected.
	rr = env.do(http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": first.RefreshToken}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: expected 401, got %d", rr.Code)
	}
}

func TestLogoutRevokesAccess(t *testing.T) {
	env := newTestAPI(t)

	pair := env.login("admin@ceit.edu", "Admin123!")

	rr := env.do(http.MethodGet, "/v1/accounts/user-ce", nil, pair.AccessToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("pre-logout lookup: expected 200, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/v1/auth/logout",
		map[string]string{"refresh_token": pair.RefreshToken}, pair.AccessToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}

	rr = env.do(http.MethodGet, "/v1/accounts/user-ce", nil, pair.AccessToken)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("post-logout lookup: expected 401, got %d", rr.Code)
	}

	// Logout is idempotent, including with dead tokens.
	rr = env.do(http.MethodPost, "/v1/auth/logout",
		map[string]string{"refresh_token": pair.RefreshToken}, pair.AccessToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("second logout: expected 200, got %d", rr.Code)
	}
}

func TestRefreshAfterLogoutRejected(t *testing.T) {
	env := newTestAPI(t)

	pair := env.login("ce.author@ceit.edu", "Admin123!")
	rr := env.do(http.MethodPost, "/v1/auth/logout",
		map[string]string{"refresh_token": pair.RefreshToken}, pair.AccessToken)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}

	rr = env.do(http.MethodPost, "/v1/auth/refresh",
		map[string]string{"refresh_token": pair.RefreshToken}, "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rr.Code)
	}
}

func TestMethodNotAllowedOnAuthRoutes(t *testing.T) {
	env := newTestAPI(t)

	for _, path := range []string{"/v1/auth/login", "/v1/auth/refresh", "/v1/auth/logout"} {
		rr := env.do(http.MethodGet, path, nil, "")
		if rr.Code != http.StatusMethodNotAllowed {
			t.Fatalf("GET %s: expected 405, got %d", path, rr.Code)
		}
		if rr.Header().Get("Allow") != http.MethodPost {
			t.Fatalf("GET %s: expected Allow: POST header", path)
		}
	}
}
