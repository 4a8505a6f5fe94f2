package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"inkpress.org/internal/auth"
	"inkpress.org/internal/obs"
)

// ReadyProbe checks downstream readiness (currently a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the auth core.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	auth      *auth.Service
	directory auth.Directory

	rateBurst  int
	ratePerSec int
}

// New wires routes. The auth service and directory are required; the
// login route is rate limited per client IP.
func New(rp ReadyProbe, version string, svc *auth.Service, directory auth.Directory) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		auth:       svc,
		directory:  directory,
		rateBurst:  10,
		ratePerSec: 5,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	a.mux.Handle("/metrics", obs.Handler())

	a.mux.Handle("/v1/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), a.rateBurst, a.ratePerSec))
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/v1/accounts/", a.handleAccountGet)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "inkpress-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "inkpress-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
