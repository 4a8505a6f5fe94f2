package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authLoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Login attempts by result.",
		},
		[]string{"result"},
	)

	authRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_refresh_total",
			Help: "Refresh-token rotations by result.",
		},
		[]string{"result"},
	)

	authRevocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_revocations_total",
		Help: "Access tokens revoked via logout.",
	})
)

// Init registers all metrics in the default registry.
func Init() {
	prometheus.MustRegister(
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		authLoginsTotal, authRefreshTotal, authRevocationsTotal,
	)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveLogin counts a login attempt; result is "ok" or "unauthorized".
func ObserveLogin(result string) {
	authLoginsTotal.WithLabelValues(result).Inc()
}

// ObserveRefresh counts a refresh rotation by result.
func ObserveRefresh(result string) {
	authRefreshTotal.WithLabelValues(result).Inc()
}

// ObserveRevocation counts an access-token revocation.
func ObserveRevocation() {
	authRevocationsTotal.Inc()
}

// CanonicalPath collapses per-entity path segments so metric labels stay
// low-cardinality: /v1/accounts/<id> becomes /v1/accounts/:id.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "/"
	}
	segments := strings.Split(path, "/")
	if len(segments) == 4 && segments[1] == "v1" && segments[2] == "accounts" && segments[3] != "" {
		segments[3] = ":id"
		return strings.Join(segments, "/")
	}
	return path
}

// Instrument wraps a handler with request count, latency and in-flight
// gauges.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for the metrics labels.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
