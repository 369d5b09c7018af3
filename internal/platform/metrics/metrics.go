package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds process-wide HTTP metrics. Module metrics live with their module.
type Metrics struct {
	HTTPRequests *prometheus.CounterVec
}

// New creates and registers the process-wide metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verity_http_requests_total",
			Help: "Total HTTP requests by route pattern and status class",
		}, []string{"route", "status"}),
	}
}

// ObserveRequest counts a served request. Safe on a nil receiver.
func (m *Metrics) ObserveRequest(route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, statusClass(status)).Inc()
}

// Middleware counts every request by its chi route pattern so IDs in paths
// do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.ObserveRequest(route, ww.Status())
	})
}

// Handler exposes the default registry for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
