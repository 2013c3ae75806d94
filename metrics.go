package statuscodes

import (
	"net/http"
	"strconv"
	"time"

	recorder "github.com/always-cache/status-codes/pkg/response-recorder"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry  *prometheus.Registry
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statuscodes",
			Name:      "responses_total",
			Help:      "Responses sent, by route and status code.",
		}, []string{"method", "route", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "statuscodes",
			Name:      "request_duration_seconds",
			Help:      "Time from receiving the request until the handler returned.",
			// delayed endpoints answer after 10s
			Buckets: []float64{.005, .05, .5, 1, 5, 10, 15},
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.responses,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) observe(r *http.Request, rec *recorder.Recorder) {
	route := routePattern(r)
	m.responses.WithLabelValues(r.Method, route, strconv.Itoa(rec.StatusCode())).Inc()
	m.duration.WithLabelValues(route).Observe(time.Since(rec.CreatedAt).Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// routePattern returns the matched route pattern, so path parameters do not blow up label cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
