package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec

	OrdersCreated *prometheus.CounterVec
	Transitions   *prometheus.CounterVec
	Verifications *prometheus.CounterVec
	GatewayCalls  *prometheus.CounterVec
	EventsDropped prometheus.Counter
	gatherer      prometheus.Gatherer
}

// NewServerMetrics registers the collectors on reg. Passing a fresh registry keeps
// tests independent of the process-wide default.
func NewServerMetrics(service string, reg *prometheus.Registry) *ServerMetrics {
	m := &ServerMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "orders_created_total",
			Help:      "Order creation attempts by outcome.",
		}, []string{"outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "order_transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"to", "actor"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "payment_verifications_total",
			Help:      "Payment reconciliation results by source and outcome.",
		}, []string{"source", "outcome"}),
		GatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "gateway_calls_total",
			Help:      "Payment gateway intent calls by outcome.",
		}, []string{"outcome"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "homechef",
			Subsystem: service,
			Name:      "events_dropped_total",
			Help:      "Domain events that could not be published.",
		}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.OrdersCreated, m.Transitions, m.Verifications, m.GatewayCalls, m.EventsDropped)
	return m
}

func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
