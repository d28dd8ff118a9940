package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	GatewayRequests     *prometheus.CounterVec
	GatewayLatencyMS    *prometheus.HistogramVec
	CartMutations       *prometheus.CounterVec
	CheckoutTransitions *prometheus.CounterVec
	TrackingOutcomes    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Total number of gateway calls by upstream, operation and outcome.",
		}, []string{"upstream", "op", "outcome"}),
		GatewayLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shop",
			Subsystem: "gateway",
			Name:      "request_duration_ms",
			Help:      "Gateway call latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"upstream", "op"}),
		CartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "cart",
			Name:      "mutations_total",
			Help:      "Cart mutations by kind and outcome.",
		}, []string{"kind", "outcome"}),
		CheckoutTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "checkout",
			Name:      "transitions_total",
			Help:      "Checkout step transitions.",
		}, []string{"from", "to"}),
		TrackingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "tracking",
			Name:      "outcomes_total",
			Help:      "Order tracking timer outcomes.",
		}, []string{"outcome"}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.GatewayRequests,
		m.GatewayLatencyMS,
		m.CartMutations,
		m.CheckoutTransitions,
		m.TrackingOutcomes,
	)
	return m
}

func (m *Metrics) ObserveGateway(upstream, op, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(upstream, op, outcome).Inc()
	m.GatewayLatencyMS.WithLabelValues(upstream, op).Observe(float64(took.Milliseconds()))
}

func (m *Metrics) CartMutation(kind, outcome string) {
	if m == nil {
		return
	}
	m.CartMutations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) CheckoutTransition(from, to string) {
	if m == nil {
		return
	}
	m.CheckoutTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) TrackingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.TrackingOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
