// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RateLimitDecisions *prometheus.CounterVec
	CounterFallbacks   prometheus.Counter
	GateDecisions      *prometheus.CounterVec
	ResolverFailures   prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		RateLimitDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_rate_limit_decisions_total",
			Help: "Rate limit decisions by policy and outcome.",
		}, []string{"policy", "outcome"}),
		CounterFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_counter_fallback_total",
			Help: "Times the rate governor fell back to the in-process counter.",
		}),
		GateDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_gate_decisions_total",
			Help: "Content gate projections served, by shape.",
		}, []string{"shape"}),
		ResolverFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_resolver_failures_total",
			Help: "Entitlement lookups that failed closed.",
		}),
	}
}

// Handler serves the /metrics scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
