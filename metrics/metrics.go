// Package metrics counts gate decisions and exposes them for scraping.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/goliatone/go-router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certiweb/go-auth/middleware/gate"
)

type GateMetrics struct {
	registry  *prometheus.Registry
	decisions *prometheus.CounterVec
}

// NewGateMetrics registers the collectors on a dedicated registry.
func NewGateMetrics() *GateMetrics {
	m := &GateMetrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certiweb",
			Subsystem: "auth",
			Name:      "decisions_total",
			Help:      "Authorization gate decisions by outcome and reason.",
		}, []string{"outcome", "reason"}),
	}
	m.registry.MustRegister(m.decisions)
	return m
}

// Observe matches the gate OnDecision hook
func (m *GateMetrics) Observe(_ router.Context, d gate.Decision) {
	outcome := "rejected"
	if d.Admitted {
		outcome = "admitted"
	}
	m.decisions.WithLabelValues(outcome, string(d.Reason)).Inc()
}

// Decisions exposes the counter, mostly for tests
func (m *GateMetrics) Decisions() *prometheus.CounterVec {
	return m.decisions
}

// Handler serves the registry in the prometheus text format. It is a plain
// fiber handler, mounted on the app beside the routed API.
func (m *GateMetrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
