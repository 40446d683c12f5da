package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/longregen/refinery/internal/ports"
)

// Metrics holds the Prometheus collectors for the serving path.
type Metrics struct {
	registry *prometheus.Registry

	refinements  *prometheus.CounterVec
	gatewayCalls *prometheus.CounterVec
	gatewayTime  *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refinements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refinery_refinements_total",
			Help: "Refinement runs by strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		gatewayCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "refinery_gateway_calls_total",
			Help: "Model gateway completions by instruction and outcome.",
		}, []string{"instruction", "outcome"}),
		gatewayTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "refinery_gateway_call_seconds",
			Help:    "Model gateway completion latency.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}, []string{"instruction"}),
	}
	m.registry.MustRegister(m.refinements, m.gatewayCalls, m.gatewayTime)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRefinement counts one finished refinement run.
func (m *Metrics) ObserveRefinement(strategy, outcome string) {
	m.refinements.WithLabelValues(strategy, outcome).Inc()
}

// InstrumentGateway wraps gateway so every completion is counted and timed.
func (m *Metrics) InstrumentGateway(gateway ports.ModelGateway) ports.ModelGateway {
	return &instrumentedGateway{inner: gateway, metrics: m}
}

type instrumentedGateway struct {
	inner   ports.ModelGateway
	metrics *Metrics
}

func (g *instrumentedGateway) Complete(ctx context.Context, req ports.CompletionRequest) (*ports.CompletionResponse, error) {
	start := time.Now()
	resp, err := g.inner.Complete(ctx, req)
	g.metrics.gatewayTime.WithLabelValues(req.Instruction).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	g.metrics.gatewayCalls.WithLabelValues(req.Instruction, outcome).Inc()
	return resp, err
}
