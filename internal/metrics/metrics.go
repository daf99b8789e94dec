// Package metrics exports healer activity as Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atbabers/axiomguard/internal/healer"
	"github.com/atbabers/axiomguard/pkg/models"
)

const namespace = "axiomguard"

// Collector implements healer.Observer on its own registry.
type Collector struct {
	registry   *prometheus.Registry
	violations *prometheus.CounterVec
	decisions  *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	penalty    prometheus.Histogram
	weights    *prometheus.GaugeVec
}

var _ healer.Observer = (*Collector)(nil)

// New creates a collector. withRuntime also registers the Go runtime and
// process collectors.
func New(withRuntime bool) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Violations recorded in the ledger.",
		}, []string{"axiom", "severity"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Contexts processed, by decision.",
		}, []string{"decision"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strategy_attempts_total",
			Help:      "Correction strategy attempts, by outcome.",
		}, []string{"strategy", "result"}),
		penalty: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "penalty",
			Help:      "Penalty of contexts with at least one violation.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64, 128},
		}),
		weights: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "axiom_weight",
			Help:      "Current adaptive weight per axiom.",
		}, []string{"axiom"}),
	}

	c.registry.MustRegister(c.violations, c.decisions, c.attempts, c.penalty, c.weights)
	if withRuntime {
		c.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return c
}

// ObserveDecision counts the decision; contexts with violations also feed
// the penalty histogram.
func (c *Collector) ObserveDecision(d healer.Decision, penalty float64) {
	c.decisions.WithLabelValues(string(d)).Inc()
	if d != healer.DecisionPass {
		c.penalty.Observe(penalty)
	}
}

func (c *Collector) ObserveViolation(v models.Violation) {
	c.violations.WithLabelValues(string(v.Axiom), v.Severity.String()).Inc()
}

func (c *Collector) ObserveAttempt(_ models.Axiom, kind models.CorrectionStrategy, ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	c.attempts.WithLabelValues(string(kind), result).Inc()
}

func (c *Collector) ObserveWeight(axiom models.Axiom, weight float64) {
	c.weights.WithLabelValues(string(axiom)).Set(weight)
}

// SetWeights publishes a full weight snapshot, e.g. at startup.
func (c *Collector) SetWeights(weights map[models.Axiom]float64) {
	for axiom, w := range weights {
		c.ObserveWeight(axiom, w)
	}
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
