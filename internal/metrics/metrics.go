package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the proxy's metrics on a private registry.
//
// Metrics:
//   - <ns>_transform_decisions_total{decision}: request interception outcomes
//   - <ns>_reasoning_requests_total{outcome}: reasoning service calls
//   - <ns>_reasoning_request_duration_seconds: reasoning service latency
//   - <ns>_response_rewrites_total{path,result}: backend response rewrites
//
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	decisions         *prometheus.CounterVec
	reasoningRequests *prometheus.CounterVec
	reasoningDuration prometheus.Histogram
	responseRewrites  *prometheus.CounterVec
}

func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transform_decisions_total",
				Help:      "Request interception decisions by kind",
			},
			[]string{"decision"},
		),
		reasoningRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reasoning_requests_total",
				Help:      "Calls to the external reasoning service by outcome",
			},
			[]string{"outcome"},
		),
		reasoningDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reasoning_request_duration_seconds",
				Help:      "Duration of calls to the external reasoning service",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		responseRewrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "response_rewrites_total",
				Help:      "Backend response body rewrites by result",
			},
			[]string{"path", "result"},
		),
	}

	c.registry.MustRegister(
		c.decisions,
		c.reasoningRequests,
		c.reasoningDuration,
		c.responseRewrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) RecordDecision(decision string) {
	if c == nil {
		return
	}
	c.decisions.WithLabelValues(decision).Inc()
}

func (c *Collector) RecordReasoning(outcome string, d time.Duration) {
	if c == nil {
		return
	}
	c.reasoningRequests.WithLabelValues(outcome).Inc()
	c.reasoningDuration.Observe(d.Seconds())
}

func (c *Collector) RecordResponseRewrite(path, result string) {
	if c == nil {
		return
	}
	c.responseRewrites.WithLabelValues(path, result).Inc()
}

// Registry exposes the registry for tests.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
