// Package metrics exposes generation and provider metrics on a private Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lumen"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	GenerationsTotal     *prometheus.CounterVec
	ProviderCallDuration *prometheus.HistogramVec
	ProviderErrorsTotal  *prometheus.CounterVec
	FallbacksTotal       *prometheus.CounterVec
	TierRestrictedTotal  prometheus.Counter
	ReferenceFetchTotal  *prometheus.CounterVec
	SchemaSkewRetries    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	MCPToolCallsTotal    *prometheus.CounterVec
}

// New creates the collectors and registers them, plus the Go and process
// collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		GenerationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Generations by media kind, serving provider and outcome",
			},
			[]string{"kind", "provider", "outcome"},
		),
		ProviderCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "provider_call_duration_seconds",
				Help:      "Provider call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"provider", "kind"},
		),
		ProviderErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_errors_total",
				Help:      "Provider errors by classified type",
			},
			[]string{"provider", "type"},
		),
		FallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_fallbacks_total",
				Help:      "Requests served by a fallback provider",
			},
			[]string{"kind", "from", "to"},
		),
		TierRestrictedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tier_restricted_total",
				Help:      "Image requests downgraded by subscription tier",
			},
		),
		ReferenceFetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reference_fetch_total",
				Help:      "Reference image fetches by result",
			},
			[]string{"result"},
		),
		SchemaSkewRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schema_skew_retries_total",
				Help:      "Inserts retried after dropping a missing column",
			},
			[]string{"column"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration by method and status class",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
		MCPToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mcp_tool_calls_total",
				Help:      "MCP tool calls by tool and outcome",
			},
			[]string{"tool", "outcome"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.GenerationsTotal,
		m.ProviderCallDuration,
		m.ProviderErrorsTotal,
		m.FallbacksTotal,
		m.TierRestrictedTotal,
		m.ReferenceFetchTotal,
		m.SchemaSkewRetries,
		m.HTTPRequestDuration,
		m.MCPToolCallsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveGeneration counts a finished generation.
func (m *Metrics) ObserveGeneration(kind, provider, outcome string) {
	if m == nil {
		return
	}
	m.GenerationsTotal.WithLabelValues(kind, provider, outcome).Inc()
}

// ObserveProviderCall records one provider call's latency.
func (m *Metrics) ObserveProviderCall(provider, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.ProviderCallDuration.WithLabelValues(provider, kind).Observe(d.Seconds())
}

// ObserveProviderError counts a classified provider error.
func (m *Metrics) ObserveProviderError(provider, errorType string) {
	if m == nil {
		return
	}
	m.ProviderErrorsTotal.WithLabelValues(provider, errorType).Inc()
}

// ObserveFallback counts a request served by a fallback provider.
func (m *Metrics) ObserveFallback(kind, from, to string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(kind, from, to).Inc()
}

// ObserveTierRestriction counts a tier downgrade.
func (m *Metrics) ObserveTierRestriction() {
	if m == nil {
		return
	}
	m.TierRestrictedTotal.Inc()
}

// ObserveReferenceFetch counts a reference fetch result: ok, cache_hit or error.
func (m *Metrics) ObserveReferenceFetch(result string) {
	if m == nil {
		return
	}
	m.ReferenceFetchTotal.WithLabelValues(result).Inc()
}

// ObserveSchemaSkew counts an insert retried without column.
func (m *Metrics) ObserveSchemaSkew(column string) {
	if m == nil {
		return
	}
	m.SchemaSkewRetries.WithLabelValues(column).Inc()
}

// ObserveHTTPRequest records a served request. status is bucketed to its
// class ("2xx", "4xx", ...) to bound cardinality.
func (m *Metrics) ObserveHTTPRequest(method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	class := strconv.Itoa(status/100) + "xx"
	m.HTTPRequestDuration.WithLabelValues(method, class).Observe(d.Seconds())
}

// ObserveMCPToolCall counts an MCP tool call.
func (m *Metrics) ObserveMCPToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.MCPToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
