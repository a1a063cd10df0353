// Package metrics holds the Prometheus collectors shared by the loader and
// the servers.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ctb"

var (
	// TraceRecords counts trace lines by outcome: parsed, malformed or rejected.
	TraceRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trace_records_total",
		Help:      "Trace lines processed, by outcome.",
	}, []string{"outcome"})

	// GraphLoads counts load attempts by result: ok or error.
	GraphLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "graph_loads_total",
		Help:      "Trace file loads, by result.",
	}, []string{"result"})

	GraphLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graph_load_duration_seconds",
		Help:      "Time to read and build the call graph.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	GraphClasses = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_classes",
		Help:      "Classes in the current graph.",
	})

	GraphMethods = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_methods",
		Help:      "Methods in the current graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_edges",
		Help:      "Call edges in the current graph.",
	})

	// HTTPRequests counts served requests by route pattern and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route and status code.",
	}, []string{"route", "code"})
)

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
