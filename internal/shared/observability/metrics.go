package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ParseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "loadplan_parse_seconds",
		Help:    "Time spent parsing a packed registry.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	ParseWarningsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadplan_parse_warnings_total",
		Help: "Total number of parse warnings emitted across registry loads.",
	})

	ParseFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadplan_parse_fallback_total",
		Help: "Total number of registry loads that used the tolerant scanner.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loadplan_graph_nodes_total",
		Help: "Number of modules in the current dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "loadplan_graph_edges_total",
		Help: "Number of dependency edges in the current graph.",
	})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadplan_resolve_seconds",
		Help:    "Time spent resolving one requested module set.",
		Buckets: prometheus.DefBuckets,
	})

	CyclesDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadplan_cycles_detected_total",
		Help: "Total number of dependency cycles reported by resolutions.",
	})

	MissingModulesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadplan_missing_modules_total",
		Help: "Total number of requested or referenced modules absent from the registry.",
	})

	DiscoveryEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loadplan_discovery_events_total",
		Help: "Total number of discovery observations recorded.",
	})

	MasterlistSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "loadplan_masterlist_size",
		Help: "Current entry count per masterlist.",
	}, []string{"list"})

	PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "loadplan_persist_seconds",
		Help:    "Time spent persisting the masterlists.",
		Buckets: prometheus.DefBuckets,
	})
)
