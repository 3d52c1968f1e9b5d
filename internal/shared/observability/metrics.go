package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "molgraph_queries_total",
		Help: "Total number of queries processed, by outcome.",
	}, []string{"status"})

	QueryBuildDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "molgraph_query_build_seconds",
		Help:    "Time spent building and featurizing one query graph.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	FeatureDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "molgraph_feature_seconds",
		Help:    "Time spent inside a single feature module.",
		Buckets: prometheus.DefBuckets,
	}, []string{"module"})

	GraphNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "molgraph_graph_nodes",
		Help:    "Node count of built graphs.",
		Buckets: prometheus.ExponentialBuckets(4, 2, 12),
	})

	GraphEdges = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "molgraph_graph_edges",
		Help:    "Undirected edge count of built graphs.",
		Buckets: prometheus.ExponentialBuckets(4, 2, 16),
	})

	ShardsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgraph_shards_written_total",
		Help: "Total number of worker shard files committed.",
	})

	MergeCollisionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgraph_merge_collisions_total",
		Help: "Total number of entry keys overwritten while merging shards.",
	})

	StructureCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "molgraph_structure_cache_hits_total",
		Help: "Total number of structure loads served from a worker cache.",
	})

	WriteBatchFlushSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "molgraph_write_batch_flush_seconds",
		Help:    "Latency for committing a batch of graph entries.",
		Buckets: prometheus.DefBuckets,
	})

	WriteQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "molgraph_write_queue_depth",
		Help: "Entries waiting in shard writer queues.",
	})
)
