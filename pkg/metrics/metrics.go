package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CrawlerProbes counts CDN probes by outcome (found|missing|denied|other|skipped).
	CrawlerProbes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riftcollect_crawler_probes_total",
			Help: "Total number of CDN discovery probes by outcome",
		},
		[]string{"outcome"},
	)

	// TranslationLookups counts translation memo lookups by source (cache|service|passthrough).
	TranslationLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riftcollect_translation_lookups_total",
			Help: "Total number of translation memo lookups",
		},
		[]string{"source"},
	)

	// HashRefreshes counts fingerprint refresh results (reused|recomputed|dropped).
	HashRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riftcollect_hash_refreshes_total",
			Help: "Total number of fingerprint cache refresh decisions",
		},
		[]string{"result"},
	)

	// CatalogSearches counts catalog search executions.
	CatalogSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "riftcollect_catalog_searches_total",
			Help: "Total number of catalog search queries",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "riftcollect_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
