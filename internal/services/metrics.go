package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the assistant query pipeline. Registered once at
// package init so every service instance shares the same collectors.
var (
	metricQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_assistant_queries_total",
		Help: "Total assistant queries processed",
	})

	metricCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_assistant_cache_hits_total",
		Help: "Short-term semantic cache hits by kind (exact or semantic)",
	}, []string{"kind"})

	metricMemoryHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_assistant_memory_hits_total",
		Help: "Long-term memory hits by source (knowledge or history)",
	}, []string{"source"})

	metricRoutesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatherly_assistant_routes_total",
		Help: "Routing decisions by primary domain",
	}, []string{"primary"})

	metricAdaptiveSwaps = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_assistant_adaptive_swaps_total",
		Help: "Times feedback scoring promoted the secondary domain over the primary",
	})

	metricFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_assistant_fallbacks_total",
		Help: "Times the both-domain fallback pass ran after an empty merge",
	})

	metricSynthesesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_assistant_syntheses_total",
		Help: "Answer synthesis calls issued to the LLM",
	})

	metricQueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gatherly_assistant_query_duration_seconds",
		Help:    "End-to-end assistant query latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	metricSuggestionRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatherly_friend_suggestions_total",
		Help: "Friend suggestion computations served",
	})
)
