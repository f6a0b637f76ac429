// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// CacheLookups counts cache-aside lookups by key kind and result (hit/miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_cache_lookups_total",
		Help: "Cache-aside lookups by key kind and result",
	}, []string{"kind", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "connector_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ContentMutations counts post/like/comment mutations by operation and outcome code.
	ContentMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_content_mutations_total",
		Help: "Content mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	// AuthAttempts counts register/login attempts by outcome.
	AuthAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connector_auth_attempts_total",
		Help: "Registration and login attempts by outcome",
	}, []string{"operation", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
