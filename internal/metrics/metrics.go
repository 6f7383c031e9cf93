// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ghibli_gate"

// CacheLookupsTotal counts proxy cache lookups.
// Labels:
//   - key: cache key (e.g. "ghibli:/films", "ghibli:all_data")
//   - result: "hit", "miss" or "unavailable"
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of cache lookups, labelled by key and result.",
	},
	[]string{"key", "result"},
)

// UpstreamRequestsTotal counts calls to the content API.
// Labels:
//   - category: "films", "people", ...
//   - outcome: "ok" or "error"
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of upstream content API requests.",
	},
	[]string{"category", "outcome"},
)

// UpstreamRequestDuration measures upstream latency per category.
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of upstream content API requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"category"},
)

// AuthFailuresTotal counts rejected authentications.
// Label:
//   - reason: "bad_credentials", "inactive", "malformed", "expired", ...
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of rejected logins and token checks, by reason.",
	},
	[]string{"reason"},
)

// HTTPRequestsTotal counts handled requests.
// Labels:
//   - method, route (gin full path), status (code as string)
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests served.",
	},
	[]string{"method", "route", "status"},
)
