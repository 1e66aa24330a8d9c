package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SecretsDetectedTotal counts detection-pass hits by rule and class.
	SecretsDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_secrets_detected_total",
		Help: "Total number of credential-shaped matches found during redaction",
	}, []string{"rule", "class"})

	// RedactionsTotal counts completed redaction passes by outcome.
	RedactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_redactions_total",
		Help: "Total number of redaction passes",
	}, []string{"outcome"}) // "ok" or "verification_failed"

	// VerificationFailuresTotal counts fatal verification hits by class.
	VerificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_verification_failures_total",
		Help: "Total number of residual credential-shaped matches found by the verification pass",
	}, []string{"class"})

	// ResolveRequestsTotal counts placeholder resolution requests.
	ResolveRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redactor_resolve_requests_total",
		Help: "Total number of image-map resolution requests",
	})

	// TierHitsTotal counts resolutions by the tier that satisfied them.
	TierHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redactor_resolver_tier_hits_total",
		Help: "Total number of placeholders resolved, by tier",
	}, []string{"tier"})

	// ProxyFetchesTotal counts origin fetches performed by the fetch-through
	// tier and the proxy endpoint.
	ProxyFetchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redactor_proxy_fetches_total",
		Help: "Total number of origin fetches of ephemeral URLs",
	})

	// CacheWritesTotal counts durable cache populations.
	CacheWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redactor_cache_writes_total",
		Help: "Total number of objects written to the durable cache",
	})

	// RequestDuration tracks HTTP handler latency by endpoint.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redactor_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
)

// RecordSecretDetected records one detection-pass hit.
func RecordSecretDetected(rule, class string) {
	SecretsDetectedTotal.WithLabelValues(rule, class).Inc()
}

// RecordTierHit records one placeholder resolved by the named tier.
func RecordTierHit(tier string) {
	TierHitsTotal.WithLabelValues(tier).Inc()
}

// RecordRequestDuration records handler latency for an endpoint.
func RecordRequestDuration(endpoint string, seconds float64) {
	RequestDuration.WithLabelValues(endpoint).Observe(seconds)
}
