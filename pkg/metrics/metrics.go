package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	StorageLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "papyrus", Name: "storage_lookups_total", Help: "Number of storage lookups by collection and kind."},
		[]string{"collection", "kind"},
	)
	ResolveOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "papyrus", Name: "resolve_outcomes_total", Help: "Number of resolve calls by outcome."},
		[]string{"outcome"},
	)
	AuthzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "papyrus", Name: "authz_decisions_total", Help: "Number of gate decisions by result and reason."},
		[]string{"decision", "reason"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "papyrus", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "papyrus", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(StorageLookups)
	reg.MustRegister(ResolveOutcomes)
	reg.MustRegister(AuthzDecisions)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
