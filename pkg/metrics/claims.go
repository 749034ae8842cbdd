package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	ClaimOutcomeClaimed        = "claimed"
	ClaimOutcomeIdempotent     = "idempotent"
	ClaimOutcomeAlreadyClaimed = "already_claimed"
	ClaimOutcomeNotFound       = "not_found"
	ClaimOutcomeError          = "error"
)

// ClaimMetrics counts AcceptRequest attempts by outcome.
type ClaimMetrics struct {
	claims *prometheus.CounterVec
}

func NewClaimMetrics(reg prometheus.Registerer) *ClaimMetrics {
	if reg == nil {
		return &ClaimMetrics{}
	}
	claims := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "request_claims_total",
		Help: "Request claim attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(claims)
	return &ClaimMetrics{claims: claims}
}

func (m *ClaimMetrics) Inc(outcome string) {
	if m == nil || m.claims == nil {
		return
	}
	if outcome == "" {
		outcome = ClaimOutcomeError
	}
	m.claims.WithLabelValues(outcome).Inc()
}
