// Package metrics exposes Prometheus counters for the playback gate.
// Labels never carry user, flow or session ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccessDecisionsTotal counts evaluator outcomes by decision.
	AccessDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_gate_access_decisions_total",
		Help: "Total number of content access decisions, by decision.",
	}, []string{"decision"})

	// EntitlementFailuresTotal counts entitlement lookups that failed closed.
	EntitlementFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_gate_entitlement_failures_total",
		Help: "Total number of entitlement lookups that failed and were treated as unauthenticated.",
	})

	// OTPSubmissionsTotal counts code submissions by outcome.
	OTPSubmissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_gate_otp_submissions_total",
		Help: "Total number of verification code submissions, by outcome (verified/rejected/network).",
	}, []string{"outcome"})

	// OTPResendsTotal counts resend requests by outcome.
	OTPResendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_gate_otp_resends_total",
		Help: "Total number of verification code resend requests, by outcome (sent/cooldown/failed).",
	}, []string{"outcome"})

	// AdHandOffsTotal counts pre-roll hand-offs by reason.
	AdHandOffsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_gate_ad_handoffs_total",
		Help: "Total number of pre-roll hand-offs to the content player, by reason (skipped/ended/no_ad).",
	}, []string{"reason"})

	// ActiveFlows tracks live registered state machines by kind.
	ActiveFlows = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "playback_gate_active_flows",
		Help: "Current number of registered flows, by kind (verification/ad_session).",
	}, []string{"kind"})
)

func RecordDecision(decision string) {
	AccessDecisionsTotal.WithLabelValues(decision).Inc()
}

func RecordEntitlementFailure() {
	EntitlementFailuresTotal.Inc()
}

func RecordSubmission(outcome string) {
	OTPSubmissionsTotal.WithLabelValues(outcome).Inc()
}

func RecordResend(outcome string) {
	OTPResendsTotal.WithLabelValues(outcome).Inc()
}

func RecordHandOff(reason string) {
	AdHandOffsTotal.WithLabelValues(reason).Inc()
}

// SetActiveFlows reports the size of a flow registry.
func SetActiveFlows(kind string, n int) {
	ActiveFlows.WithLabelValues(kind).Set(float64(n))
}
