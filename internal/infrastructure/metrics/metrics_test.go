package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDecision(t *testing.T) {
	AccessDecisionsTotal.Reset()

	RecordDecision("ALLOW")
	RecordDecision("ALLOW")
	RecordDecision("REDIRECT_TO_AUTH")

	assert.Equal(t, 2.0, testutil.ToFloat64(AccessDecisionsTotal.WithLabelValues("ALLOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(AccessDecisionsTotal.WithLabelValues("REDIRECT_TO_AUTH")))
}

func TestRecordHandOff(t *testing.T) {
	AdHandOffsTotal.Reset()

	RecordHandOff("skipped")

	assert.Equal(t, 1, testutil.CollectAndCount(AdHandOffsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(AdHandOffsTotal.WithLabelValues("skipped")))
}

func TestRecordEntitlementFailure(t *testing.T) {
	before := testutil.ToFloat64(EntitlementFailuresTotal)
	RecordEntitlementFailure()
	assert.Equal(t, before+1, testutil.ToFloat64(EntitlementFailuresTotal))
}

func TestSetActiveFlows(t *testing.T) {
	ActiveFlows.Reset()
	SetActiveFlows("verification", 3)
	SetActiveFlows("verification", 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(ActiveFlows.WithLabelValues("verification")))
}

func TestSubmissionAndResendCounters(t *testing.T) {
	OTPSubmissionsTotal.Reset()
	OTPResendsTotal.Reset()

	RecordSubmission("verified")
	RecordResend("cooldown")

	assert.Equal(t, 1.0, testutil.ToFloat64(OTPSubmissionsTotal.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(OTPResendsTotal.WithLabelValues("cooldown")))
}
