package metric_test

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatekeep-dev/gatekeep/metric"
)

func TestSet_ObserveInvocation(t *testing.T) {
	s := metric.NewSet()

	s.ObserveInvocation("sentinel", "anthropic/claude-3.5-sonnet", "ok", 1.2, 1, 100, 40)
	s.ObserveInvocation("sentinel", "anthropic/claude-3.5-sonnet", "ok", 0.8, 0, 90, 35)
	s.ObserveInvocation("auditor", "anthropic/claude-3.5-sonnet", "error", 0.1, 2, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(
		s.Invocations.WithLabelValues("sentinel", "anthropic/claude-3.5-sonnet", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		s.Invocations.WithLabelValues("auditor", "anthropic/claude-3.5-sonnet", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.Retries))
	assert.Equal(t, 190.0, testutil.ToFloat64(
		s.Tokens.WithLabelValues("anthropic/claude-3.5-sonnet", "prompt")))
	assert.Equal(t, 75.0, testutil.ToFloat64(
		s.Tokens.WithLabelValues("anthropic/claude-3.5-sonnet", "completion")))
}

func TestSet_NilSafe(t *testing.T) {
	var s *metric.Set
	// No-op rather than panic when instrumentation is disabled.
	s.ObserveInvocation("sentinel", "m", "ok", 1.0, 0, 1, 1)
}

func TestSet_Handler(t *testing.T) {
	s := metric.NewSet()
	s.ObserveInvocation("sentinel", "m", "ok", 1.0, 0, 10, 5)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "gatekeep_invocations_total")
}
