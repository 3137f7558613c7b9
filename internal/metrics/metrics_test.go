package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectorsRegistered(t *testing.T) {
	TradesTotal.WithLabelValues("R_10", "master", "WIN").Inc()
	EscalationStep.WithLabelValues("R_10").Set(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(TradesTotal.WithLabelValues("R_10", "master", "WIN")))
	assert.Equal(t, 2.0, testutil.ToFloat64(EscalationStep.WithLabelValues("R_10")))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "bot_trades_total")
	assert.Contains(t, rec.Body.String(), "bot_escalation_step")
}
