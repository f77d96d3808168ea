package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(CouncilSessions)
	CouncilSessions.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(CouncilSessions))

	beforeRole := testutil.ToFloat64(AgentFailures.WithLabelValues("sniper"))
	AgentFailures.WithLabelValues("sniper").Inc()
	assert.Equal(t, beforeRole+1, testutil.ToFloat64(AgentFailures.WithLabelValues("sniper")))
}
