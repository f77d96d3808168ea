// Package metrics exposes the prometheus counters of the decision core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CouncilSessions = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "council_sessions_total", Help: "Council sessions convened"},
	)
	CouncilApproved = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "council_approved_total", Help: "Council decisions that open a position"},
	)
	CouncilVetoes = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "council_vetoes_total", Help: "Council decisions vetoed by the risk agent"},
	)
	CouncilTimeouts = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "council_timeouts_total", Help: "Council sessions that hit the deadline"},
	)
	AgentFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "agent_failures_total", Help: "Agent evaluations that fell back to abstain"},
		[]string{"role"},
	)
	FeatureLatencyOverruns = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "feature_latency_overruns_total", Help: "Feature computations over the latency budget"},
	)
	InvalidFeatures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "feature_invalid_total", Help: "Feature computations rejected for insufficient data"},
	)
	ArbitrageOpportunities = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "arbitrage_opportunities_total", Help: "Arbitrage opportunities detected"},
		[]string{"type"},
	)
	DecisionCycles = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decision_cycle_seconds",
			Help:    "Duration of a full decision cycle",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(
		CouncilSessions, CouncilApproved, CouncilVetoes, CouncilTimeouts,
		AgentFailures, FeatureLatencyOverruns, InvalidFeatures,
		ArbitrageOpportunities, DecisionCycles,
	)
}

// Serve exposes /metrics on addr in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
