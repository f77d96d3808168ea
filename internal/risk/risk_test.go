package risk

import (
	"math"
	"testing"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrailingStop_StopLossIsTerminal(t *testing.T) {
	s := NewTrailingStop(0.50, 0.10, 0)

	hit, reason := s.Update(0.55)
	assert.False(t, hit)
	assert.Equal(t, domain.ExitNone, reason)
	assert.Equal(t, 0.55, s.HighWaterMark())

	hit, _ = s.Update(0.50) // 0.55·0.9 = 0.495
	assert.False(t, hit)

	hit, reason = s.Update(0.49)
	assert.True(t, hit)
	assert.Equal(t, domain.ExitStopLoss, reason)
	assert.True(t, s.Triggered())

	for _, p := range []float64{0.9, 0.49, 0.01, 0.55} {
		hit, reason = s.Update(p)
		assert.True(t, hit)
		assert.Equal(t, domain.ExitAlreadyTriggered, reason)
	}
	assert.Equal(t, domain.ExitStopLoss, s.Reason())
	assert.Equal(t, 0.55, s.HighWaterMark())
}

func TestTrailingStop_TakeProfitOnEdgeDecay(t *testing.T) {
	s := NewTrailingStop(0.40, 0.10, 0.005)

	hit, _ := s.UpdateWithEdge(0.45, 0.03)
	assert.False(t, hit)

	hit, reason := s.UpdateWithEdge(0.46, 0.001)
	assert.True(t, hit)
	assert.Equal(t, domain.ExitTakeProfit, reason)

	hit, reason = s.UpdateWithEdge(0.46, 0.5)
	assert.True(t, hit)
	assert.Equal(t, domain.ExitAlreadyTriggered, reason)
}

func TestTrailingStop_StopLossWinsOverTakeProfit(t *testing.T) {
	s := NewTrailingStop(0.50, 0.05, 0.01)
	_, reason := s.UpdateWithEdge(0.40, 0)
	assert.Equal(t, domain.ExitStopLoss, reason)
}

func TestTrailingStop_Reset(t *testing.T) {
	s := NewTrailingStop(0.50, 0.10, 0)
	s.Update(0.30)
	require.True(t, s.Triggered())

	s.Reset(0.60)
	assert.False(t, s.Triggered())
	assert.Equal(t, 0.60, s.Entry())
	assert.Equal(t, 0.60, s.HighWaterMark())
	assert.Equal(t, domain.ExitNone, s.Reason())

	hit, _ := s.Update(0.58)
	assert.False(t, hit)
}

var base = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func feed(c *CorrelationTracker, id string, minutes int, price func(i int) float64) {
	for i := 0; i < minutes; i++ {
		c.Update(id, price(i), base.Add(time.Duration(i)*time.Minute))
	}
}

func TestCorrelation_PerfectAndInverse(t *testing.T) {
	c := NewCorrelationTracker(0, 0)
	wave := func(i int) float64 { return 0.5 + 0.1*float64(i%7) }
	feed(c, "a", 60, wave)
	feed(c, "b", 60, func(i int) float64 { return 0.2 + 0.5*wave(i) })
	feed(c, "c", 60, func(i int) float64 { return 1 - wave(i) })

	assert.InDelta(t, 1.0, c.Correlation("a", "b"), 1e-9)
	assert.InDelta(t, -1.0, c.Correlation("a", "c"), 1e-9)
	assert.Zero(t, c.Correlation("a", "ghost"))
}

func TestCorrelation_NeedsMinSamples(t *testing.T) {
	c := NewCorrelationTracker(0, 30)
	feed(c, "a", 29, func(i int) float64 { return float64(i) })
	feed(c, "b", 29, func(i int) float64 { return float64(i) })
	assert.Zero(t, c.Correlation("a", "b"))

	c.Update("a", 29, base.Add(29*time.Minute))
	c.Update("b", 29, base.Add(29*time.Minute))
	assert.InDelta(t, 1.0, c.Correlation("a", "b"), 1e-9)
}

func TestCorrelation_TimeAligned(t *testing.T) {
	c := NewCorrelationTracker(0, 5)
	for i := 0; i < 40; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			c.Update("even", float64(i), ts)
		} else {
			c.Update("odd", float64(i), ts)
		}
	}
	assert.Zero(t, c.Correlation("even", "odd"))
}

func TestCorrelation_SameMinuteKeepsLatest(t *testing.T) {
	c := NewCorrelationTracker(0, 0)
	c.Update("a", 0.50, base)
	c.Update("a", 0.52, base.Add(30*time.Second))
	c.Update("a", 0.40, base.Add(-time.Minute)) // older than newest minute
	assert.Equal(t, 1, c.Len("a"))

	c.Update("a", 0.55, base.Add(time.Minute))
	assert.Equal(t, 2, c.Len("a"))
}

func TestCorrelation_WindowIsBounded(t *testing.T) {
	c := NewCorrelationTracker(10, 2)
	feed(c, "a", 25, func(i int) float64 { return float64(i) })
	assert.Equal(t, 10, c.Len("a"))
}

func TestCorrelatedPairs_SortedByAbsCorrelation(t *testing.T) {
	c := NewCorrelationTracker(0, 10)
	wave := func(i int) float64 { return float64(i % 5) }
	noise := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3, 2, 3, 8, 4}
	feed(c, "a", 20, wave)
	feed(c, "b", 20, func(i int) float64 { return -wave(i) })
	feed(c, "c", 20, func(i int) float64 { return wave(i) + noise[i] })

	pairs := c.CorrelatedPairs(0.1)
	require.NotEmpty(t, pairs)
	assert.Equal(t, Pair{A: "a", B: "b", Correlation: -1}, roundPair(pairs[0]))
	for i := 1; i < len(pairs); i++ {
		assert.GreaterOrEqual(t, math.Abs(pairs[i-1].Correlation), math.Abs(pairs[i].Correlation))
	}

	assert.Len(t, c.CorrelatedPairs(0.999), 1)
}

func roundPair(p Pair) Pair {
	p.Correlation = math.Round(p.Correlation*1e6) / 1e6
	return p
}


func TestCovariance(t *testing.T) {
	plain := Covariance([]string{"a", "b"}, []float64{0.5, 0.2}, nil)
	assert.InDelta(t, 0.25, plain[0][0], 1e-12)
	assert.InDelta(t, 0.16, plain[1][1], 1e-12)
	assert.Zero(t, plain[0][1])

	c := NewCorrelationTracker(0, 0)
	feed(c, "a", 40, func(i int) float64 { return float64(i % 6) })
	feed(c, "b", 40, func(i int) float64 { return float64(i%6) * 2 })
	cov := Covariance([]string{"a", "b"}, []float64{0.5, 0.2}, c)
	assert.InDelta(t, 0.5*0.4, cov[0][1], 1e-9)
	assert.Equal(t, cov[0][1], cov[1][0])
}

func TestDetectCrossVenueArb(t *testing.T) {
	res := DetectCrossVenueArb(0.62, 0.57, 0.02)
	assert.True(t, res.IsArb)
	assert.Equal(t, "NO_A_YES_B", res.Direction)
	assert.InDelta(t, 0.95, res.Cost, 1e-9)
	assert.InDelta(t, 0.969, res.CostWithFees, 1e-9)
	assert.InDelta(t, 0.031, res.ProfitPct, 1e-9)

	flipped := DetectCrossVenueArb(0.57, 0.62, 0.02)
	assert.True(t, flipped.IsArb)
	assert.Equal(t, "YES_A_NO_B", flipped.Direction)
	assert.InDelta(t, 0.031, flipped.ProfitPct, 1e-9)

	fair := DetectCrossVenueArb(0.5, 0.5, 0.02)
	assert.False(t, fair.IsArb)
	assert.InDelta(t, -0.02, fair.ProfitPct, 1e-9)
}

func TestPlanNotional(t *testing.T) {
	bankroll := decimal.NewFromInt(10_000)
	assert.Equal(t, "833.33", PlanNotional(bankroll, 0.0833333).StringFixed(2))
	assert.True(t, PlanNotional(bankroll, 0).IsZero())
	assert.True(t, PlanNotional(bankroll, -0.1).IsZero())
	assert.True(t, PlanNotional(decimal.NewFromInt(-5), 0.1).IsZero())
}
