package model

import (
	"math"
	"testing"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validFeatures() domain.FeatureVector {
	return domain.FeatureVector{
		MarketID:  "m",
		MidPrice:  0.40,
		SpreadBps: 50,
		IsValid:   true,
	}
}

func boolPtr(b bool) *bool { return &b }

func TestComputeSignal_InvalidFeatures(t *testing.T) {
	m := New(DefaultConfig())
	out := m.ComputeSignal(domain.InvalidFeatures("m", 42), nil, boolPtr(true))

	assert.Equal(t, domain.NullSignal("m", 42), out)
	assert.Equal(t, domain.SignalHold, out.Signal)
	assert.Zero(t, out.Confidence)
	assert.False(t, out.Tradeable)
}

func TestComputeSignal_ProbabilityClamped(t *testing.T) {
	m := New(DefaultConfig())
	nvi := &domain.NarrativeSignal{VelocityIndex: 1, Accelerating: true}
	for _, mid := range []float64{0.0, 0.01, 0.5, 0.99, 1.0} {
		for _, obi := range []float64{-1, 0, 1} {
			for _, sent := range []float64{-1, 1} {
				fv := validFeatures()
				fv.MidPrice = mid
				fv.OrderBookImbalance = obi
				fv.VolumeZScore = 50 * obi
				fv.Momentum1h = 0.5 * obi
				fv.Sentiment = sent
				for _, n := range []*domain.NarrativeSignal{nil, nvi} {
					p := m.ComputeSignal(fv, n, nil).FinalProbability
					assert.GreaterOrEqual(t, p, 0.01)
					assert.LessOrEqual(t, p, 0.99)
				}
			}
		}
	}
}

func TestComputeSignal_NarrativeRedistribution(t *testing.T) {
	m := New(DefaultConfig())
	fv := validFeatures() // struct tower = 0.40, sentiment tower = 0.5

	none := m.ComputeSignal(fv, nil, nil)
	assert.InDelta(t, 0.755*0.40+0.245*0.5, none.FinalProbability, 1e-9)
	assert.Zero(t, none.NarrativeProb)

	quiet := m.ComputeSignal(fv, &domain.NarrativeSignal{VelocityIndex: 0.3}, nil)
	assert.InDelta(t, 0.65*0.40+0.20*0.5, quiet.FinalProbability, 1e-9)

	hot := m.ComputeSignal(fv, &domain.NarrativeSignal{VelocityIndex: 0.6, Accelerating: true}, nil)
	assert.InDelta(t, 0.8, hot.NarrativeProb, 1e-9)
	assert.InDelta(t, 0.65*0.40+0.20*0.5+0.15*0.8, hot.FinalProbability, 1e-9)
	assert.InDelta(t, hot.FinalProbability-0.40, hot.Edge, 1e-12)
}

func TestStructProbability_DampenedByVolatility(t *testing.T) {
	fv := validFeatures()
	fv.OrderBookImbalance = 0.5
	fv.Momentum1h = 0.04
	calm := StructProbability(fv)
	assert.InDelta(t, 0.40+0.03+0.02, calm, 1e-9)

	fv.ImpliedVolatility = 1
	assert.InDelta(t, 0.40+0.025, StructProbability(fv), 1e-9)
}

func TestStructProbability_VolumeSignedByImbalance(t *testing.T) {
	fv := validFeatures()
	fv.OrderBookImbalance = -0.1
	fv.VolumeZScore = 3
	want := 0.40 - 0.006 - math.Tanh(1)*0.04
	assert.InDelta(t, want, StructProbability(fv), 1e-9)
}

func TestSentimentProbability(t *testing.T) {
	assert.InDelta(t, 0.5, SentimentProbability(0), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(-1.5)), SentimentProbability(0.5), 1e-12)
	assert.InDelta(t, 1/(1+math.Exp(10)), SentimentProbability(-100), 1e-12)
}

func TestComputeSignal_Confidence(t *testing.T) {
	m := New(DefaultConfig())
	fv := validFeatures()
	fv.OrderBookImbalance = 0.6
	fv.Sentiment = 0.5

	out := m.ComputeSignal(fv, nil, nil)
	structConf := 0.5*0.6 + 0.25*(1-50.0/200)
	want := math.Exp(0.755*math.Log(structConf) + 0.245*math.Log(0.5))
	assert.InDelta(t, want, out.Confidence, 1e-9)

	assert.InDelta(t, want*1.15, m.ComputeSignal(fv, nil, boolPtr(true)).Confidence, 1e-9)
	assert.InDelta(t, want*0.85, m.ComputeSignal(fv, nil, boolPtr(false)).Confidence, 1e-9)
}

func TestComputeSignal_ConfidenceNeverAboveOne(t *testing.T) {
	m := New(DefaultConfig())
	fv := validFeatures()
	fv.OrderBookImbalance = 1
	fv.VolumeZScore = 10
	fv.SpreadBps = 0
	fv.Sentiment = 1
	out := m.ComputeSignal(fv, &domain.NarrativeSignal{VelocityIndex: 1, Accelerating: true}, boolPtr(true))
	assert.Equal(t, 1.0, out.Confidence)
}

func TestClassify_Monotonic(t *testing.T) {
	for _, conf := range []float64{0.1, 0.4, 0.8, 1} {
		prev := 0
		for edge := 0.0; edge <= 0.5; edge += 0.005 {
			tier := Classify(edge, conf).Tier()
			assert.GreaterOrEqual(t, tier, prev, "edge %.3f conf %.1f", edge, conf)
			assert.Equal(t, tier, Classify(-edge, conf).Tier())
			prev = tier
		}
	}
}

func TestClassify_Tiers(t *testing.T) {
	assert.Equal(t, domain.SignalStrongBuy, Classify(0.2, 0.5))
	assert.Equal(t, domain.SignalStrongSell, Classify(-0.2, 0.5))
	assert.Equal(t, domain.SignalBuy, Classify(0.1, 0.5))
	assert.Equal(t, domain.SignalSell, Classify(-0.1, 0.5))
	assert.Equal(t, domain.SignalHold, Classify(0.05, 0.5))
	assert.Equal(t, domain.SignalHold, Classify(0, 1))
}

func TestComputeSignal_TradeableGate(t *testing.T) {
	m := New(DefaultConfig())
	fv := validFeatures()
	fv.OrderBookImbalance = 1
	fv.VolumeZScore = 3
	fv.Momentum1h = 0.2
	fv.Sentiment = 0.9

	out := m.ComputeSignal(fv, nil, boolPtr(true))
	require.True(t, out.Tradeable, "edge %.3f conf %.3f", out.Edge, out.Confidence)

	fv.SpreadBps = 250
	assert.False(t, m.ComputeSignal(fv, nil, boolPtr(true)).Tradeable)

	fv.SpreadBps = 50
	fv.Sentiment = 0 // sentiment tower floored at 0.01 confidence
	low := m.ComputeSignal(fv, nil, boolPtr(false))
	assert.Less(t, low.Confidence, 0.30)
	assert.False(t, low.Tradeable)
}

func TestComputeSignal_RisingMarketHasPositiveEdge(t *testing.T) {
	m := New(DefaultConfig())
	fv := domain.FeatureVector{
		MarketID:           "m",
		OrderBookImbalance: 0.6,
		Momentum1h:         0.02,
		MidPrice:           0.51,
		SpreadBps:          50,
		IsValid:            true,
	}
	out := m.ComputeSignal(fv, nil, nil)
	assert.Greater(t, out.Edge, 0.0)
	assert.Greater(t, out.StructProb, fv.MidPrice)
}

func TestNew_Defaults(t *testing.T) {
	assert.Equal(t, DefaultConfig(), New(Config{}).Config())
}
