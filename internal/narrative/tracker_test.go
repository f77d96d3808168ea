package narrative

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func TestTracker_NoDataIsNull(t *testing.T) {
	tr := New(DefaultConfig())
	sig := tr.Compute("mkt", base)
	assert.True(t, sig.IsNull())
	assert.Equal(t, 0.0, sig.VelocityIndex)
	assert.False(t, sig.Accelerating)
	assert.Empty(t, sig.TopKeywords)
}

func TestTracker_BurstAccelerates(t *testing.T) {
	tr := New(DefaultConfig())
	now := base.Add(30 * time.Hour)
	for i := 0; i < 10; i++ {
		tr.Ingest("Election recount ordered", "mkt", now.Add(-time.Duration(30-i)*time.Minute))
	}

	sig := tr.Compute("mkt", now)
	require.False(t, sig.IsNull())
	// no baseline: mean=0, std=0 → denom = sqrt(1) → z = 10
	assert.InDelta(t, 10.0, sig.DominantZ, 1e-9)
	assert.InDelta(t, math.Tanh(10.0/3.0), sig.VelocityIndex, 1e-9)
	assert.True(t, sig.Accelerating)
	assert.Contains(t, []string{"election", "recount", "ordered"}, sig.DominantKeyword)
	assert.Len(t, sig.TopKeywords, 3)
}

func TestTracker_SteadyFlowIsNotAccelerating(t *testing.T) {
	tr := New(DefaultConfig())
	now := base.Add(30 * time.Hour)
	for h := 24; h >= 0; h-- {
		ts := now.Add(-time.Duration(h)*time.Hour - 30*time.Minute)
		for i := 0; i < 5; i++ {
			tr.Ingest("tariff", "mkt", ts)
		}
	}

	sig := tr.Compute("mkt", now)
	assert.Equal(t, "tariff", sig.DominantKeyword)
	assert.InDelta(t, 0.0, sig.DominantZ, 1e-9)
	assert.InDelta(t, 0.0, sig.VelocityIndex, 1e-9)
	assert.False(t, sig.Accelerating)
}

func TestTracker_EvictsAfterRetention(t *testing.T) {
	tr := New(DefaultConfig())
	tr.Ingest("Ceasefire negotiations", "mkt", base)
	later := base.Add(49 * time.Hour)
	tr.Ingest("Impeachment hearing", "mkt", later)

	sig := tr.Compute("mkt", later)
	for _, kw := range sig.TopKeywords {
		assert.NotEqual(t, "ceasefire", kw.Keyword)
		assert.NotEqual(t, "negotiations", kw.Keyword)
	}
	assert.Len(t, sig.TopKeywords, 2)
}

func TestTracker_TopKeywordsCapped(t *testing.T) {
	tr := New(DefaultConfig())
	now := base.Add(2 * time.Hour)
	tr.Ingest("alpha1 bravo charlie deltas echoes foxtrot golfer hotel", "mkt", now.Add(-time.Minute))
	sig := tr.Compute("mkt", now)
	assert.Len(t, sig.TopKeywords, 5)
}

func TestTracker_MarketsAreIsolated(t *testing.T) {
	tr := New(DefaultConfig())
	now := base.Add(time.Hour)
	tr.Ingest("Stablecoin depeg rumours", "a", now.Add(-time.Minute))
	assert.True(t, tr.Compute("b", now).IsNull())
	assert.False(t, tr.Compute("a", now).IsNull())
	assert.Equal(t, 1, tr.Markets())
}

func TestTracker_OutOfOrderIngest(t *testing.T) {
	tr := New(DefaultConfig())
	now := base.Add(5 * time.Hour)
	tr.Ingest("senate", "mkt", now.Add(-10*time.Minute))
	tr.Ingest("senate", "mkt", now.Add(-3*time.Hour))
	tr.Ingest("senate", "mkt", now.Add(-5*time.Minute))

	sig := tr.Compute("mkt", now)
	require.Len(t, sig.TopKeywords, 1)
	assert.Equal(t, 2, sig.TopKeywords[0].Count)
}

func TestExtractKeywords(t *testing.T) {
	got := ExtractKeywords("Breaking: Fed to cut rates, says Powell about the SEC")
	assert.Equal(t, []string{"fed", "cut", "rates", "powell", "sec"}, got)
}
