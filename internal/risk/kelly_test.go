package risk

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func diag(vs ...float64) [][]float64 {
	m := make([][]float64, len(vs))
	for i, v := range vs {
		m[i] = make([]float64, len(vs))
		m[i][i] = v
	}
	return m
}

func TestKellyWeights_SingleMarket(t *testing.T) {
	m := NewManager(DefaultConfig())
	k := m.KellyWeights([]string{"a"}, []float64{0.02}, diag(0.25), 0)

	require.False(t, k.Fallback)
	assert.InDelta(t, 0.08, k.Weight("a"), 1e-9)
	assert.InDelta(t, 0.08, k.TotalLeverage, 1e-9)
	assert.InDelta(t, 0.0008, k.ExpectedLogGrowth, 1e-9)
	assert.InDelta(t, 0.08, k.MaxDrawdownEst, 1e-9)
	assert.False(t, k.HalfKelly)
}

func TestKellyWeights_CappedAtMaxLeverage(t *testing.T) {
	m := NewManager(DefaultConfig())
	k := m.KellyWeights([]string{"a"}, []float64{0.5}, diag(0.25), 0)
	assert.InDelta(t, 0.2, k.Weight("a"), 1e-9)
}

func TestKellyWeights_NegativeEdgeGetsNothing(t *testing.T) {
	m := NewManager(DefaultConfig())
	k := m.KellyWeights([]string{"a", "b"}, []float64{-0.05, 0.02}, diag(0.25, 0.25), 0)
	assert.Zero(t, k.Weight("a"))
	assert.InDelta(t, 0.08, k.Weight("b"), 1e-9)
}

func TestKellyWeights_CorrelationShrinksWeights(t *testing.T) {
	m := NewManager(DefaultConfig())
	cov := [][]float64{{0.25, 0.225}, {0.225, 0.25}}
	k := m.KellyWeights([]string{"a", "b"}, []float64{0.02, 0.02}, cov, 0)

	require.False(t, k.Fallback)
	assert.InDelta(t, 0.02/0.475, k.Weight("a"), 1e-6)
	assert.InDelta(t, 0.02/0.475, k.Weight("b"), 1e-6)
}

func TestKellyWeights_GuardrailRescales(t *testing.T) {
	m := NewManager(DefaultConfig())
	ids := []string{"a", "b", "c", "d", "e"}
	edges := []float64{0.5, 0.5, 0.5, 0.5, 0.5}
	k := m.KellyWeights(ids, edges, diag(0.25, 0.25, 0.25, 0.25, 0.25), 0)

	assert.InDelta(t, 0.5, k.TotalLeverage, 1e-9)
	for _, id := range ids {
		assert.InDelta(t, 0.1, k.Weight(id), 1e-9)
	}
}

func TestKellyWeights_HalfKellyUnderDrawdown(t *testing.T) {
	m := NewManager(DefaultConfig())
	ids := []string{"a", "b", "c", "d", "e"}
	edges := []float64{0.5, 0.5, 0.5, 0.5, 0.5}
	k := m.KellyWeights(ids, edges, diag(0.25, 0.25, 0.25, 0.25, 0.25), 0.15)

	assert.True(t, k.HalfKelly)
	assert.False(t, k.Fallback)
	assert.InDelta(t, 0.5, k.TotalLeverage, 1e-6)
	assert.InDelta(t, 0.1, k.Weight("c"), 1e-6)
}

func TestKellyWeights_FallbackOnBadInput(t *testing.T) {
	m := NewManager(DefaultConfig())

	nan := m.KellyWeights([]string{"a", "b", "c"}, []float64{0.05, math.NaN(), 0.03}, diag(0.25, 0.25, 0.25), 0)
	assert.True(t, nan.Fallback)
	assert.Equal(t, map[string]float64{"a": 0.2, "b": 0, "c": 0.2}, nan.Weights)

	shape := m.KellyWeights([]string{"a", "b"}, []float64{0.05, 0.05}, diag(0.25), 0)
	assert.True(t, shape.Fallback)
	assert.InDelta(t, 0.4, shape.TotalLeverage, 1e-12)

	asym := m.KellyWeights([]string{"a", "b"}, []float64{0.05, 0.05}, [][]float64{{0.25, 0.1}, {0, 0.25}}, 0)
	assert.True(t, asym.Fallback)

	negVar := m.KellyWeights([]string{"a"}, []float64{0.05}, diag(-0.1), 0)
	assert.True(t, negVar.Fallback)
}

func TestKellyWeights_FallbackRespectsTotal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLeverage = 0.5
	m := NewManager(cfg)
	// 4 positive edges, drawdown cap 0.5 → 0.125 each
	k := m.KellyWeights([]string{"a", "b", "c", "d"}, []float64{0.1, 0.1, 0.1, 0.1}, nil, 0.2)
	require.True(t, k.Fallback)
	assert.InDelta(t, 0.125, k.Weight("a"), 1e-12)
	assert.InDelta(t, 0.5, k.TotalLeverage, 1e-12)
}

func TestKellyWeights_Empty(t *testing.T) {
	k := NewManager(DefaultConfig()).KellyWeights(nil, nil, nil, 0)
	assert.False(t, k.Fallback)
	assert.Empty(t, k.Weights)
	assert.Zero(t, k.TotalLeverage)
}

func TestKellyWeights_BoundsHoldForRandomInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := NewManager(DefaultConfig())

	for trial := 0; trial < 200; trial++ {
		n := 1 + rng.Intn(8)
		ids := make([]string, n)
		edges := make([]float64, n)
		a := make([][]float64, n)
		for i := range n {
			ids[i] = string(rune('a' + i))
			edges[i] = rng.Float64()*0.6 - 0.2
			a[i] = make([]float64, n)
			for j := range n {
				a[i][j] = rng.Float64()*0.6 - 0.3
			}
		}
		// Σ = A·Aᵀ is symmetric positive semi-definite
		cov := make([][]float64, n)
		for i := range n {
			cov[i] = make([]float64, n)
			for j := range n {
				for k := range n {
					cov[i][j] += a[i][k] * a[j][k]
				}
			}
		}
		for i := range n {
			for j := range i {
				cov[i][j] = cov[j][i]
			}
		}

		drawdown := rng.Float64() * 0.2
		limit := 1.0
		if drawdown > 0.10 {
			limit = 0.5
		}

		k := m.KellyWeights(ids, edges, cov, drawdown)
		var sum float64
		for _, id := range ids {
			w := k.Weight(id)
			assert.GreaterOrEqual(t, w, 0.0)
			assert.LessOrEqual(t, w, 0.2+1e-9)
			sum += w
		}
		assert.LessOrEqual(t, sum, limit+1e-9)
		assert.LessOrEqual(t, sum, 0.5+1e-9)
	}
}

func TestProject_Bisection(t *testing.T) {
	w := []float64{0.9, 0.5, -0.2}
	project(w, 0.4, 0.5)
	assert.InDelta(t, 0.5, w[0]+w[1]+w[2], 1e-9)
	assert.InDelta(t, 0.4, w[0], 1e-9)
	assert.InDelta(t, 0.1, w[1], 1e-9)
	assert.Zero(t, w[2])
}
