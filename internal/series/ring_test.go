package series

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBuffer_CountNeverExceedsCapacity(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 17} {
		r := New(5)
		var inserted []float64
		for i := 0; i < n; i++ {
			r.Append(float64(i))
			inserted = append(inserted, float64(i))
		}
		want := min(n, 5)
		require.Equal(t, want, r.Len(), "n=%d", n)
		assert.Equal(t, inserted[len(inserted)-want:], r.Tail(r.Len()), "n=%d", n)
	}
}

func TestRingBuffer_Empty(t *testing.T) {
	r := New(3)
	assert.True(t, math.IsNaN(r.Mean()))
	assert.True(t, math.IsNaN(r.Std()))
	assert.True(t, math.IsNaN(r.Last()))
	assert.True(t, math.IsNaN(r.First()))
	assert.Empty(t, r.Tail(10))
	assert.NotNil(t, r.Tail(10))
}

func TestRingBuffer_TailOrder(t *testing.T) {
	r := New(4)
	for _, v := range []float64{1, 2, 3, 4, 5, 6} {
		r.Append(v)
	}
	assert.Equal(t, []float64{5, 6}, r.Tail(2))
	assert.Equal(t, []float64{3, 4, 5, 6}, r.Tail(100))
	assert.Equal(t, 3.0, r.First())
	assert.Equal(t, 6.0, r.Last())
	assert.Equal(t, 4.0, r.At(1))
}

func TestRingBuffer_ExtendWraparound(t *testing.T) {
	r := New(5)
	r.Extend([]float64{1, 2, 3})
	r.Extend([]float64{4, 5, 6, 7})
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, []float64{3, 4, 5, 6, 7}, r.Values())

	// Bulk larger than the capacity keeps only the trailing window.
	r.Extend([]float64{10, 11, 12, 13, 14, 15, 16})
	assert.Equal(t, []float64{12, 13, 14, 15, 16}, r.Values())

	r.Append(17)
	assert.Equal(t, []float64{13, 14, 15, 16, 17}, r.Values())
}

func TestRingBuffer_ExtendMatchesAppend(t *testing.T) {
	a, b := New(7), New(7)
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5}
	for _, v := range values {
		a.Append(v)
	}
	b.Extend(values[:4])
	b.Extend(values[4:])
	assert.Equal(t, a.Values(), b.Values())
}

func TestRingBuffer_MeanStd(t *testing.T) {
	r := New(10)
	r.Extend([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, r.Mean(), 1e-12)
	assert.InDelta(t, 2.0, r.Std(), 1e-12)
}

func TestRingBuffer_SetLast(t *testing.T) {
	r := New(3)
	r.SetLast(1) // no-op
	assert.Equal(t, 0, r.Len())

	r.Extend([]float64{1, 2, 3, 4})
	r.SetLast(40)
	assert.Equal(t, []float64{2, 3, 40}, r.Values())
}
