package sentiment

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolarityScores_EmptyIsNeutral(t *testing.T) {
	s := New()
	assert.Equal(t, Neutral, s.PolarityScores(""))
	assert.Equal(t, Neutral, s.PolarityScores("1234 !!! ???"))
}

func TestPolarityScores_NoMatchIsNeutral(t *testing.T) {
	s := New()
	got := s.PolarityScores("Committee meets on Tuesday")
	assert.Equal(t, 1.0, got.Neu)
	assert.Equal(t, 0.0, got.Compound)
}

func TestPolarityScores_CompoundNormalization(t *testing.T) {
	s := New()
	// wins = 2.7 → 2.7/sqrt(2.7²+15)
	want := 2.7 / math.Sqrt(2.7*2.7+15)
	assert.InDelta(t, want, s.Compound("Candidate wins debate"), 1e-9)
}

func TestPolarityScores_Negation(t *testing.T) {
	s := New()
	// win = 2.8 × -0.74
	want := Normalize(2.8 * -0.74)
	assert.InDelta(t, want, s.Compound("Senator will not win the primary"), 1e-9)
	assert.Less(t, s.Compound("Senator will not win the primary"), 0.0)
}

func TestPolarityScores_NegationOutsideWindow(t *testing.T) {
	s := New()
	// "not" is four tokens before "win": no flip
	assert.Greater(t, s.Compound("not that anyone expected a win"), 0.0)
}

func TestPolarityScores_AllCapsAmplifies(t *testing.T) {
	s := New()
	plain := s.Compound("a great result")
	caps := s.Compound("a GREAT result")
	assert.Greater(t, caps, plain)
	assert.InDelta(t, Normalize(3.1*1.733), caps, 1e-9)

	// short caps words are not emphasis
	assert.InDelta(t, s.Compound("a win"), s.Compound("a WIN"), 1e-12)
}

func TestPolarityScores_Boosters(t *testing.T) {
	s := New()
	assert.InDelta(t, Normalize(1.9+0.293), s.Compound("very good"), 1e-9)
	assert.InDelta(t, Normalize(1.9-0.293), s.Compound("slightly good"), 1e-9)
	assert.InDelta(t, Normalize(-2.5-0.293), s.Compound("very bad"), 1e-9)
}

func TestPolarityScores_Stemming(t *testing.T) {
	s := New()
	assert.InDelta(t, Normalize(2.0), s.Compound("prices surged"), 1e-9)
	assert.InDelta(t, Normalize(2.0), s.Compound("prices surges"), 1e-9)
	assert.InDelta(t, Normalize(-2.6), s.Compound("exchange crashes"), 1e-9)
	assert.InDelta(t, Normalize(1.9), s.Compound("markets rallying"), 1e-9)
}

func TestPolarityScores_ProportionsSumToOne(t *testing.T) {
	s := New()
	got := s.PolarityScores("Strong rally but fears of a crash remain")
	assert.InDelta(t, 1.0, got.Pos+got.Neg+got.Neu, 1e-9)
	assert.Greater(t, got.Pos, 0.0)
	assert.Greater(t, got.Neg, 0.0)
}

func TestPolarityScores_CompoundBounded(t *testing.T) {
	s := New()
	long := strings.Repeat("AMAZING VICTORY ", 50)
	c := s.Compound(long)
	assert.LessOrEqual(t, c, 1.0)
	assert.Greater(t, c, 0.99)

	c = s.Compound(strings.Repeat("catastrophe crash ", 50))
	assert.GreaterOrEqual(t, c, -1.0)
}

func TestTokenize_AlphabeticOnly(t *testing.T) {
	assert.Equal(t, []string{"BTC", "isn", "t", "dead"}, Tokenize("BTC isn't dead!!! 100%"))
}
