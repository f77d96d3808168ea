// Package sentiment puntúa textos cortos (titulares, posts) con un léxico fijo
// y modificadores al estilo VADER.
package sentiment

import (
	"math"
	"strings"
	"unicode"
)

const (
	// normalizationAlpha lleva la suma bruta a [-1, 1]: sum/sqrt(sum²+alpha).
	normalizationAlpha = 15.0
	capsFactor         = 1.733
	negationFactor     = -0.74
	boosterIncrement   = 0.293
	negationWindow     = 3
	capsMinLength      = 4 // las MAYÚSCULAS solo cuentan en palabras de más de 3 letras
)

// Scores es el desglose de polaridad de un texto.
type Scores struct {
	Pos      float64
	Neg      float64
	Neu      float64
	Compound float64 // [-1, 1]
}

// Neutral es el score de un texto vacío o sin palabras del léxico.
var Neutral = Scores{Neu: 1.0}

// Scorer puntúa polaridad con un léxico. El zero value no sirve: usar New.
// No tiene estado mutable y es seguro para uso concurrente.
type Scorer struct {
	lexicon   map[string]float64
	negations map[string]bool
	boosters  map[string]float64
}

// New devuelve un Scorer sobre el léxico integrado.
func New() *Scorer {
	return &Scorer{lexicon: lexicon, negations: negations, boosters: boosters}
}

// PolarityScores puntúa text y devuelve las proporciones pos/neg/neu y el compound.
func (s *Scorer) PolarityScores(text string) Scores {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return Neutral
	}

	var sum, posSum, negSum float64
	var neutral, hits int
	for i, tok := range tokens {
		lower := strings.ToLower(tok)
		if s.boosters[lower] != 0 || s.negations[lower] {
			// los modificadores no tienen valencia propia
			neutral++
			continue
		}
		v, ok := s.valence(lower)
		if !ok {
			neutral++
			continue
		}
		hits++

		if isAllCaps(tok) {
			v *= capsFactor
		}
		if i > 0 {
			if dir := s.boosters[strings.ToLower(tokens[i-1])]; dir != 0 {
				v += dir * boosterIncrement * sign(v)
			}
		}
		if s.negatedBefore(tokens, i) {
			v *= negationFactor
		}

		sum += v
		switch {
		case v > 0:
			posSum += v + 1
		case v < 0:
			negSum += v - 1
		default:
			neutral++
		}
	}

	if hits == 0 {
		return Neutral
	}

	total := posSum + math.Abs(negSum) + float64(neutral)
	return Scores{
		Pos:      posSum / total,
		Neg:      math.Abs(negSum) / total,
		Neu:      float64(neutral) / total,
		Compound: Normalize(sum),
	}
}

// Compound es un atajo de PolarityScores(text).Compound.
func (s *Scorer) Compound(text string) float64 {
	return s.PolarityScores(text).Compound
}

// valence busca una palabra y, si no está, prueba un stemming ligero (plural
// s/es y verbos ing/ed) solo cuando la raíz está en el léxico.
func (s *Scorer) valence(word string) (float64, bool) {
	if v, ok := s.lexicon[word]; ok {
		return v, true
	}
	for _, suffix := range []string{"es", "s", "ing", "ed"} {
		if !strings.HasSuffix(word, suffix) || len(word) <= len(suffix)+1 {
			continue
		}
		stem := strings.TrimSuffix(word, suffix)
		if v, ok := s.lexicon[stem]; ok {
			return v, true
		}
		if suffix == "ing" || suffix == "ed" {
			if v, ok := s.lexicon[stem+"e"]; ok {
				return v, true
			}
		}
	}
	return 0, false
}

func (s *Scorer) negatedBefore(tokens []string, i int) bool {
	for j := max(0, i-negationWindow); j < i; j++ {
		if s.negations[strings.ToLower(tokens[j])] {
			return true
		}
	}
	return false
}

// Normalize lleva una suma de valencias a [-1, 1].
func Normalize(sum float64) float64 {
	c := sum / math.Sqrt(sum*sum+normalizationAlpha)
	return math.Max(-1, math.Min(1, c))
}

// Tokenize parte el texto en secuencias de letras, conservando mayúsculas.
func Tokenize(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
}

func isAllCaps(word string) bool {
	if len(word) < capsMinLength {
		return false
	}
	for _, r := range word {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
