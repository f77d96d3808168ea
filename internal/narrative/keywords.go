package narrative

import (
	"strings"

	"github.com/alejandrodnm/polyfusion/internal/sentiment"
)

// minKeywordLen: los tokens de más de 4 caracteres cuentan como keyword.
const minKeywordLen = 5

// highSignal son palabras cortas que vale la pena seguir pese a su longitud.
var highSignal = map[string]bool{
	"war": true, "fed": true, "sec": true, "etf": true, "ban": true,
	"hack": true, "cut": true, "hike": true, "rate": true, "poll": true,
	"vote": true, "win": true, "lose": true, "dead": true, "gdp": true,
	"cpi": true, "jobs": true, "nato": true, "un": true, "ai": true,
	"btc": true, "eth": true, "sol": true, "coup": true, "riot": true,
	"fire": true, "oil": true, "deal": true, "veto": true, "debt": true,
}

var stopWords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true, "against": true,
	"among": true, "because": true, "before": true, "being": true, "below": true,
	"between": true, "could": true, "doing": true, "during": true, "every": true,
	"first": true, "found": true, "further": true, "having": true, "might": true,
	"never": true, "other": true, "their": true, "there": true, "these": true,
	"thing": true, "those": true, "three": true, "through": true, "today": true,
	"under": true, "until": true, "where": true, "which": true, "while": true,
	"would": true, "should": true, "shall": true, "still": true, "since": true,
	"people": true, "really": true, "right": true, "think": true, "years": true,
	"says": true, "said": true, "news": true, "report": true, "reports": true,
	"breaking": true, "update": true, "according": true, "latest": true, "watch": true,
}

// ExtractKeywords devuelve las keywords de text en minúsculas, en orden y con duplicados.
func ExtractKeywords(text string) []string {
	tokens := sentiment.Tokenize(text)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		w := strings.ToLower(tok)
		if stopWords[w] {
			continue
		}
		if len(w) >= minKeywordLen || highSignal[w] {
			out = append(out, w)
		}
	}
	return out
}
