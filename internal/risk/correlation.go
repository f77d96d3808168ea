package risk

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/series"
)

const (
	defaultCorrelationWindow = 7 * 24 * 60 // minutos
	defaultMinSamples        = 30
)

// Pair es un par de mercados correlacionados.
type Pair struct {
	A, B        string
	Correlation float64
}

// minuteSeries guarda un precio por minuto, en orden ascendente.
type minuteSeries struct {
	minutes *series.RingBuffer
	prices  *series.RingBuffer
}

// CorrelationTracker mantiene una serie de precios a 1 minuto por mercado y
// calcula correlaciones de Pearson sobre muestras alineadas en el tiempo.
type CorrelationTracker struct {
	mu         sync.Mutex
	window     int
	minSamples int
	markets    map[string]*minuteSeries
}

// NewCorrelationTracker crea un tracker que guarda window minutos por mercado.
func NewCorrelationTracker(window, minSamples int) *CorrelationTracker {
	if window <= 0 {
		window = defaultCorrelationWindow
	}
	if minSamples <= 1 {
		minSamples = defaultMinSamples
	}
	return &CorrelationTracker{
		window:     window,
		minSamples: minSamples,
		markets:    make(map[string]*minuteSeries),
	}
}

// Update registra price en ts. Dentro del mismo minuto gana el último; los
// updates anteriores al minuto más reciente se descartan.
func (c *CorrelationTracker) Update(marketID string, price float64, ts time.Time) {
	minute := float64(ts.Unix() / 60)

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.markets[marketID]
	if !ok {
		s = &minuteSeries{minutes: series.New(c.window), prices: series.New(c.window)}
		c.markets[marketID] = s
	}
	if s.minutes.Len() > 0 {
		last := s.minutes.Last()
		switch {
		case minute == last:
			s.prices.SetLast(price)
			return
		case minute < last:
			return
		}
	}
	s.minutes.Append(minute)
	s.prices.Append(price)
}

// Correlation devuelve la correlación de Pearson de dos mercados sobre los
// minutos con precio en ambos; 0 con menos de minSamples muestras alineadas.
func (c *CorrelationTracker) Correlation(a, b string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.correlation(a, b)
}

func (c *CorrelationTracker) correlation(a, b string) float64 {
	sa, okA := c.markets[a]
	sb, okB := c.markets[b]
	if !okA || !okB {
		return 0
	}

	var xs, ys []float64
	i, j := 0, 0
	for i < sa.minutes.Len() && j < sb.minutes.Len() {
		ma, mb := sa.minutes.At(i), sb.minutes.At(j)
		switch {
		case ma < mb:
			i++
		case mb < ma:
			j++
		default:
			xs = append(xs, sa.prices.At(i))
			ys = append(ys, sb.prices.At(j))
			i++
			j++
		}
	}
	if len(xs) < c.minSamples {
		return 0
	}
	return pearson(xs, ys)
}

// CorrelatedPairs lista los pares con |ρ| ≥ threshold, ordenados por |ρ|
// descendente. O(n²) en el número de mercados.
func (c *CorrelationTracker) CorrelatedPairs(threshold float64) []Pair {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.markets))
	for id := range c.markets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var pairs []Pair
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			rho := c.correlation(ids[i], ids[j])
			if rho != 0 && math.Abs(rho) >= threshold {
				pairs = append(pairs, Pair{A: ids[i], B: ids[j], Correlation: rho})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return math.Abs(pairs[i].Correlation) > math.Abs(pairs[j].Correlation)
	})
	return pairs
}

// Len devuelve cuántos minutos se guardan de un mercado.
func (c *CorrelationTracker) Len(marketID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.markets[marketID]; ok {
		return s.minutes.Len()
	}
	return 0
}

func pearson(xs, ys []float64) float64 {
	mx, sx := series.MeanStd(xs)
	my, sy := series.MeanStd(ys)
	if sx == 0 || sy == 0 {
		return 0
	}
	var cov float64
	for i := range xs {
		cov += (xs[i] - mx) * (ys[i] - my)
	}
	cov /= float64(len(xs))
	return math.Max(-1, math.Min(1, cov/(sx*sy)))
}
