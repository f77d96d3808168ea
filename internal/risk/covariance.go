package risk

import "math"

// Covariance construye Σ para contratos binarios: Σii = p(1−p) y
// Σij = ρij·σi·σj, con ρ del tracker (0 si tracker es nil).
func Covariance(markets []string, probs []float64, tracker *CorrelationTracker) [][]float64 {
	n := len(markets)
	sigma := make([]float64, n)
	for i := range n {
		var p float64
		if i < len(probs) {
			p = probs[i]
		}
		v := p * (1 - p)
		if v < 0 {
			v = 0
		}
		sigma[i] = math.Sqrt(v)
	}

	cov := make([][]float64, n)
	for i := range n {
		cov[i] = make([]float64, n)
		cov[i][i] = sigma[i] * sigma[i]
	}
	if tracker == nil {
		return cov
	}
	for i := range n {
		for j := i + 1; j < n; j++ {
			c := tracker.Correlation(markets[i], markets[j]) * sigma[i] * sigma[j]
			cov[i][j], cov[j][i] = c, c
		}
	}
	return cov
}
