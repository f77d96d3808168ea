package domain

// KellyWeights es la asignación de cartera calculada bajo demanda.
// Cada peso está en [0, max_leverage] y la suma respeta el límite activo.
type KellyWeights struct {
	Markets           []string
	Weights           map[string]float64
	ExpectedLogGrowth float64
	MaxDrawdownEst    float64 // ≈ 2·sqrt(w·Σ·w)
	TotalLeverage     float64
	HalfKelly         bool
	Fallback          bool // true si el solver falló y se usó la asignación uniforme
}

// Weight devuelve el peso de un mercado (0 si no tiene asignación).
func (k KellyWeights) Weight(marketID string) float64 {
	return k.Weights[marketID]
}
