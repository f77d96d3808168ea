package domain

import "time"

// ArbitrageType clasifica la oportunidad detectada.
type ArbitrageType int

const (
	ArbNone ArbitrageType = iota
	ArbLongRebalancing
	ArbShortRebalancing
	ArbCombinatorial
)

func (t ArbitrageType) String() string {
	switch t {
	case ArbLongRebalancing:
		return "LONG_REBALANCING"
	case ArbShortRebalancing:
		return "SHORT_REBALANCING"
	case ArbCombinatorial:
		return "COMBINATORIAL"
	default:
		return "NONE"
	}
}

// ConditionSet es el conjunto de precios YES de las condiciones de un mercado
// multi-resultado (p. ej. "¿quién gana?" con N candidatos).
type ConditionSet struct {
	MarketID     string
	ConditionIDs []string
	YesPrices    []float64
	VolumesUSD   []float64
	TimestampMs  int64
}

// MinVolume devuelve el volumen mínimo entre las condiciones (0 si no hay datos).
func (c ConditionSet) MinVolume() float64 {
	if len(c.VolumesUSD) == 0 {
		return 0
	}
	m := c.VolumesUSD[0]
	for _, v := range c.VolumesUSD[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// ArbPosition es la posición recomendada en una condición.
type ArbPosition struct {
	ConditionID string
	Side        string // "YES" | "NO"
	Size        float64
}

// ArbitrageOpportunity es el resultado de una pasada de detección. No se persiste en el core.
type ArbitrageOpportunity struct {
	ID              string
	Type            ArbitrageType
	MarketIDs       []string
	ConditionIDs    []string
	Observed        []float64
	Projected       []float64
	ProfitPerDollar float64
	Positions       []ArbPosition
	Confidence      float64
	ExecutionRisk   float64
	Warning         string
	DetectedAt      time.Time
}

// Found devuelve true si la pasada detectó una oportunidad.
func (a ArbitrageOpportunity) Found() bool {
	return a.Type != ArbNone
}

// VenueQuote es el precio YES de un mismo evento en dos venues distintos.
type VenueQuote struct {
	EventID     string
	VenueA      string
	VenueB      string
	PriceA      float64
	PriceB      float64
	FeeRate     float64
	TimestampMs int64
}

// CrossVenueArb es el resultado de evaluar las dos direcciones de cobertura entre venues.
type CrossVenueArb struct {
	IsArb        bool
	Direction    string // "NO_A_YES_B" | "YES_A_NO_B"
	Cost         float64
	CostWithFees float64
	ProfitPct    float64
}
