package domain

import "time"

// FeatureVector es el vector de features de un mercado en un instante.
//
// Invariante: si IsValid es false todos los campos numéricos están a cero
// y el vector no debe usarse para decidir trades.
type FeatureVector struct {
	MarketID           string
	TimestampMs        int64
	OrderBookImbalance float64 // [-1, 1]
	VolumeZScore       float64 // sin límite
	ImpliedVolatility  float64 // anualizada, >= 0
	Momentum1h         float64 // [-0.5, 0.5]
	Sentiment          float64 // [-1, 1]
	MidPrice           float64
	SpreadBps          float64
	IsValid            bool
	Latency            time.Duration // tiempo de cálculo
}

// InvalidFeatures devuelve el vector inválido (todo a cero) para un mercado.
func InvalidFeatures(marketID string, ts int64) FeatureVector {
	return FeatureVector{MarketID: marketID, TimestampMs: ts}
}
