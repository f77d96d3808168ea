package domain

// AccelerationZ es el |z| a partir del cual una narrativa se considera acelerando.
const AccelerationZ = 2.0

// KeywordScore es el z-score de una keyword en la ventana actual.
type KeywordScore struct {
	Keyword string
	ZScore  float64
	Count   int // ocurrencias en la ventana actual
}

// NarrativeSignal resume la velocidad narrativa de un mercado.
type NarrativeSignal struct {
	MarketID        string
	VelocityIndex   float64 // NVI en [-1, 1]
	DominantKeyword string
	DominantZ       float64
	Accelerating    bool           // |DominantZ| >= AccelerationZ
	TopKeywords     []KeywordScore // hasta 5, ordenadas por |z| desc
}

// IsNull devuelve true si la señal no tiene datos.
func (n NarrativeSignal) IsNull() bool {
	return n.DominantKeyword == "" && len(n.TopKeywords) == 0
}
