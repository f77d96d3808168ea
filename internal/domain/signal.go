package domain

// SignalType es la clasificación discreta de la señal del modelo.
type SignalType string

const (
	SignalStrongBuy  SignalType = "STRONG_BUY"
	SignalBuy        SignalType = "BUY"
	SignalHold       SignalType = "HOLD"
	SignalSell       SignalType = "SELL"
	SignalStrongSell SignalType = "STRONG_SELL"
)

// Tier devuelve el nivel de fuerza de la señal: 0 hold, 1 normal, 2 strong.
func (s SignalType) Tier() int {
	switch s {
	case SignalStrongBuy, SignalStrongSell:
		return 2
	case SignalBuy, SignalSell:
		return 1
	default:
		return 0
	}
}

// SignalOutput es la salida del ProbabilityModel para un mercado.
type SignalOutput struct {
	MarketID         string
	TimestampMs      int64
	Signal           SignalType
	FinalProbability float64 // [0.01, 0.99]
	StructProb       float64
	SentimentProb    float64
	NarrativeProb    float64
	MarketPrice      float64
	Edge             float64 // FinalProbability - MarketPrice
	Confidence       float64 // [0, 1]
	Tradeable        bool
	SpreadBps        float64
}

// NullSignal es el HOLD que se devuelve con features inválidas.
func NullSignal(marketID string, ts int64) SignalOutput {
	return SignalOutput{MarketID: marketID, TimestampMs: ts, Signal: SignalHold}
}
