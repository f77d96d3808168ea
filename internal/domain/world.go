package domain

// WorldState es el input completo de una sesión del consejo.
// Se construye de cero en cada ciclo de decisión y no se persiste.
type WorldState struct {
	MarketID       string
	TimestampMs    int64
	MidPrice       float64
	Microstructure MarketMicrostructure
	Narrative      NarrativeState
	OnChain        OnChainState
	Portfolio      PortfolioState
}

// MarketMicrostructure agrupa las señales del libro y del precio.
type MarketMicrostructure struct {
	OrderBookImbalance float64
	VolumeZScore       float64
	Momentum1m         float64
	Momentum5m         float64
	Momentum1h         float64
	SpreadBps          float64
	LiquidityDepthUSD  float64
	MeanReversionScore float64 // [-1, 1], positivo = precio por debajo de su media reciente
}

// NarrativeState agrupa las señales de texto y redes.
type NarrativeState struct {
	Sentiment          float64
	VelocityIndex      float64
	Novelty            float64
	Credibility        float64
	SarcasmProb        float64
	TweetVolumeZ       float64
	NarrativeCoherence float64
}

// OnChainState agrupa el flujo de whales y el estado de la red.
type OnChainState struct {
	SmartMoneyFlow      float64
	WhaleConcentration  float64
	RetailFlow          float64
	CrossPlatformSpread float64 // bps
	GasCongestionPct    float64
}

// PortfolioState es el estado de riesgo que entrega el servicio de cartera.
type PortfolioState struct {
	CurrentDrawdown    float64
	CorrelatedExposure float64
	Leverage           float64
	SharpeRatio        float64
	WinRate            float64
	HoursToResolution  float64
	ImpliedVolatility  float64
}
