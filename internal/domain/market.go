package domain

import "time"

// MarketTick es una observación inmutable del mercado empujada por el feed.
// El feed garantiza orden monotónico por timestamp dentro de cada mercado.
type MarketTick struct {
	MarketID       string
	TimestampMs    int64
	Mid            float64
	BestBid        float64
	BestAsk        float64
	BidDepthUSD    float64
	AskDepthUSD    float64
	Volume1hUSD    float64
	Volume24hUSD   float64
	TradeCount     int
	LastTradePrice float64
}

// Time devuelve el timestamp del tick como time.Time (UTC).
func (t MarketTick) Time() time.Time {
	return time.UnixMilli(t.TimestampMs).UTC()
}

// SpreadBps devuelve el spread del tick en bps.
func (t MarketTick) SpreadBps() float64 {
	return SpreadBps(t.BestBid, t.BestAsk)
}

// Headline es un titular o post asociado a un mercado.
type Headline struct {
	MarketID    string
	Text        string
	TimestampMs int64
}

// SocialMetrics son las métricas de NLP que calcula un colaborador externo
// (credibilidad de la fuente, sarcasmo, volumen de tweets…).
type SocialMetrics struct {
	MarketID           string
	TimestampMs        int64
	Novelty            float64
	Credibility        float64
	SarcasmProb        float64
	TweetVolumeZ       float64
	NarrativeCoherence float64
}

// ChainFlow es el resumen on-chain que entrega el feed de whales.
type ChainFlow struct {
	MarketID            string
	TimestampMs         int64
	SmartMoneyFlow      float64
	WhaleConcentration  float64
	RetailFlow          float64
	CrossPlatformSpread float64 // bps
	GasCongestionPct    float64
}

// MsToTime convierte milisegundos unix a time.Time (UTC).
func MsToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
