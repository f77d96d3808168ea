// Package model combina las torres estructural, de sentimiento y de narrativa
// en una probabilidad calibrada, una señal discreta y el filtro de tradeable.
package model

import (
	"log/slog"
	"math"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

const (
	obiAdjustment      = 0.06
	volumeAdjustment   = 0.04
	momentumAdjustment = 0.5
	sentimentSlope     = 3.0

	strongStrength = 0.08
	normalStrength = 0.03

	whaleAlignedBoost   = 1.15
	whaleOpposedPenalty = 0.85

	// parte del peso de narrativa que pasa a struct cuando no hay narrativa
	narrativeToStruct = 0.7

	confidenceFloor = 0.01
)

// Config contiene los pesos del ensemble y los umbrales de tradeable.
type Config struct {
	StructWeight    float64
	SentimentWeight float64
	NarrativeWeight float64
	MinEdge         float64
	MinConfidence   float64
	MaxSpreadBps    float64
}

// DefaultConfig devuelve los valores calibrados.
func DefaultConfig() Config {
	return Config{
		StructWeight:    0.65,
		SentimentWeight: 0.20,
		NarrativeWeight: 0.15,
		MinEdge:         0.02,
		MinConfidence:   0.30,
		MaxSpreadBps:    200,
	}
}

// Model no tiene estado aparte de su config; es seguro para uso concurrente.
type Model struct {
	cfg Config
}

// New crea un Model. Los campos a cero toman el valor por defecto.
func New(cfg Config) *Model {
	def := DefaultConfig()
	if cfg.StructWeight <= 0 && cfg.SentimentWeight <= 0 && cfg.NarrativeWeight <= 0 {
		cfg.StructWeight = def.StructWeight
		cfg.SentimentWeight = def.SentimentWeight
		cfg.NarrativeWeight = def.NarrativeWeight
	}
	if cfg.MinEdge <= 0 {
		cfg.MinEdge = def.MinEdge
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.MaxSpreadBps <= 0 {
		cfg.MaxSpreadBps = def.MaxSpreadBps
	}
	return &Model{cfg: cfg}
}

// Config devuelve la configuración efectiva.
func (m *Model) Config() Config { return m.cfg }

// ComputeSignal combina el vector de features con la narrativa y el flag de
// alineación whale, ambos opcionales. Features inválidas dan una señal HOLD nula.
func (m *Model) ComputeSignal(fv domain.FeatureVector, narrative *domain.NarrativeSignal, whaleAligned *bool) domain.SignalOutput {
	if !fv.IsValid {
		return domain.NullSignal(fv.MarketID, fv.TimestampMs)
	}

	pStruct := StructProbability(fv)
	pSent := SentimentProbability(fv.Sentiment)

	var pNarr, narrConf float64
	accelerating := narrative != nil && narrative.Accelerating
	if accelerating {
		pNarr = (narrative.VelocityIndex + 1) / 2
		narrConf = math.Abs(narrative.VelocityIndex)
	}

	wStruct, wSent, wNarr := m.weights(narrative != nil)
	final := domain.Clamp(wStruct*pStruct+wSent*pSent+wNarr*pNarr, 0.01, 0.99)
	edge := final - fv.MidPrice

	towers := []weighted{
		{conf: m.structConfidence(fv), weight: wStruct},
		{conf: math.Abs(fv.Sentiment), weight: wSent},
	}
	if accelerating {
		towers = append(towers, weighted{conf: narrConf, weight: wNarr})
	}
	confidence := geometricMean(towers)
	if whaleAligned != nil {
		if *whaleAligned {
			confidence *= whaleAlignedBoost
		} else {
			confidence *= whaleOpposedPenalty
		}
	}
	confidence = domain.Clamp(confidence, 0, 1)

	out := domain.SignalOutput{
		MarketID:         fv.MarketID,
		TimestampMs:      fv.TimestampMs,
		Signal:           Classify(edge, confidence),
		FinalProbability: final,
		StructProb:       pStruct,
		SentimentProb:    pSent,
		NarrativeProb:    pNarr,
		MarketPrice:      fv.MidPrice,
		Edge:             edge,
		Confidence:       confidence,
		SpreadBps:        fv.SpreadBps,
	}
	out.Tradeable = math.Abs(edge) >= m.cfg.MinEdge &&
		confidence >= m.cfg.MinConfidence &&
		fv.SpreadBps <= m.cfg.MaxSpreadBps

	slog.Debug("model: signal",
		"market_id", fv.MarketID,
		"signal", out.Signal,
		"prob", final,
		"edge", edge,
		"confidence", confidence,
		"tradeable", out.Tradeable,
	)
	return out
}

// weights devuelve los pesos del ensemble. Sin narrativa, su peso se reparte
// 70/30 entre struct y sentimiento.
func (m *Model) weights(hasNarrative bool) (wStruct, wSent, wNarr float64) {
	if hasNarrative {
		return m.cfg.StructWeight, m.cfg.SentimentWeight, m.cfg.NarrativeWeight
	}
	n := m.cfg.NarrativeWeight
	return m.cfg.StructWeight + narrativeToStruct*n, m.cfg.SentimentWeight + (1-narrativeToStruct)*n, 0
}

// structConfidence mezcla |OBI|, |volume z| acotado y el margen de spread.
func (m *Model) structConfidence(fv domain.FeatureVector) float64 {
	headroom := math.Max(0, 1-fv.SpreadBps/m.cfg.MaxSpreadBps)
	return 0.5*math.Abs(fv.OrderBookImbalance) +
		0.25*math.Min(math.Abs(fv.VolumeZScore)/3, 1) +
		0.25*headroom
}

// StructProbability es la torre de microestructura: mid más los ajustes de OBI,
// volumen y momentum, amortiguados por 1/(1+IV).
func StructProbability(fv domain.FeatureVector) float64 {
	adj := fv.OrderBookImbalance*obiAdjustment +
		math.Tanh(fv.VolumeZScore/3)*volumeAdjustment*domain.Sign(fv.OrderBookImbalance) +
		fv.Momentum1h*momentumAdjustment
	adj /= 1 + math.Max(fv.ImpliedVolatility, 0)
	return domain.Clamp(fv.MidPrice+adj, 0.01, 0.99)
}

// SentimentProbability pasa el sentimiento por sigmoid(3·s).
func SentimentProbability(sentiment float64) float64 {
	x := domain.Clamp(sentiment*sentimentSlope, -10, 10)
	return 1 / (1 + math.Exp(-x))
}

// Classify asigna un nivel de señal según strength = |edge|·confidence.
func Classify(edge, confidence float64) domain.SignalType {
	strength := math.Abs(edge) * confidence
	switch {
	case strength > strongStrength && edge > 0:
		return domain.SignalStrongBuy
	case strength > strongStrength && edge < 0:
		return domain.SignalStrongSell
	case strength > normalStrength && edge > 0:
		return domain.SignalBuy
	case strength > normalStrength && edge < 0:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

type weighted struct {
	conf   float64
	weight float64
}

// geometricMean es la media geométrica ponderada, con un suelo por término.
func geometricMean(towers []weighted) float64 {
	var logSum, wSum float64
	for _, t := range towers {
		if t.weight <= 0 {
			continue
		}
		logSum += t.weight * math.Log(math.Max(t.conf, confidenceFloor))
		wSum += t.weight
	}
	if wSum == 0 {
		return 0
	}
	return math.Exp(logSum / wSum)
}
