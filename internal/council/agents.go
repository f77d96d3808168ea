package council

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// ErrUnknownRole se devuelve cuando el dispatch recibe un rol que no sabe puntuar.
var ErrUnknownRole = errors.New("council: unknown role")

// Umbrales de convicción comunes a los agentes que votan.
const (
	strongThreshold = 0.35
	normalThreshold = 0.15
	actionThreshold = 0.15
)

// Params es el conjunto cerrado de parámetros de agente. Cada rol tiene su
// propio struct y Evaluate despacha por el tipo concreto.
type Params interface {
	Role() domain.Role
	sealed()
}

// SniperParams configura el agente de microestructura.
type SniperParams struct {
	MaxSpreadBps    float64 // se abstiene desde este valor
	MinLiquidityUSD float64 // se abstiene por debajo
	SizeCeiling     float64
}

// NarrativeParams configura el agente de NLP.
type NarrativeParams struct {
	HighSarcasm    float64
	LowCredibility float64
	SizeCeiling    float64
}

// WhaleHunterParams configura el agente de flujo on-chain.
type WhaleHunterParams struct {
	HighConcentration float64
	SizeCeiling       float64
}

// DoomerParams configura el agente de veto: los límites duros vetan y los blandos penalizan.
type DoomerParams struct {
	MaxDrawdown           float64
	MaxCorrelatedExposure float64
	MaxSpreadBps          float64
	MaxGasCongestionPct   float64
	MinHoursToResolution  float64
	MaxLeverage           float64

	SoftDrawdown     float64
	SoftImpliedVol   float64
	SoftLeverage     float64
	SoftWinRate      float64
	SoftHoursToClose float64
	AgainstScore     float64 // score en o por debajo del cual el doomer vota AGAINST
}

// JudgeParams configura al juez.
type JudgeParams struct {
	RoleWeights  map[domain.Role]float64
	MinConsensus float64
	ActionLevel  float64 // |convicción media| necesaria para actuar
	SizePerUnit  float64
	MaxSize      float64
	EdgePerUnit  float64
}

func (SniperParams) Role() domain.Role      { return domain.RoleSniper }
func (NarrativeParams) Role() domain.Role   { return domain.RoleNarrative }
func (WhaleHunterParams) Role() domain.Role { return domain.RoleWhaleHunter }
func (DoomerParams) Role() domain.Role      { return domain.RoleDoomer }

func (SniperParams) sealed()      {}
func (NarrativeParams) sealed()   {}
func (WhaleHunterParams) sealed() {}
func (DoomerParams) sealed()      {}

// DefaultSniper devuelve los parámetros calibrados de microestructura.
func DefaultSniper() SniperParams {
	return SniperParams{MaxSpreadBps: 300, MinLiquidityUSD: 5000, SizeCeiling: 0.10}
}

func DefaultNarrative() NarrativeParams {
	return NarrativeParams{HighSarcasm: 0.7, LowCredibility: 0.3, SizeCeiling: 0.08}
}

func DefaultWhaleHunter() WhaleHunterParams {
	return WhaleHunterParams{HighConcentration: 0.7, SizeCeiling: 0.10}
}

func DefaultDoomer() DoomerParams {
	return DoomerParams{
		MaxDrawdown:           0.15,
		MaxCorrelatedExposure: 0.50,
		MaxSpreadBps:          500,
		MaxGasCongestionPct:   95,
		MinHoursToResolution:  2,
		MaxLeverage:           0.80,
		SoftDrawdown:          0.08,
		SoftImpliedVol:        1.0,
		SoftLeverage:          0.50,
		SoftWinRate:           0.40,
		SoftHoursToClose:      24,
		AgainstScore:          -0.5,
	}
}

func DefaultJudge() JudgeParams {
	return JudgeParams{
		RoleWeights: map[domain.Role]float64{
			domain.RoleSniper:      1.2,
			domain.RoleNarrative:   1.0,
			domain.RoleWhaleHunter: 1.1,
			domain.RoleDoomer:      1.5,
		},
		MinConsensus: 0.6,
		ActionLevel:  0.5,
		SizePerUnit:  0.15,
		MaxSize:      0.25,
		EdgePerUnit:  0.05,
	}
}

// Evaluate puntúa un world state con el agente que describe p.
func Evaluate(p Params, ws domain.WorldState) (domain.AgentVote, error) {
	switch p := p.(type) {
	case SniperParams:
		return sniper(p, ws.Microstructure), nil
	case NarrativeParams:
		return narrative(p, ws.Narrative), nil
	case WhaleHunterParams:
		return whaleHunter(p, ws.OnChain), nil
	case DoomerParams:
		return doomer(p, ws), nil
	default:
		return domain.AgentVote{}, fmt.Errorf("council.Evaluate: %T: %w", p, ErrUnknownRole)
	}
}

func sniper(p SniperParams, ms domain.MarketMicrostructure) domain.AgentVote {
	if ms.SpreadBps >= p.MaxSpreadBps {
		return abstain(domain.RoleSniper, fmt.Sprintf("spread %.0fbps too wide", ms.SpreadBps))
	}
	if ms.LiquidityDepthUSD < p.MinLiquidityUSD {
		return abstain(domain.RoleSniper, fmt.Sprintf("liquidity $%.0f too thin", ms.LiquidityDepthUSD))
	}

	score := 0.35*ms.OrderBookImbalance +
		0.25*math.Tanh(ms.VolumeZScore/3) +
		0.25*momentumAlignment(ms)*math.Abs(ms.Momentum1h) +
		0.15*ms.MeanReversionScore

	reason := fmt.Sprintf("obi=%.2f volz=%.2f mom1h=%.3f mr=%.2f score=%.3f",
		ms.OrderBookImbalance, ms.VolumeZScore, ms.Momentum1h, ms.MeanReversionScore, score)
	return scoredVote(domain.RoleSniper, score, p.SizeCeiling, reason, nil)
}

// momentumAlignment es sign(mom1h) si el momentum de 1m, 5m y 1h coincide; si no, 0.
func momentumAlignment(ms domain.MarketMicrostructure) float64 {
	s := domain.Sign(ms.Momentum1h)
	if s != 0 && domain.Sign(ms.Momentum1m) == s && domain.Sign(ms.Momentum5m) == s {
		return s
	}
	return 0
}

func narrative(p NarrativeParams, ns domain.NarrativeState) domain.AgentVote {
	discount := math.Max(0, 1-1.5*ns.SarcasmProb)
	score := 0.40*ns.Sentiment*discount*ns.Credibility +
		0.35*ns.VelocityIndex*ns.NarrativeCoherence +
		0.25*math.Tanh(ns.TweetVolumeZ/3)

	var flags []string
	if ns.SarcasmProb > p.HighSarcasm {
		flags = append(flags, "HIGH_SARCASM")
	}
	if ns.Credibility < p.LowCredibility {
		flags = append(flags, "LOW_CREDIBILITY")
	}

	reason := fmt.Sprintf("sent=%.2f nvi=%.2f cred=%.2f sarcasm=%.2f score=%.3f",
		ns.Sentiment, ns.VelocityIndex, ns.Credibility, ns.SarcasmProb, score)
	v := scoredVote(domain.RoleNarrative, score, p.SizeCeiling, reason, flags)
	// las historias viejas pesan menos
	v.Confidence *= 0.7 + 0.3*domain.Clamp(ns.Novelty, 0, 1)
	return v
}

func whaleHunter(p WhaleHunterParams, oc domain.OnChainState) domain.AgentVote {
	gas := 1.0
	switch {
	case oc.GasCongestionPct > 80:
		gas = 0.5
	case oc.GasCongestionPct > 60:
		gas = 0.75
	}

	var fade float64
	switch {
	case oc.SmartMoneyFlow < -0.5 && oc.RetailFlow < -0.5:
		fade = -0.3
	case oc.RetailFlow > 0.3 && oc.SmartMoneyFlow < -0.5:
		fade = -0.2
	}

	score := gas * (0.50*oc.SmartMoneyFlow + fade + 0.20*math.Tanh(oc.CrossPlatformSpread/500))

	var flags []string
	if oc.WhaleConcentration > p.HighConcentration {
		flags = append(flags, "WHALE_CONCENTRATION")
	}
	if oc.GasCongestionPct > 80 {
		flags = append(flags, "GAS_CONGESTION")
	}

	reason := fmt.Sprintf("smart=%.2f retail=%.2f xspread=%.0fbps gas=%.0f%% score=%.3f",
		oc.SmartMoneyFlow, oc.RetailFlow, oc.CrossPlatformSpread, oc.GasCongestionPct, score)
	return scoredVote(domain.RoleWhaleHunter, score, p.SizeCeiling, reason, flags)
}

func doomer(p DoomerParams, ws domain.WorldState) domain.AgentVote {
	pf := ws.Portfolio
	var vetoes []string
	if pf.CurrentDrawdown > p.MaxDrawdown {
		vetoes = append(vetoes, fmt.Sprintf("DRAWDOWN_LIMIT(%.1f%%)", pf.CurrentDrawdown*100))
	}
	if pf.CorrelatedExposure > p.MaxCorrelatedExposure {
		vetoes = append(vetoes, fmt.Sprintf("CORRELATION_LIMIT(%.1f%%)", pf.CorrelatedExposure*100))
	}
	if ws.Microstructure.SpreadBps > p.MaxSpreadBps {
		vetoes = append(vetoes, fmt.Sprintf("SPREAD_LIMIT(%.0fbps)", ws.Microstructure.SpreadBps))
	}
	if ws.OnChain.GasCongestionPct > p.MaxGasCongestionPct {
		vetoes = append(vetoes, fmt.Sprintf("GAS_LIMIT(%.0f%%)", ws.OnChain.GasCongestionPct))
	}
	if pf.HoursToResolution < p.MinHoursToResolution {
		vetoes = append(vetoes, fmt.Sprintf("EXPIRY_LIMIT(%.1fh)", pf.HoursToResolution))
	}
	if pf.Leverage > p.MaxLeverage {
		vetoes = append(vetoes, fmt.Sprintf("LEVERAGE_LIMIT(%.2fx)", pf.Leverage))
	}
	if len(vetoes) > 0 {
		return domain.AgentVote{
			Role:         domain.RoleDoomer,
			Conviction:   domain.StrongAgainst,
			Action:       domain.ActionHold,
			Confidence:   1.0,
			Reasoning:    "VETO: " + strings.Join(vetoes, ", "),
			DissentFlags: vetoes,
		}
	}

	var score float64
	var concerns []string
	penalise := func(hit bool, penalty float64, code string) {
		if hit {
			score -= penalty
			concerns = append(concerns, code)
		}
	}
	penalise(pf.CurrentDrawdown > p.SoftDrawdown, 0.3, "DRAWDOWN")
	penalise(pf.ImpliedVolatility > p.SoftImpliedVol, 0.2, "HIGH_VOL")
	penalise(pf.Leverage > p.SoftLeverage, 0.2, "OVEREXTENDED")
	penalise(pf.WinRate < p.SoftWinRate, 0.15, "LOW_WIN_RATE")
	penalise(pf.SharpeRatio < 0, 0.15, "NEGATIVE_SHARPE")
	penalise(pf.HoursToResolution < p.SoftHoursToClose, 0.2, "NEAR_EXPIRY")

	v := domain.AgentVote{
		Role:         domain.RoleDoomer,
		Conviction:   domain.Abstain,
		Action:       domain.ActionHold,
		Confidence:   math.Min(1, math.Abs(score)),
		DissentFlags: concerns,
		Reasoning:    "risk within limits",
	}
	if len(concerns) > 0 {
		v.Reasoning = fmt.Sprintf("concerns: %s (score=%.2f)", strings.Join(concerns, ", "), score)
	}
	if score <= p.AgainstScore {
		v.Conviction = domain.Against
	}
	return v
}

// scoredVote traduce un score acotado a convicción, acción, tamaño y confianza.
func scoredVote(role domain.Role, score, ceiling float64, reason string, flags []string) domain.AgentVote {
	abs := math.Abs(score)
	v := domain.AgentVote{
		Role:         role,
		Conviction:   bucket(score),
		Action:       domain.ActionHold,
		Confidence:   math.Min(1, abs/strongThreshold),
		Reasoning:    reason,
		DissentFlags: flags,
	}
	switch {
	case score > actionThreshold:
		v.Action = domain.ActionLong
	case score < -actionThreshold:
		v.Action = domain.ActionShort
	}
	if v.Action != domain.ActionHold {
		v.SizeFraction = math.Min(abs*0.5, ceiling)
	}
	return v
}

func bucket(score float64) domain.Conviction {
	switch {
	case score > strongThreshold:
		return domain.StrongFor
	case score > normalThreshold:
		return domain.For
	case score < -strongThreshold:
		return domain.StrongAgainst
	case score < -normalThreshold:
		return domain.Against
	default:
		return domain.Abstain
	}
}

func abstain(role domain.Role, reason string) domain.AgentVote {
	return domain.AgentVote{
		Role:       role,
		Conviction: domain.Abstain,
		Action:     domain.ActionHold,
		Reasoning:  reason,
	}
}

// fallbackVote es el voto ABSTAIN/HOLD que se emite cuando un agente falla.
func fallbackVote(role domain.Role, err error) domain.AgentVote {
	msg := err.Error()
	if len(msg) > 80 {
		msg = msg[:80]
	}
	v := abstain(role, "agent failed: "+msg)
	v.DissentFlags = []string{"AGENT_ERROR:" + msg}
	return v
}
