package domain

import "time"

// Role identifica a cada miembro del consejo.
type Role string

const (
	RoleSniper      Role = "sniper"
	RoleNarrative   Role = "narrative"
	RoleWhaleHunter Role = "whale_hunter"
	RoleDoomer      Role = "doomer"
	RoleJudge       Role = "judge"
)

// Conviction es el voto discreto de un agente, mapeado a -2..2.
type Conviction int

const (
	StrongAgainst Conviction = -2
	Against       Conviction = -1
	Abstain       Conviction = 0
	For           Conviction = 1
	StrongFor     Conviction = 2
)

func (c Conviction) String() string {
	switch c {
	case StrongAgainst:
		return "STRONG_AGAINST"
	case Against:
		return "AGAINST"
	case For:
		return "FOR"
	case StrongFor:
		return "STRONG_FOR"
	default:
		return "ABSTAIN"
	}
}

// Action es la acción recomendada.
type Action string

const (
	ActionLong  Action = "LONG"
	ActionShort Action = "SHORT"
	ActionHold  Action = "HOLD"
	ActionExit  Action = "EXIT"
)

// AgentVote es el voto de un agente en una sesión. No se muta tras crearse.
type AgentVote struct {
	Role         Role
	Conviction   Conviction
	Action       Action
	SizeFraction float64
	Confidence   float64 // [0, 1]
	Reasoning    string
	Latency      time.Duration
	DissentFlags []string
}

// CouncilDecision es la salida terminal de una sesión del consejo.
type CouncilDecision struct {
	ID             string
	MarketID       string
	Action         Action
	SizeFraction   float64
	Confidence     float64
	EdgeEstimate   float64
	Votes          []AgentVote
	ConsensusScore float64 // [0, 1]
	DoomerOverride bool
	TimedOut       bool
	Reasoning      string
	DecidedAt      time.Time
}

// Approved devuelve true si la decisión abre posición.
func (d CouncilDecision) Approved() bool {
	return d.Action == ActionLong || d.Action == ActionShort
}

// Vote devuelve el voto del rol dado, si existe.
func (d CouncilDecision) Vote(role Role) (AgentVote, bool) {
	for _, v := range d.Votes {
		if v.Role == role {
			return v, true
		}
	}
	return AgentVote{}, false
}
