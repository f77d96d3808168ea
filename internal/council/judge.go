package council

import (
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/google/uuid"
)

// Adjudicate reduce los votos de una sesión a una decisión. Corre de forma
// síncrona cuando todos los agentes han votado.
func Adjudicate(p JudgeParams, marketID string, votes []domain.AgentVote) domain.CouncilDecision {
	d := domain.CouncilDecision{
		ID:        uuid.NewString(),
		MarketID:  marketID,
		Action:    domain.ActionHold,
		Votes:     votes,
		DecidedAt: time.Now().UTC(),
	}

	for _, v := range votes {
		if v.Role == domain.RoleDoomer && v.Conviction <= domain.Against {
			d.DoomerOverride = true
			d.Confidence = 1.0
			d.Reasoning = v.Reasoning
			return d
		}
	}

	var num, den, convSum float64
	var active int
	for _, v := range votes {
		w := p.RoleWeights[v.Role]
		num += float64(v.Conviction) * v.Confidence * w
		den += v.Confidence * w
		if v.Conviction != domain.Abstain {
			convSum += float64(v.Conviction)
			active++
		}
	}
	var avg float64
	if den > 0 {
		avg = num / den
	}
	var consensus float64
	if active > 0 {
		consensus = math.Abs(convSum) / float64(active)
	}

	d.ConsensusScore = domain.Clamp(consensus/2, 0, 1)
	d.EdgeEstimate = avg * p.EdgePerUnit

	if consensus < p.MinConsensus {
		d.Reasoning = fmt.Sprintf("low consensus %.2f (%d active votes)", consensus, active)
		return d
	}

	d.Confidence = activeConfidence(votes)
	switch {
	case avg > p.ActionLevel:
		d.Action = domain.ActionLong
	case avg < -p.ActionLevel:
		d.Action = domain.ActionShort
	}
	if d.Action != domain.ActionHold {
		d.SizeFraction = math.Min(math.Abs(avg)*p.SizePerUnit, p.MaxSize)
	}
	d.Reasoning = fmt.Sprintf("avg conviction %.2f, consensus %.2f over %d votes", avg, consensus, active)
	return d
}

// activeConfidence es la confianza media de los votos que no se abstienen.
func activeConfidence(votes []domain.AgentVote) float64 {
	var sum float64
	var n int
	for _, v := range votes {
		if v.Conviction == domain.Abstain {
			continue
		}
		sum += v.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
