// Package council reúne a los agentes sobre un world state y reduce sus votos
// a una decisión con un deadline estricto.
package council

// council.go: sesiones del consejo.
//
// Los cuatro agentes votan en paralelo; si no terminan antes del timeout la
// sesión devuelve un HOLD de emergencia sin votos. Un agente que falla (error
// o panic) nunca tumba la sesión: vota ABSTAIN/HOLD con el error en los flags.

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/alejandrodnm/polyfusion/internal/metrics"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 500 * time.Millisecond

// Evaluator sustituye el scoring integrado de un rol. Debe respetar ctx.
type Evaluator func(ctx context.Context, ws domain.WorldState) (domain.AgentVote, error)

// Config contiene el timeout de sesión y los parámetros de cada rol.
type Config struct {
	Timeout     time.Duration
	Sniper      SniperParams
	Narrative   NarrativeParams
	WhaleHunter WhaleHunterParams
	Doomer      DoomerParams
	Judge       JudgeParams
}

// DefaultConfig devuelve el consejo calibrado.
func DefaultConfig() Config {
	return Config{
		Timeout:     defaultTimeout,
		Sniper:      DefaultSniper(),
		Narrative:   DefaultNarrative(),
		WhaleHunter: DefaultWhaleHunter(),
		Doomer:      DefaultDoomer(),
		Judge:       DefaultJudge(),
	}
}

// Stats son los contadores de sesión del consejo.
type Stats struct {
	Sessions int64
	Approved int64
	Vetoes   int64
	Timeouts int64
}

type member struct {
	params Params
	eval   Evaluator // nil = scoring integrado
	errors atomic.Int64
}

// Council es dueño de los agentes y sus contadores. Admite sesiones concurrentes.
type Council struct {
	cfg     Config
	members []*member

	sessions atomic.Int64
	approved atomic.Int64
	vetoes   atomic.Int64
	timeouts atomic.Int64
}

// Option personaliza un Council.
type Option func(*Council)

// WithEvaluator usa fn en lugar del scoring integrado de role.
// Las garantías de fallback y timeout se mantienen.
func WithEvaluator(role domain.Role, fn Evaluator) Option {
	return func(c *Council) {
		for _, m := range c.members {
			if m.params.Role() == role {
				m.eval = fn
			}
		}
	}
}

// New crea un Council con los cuatro agentes.
func New(cfg Config, opts ...Option) *Council {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Judge.RoleWeights == nil {
		cfg.Judge = DefaultJudge()
	}
	c := &Council{
		cfg: cfg,
		members: []*member{
			{params: cfg.Sniper},
			{params: cfg.Narrative},
			{params: cfg.WhaleHunter},
			{params: cfg.Doomer},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Convene ejecuta una sesión y siempre devuelve una decisión: al vencer el
// deadline (o cancelarse ctx) es un HOLD de emergencia con confianza 0 y sin
// votos. Los votos rezagados se ignoran.
func (c *Council) Convene(ctx context.Context, ws domain.WorldState) domain.CouncilDecision {
	c.sessions.Add(1)
	metrics.CouncilSessions.Inc()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	votes := make([]domain.AgentVote, len(c.members))
	var g errgroup.Group
	for i, m := range c.members {
		g.Go(func() error {
			votes[i] = c.cast(ctx, m, ws)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		c.timeouts.Add(1)
		metrics.CouncilTimeouts.Inc()
		slog.Warn("council: session timed out",
			"market_id", ws.MarketID,
			"timeout", c.cfg.Timeout,
			"err", ctx.Err(),
		)
		return domain.CouncilDecision{
			ID:        uuid.NewString(),
			MarketID:  ws.MarketID,
			Action:    domain.ActionHold,
			TimedOut:  true,
			Reasoning: fmt.Sprintf("emergency hold: council timeout after %s", c.cfg.Timeout),
			DecidedAt: time.Now().UTC(),
		}
	}

	d := Adjudicate(c.cfg.Judge, ws.MarketID, votes)
	switch {
	case d.DoomerOverride:
		c.vetoes.Add(1)
		metrics.CouncilVetoes.Inc()
	case d.Approved():
		c.approved.Add(1)
		metrics.CouncilApproved.Inc()
	}

	slog.Debug("council: decision",
		"market_id", ws.MarketID,
		"action", d.Action,
		"size", d.SizeFraction,
		"confidence", d.Confidence,
		"consensus", d.ConsensusScore,
		"veto", d.DoomerOverride,
	)
	return d
}

// cast obtiene un voto; errores y panics se convierten en voto de fallback.
func (c *Council) cast(ctx context.Context, m *member, ws domain.WorldState) domain.AgentVote {
	start := time.Now()
	role := m.params.Role()

	vote, err := m.evaluate(ctx, ws)
	if err != nil {
		m.errors.Add(1)
		metrics.AgentFailures.WithLabelValues(string(role)).Inc()
		slog.Warn("council: agent failed",
			"role", role,
			"market_id", ws.MarketID,
			"err", err,
		)
		vote = fallbackVote(role, err)
	}
	vote.Role = role
	vote.Latency = time.Since(start)
	return vote
}

func (m *member) evaluate(ctx context.Context, ws domain.WorldState) (vote domain.AgentVote, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if m.eval != nil {
		return m.eval(ctx, ws)
	}
	return Evaluate(m.params, ws)
}

// Stats devuelve una copia de los contadores de sesión.
func (c *Council) Stats() Stats {
	return Stats{
		Sessions: c.sessions.Load(),
		Approved: c.approved.Load(),
		Vetoes:   c.vetoes.Load(),
		Timeouts: c.timeouts.Load(),
	}
}

// AgentErrors devuelve cuántas veces el agente de role cayó al fallback.
func (c *Council) AgentErrors(role domain.Role) int64 {
	for _, m := range c.members {
		if m.params.Role() == role {
			return m.errors.Load()
		}
	}
	return 0
}
