package pipeline

// concurrent.go: worker pool para evaluar mercados en paralelo.
//
// Cada worker calcula features, señal del modelo y convoca al consejo para un
// mercado. Las sesiones del consejo pasan por el rate limiter.

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/alejandrodnm/polyfusion/internal/model"
	"golang.org/x/sync/errgroup"
)

// evaluation es el resultado de evaluar un mercado en un ciclo.
type evaluation struct {
	marketID string
	signal   domain.SignalOutput
	decision domain.CouncilDecision
	decided  bool
}

// evaluateConcurrent evalúa todos los mercados usando un pool de workers.
// Los mercados sin datos suficientes se omiten. El orden del resultado es el
// de markets.
//
// Si workers <= 0 usa runtime.NumCPU() × 2.
func (p *Pipeline) evaluateConcurrent(ctx context.Context, markets []string, pf domain.PortfolioState) ([]evaluation, error) {
	workers := p.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU() * 2
	}

	results := make([]evaluation, len(markets))
	ok := make([]bool, len(markets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range markets {
		g.Go(func() error {
			ev, valid, err := p.evaluate(gctx, id, pf)
			if err != nil {
				return err
			}
			results[i], ok[i] = ev, valid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline.evaluateConcurrent: %w", err)
	}

	evals := make([]evaluation, 0, len(markets))
	for i := range results {
		if ok[i] {
			evals = append(evals, results[i])
		}
	}

	slog.Debug("concurrent evaluation complete",
		"markets_queued", len(markets),
		"evaluated", len(evals),
		"workers", workers,
	)
	return evals, nil
}

// evaluate corre features → modelo → consejo para un mercado.
func (p *Pipeline) evaluate(ctx context.Context, marketID string, pf domain.PortfolioState) (evaluation, bool, error) {
	fv := p.core.Features.Compute(marketID)
	if !fv.IsValid {
		return evaluation{}, false, nil
	}

	p.mu.Lock()
	social, hasSocial := p.social[marketID]
	chain, hasChain := p.chain[marketID]
	p.mu.Unlock()

	var narr *domain.NarrativeSignal
	ns := p.core.Narrative.Compute(marketID, domain.MsToTime(fv.TimestampMs))
	if !ns.IsNull() {
		narr = &ns
	}

	var whale *bool
	if hasChain && chain.SmartMoneyFlow != 0 {
		dir := domain.Sign(model.StructProbability(fv) - fv.MidPrice)
		if dir != 0 {
			aligned := domain.Sign(chain.SmartMoneyFlow) == dir
			whale = &aligned
		}
	}

	signal := p.core.Model.ComputeSignal(fv, narr, whale)
	ev := evaluation{marketID: marketID, signal: signal}

	if err := p.limiter.Wait(ctx); err != nil {
		return evaluation{}, false, fmt.Errorf("session throttle: %w", err)
	}

	ws := domain.WorldState{
		MarketID:       marketID,
		TimestampMs:    fv.TimestampMs,
		MidPrice:       fv.MidPrice,
		Microstructure: p.core.Features.Microstructure(marketID),
		Narrative: domain.NarrativeState{
			Sentiment:     fv.Sentiment,
			VelocityIndex: ns.VelocityIndex,
		},
		Portfolio: pf,
	}
	if hasSocial {
		ws.Narrative.Novelty = social.Novelty
		ws.Narrative.Credibility = social.Credibility
		ws.Narrative.SarcasmProb = social.SarcasmProb
		ws.Narrative.TweetVolumeZ = social.TweetVolumeZ
		ws.Narrative.NarrativeCoherence = social.NarrativeCoherence
	}
	if hasChain {
		ws.OnChain = domain.OnChainState{
			SmartMoneyFlow:      chain.SmartMoneyFlow,
			WhaleConcentration:  chain.WhaleConcentration,
			RetailFlow:          chain.RetailFlow,
			CrossPlatformSpread: chain.CrossPlatformSpread,
			GasCongestionPct:    chain.GasCongestionPct,
		}
	}
	if ws.Portfolio.ImpliedVolatility == 0 {
		ws.Portfolio.ImpliedVolatility = fv.ImpliedVolatility
	}

	ev.decision = p.core.Council.Convene(ctx, ws)
	ev.decided = true
	return ev, true, nil
}
