// Package pipeline orquesta el ciclo de decisión: ingesta → features → modelo
// → consejo → dimensionado Kelly → diario y notificación.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/arbitrage"
	"github.com/alejandrodnm/polyfusion/internal/council"
	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/alejandrodnm/polyfusion/internal/features"
	"github.com/alejandrodnm/polyfusion/internal/metrics"
	"github.com/alejandrodnm/polyfusion/internal/model"
	"github.com/alejandrodnm/polyfusion/internal/narrative"
	"github.com/alejandrodnm/polyfusion/internal/ports"
	"github.com/alejandrodnm/polyfusion/internal/risk"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Config contiene la configuración de la pipeline.
type Config struct {
	Interval          time.Duration
	Workers           int     // goroutines para evaluar mercados (0 = NumCPU*2)
	SessionsPerSecond float64 // límite de sesiones del consejo
	SessionBurst      int
	Bankroll          decimal.Decimal // USD
	StopLossPct       float64
	TakeProfitEdge    float64
	Once              bool
}

// DefaultConfig devuelve una configuración conservadora.
func DefaultConfig() Config {
	return Config{
		Interval:          30 * time.Second,
		SessionsPerSecond: 50,
		SessionBurst:      10,
		Bankroll:          decimal.NewFromInt(10_000),
		StopLossPct:       0.10,
		TakeProfitEdge:    0.005,
	}
}

// Components son los módulos del core que la pipeline encadena.
type Components struct {
	Features     *features.Engine
	Narrative    *narrative.Tracker
	Model        *model.Model
	Council      *council.Council
	Risk         *risk.Manager
	Arbitrage    *arbitrage.Detector
	Correlations *risk.CorrelationTracker
}

// position es una posición abierta por un intent, vigilada por su trailing stop.
type position struct {
	action domain.Action
	stop   *risk.TrailingStop
}

type dependency struct {
	a, b string
	deps [][]bool
}

// Pipeline implementa el sink de los feeds y ejecuta los ciclos de decisión.
// Es segura para uso concurrente: los feeds pueden empujar datos mientras
// corre un ciclo.
type Pipeline struct {
	cfg       Config
	core      Components
	store     ports.DecisionStore
	notifier  ports.Notifier
	portfolio ports.PortfolioProvider
	limiter   *rate.Limiter

	mu         sync.Mutex
	social     map[string]domain.SocialMetrics
	chain      map[string]domain.ChainFlow
	conditions map[string]domain.ConditionSet
	deps       []dependency
	quotes     map[string]domain.VenueQuote
	positions  map[string]*position
	exits      []domain.ExitEvent
}

// New crea una Pipeline. store puede ser nil (dry-run).
func New(
	cfg Config,
	core Components,
	store ports.DecisionStore,
	notifier ports.Notifier,
	portfolio ports.PortfolioProvider,
) *Pipeline {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.SessionsPerSecond <= 0 {
		cfg.SessionsPerSecond = def.SessionsPerSecond
	}
	if cfg.SessionBurst <= 0 {
		cfg.SessionBurst = def.SessionBurst
	}
	if cfg.StopLossPct <= 0 {
		cfg.StopLossPct = def.StopLossPct
	}
	if cfg.TakeProfitEdge <= 0 {
		cfg.TakeProfitEdge = def.TakeProfitEdge
	}
	if cfg.Bankroll.IsZero() {
		cfg.Bankroll = def.Bankroll
	}
	if core.Features == nil {
		core.Features = features.New(features.DefaultConfig(), nil)
	}
	if core.Narrative == nil {
		core.Narrative = narrative.New(narrative.DefaultConfig())
	}
	if core.Model == nil {
		core.Model = model.New(model.DefaultConfig())
	}
	if core.Council == nil {
		core.Council = council.New(council.DefaultConfig())
	}
	if core.Risk == nil {
		core.Risk = risk.NewManager(risk.DefaultConfig())
	}
	if core.Arbitrage == nil {
		core.Arbitrage = arbitrage.NewDetector(arbitrage.DefaultConfig())
	}
	if core.Correlations == nil {
		core.Correlations = risk.NewCorrelationTracker(0, 0)
	}

	return &Pipeline{
		cfg:        cfg,
		core:       core,
		store:      store,
		notifier:   notifier,
		portfolio:  portfolio,
		limiter:    rate.NewLimiter(rate.Limit(cfg.SessionsPerSecond), cfg.SessionBurst),
		social:     make(map[string]domain.SocialMetrics),
		chain:      make(map[string]domain.ChainFlow),
		conditions: make(map[string]domain.ConditionSet),
		quotes:     make(map[string]domain.VenueQuote),
		positions:  make(map[string]*position),
	}
}

// Run ejecuta ciclos hasta que el contexto se cancele.
// Si cfg.Once está activo, solo ejecuta un ciclo.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("pipeline starting",
		"interval", p.cfg.Interval,
		"once", p.cfg.Once,
		"workers", p.cfg.Workers,
	)

	if _, err := p.RunOnce(ctx); err != nil {
		slog.Error("decision cycle failed", "err", err)
		if p.cfg.Once {
			return err
		}
	}

	if p.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline stopped")
			return nil
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				slog.Error("decision cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta un ciclo completo, lo persiste y lo notifica.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.CycleReport, error) {
	start := time.Now()

	report, err := p.cycle(ctx)
	if err != nil {
		return domain.CycleReport{}, err
	}
	report.StartedAt = start
	report.Duration = time.Since(start)
	metrics.DecisionCycles.Observe(report.Duration.Seconds())

	if p.notifier != nil {
		if err := p.notifier.Notify(ctx, report); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}
	if p.store != nil {
		if err := p.store.SaveCycle(ctx, report); err != nil {
			slog.Warn("storage error", "err", err)
		}
	}

	slog.Info("decision cycle complete",
		"signals", len(report.Signals),
		"approved", report.ApprovedCount(),
		"vetoes", report.VetoCount(),
		"intents", len(report.Intents),
		"exits", len(report.Exits),
		"duration", report.Duration.Round(time.Microsecond),
	)
	return report, nil
}

// cycle evalúa mercados → dimensiona → detecta arbitrajes.
func (p *Pipeline) cycle(ctx context.Context) (domain.CycleReport, error) {
	var pf domain.PortfolioState
	if p.portfolio != nil {
		var err error
		pf, err = p.portfolio.Portfolio(ctx)
		if err != nil {
			return domain.CycleReport{}, fmt.Errorf("pipeline.cycle: portfolio: %w", err)
		}
	}

	evals, err := p.evaluateConcurrent(ctx, p.core.Features.Markets(), pf)
	if err != nil {
		return domain.CycleReport{}, err
	}

	var report domain.CycleReport
	for _, ev := range evals {
		report.Signals = append(report.Signals, ev.signal)
		if ev.decided {
			report.Decisions = append(report.Decisions, ev.decision)
		}
	}

	// take-profit solo sobre posiciones de ciclos anteriores; un mercado que
	// sale en este ciclo no se vuelve a dimensionar hasta el siguiente
	p.checkTakeProfit(evals)
	report.Kelly, report.Intents = p.size(evals, pf, p.exitedMarkets())
	p.openPositions(report.Intents)

	report.Arbitrage = p.detectArbitrage()
	report.CrossVenue = p.crossVenue()

	p.mu.Lock()
	report.Exits = p.exits
	p.exits = nil
	p.mu.Unlock()

	return report, nil
}

// size calcula los pesos Kelly sobre las decisiones aprobadas cuya señal es
// tradeable y los traduce a intents en USD. El consejo no puede saltarse el
// filtro del modelo (min_edge, min_confidence, max_spread).
func (p *Pipeline) size(evals []evaluation, pf domain.PortfolioState, exited map[string]bool) (domain.KellyWeights, []domain.OrderIntent) {
	var (
		markets []string
		edges   []float64
		probs   []float64
		byID    = make(map[string]evaluation)
	)
	for _, ev := range evals {
		if !ev.decided || !ev.decision.Approved() || exited[ev.marketID] {
			continue
		}
		if !ev.signal.Tradeable {
			slog.Debug("pipeline: approved decision not tradeable",
				"market_id", ev.marketID,
				"action", ev.decision.Action,
				"edge", ev.signal.Edge,
				"confidence", ev.signal.Confidence,
			)
			continue
		}
		edge := ev.signal.Edge
		if ev.decision.Action == domain.ActionShort {
			edge = -edge
		}
		markets = append(markets, ev.marketID)
		edges = append(edges, edge)
		probs = append(probs, ev.signal.FinalProbability)
		byID[ev.marketID] = ev
	}
	if len(markets) == 0 {
		return domain.KellyWeights{Weights: map[string]float64{}}, nil
	}

	cov := risk.Covariance(markets, probs, p.core.Correlations)
	kelly := p.core.Risk.KellyWeights(markets, edges, cov, pf.CurrentDrawdown)

	var intents []domain.OrderIntent
	for _, id := range markets {
		w := kelly.Weight(id)
		notional := risk.PlanNotional(p.cfg.Bankroll, w)
		if !notional.IsPositive() {
			continue
		}
		ev := byID[id]
		intents = append(intents, domain.OrderIntent{
			ID:         uuid.NewString(),
			DecisionID: ev.decision.ID,
			MarketID:   id,
			Action:     ev.decision.Action,
			Weight:     w,
			Notional:   notional,
			EntryPrice: ev.signal.MarketPrice,
		})
	}
	return kelly, intents
}

// openPositions arma un trailing stop por cada intent nuevo.
// Las posiciones ya abiertas se mantienen.
func (p *Pipeline) openPositions(intents []domain.OrderIntent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, in := range intents {
		if _, ok := p.positions[in.MarketID]; ok {
			continue
		}
		entry := sidePrice(in.Action, in.EntryPrice)
		p.positions[in.MarketID] = &position{
			action: in.Action,
			stop:   risk.NewTrailingStop(entry, p.cfg.StopLossPct, p.cfg.TakeProfitEdge),
		}
		slog.Debug("pipeline: position opened",
			"market_id", in.MarketID,
			"action", in.Action,
			"entry", entry,
		)
	}
}

// checkTakeProfit cierra las posiciones cuyo edge ya se ha consumido.
func (p *Pipeline) checkTakeProfit(evals []evaluation) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range evals {
		pos, ok := p.positions[ev.marketID]
		if !ok || ev.signal.MarketPrice <= 0 {
			continue
		}
		edge := ev.signal.Edge
		if pos.action == domain.ActionShort {
			edge = -edge
		}
		price := sidePrice(pos.action, ev.signal.MarketPrice)
		if hit, reason := pos.stop.UpdateWithEdge(price, edge); hit {
			p.closePosition(ev.marketID, pos, reason, price, ev.signal.TimestampMs)
		}
	}
}

// exitedMarkets devuelve los mercados con salidas pendientes de reportar.
func (p *Pipeline) exitedMarkets() map[string]bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]bool, len(p.exits))
	for _, e := range p.exits {
		out[e.MarketID] = true
	}
	return out
}

// closePosition registra la salida. Debe llamarse con p.mu tomado.
func (p *Pipeline) closePosition(marketID string, pos *position, reason domain.ExitReason, price float64, ts int64) {
	p.exits = append(p.exits, domain.ExitEvent{
		MarketID:      marketID,
		Reason:        reason,
		Price:         price,
		HighWaterMark: pos.stop.HighWaterMark(),
		TimestampMs:   ts,
	})
	delete(p.positions, marketID)
	slog.Info("pipeline: exit triggered",
		"market_id", marketID,
		"reason", reason,
		"price", price,
		"hwm", pos.stop.HighWaterMark(),
	)
}

// OpenPositions devuelve los mercados con posición abierta, ordenados.
func (p *Pipeline) OpenPositions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.positions))
	for id := range p.positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// detectArbitrage corre rebalanceo por cada condition set y combinatorio por
// cada dependencia declarada.
func (p *Pipeline) detectArbitrage() []domain.ArbitrageOpportunity {
	p.mu.Lock()
	sets := make([]domain.ConditionSet, 0, len(p.conditions))
	for _, cs := range p.conditions {
		sets = append(sets, cs)
	}
	deps := append([]dependency(nil), p.deps...)
	byID := make(map[string]domain.ConditionSet, len(p.conditions))
	for id, cs := range p.conditions {
		byID[id] = cs
	}
	p.mu.Unlock()

	sort.Slice(sets, func(i, j int) bool { return sets[i].MarketID < sets[j].MarketID })

	var out []domain.ArbitrageOpportunity
	for _, cs := range sets {
		opp := p.core.Arbitrage.DetectRebalancing(cs.MarketID, cs.ConditionIDs, cs.YesPrices, cs.VolumesUSD)
		if opp.Found() {
			out = append(out, opp)
		}
	}
	for _, d := range deps {
		a, okA := byID[d.a]
		b, okB := byID[d.b]
		if !okA || !okB {
			continue
		}
		opp, err := p.core.Arbitrage.DetectCombinatorial(a, b, d.deps)
		if err != nil {
			slog.Warn("pipeline: combinatorial detection failed",
				"a", d.a,
				"b", d.b,
				"err", err,
			)
			continue
		}
		if opp.Found() {
			out = append(out, opp)
		}
	}
	return out
}

// crossVenue evalúa cada evento cotizado en dos venues.
func (p *Pipeline) crossVenue() map[string]domain.CrossVenueArb {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.quotes) == 0 {
		return nil
	}
	out := make(map[string]domain.CrossVenueArb, len(p.quotes))
	for id, q := range p.quotes {
		out[id] = risk.DetectCrossVenueArb(q.PriceA, q.PriceB, q.FeeRate)
	}
	return out
}

// sidePrice es el precio del lado comprado: YES para LONG, NO para SHORT.
func sidePrice(action domain.Action, yes float64) float64 {
	if action == domain.ActionShort {
		return 1 - yes
	}
	return yes
}
