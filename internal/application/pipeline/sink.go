package pipeline

// sink.go: entrada de los feeds. Cada método enruta un registro a los módulos
// que lo consumen; ninguno bloquea más allá de los locks por mercado.

import (
	"log/slog"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// OnTick alimenta el FeatureEngine, el tracker de correlaciones y los
// trailing stops de las posiciones abiertas.
func (p *Pipeline) OnTick(t domain.MarketTick) {
	p.core.Features.IngestTick(t)

	price := t.Mid
	if price <= 0 {
		price = t.LastTradePrice
	}
	if price <= 0 {
		return
	}
	p.core.Correlations.Update(t.MarketID, price, t.Time())

	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.positions[t.MarketID]
	if !ok {
		return
	}
	side := sidePrice(pos.action, price)
	if hit, reason := pos.stop.Update(side); hit {
		p.closePosition(t.MarketID, pos, reason, side, t.TimestampMs)
	}
}

// OnOrderBook reemplaza el último book del mercado.
func (p *Pipeline) OnOrderBook(ob domain.OrderBook) {
	p.core.Features.IngestOrderBook(ob)
}

// OnHeadline puntúa el titular para el sentimiento y alimenta la narrativa.
func (p *Pipeline) OnHeadline(h domain.Headline) {
	ts := domain.MsToTime(h.TimestampMs)
	p.core.Features.IngestHeadline(h.Text, ts, h.MarketID)
	p.core.Narrative.Ingest(h.Text, h.MarketID, ts)
}

// OnSocial guarda las métricas sociales más recientes del mercado.
func (p *Pipeline) OnSocial(s domain.SocialMetrics) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.social[s.MarketID]; ok && prev.TimestampMs > s.TimestampMs {
		return
	}
	p.social[s.MarketID] = s
}

// OnChain guarda el último resumen on-chain del mercado.
func (p *Pipeline) OnChain(c domain.ChainFlow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.chain[c.MarketID]; ok && prev.TimestampMs > c.TimestampMs {
		return
	}
	p.chain[c.MarketID] = c
}

// OnConditionSet guarda los precios YES de un mercado multi-resultado.
func (p *Pipeline) OnConditionSet(cs domain.ConditionSet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conditions[cs.MarketID] = cs
}

// OnDependency declara la matriz de dependencias lógicas entre dos mercados
// multi-resultado. Una nueva declaración del mismo par reemplaza la anterior.
func (p *Pipeline) OnDependency(a, b string, deps [][]bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, d := range p.deps {
		if d.a == a && d.b == b {
			p.deps[i].deps = deps
			return
		}
	}
	p.deps = append(p.deps, dependency{a: a, b: b, deps: deps})
	slog.Debug("pipeline: dependency registered", "a", a, "b", b)
}

// OnVenueQuote guarda la cotización cruzada más reciente de un evento.
func (p *Pipeline) OnVenueQuote(q domain.VenueQuote) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[q.EventID] = q
}
