// Package replay reproduce escenarios YAML como si fueran los feeds en vivo.
package replay

// replay.go: feed de escenarios grabados.
//
// Un escenario es una lista de eventos con offset relativo a start. Load valida
// y expande las series de ticks; Replay los entrega en orden temporal al sink.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidScenario se devuelve cuando un evento no se puede interpretar.
var ErrInvalidScenario = errors.New("replay: invalid scenario")

// DefaultHoursToResolution se usa cuando el escenario no declara
// portfolio.hours_to_resolution. Con 0 el Doomer vetaría todo por EXPIRY_LIMIT.
const DefaultHoursToResolution = 720.0

// Sink recibe los eventos del feed. La pipeline lo implementa.
type Sink interface {
	OnTick(domain.MarketTick)
	OnOrderBook(domain.OrderBook)
	OnHeadline(domain.Headline)
	OnSocial(domain.SocialMetrics)
	OnChain(domain.ChainFlow)
	OnConditionSet(domain.ConditionSet)
	OnDependency(a, b string, deps [][]bool)
	OnVenueQuote(domain.VenueQuote)
}

// Event es una entrada del escenario. Solo se leen los campos de su tipo.
type Event struct {
	Type   string        `yaml:"type"`
	After  time.Duration `yaml:"after"`
	Market string        `yaml:"market"`

	// tick / tick_series
	Mid        float64       `yaml:"mid"`
	Bid        float64       `yaml:"bid"`
	Ask        float64       `yaml:"ask"`
	DepthUSD   float64       `yaml:"depth_usd"`
	Volume1h   float64       `yaml:"volume_1h"`
	Volume24h  float64       `yaml:"volume_24h"`
	Trades     int           `yaml:"trades"`
	Count      int           `yaml:"count"`
	Step       time.Duration `yaml:"step"`
	From       float64       `yaml:"from"`
	To         float64       `yaml:"to"`
	HalfSpread float64       `yaml:"half_spread"`

	// book
	Bids [][2]float64 `yaml:"bids"`
	Asks [][2]float64 `yaml:"asks"`

	// headline
	Text string `yaml:"text"`

	// social
	Novelty     float64 `yaml:"novelty"`
	Credibility float64 `yaml:"credibility"`
	Sarcasm     float64 `yaml:"sarcasm"`
	TweetZ      float64 `yaml:"tweet_z"`
	Coherence   float64 `yaml:"coherence"`

	// chain
	SmartMoney    float64 `yaml:"smart_money"`
	Concentration float64 `yaml:"concentration"`
	Retail        float64 `yaml:"retail"`
	CrossSpread   float64 `yaml:"cross_spread_bps"`
	Gas           float64 `yaml:"gas_pct"`

	// condition_set
	Conditions []string  `yaml:"conditions"`
	Prices     []float64 `yaml:"prices"`
	Volumes    []float64 `yaml:"volumes"`

	// dependency
	Other  string   `yaml:"other"`
	Matrix [][]bool `yaml:"matrix"`

	// venue_quote
	VenueA  string  `yaml:"venue_a"`
	VenueB  string  `yaml:"venue_b"`
	PriceA  float64 `yaml:"price_a"`
	PriceB  float64 `yaml:"price_b"`
	FeeRate float64 `yaml:"fee_rate"`
}

// Portfolio es el estado de cartera estático del escenario.
// HoursToResolution es puntero para distinguir "omitido" de un 0 explícito.
type Portfolio struct {
	CurrentDrawdown    float64  `yaml:"current_drawdown"`
	CorrelatedExposure float64  `yaml:"correlated_exposure"`
	Leverage           float64  `yaml:"leverage"`
	SharpeRatio        float64  `yaml:"sharpe_ratio"`
	WinRate            float64  `yaml:"win_rate"`
	HoursToResolution  *float64 `yaml:"hours_to_resolution"`
	ImpliedVolatility  float64  `yaml:"implied_volatility"`
}

// Scenario es un escenario cargado y expandido, listo para reproducir.
// Implementa ports.PortfolioProvider.
type Scenario struct {
	Name     string    `yaml:"name"`
	Start    time.Time `yaml:"start"`
	Holdings Portfolio `yaml:"portfolio"`
	Events   []Event   `yaml:"events"`

	expanded []timedEvent
}

type timedEvent struct {
	at    time.Time
	event Event
}

// Load lee y valida un escenario desde disco.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("replay.Load: read %q: %w", path, err)
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("replay.Load: %q: %w", path, err)
	}
	return sc, nil
}

// Parse interpreta un escenario desde YAML.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("replay.Parse: parse YAML: %w", err)
	}
	if sc.Start.IsZero() {
		sc.Start = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	if sc.Holdings.HoursToResolution == nil {
		slog.Warn("replay: portfolio.hours_to_resolution missing, using default",
			"scenario", sc.Name,
			"hours", DefaultHoursToResolution,
		)
	}

	for i, ev := range sc.Events {
		if err := validate(ev); err != nil {
			return nil, fmt.Errorf("replay.Parse: event %d (%s): %w", i, ev.Type, err)
		}
		at := sc.Start.Add(ev.After)
		if ev.Type != "tick_series" {
			sc.expanded = append(sc.expanded, timedEvent{at: at, event: ev})
			continue
		}
		sc.expanded = append(sc.expanded, expandSeries(at, ev)...)
	}

	sort.SliceStable(sc.expanded, func(i, j int) bool {
		return sc.expanded[i].at.Before(sc.expanded[j].at)
	})
	return &sc, nil
}

// Len devuelve el número de eventos tras expandir las series.
func (s *Scenario) Len() int { return len(s.expanded) }

// End devuelve el instante del último evento.
func (s *Scenario) End() time.Time {
	if len(s.expanded) == 0 {
		return s.Start
	}
	return s.expanded[len(s.expanded)-1].at
}

// Replay entrega todos los eventos al sink en orden temporal.
func (s *Scenario) Replay(ctx context.Context, sink Sink) error {
	for i, te := range s.expanded {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("replay.Replay: %w", err)
			}
		}
		deliver(sink, te)
	}
	slog.Debug("replay: scenario delivered", "name", s.Name, "events", len(s.expanded))
	return nil
}

// Portfolio devuelve el estado de cartera declarado en el escenario.
func (s *Scenario) Portfolio(_ context.Context) (domain.PortfolioState, error) {
	p := s.Holdings
	hours := DefaultHoursToResolution
	if p.HoursToResolution != nil {
		hours = *p.HoursToResolution
	}
	return domain.PortfolioState{
		CurrentDrawdown:    p.CurrentDrawdown,
		CorrelatedExposure: p.CorrelatedExposure,
		Leverage:           p.Leverage,
		SharpeRatio:        p.SharpeRatio,
		WinRate:            p.WinRate,
		HoursToResolution:  hours,
		ImpliedVolatility:  p.ImpliedVolatility,
	}, nil
}

func validate(ev Event) error {
	switch ev.Type {
	case "tick", "book", "headline", "social", "chain", "condition_set":
		if ev.Market == "" {
			return fmt.Errorf("%w: missing market", ErrInvalidScenario)
		}
	case "tick_series":
		if ev.Market == "" || ev.Count <= 0 || ev.Step <= 0 {
			return fmt.Errorf("%w: tick_series needs market, count and step", ErrInvalidScenario)
		}
	case "dependency":
		if ev.Market == "" || ev.Other == "" || len(ev.Matrix) == 0 {
			return fmt.Errorf("%w: dependency needs market, other and matrix", ErrInvalidScenario)
		}
	case "venue_quote":
		if ev.Market == "" {
			return fmt.Errorf("%w: missing event id in market", ErrInvalidScenario)
		}
	default:
		return fmt.Errorf("%w: unknown event type", ErrInvalidScenario)
	}

	if ev.Type == "condition_set" && len(ev.Conditions) != len(ev.Prices) {
		return fmt.Errorf("%w: %d conditions but %d prices", ErrInvalidScenario, len(ev.Conditions), len(ev.Prices))
	}
	return nil
}

// expandSeries genera count ticks interpolando linealmente de From a To.
func expandSeries(at time.Time, ev Event) []timedEvent {
	out := make([]timedEvent, 0, ev.Count)
	half := ev.HalfSpread
	if half <= 0 {
		half = 0.005
	}
	for i := range ev.Count {
		mid := ev.From
		if ev.Count > 1 {
			mid += (ev.To - ev.From) * float64(i) / float64(ev.Count-1)
		}
		tick := ev
		tick.Type = "tick"
		tick.Mid = mid
		tick.Bid = mid - half
		tick.Ask = mid + half
		out = append(out, timedEvent{at: at.Add(time.Duration(i) * ev.Step), event: tick})
	}
	return out
}

func deliver(sink Sink, te timedEvent) {
	ev := te.event
	ms := te.at.UnixMilli()

	switch ev.Type {
	case "tick":
		mid := ev.Mid
		if mid == 0 && ev.Bid > 0 && ev.Ask > 0 {
			mid = (ev.Bid + ev.Ask) / 2
		}
		sink.OnTick(domain.MarketTick{
			MarketID:       ev.Market,
			TimestampMs:    ms,
			Mid:            mid,
			BestBid:        ev.Bid,
			BestAsk:        ev.Ask,
			BidDepthUSD:    ev.DepthUSD,
			AskDepthUSD:    ev.DepthUSD,
			Volume1hUSD:    ev.Volume1h,
			Volume24hUSD:   ev.Volume24h,
			TradeCount:     ev.Trades,
			LastTradePrice: mid,
		})
	case "book":
		sink.OnOrderBook(domain.OrderBook{
			MarketID:    ev.Market,
			TimestampMs: ms,
			Bids:        levels(ev.Bids),
			Asks:        levels(ev.Asks),
		})
	case "headline":
		sink.OnHeadline(domain.Headline{MarketID: ev.Market, Text: ev.Text, TimestampMs: ms})
	case "social":
		sink.OnSocial(domain.SocialMetrics{
			MarketID:           ev.Market,
			TimestampMs:        ms,
			Novelty:            ev.Novelty,
			Credibility:        ev.Credibility,
			SarcasmProb:        ev.Sarcasm,
			TweetVolumeZ:       ev.TweetZ,
			NarrativeCoherence: ev.Coherence,
		})
	case "chain":
		sink.OnChain(domain.ChainFlow{
			MarketID:            ev.Market,
			TimestampMs:         ms,
			SmartMoneyFlow:      ev.SmartMoney,
			WhaleConcentration:  ev.Concentration,
			RetailFlow:          ev.Retail,
			CrossPlatformSpread: ev.CrossSpread,
			GasCongestionPct:    ev.Gas,
		})
	case "condition_set":
		sink.OnConditionSet(domain.ConditionSet{
			MarketID:     ev.Market,
			ConditionIDs: ev.Conditions,
			YesPrices:    ev.Prices,
			VolumesUSD:   ev.Volumes,
			TimestampMs:  ms,
		})
	case "dependency":
		sink.OnDependency(ev.Market, ev.Other, ev.Matrix)
	case "venue_quote":
		sink.OnVenueQuote(domain.VenueQuote{
			EventID:     ev.Market,
			VenueA:      ev.VenueA,
			VenueB:      ev.VenueB,
			PriceA:      ev.PriceA,
			PriceB:      ev.PriceB,
			FeeRate:     ev.FeeRate,
			TimestampMs: ms,
		})
	}
}

func levels(raw [][2]float64) []domain.BookEntry {
	out := make([]domain.BookEntry, 0, len(raw))
	for _, l := range raw {
		out = append(out, domain.BookEntry{Price: l[0], Size: l[1]})
	}
	return out
}
