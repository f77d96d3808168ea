package replay_test

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/adapters/replay"
	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder implementa replay.Sink guardando todo lo recibido.
type recorder struct {
	order      []string
	ticks      []domain.MarketTick
	books      []domain.OrderBook
	headlines  []domain.Headline
	social     []domain.SocialMetrics
	chain      []domain.ChainFlow
	conditions []domain.ConditionSet
	deps       [][][]bool
	quotes     []domain.VenueQuote
}

func (r *recorder) OnTick(t domain.MarketTick) {
	r.order = append(r.order, "tick")
	r.ticks = append(r.ticks, t)
}
func (r *recorder) OnOrderBook(ob domain.OrderBook) {
	r.order = append(r.order, "book")
	r.books = append(r.books, ob)
}
func (r *recorder) OnHeadline(h domain.Headline) {
	r.order = append(r.order, "headline")
	r.headlines = append(r.headlines, h)
}
func (r *recorder) OnSocial(s domain.SocialMetrics) {
	r.order = append(r.order, "social")
	r.social = append(r.social, s)
}
func (r *recorder) OnChain(c domain.ChainFlow) {
	r.order = append(r.order, "chain")
	r.chain = append(r.chain, c)
}
func (r *recorder) OnConditionSet(cs domain.ConditionSet) {
	r.order = append(r.order, "condition_set")
	r.conditions = append(r.conditions, cs)
}
func (r *recorder) OnDependency(a, b string, deps [][]bool) {
	r.order = append(r.order, "dependency:"+a+"/"+b)
	r.deps = append(r.deps, deps)
}
func (r *recorder) OnVenueQuote(q domain.VenueQuote) {
	r.order = append(r.order, "venue_quote")
	r.quotes = append(r.quotes, q)
}

func TestLoad_ScenarioA(t *testing.T) {
	sc, err := replay.Load("testdata/scenario_a.yaml")
	require.NoError(t, err)

	assert.Equal(t, "rising-market", sc.Name)
	// 1 book + 20 ticks + condition set + venue quote
	assert.Equal(t, 23, sc.Len())
	assert.Equal(t, time.Date(2026, 5, 4, 12, 0, 19, 0, time.UTC), sc.End())

	rec := &recorder{}
	require.NoError(t, sc.Replay(context.Background(), rec))

	require.Len(t, rec.ticks, 20)
	first, last := rec.ticks[0], rec.ticks[19]
	assert.InDelta(t, 0.50, first.Mid, 1e-9)
	assert.InDelta(t, 0.51, last.Mid, 1e-9)
	assert.InDelta(t, 0.50875, last.BestBid, 1e-9)
	assert.InDelta(t, 0.51125, last.BestAsk, 1e-9)
	assert.Equal(t, int64(19_000), last.TimestampMs-first.TimestampMs)
	assert.Equal(t, 20000.0, first.BidDepthUSD)

	require.Len(t, rec.books, 1)
	assert.InDelta(t, 0.6, rec.books[0].Imbalance(5), 1e-9)

	require.Len(t, rec.conditions, 1)
	assert.Equal(t, []string{"alice", "bob", "carol"}, rec.conditions[0].ConditionIDs)
	assert.Equal(t, 3000.0, rec.conditions[0].MinVolume())

	require.Len(t, rec.quotes, 1)
	assert.Equal(t, "fed-cut-june", rec.quotes[0].EventID)
	assert.Equal(t, 0.02, rec.quotes[0].FeeRate)
}

func TestReplay_OrderedByTime(t *testing.T) {
	sc, err := replay.Load("testdata/scenario_a.yaml")
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, sc.Replay(context.Background(), rec))

	// el book va a t=0 y el condition set (t=5s) cae entre los ticks
	assert.Equal(t, "book", rec.order[0])
	idx := indexOf(rec.order, "condition_set")
	assert.Greater(t, idx, 1)
	assert.Equal(t, "venue_quote", rec.order[len(rec.order)-10])
}

func TestReplay_EveryEventType(t *testing.T) {
	sc, err := replay.Load("testdata/full.yaml")
	require.NoError(t, err)

	rec := &recorder{}
	require.NoError(t, sc.Replay(context.Background(), rec))

	require.Len(t, rec.ticks, 2)
	// el tick sin offset sale antes que el de t=2s
	assert.InDelta(t, 0.40, rec.ticks[0].Mid, 1e-9)
	assert.InDelta(t, 0.40, rec.ticks[1].Mid, 1e-9, "mid derived from bid/ask")
	assert.Equal(t, 500.0, rec.ticks[1].Volume1hUSD)

	require.Len(t, rec.books, 1)
	assert.Len(t, rec.books[0].Bids, 2)

	require.Len(t, rec.headlines, 1)
	assert.Equal(t, "Senate passes the bill", rec.headlines[0].Text)

	require.Len(t, rec.social, 1)
	assert.Equal(t, 0.9, rec.social[0].Credibility)
	assert.Equal(t, 2.5, rec.social[0].TweetVolumeZ)

	require.Len(t, rec.chain, 1)
	assert.Equal(t, 0.6, rec.chain[0].SmartMoneyFlow)
	assert.Equal(t, 30.0, rec.chain[0].GasCongestionPct)

	assert.Len(t, rec.conditions, 2)
	require.Len(t, rec.deps, 1)
	assert.Contains(t, rec.order, "dependency:a/b")
	require.Len(t, rec.deps[0], 4)
	assert.True(t, rec.deps[0][0][2])
	assert.False(t, rec.deps[0][1][3])

	require.Len(t, rec.quotes, 1)
}

func TestScenario_Portfolio(t *testing.T) {
	sc, err := replay.Load("testdata/scenario_a.yaml")
	require.NoError(t, err)

	pf, err := sc.Portfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.02, pf.CurrentDrawdown)
	assert.Equal(t, 0.58, pf.WinRate)
	assert.Equal(t, 240.0, pf.HoursToResolution)
}

func TestScenario_PortfolioDefaultsHoursToResolution(t *testing.T) {
	sc, err := replay.Parse([]byte("portfolio:\n  current_drawdown: 0.05\nevents: []\n"))
	require.NoError(t, err)

	pf, err := sc.Portfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.05, pf.CurrentDrawdown)
	assert.Equal(t, replay.DefaultHoursToResolution, pf.HoursToResolution)
}

func TestScenario_PortfolioKeepsExplicitZeroHours(t *testing.T) {
	sc, err := replay.Parse([]byte("portfolio:\n  hours_to_resolution: 0\nevents: []\n"))
	require.NoError(t, err)

	pf, err := sc.Portfolio(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.0, pf.HoursToResolution)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown type":      "events:\n  - type: rumour\n    market: m\n",
		"missing market":    "events:\n  - type: tick\n    mid: 0.5\n",
		"series no step":    "events:\n  - type: tick_series\n    market: m\n    count: 3\n",
		"dependency matrix": "events:\n  - type: dependency\n    market: a\n    other: b\n",
		"price mismatch":    "events:\n  - type: condition_set\n    market: m\n    conditions: [a, b]\n    prices: [0.5]\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := replay.Parse([]byte(doc))
			assert.ErrorIs(t, err, replay.ErrInvalidScenario)
		})
	}
}

func TestParse_BadYAML(t *testing.T) {
	_, err := replay.Parse([]byte("events: [: :"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := replay.Load("testdata/nope.yaml")
	assert.Error(t, err)
}

func TestReplay_CancelledContext(t *testing.T) {
	sc, err := replay.Load("testdata/scenario_a.yaml")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = sc.Replay(ctx, &recorder{})
	assert.ErrorIs(t, err, context.Canceled)
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
