// Package features convierte ticks, order books y titulares en el vector de
// features fijo por mercado que consume el modelo de probabilidad.
package features

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/alejandrodnm/polyfusion/internal/metrics"
	"github.com/alejandrodnm/polyfusion/internal/sentiment"
	"github.com/alejandrodnm/polyfusion/internal/series"
)

const minutesPerYear = 525600.0

// Config controla las ventanas y los umbrales fail-fast del engine.
type Config struct {
	MinDataPoints       int           // precios mínimos antes de calcular nada
	BookLevels          int           // top-N niveles para imbalance y profundidad
	HistoryCapacity     int           // capacidad del ring buffer por mercado
	VolatilityWindow    time.Duration // ventana para la std de log-returns
	MomentumWindow      time.Duration
	SentimentHalfLife   time.Duration
	MaxHeadlines        int
	MeanReversionWindow int // muestras para el z-score de reversión a la media
	LatencyBudget       time.Duration
}

// DefaultConfig devuelve los valores de producción.
func DefaultConfig() Config {
	return Config{
		MinDataPoints:       10,
		BookLevels:          5,
		HistoryCapacity:     10_000,
		VolatilityWindow:    60 * time.Minute,
		MomentumWindow:      time.Hour,
		SentimentHalfLife:   4 * time.Hour,
		MaxHeadlines:        1000,
		MeanReversionWindow: 60,
		LatencyBudget:       5 * time.Millisecond,
	}
}

type scoredHeadline struct {
	ts       int64
	compound float64
}

// marketState es el estado por mercado. Su mutex hace cada mercado single-writer.
type marketState struct {
	mu        sync.Mutex
	prices    *series.RingBuffer
	stamps    *series.RingBuffer // ms, paralelo a prices
	volumes   *series.RingBuffer
	lastTick  domain.MarketTick
	book      domain.OrderBook
	hasBook   bool
	headlines []scoredHeadline
}

// Engine ingiere datos de mercado y calcula el vector de features de cada uno.
type Engine struct {
	cfg     Config
	scorer  *sentiment.Scorer
	mu      sync.RWMutex
	markets map[string]*marketState
}

// New crea un Engine que puntúa los titulares con scorer.
func New(cfg Config, scorer *sentiment.Scorer) *Engine {
	def := DefaultConfig()
	if cfg.MinDataPoints <= 0 {
		cfg.MinDataPoints = def.MinDataPoints
	}
	if cfg.BookLevels <= 0 {
		cfg.BookLevels = def.BookLevels
	}
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.VolatilityWindow <= 0 {
		cfg.VolatilityWindow = def.VolatilityWindow
	}
	if cfg.MomentumWindow <= 0 {
		cfg.MomentumWindow = def.MomentumWindow
	}
	if cfg.SentimentHalfLife <= 0 {
		cfg.SentimentHalfLife = def.SentimentHalfLife
	}
	if cfg.MaxHeadlines <= 0 {
		cfg.MaxHeadlines = def.MaxHeadlines
	}
	if cfg.MeanReversionWindow <= 1 {
		cfg.MeanReversionWindow = def.MeanReversionWindow
	}
	if cfg.LatencyBudget <= 0 {
		cfg.LatencyBudget = def.LatencyBudget
	}
	if scorer == nil {
		scorer = sentiment.New()
	}
	return &Engine{cfg: cfg, scorer: scorer, markets: make(map[string]*marketState)}
}

// state devuelve el estado del mercado, creándolo en el primer uso.
func (e *Engine) state(marketID string) *marketState {
	e.mu.RLock()
	st, ok := e.markets[marketID]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.markets[marketID]; ok {
		return st
	}
	st = &marketState{
		prices:  series.New(e.cfg.HistoryCapacity),
		stamps:  series.New(e.cfg.HistoryCapacity),
		volumes: series.New(e.cfg.HistoryCapacity),
	}
	e.markets[marketID] = st
	return st
}

// lookup devuelve el estado del mercado sin crearlo.
func (e *Engine) lookup(marketID string) (*marketState, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	st, ok := e.markets[marketID]
	return st, ok
}

// Markets devuelve los IDs de mercado seguidos, ordenados.
func (e *Engine) Markets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.markets))
	for id := range e.markets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// IngestTick añade un tick a la serie del mercado. O(1).
func (e *Engine) IngestTick(t domain.MarketTick) {
	st := e.state(t.MarketID)
	st.mu.Lock()
	defer st.mu.Unlock()

	price := t.Mid
	if price <= 0 {
		price = t.LastTradePrice
	}
	st.prices.Append(price)
	st.stamps.Append(float64(t.TimestampMs))
	st.volumes.Append(t.Volume1hUSD)
	st.lastTick = t
}

// IngestOrderBook reemplaza el último book del mercado.
func (e *Engine) IngestOrderBook(ob domain.OrderBook) {
	st := e.state(ob.MarketID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.book = ob
	st.hasBook = true
}

// IngestHeadline puntúa el texto una vez y lo guarda para el sentimiento con decay.
// El histórico se limita a MaxHeadlines por mercado; se descartan los más viejos.
func (e *Engine) IngestHeadline(text string, ts time.Time, marketID string) {
	compound := e.scorer.Compound(text)
	st := e.state(marketID)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.headlines = append(st.headlines, scoredHeadline{ts: ts.UnixMilli(), compound: compound})
	if over := len(st.headlines) - e.cfg.MaxHeadlines; over > 0 {
		st.headlines = append(st.headlines[:0:0], st.headlines[over:]...)
	}
}

// Compute devuelve el vector de features del mercado en su último tick.
// Falla rápido: con menos de MinDataPoints precios o sin book devuelve un
// vector inválido a cero.
func (e *Engine) Compute(marketID string) domain.FeatureVector {
	start := time.Now()
	st, ok := e.lookup(marketID)
	if !ok {
		metrics.InvalidFeatures.Inc()
		return domain.InvalidFeatures(marketID, 0)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.lastTick.TimestampMs
	if st.prices.Len() < e.cfg.MinDataPoints || !st.hasBook {
		metrics.InvalidFeatures.Inc()
		slog.Debug("features: insufficient data",
			"market_id", marketID,
			"prices", st.prices.Len(),
			"has_book", st.hasBook,
		)
		return domain.InvalidFeatures(marketID, now)
	}

	fv := domain.FeatureVector{
		MarketID:           marketID,
		TimestampMs:        now,
		OrderBookImbalance: st.book.Imbalance(e.cfg.BookLevels),
		VolumeZScore:       volumeZ(st.volumes),
		ImpliedVolatility:  e.impliedVol(st, now),
		Momentum1h:         momentum(st, now, e.cfg.MomentumWindow),
		Sentiment:          e.decayedSentiment(st, now),
		MidPrice:           st.mid(),
		SpreadBps:          st.spreadBps(),
		IsValid:            true,
	}
	fv.Latency = time.Since(start)
	if fv.Latency > e.cfg.LatencyBudget {
		metrics.FeatureLatencyOverruns.Inc()
		slog.Warn("features: latency budget exceeded",
			"market_id", marketID,
			"latency", fv.Latency,
			"budget", e.cfg.LatencyBudget,
		)
	}
	return fv
}

// Momentum devuelve el cambio de precio en window, acotado a [-0.5, 0.5].
func (e *Engine) Momentum(marketID string, window time.Duration) float64 {
	st, ok := e.lookup(marketID)
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return momentum(st, st.lastTick.TimestampMs, window)
}

// Microstructure construye el sub-estado de microestructura de un WorldState.
func (e *Engine) Microstructure(marketID string) domain.MarketMicrostructure {
	st, ok := e.lookup(marketID)
	if !ok {
		return domain.MarketMicrostructure{}
	}
	st.mu.Lock()
	defer st.mu.Unlock()

	now := st.lastTick.TimestampMs
	ms := domain.MarketMicrostructure{
		VolumeZScore:       volumeZ(st.volumes),
		Momentum1m:         momentum(st, now, time.Minute),
		Momentum5m:         momentum(st, now, 5*time.Minute),
		Momentum1h:         momentum(st, now, e.cfg.MomentumWindow),
		SpreadBps:          st.spreadBps(),
		MeanReversionScore: meanReversion(st.prices.Tail(e.cfg.MeanReversionWindow), e.cfg.MeanReversionWindow),
	}
	if st.hasBook {
		ms.OrderBookImbalance = st.book.Imbalance(e.cfg.BookLevels)
		bid, ask := st.book.DepthUSD(e.cfg.BookLevels)
		ms.LiquidityDepthUSD = bid + ask
	} else {
		ms.LiquidityDepthUSD = st.lastTick.BidDepthUSD + st.lastTick.AskDepthUSD
	}
	return ms
}

func (st *marketState) mid() float64 {
	if st.lastTick.Mid > 0 {
		return st.lastTick.Mid
	}
	return st.book.Midpoint()
}

func (st *marketState) spreadBps() float64 {
	if st.hasBook {
		if s := st.book.SpreadBps(); s > 0 {
			return s
		}
	}
	return st.lastTick.SpreadBps()
}

// volumeZ es (actual - media)/std sobre toda la ventana retenida.
func volumeZ(volumes *series.RingBuffer) float64 {
	if volumes.Len() < 2 {
		return 0
	}
	std := volumes.Std()
	if std == 0 || math.IsNaN(std) {
		return 0
	}
	return (volumes.Last() - volumes.Mean()) / std
}

// impliedVol es la std de los log-returns dentro de la ventana de volatilidad,
// anualizada con sqrt(minutos_por_año / minutos_de_ventana).
func (e *Engine) impliedVol(st *marketState, now int64) float64 {
	from := searchStamp(st.stamps, float64(now-e.cfg.VolatilityWindow.Milliseconds()))
	n := st.prices.Len()
	returns := make([]float64, 0, n-from)
	for i := from + 1; i < n; i++ {
		prev, cur := st.prices.At(i-1), st.prices.At(i)
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0
	}
	_, std := series.MeanStd(returns)
	return std * math.Sqrt(minutesPerYear/e.cfg.VolatilityWindow.Minutes())
}

// momentum es (p_now - p_ref)/p_ref, con p_ref la primera muestra en o después
// de now-window, localizada con búsqueda binaria sobre los timestamps.
func momentum(st *marketState, now int64, window time.Duration) float64 {
	n := st.prices.Len()
	if n < 2 {
		return 0
	}
	idx := searchStamp(st.stamps, float64(now-window.Milliseconds()))
	if idx >= n-1 {
		return 0
	}
	ref := st.prices.At(idx)
	if ref <= 0 {
		return 0
	}
	return domain.Clamp((st.prices.Last()-ref)/ref, -0.5, 0.5)
}

// decayedSentiment es la media con decay exponencial de los titulares, λ = ln2/half-life.
// Los titulares posteriores a now se ignoran.
func (e *Engine) decayedSentiment(st *marketState, now int64) float64 {
	lambda := math.Ln2 / e.cfg.SentimentHalfLife.Hours()
	var num, den float64
	for _, h := range st.headlines {
		if h.ts > now {
			continue
		}
		ageHours := float64(now-h.ts) / float64(time.Hour.Milliseconds())
		w := math.Exp(-lambda * ageHours)
		num += w * h.compound
		den += w
	}
	if den == 0 {
		return 0
	}
	return domain.Clamp(num/den, -1, 1)
}

// meanReversion es -tanh(z/2) del último precio frente a la media de la ventana:
// positivo si el precio está por debajo de su media reciente. 0 hasta llenar la ventana.
func meanReversion(prices []float64, window int) float64 {
	if len(prices) < window {
		return 0
	}
	mean, std := series.MeanStd(prices)
	if std == 0 {
		return 0
	}
	z := (prices[len(prices)-1] - mean) / std
	return -math.Tanh(z / 2)
}

// searchStamp devuelve el primer índice con timestamp >= target.
func searchStamp(stamps *series.RingBuffer, target float64) int {
	return sort.Search(stamps.Len(), func(i int) bool { return stamps.At(i) >= target })
}
