// Package narrative detecta narrativas que aceleran comparando (z-score) las
// menciones de la última hora con una base horaria de 24 horas.
package narrative

import (
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/alejandrodnm/polyfusion/internal/series"
)

// Config controla las ventanas del tracker.
type Config struct {
	Retention      time.Duration // eventos más viejos se descartan al ingerir
	CurrentWindow  time.Duration
	BaselineHours  int
	TopKeywords    int
	AccelerationZ  float64
	NVICompression float64 // NVI = tanh(z / NVICompression)
}

// DefaultConfig devuelve 48h de retención, ventana de 60 minutos y 24 buckets horarios.
func DefaultConfig() Config {
	return Config{
		Retention:      48 * time.Hour,
		CurrentWindow:  60 * time.Minute,
		BaselineHours:  24,
		TopKeywords:    5,
		AccelerationZ:  domain.AccelerationZ,
		NVICompression: 3,
	}
}

// Tracker guarda los timestamps de cada keyword por mercado. Seguro para uso concurrente.
type Tracker struct {
	cfg     Config
	mu      sync.Mutex
	markets map[string]map[string][]int64 // marketID → keyword → timestamps (ms)
}

// New crea un Tracker; los campos a cero toman el valor por defecto.
func New(cfg Config) *Tracker {
	def := DefaultConfig()
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.CurrentWindow <= 0 {
		cfg.CurrentWindow = def.CurrentWindow
	}
	if cfg.BaselineHours <= 0 {
		cfg.BaselineHours = def.BaselineHours
	}
	if cfg.TopKeywords <= 0 {
		cfg.TopKeywords = def.TopKeywords
	}
	if cfg.AccelerationZ <= 0 {
		cfg.AccelerationZ = def.AccelerationZ
	}
	if cfg.NVICompression <= 0 {
		cfg.NVICompression = def.NVICompression
	}
	return &Tracker{cfg: cfg, markets: make(map[string]map[string][]int64)}
}

// Ingest registra las keywords de text en ts y descarta los eventos caducados del mercado.
func (t *Tracker) Ingest(text, marketID string, ts time.Time) {
	keywords := ExtractKeywords(text)
	ms := ts.UnixMilli()

	t.mu.Lock()
	defer t.mu.Unlock()

	log, ok := t.markets[marketID]
	if !ok {
		log = make(map[string][]int64)
		t.markets[marketID] = log
	}
	for _, kw := range keywords {
		log[kw] = insertSorted(log[kw], ms)
	}
	t.evict(log, ms-t.cfg.Retention.Milliseconds())
}

// evict descarta timestamps anteriores a cutoff y borra las keywords vacías.
func (t *Tracker) evict(log map[string][]int64, cutoff int64) {
	for kw, stamps := range log {
		i := sort.Search(len(stamps), func(i int) bool { return stamps[i] >= cutoff })
		if i == len(stamps) {
			delete(log, kw)
			continue
		}
		if i > 0 {
			log[kw] = append(stamps[:0:0], stamps[i:]...)
		}
	}
}

// Compute devuelve la señal de narrativa del mercado en now.
// Un mercado sin eventos devuelve la señal nula.
func (t *Tracker) Compute(marketID string, now time.Time) domain.NarrativeSignal {
	t.mu.Lock()
	defer t.mu.Unlock()

	null := domain.NarrativeSignal{MarketID: marketID}
	log := t.markets[marketID]
	if len(log) == 0 {
		return null
	}

	nowMs := now.UnixMilli()
	scores := make([]domain.KeywordScore, 0, len(log))
	for kw, stamps := range log {
		z, current := t.zScore(stamps, nowMs)
		if current == 0 && z == 0 {
			continue
		}
		scores = append(scores, domain.KeywordScore{Keyword: kw, ZScore: z, Count: current})
	}
	if len(scores) == 0 {
		return null
	}

	sort.Slice(scores, func(i, j int) bool {
		ai, aj := math.Abs(scores[i].ZScore), math.Abs(scores[j].ZScore)
		if ai != aj {
			return ai > aj
		}
		return scores[i].Keyword < scores[j].Keyword
	})
	if len(scores) > t.cfg.TopKeywords {
		scores = scores[:t.cfg.TopKeywords]
	}

	dominant := scores[0]
	sig := domain.NarrativeSignal{
		MarketID:        marketID,
		VelocityIndex:   math.Tanh(dominant.ZScore / t.cfg.NVICompression),
		DominantKeyword: dominant.Keyword,
		DominantZ:       dominant.ZScore,
		Accelerating:    math.Abs(dominant.ZScore) >= t.cfg.AccelerationZ,
		TopKeywords:     scores,
	}
	if sig.Accelerating {
		slog.Debug("narrative accelerating",
			"market_id", marketID,
			"keyword", sig.DominantKeyword,
			"z", sig.DominantZ,
		)
	}
	return sig
}

// zScore compara el conteo de la ventana actual con los buckets horarios
// anteriores. El denominador max(std, sqrt(max(mean,1))) evita varianza cero
// y el ruido de conteos bajos.
func (t *Tracker) zScore(stamps []int64, nowMs int64) (float64, int) {
	window := t.cfg.CurrentWindow.Milliseconds()
	hour := time.Hour.Milliseconds()
	windowStart := nowMs - window

	current := countIn(stamps, windowStart, nowMs)
	buckets := make([]float64, t.cfg.BaselineHours)
	for h := range buckets {
		hi := windowStart - int64(h)*hour
		buckets[h] = float64(countIn(stamps, hi-hour, hi))
	}

	mean, std := series.MeanStd(buckets)
	denom := math.Max(std, math.Sqrt(math.Max(mean, 1)))
	return (float64(current) - mean) / denom, current
}

// insertSorted añade ms manteniendo stamps ascendente; el caso habitual en orden es O(1).
func insertSorted(stamps []int64, ms int64) []int64 {
	if n := len(stamps); n == 0 || stamps[n-1] <= ms {
		return append(stamps, ms)
	}
	i := sort.Search(len(stamps), func(i int) bool { return stamps[i] > ms })
	stamps = append(stamps, 0)
	copy(stamps[i+1:], stamps[i:])
	stamps[i] = ms
	return stamps
}

// countIn cuenta timestamps en (lo, hi]. stamps está en orden ascendente.
func countIn(stamps []int64, lo, hi int64) int {
	start := sort.Search(len(stamps), func(i int) bool { return stamps[i] > lo })
	end := sort.Search(len(stamps), func(i int) bool { return stamps[i] > hi })
	return end - start
}

// Markets devuelve el número de mercados con eventos vivos.
func (t *Tracker) Markets() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.markets)
}
