package arbitrage

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/alejandrodnm/polyfusion/internal/metrics"
	"github.com/google/uuid"
)

// Config controla la proyección y los umbrales de detección.
type Config struct {
	MaxIterations  int
	Tolerance      float64
	MinProfit      float64 // mínimo |sum-1| o desviación por condición
	MaxProbability float64 // sin rebalanceo si algún precio supera este valor
}

// DefaultConfig devuelve los valores de producción.
func DefaultConfig() Config {
	return Config{
		MaxIterations:  1000,
		Tolerance:      1e-10,
		MinProfit:      0.02,
		MaxProbability: 0.95,
	}
}

// Detector encuentra mispricings de rebalanceo y combinatorios. Sin estado.
type Detector struct {
	cfg Config
}

// NewDetector crea un Detector; los campos a cero toman el valor por defecto.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MinProfit <= 0 {
		cfg.MinProfit = def.MinProfit
	}
	if cfg.MaxProbability <= 0 {
		cfg.MaxProbability = def.MaxProbability
	}
	return &Detector{cfg: cfg}
}

// Project proyecta x sobre poly con el presupuesto de iteraciones del detector.
func (d *Detector) Project(poly *Polytope, x []float64) (Projection, error) {
	return Project(poly, x, d.cfg.MaxIterations, d.cfg.Tolerance)
}

// DetectRebalancing revisa un mercado multi-condición: si los YES no suman 1
// se puede comprar todo YES (sum<1) o todo NO (sum>1).
func (d *Detector) DetectRebalancing(marketID string, conditionIDs []string, yesPrices, volumes []float64) domain.ArbitrageOpportunity {
	opp := domain.ArbitrageOpportunity{
		MarketIDs:    []string{marketID},
		ConditionIDs: conditionIDs,
		Observed:     yesPrices,
		DetectedAt:   time.Now().UTC(),
	}
	if len(yesPrices) < 2 {
		return opp
	}

	var sum float64
	for _, p := range yesPrices {
		if p > d.cfg.MaxProbability {
			slog.Debug("arbitrage: market looks resolved, skipping",
				"market_id", marketID,
				"price", p,
			)
			return opp
		}
		sum += p
	}
	dev := math.Abs(sum - 1)
	if dev < d.cfg.MinProfit {
		return opp
	}

	proj, err := d.Project(SimplexPolytope(len(yesPrices)), yesPrices)
	if err != nil {
		opp.Warning = err.Error()
		return opp
	}

	side := "YES"
	opp.Type = domain.ArbLongRebalancing
	if sum > 1 {
		side = "NO"
		opp.Type = domain.ArbShortRebalancing
	}
	opp.Positions = make([]domain.ArbPosition, len(yesPrices))
	for i := range yesPrices {
		opp.Positions[i] = domain.ArbPosition{ConditionID: idAt(conditionIDs, i), Side: side, Size: 1}
	}
	d.finish(&opp, proj, dev, minOf(volumes))
	return opp
}

// DetectCombinatorial revisa dos mercados cuyas condiciones están ligadas por
// deps (índices sobre la concatenación a ++ b). Solo devuelve error con input
// mal formado; las dependencias imposibles se reportan en Warning.
func (d *Detector) DetectCombinatorial(a, b domain.ConditionSet, deps [][]bool) (domain.ArbitrageOpportunity, error) {
	observed := append(append([]float64(nil), a.YesPrices...), b.YesPrices...)
	opp := domain.ArbitrageOpportunity{
		MarketIDs:    []string{a.MarketID, b.MarketID},
		ConditionIDs: append(append([]string(nil), a.ConditionIDs...), b.ConditionIDs...),
		Observed:     observed,
		DetectedAt:   time.Now().UTC(),
	}

	poly, err := DependentPolytope([]int{len(a.YesPrices), len(b.YesPrices)}, deps)
	switch {
	case errors.Is(err, ErrInfeasibleDependencies):
		opp.Warning = err.Error()
		slog.Warn("arbitrage: infeasible dependency matrix, using simplex",
			"market_a", a.MarketID,
			"market_b", b.MarketID,
		)
	case err != nil:
		return opp, fmt.Errorf("arbitrage.DetectCombinatorial: %w", err)
	}

	proj, err := d.Project(poly, observed)
	if err != nil {
		return opp, fmt.Errorf("arbitrage.DetectCombinatorial: %w", err)
	}
	opp.Projected = proj.Point

	var maxDev, l1 float64
	for i := range observed {
		dev := math.Abs(observed[i] - proj.Point[i])
		maxDev = math.Max(maxDev, dev)
		l1 += dev
	}
	if maxDev < d.cfg.MinProfit {
		return opp, nil
	}

	opp.Type = domain.ArbCombinatorial
	for i := range observed {
		dev := proj.Point[i] - observed[i]
		if math.Abs(dev) < d.cfg.Tolerance {
			continue
		}
		side := "YES"
		if dev < 0 {
			side = "NO"
		}
		opp.Positions = append(opp.Positions, domain.ArbPosition{
			ConditionID: idAt(opp.ConditionIDs, i),
			Side:        side,
			Size:        math.Abs(dev),
		})
	}
	d.finish(&opp, proj, l1/2, math.Min(a.MinVolume(), b.MinVolume()))
	return opp, nil
}

func (d *Detector) finish(opp *domain.ArbitrageOpportunity, proj Projection, profit, minVolume float64) {
	opp.ID = uuid.NewString()
	opp.Projected = proj.Point
	opp.ProfitPerDollar = profit
	opp.Confidence = domain.Clamp(1-proj.Distance, 0, 1)
	opp.ExecutionRisk = ExecutionRisk(profit, minVolume)
	metrics.ArbitrageOpportunities.WithLabelValues(opp.Type.String()).Inc()

	slog.Info("arbitrage: opportunity",
		"type", opp.Type,
		"markets", opp.MarketIDs,
		"profit", profit,
		"confidence", opp.Confidence,
		"exec_risk", opp.ExecutionRisk,
	)
}

// ExecutionRisk baja a medida que crece la liquidez respecto al profit:
// 1/(1 + minVolume/(profit·1000)). Sin liquidez el riesgo es máximo.
func ExecutionRisk(profit, minVolume float64) float64 {
	if minVolume <= 0 || profit <= 0 {
		return 1
	}
	return 1 / (1 + minVolume/(profit*1000))
}

func idAt(ids []string, i int) string {
	if i < len(ids) {
		return ids[i]
	}
	return fmt.Sprintf("#%d", i)
}

func minOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}
