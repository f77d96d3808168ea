// Package risk dimensiona posiciones con un Kelly que tiene en cuenta la
// covarianza y gestiona salidas, correlaciones y coberturas entre venues.
package risk

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// ErrSolverFailed lo devuelve el optimizador cuando no consigue pesos.
var ErrSolverFailed = errors.New("risk: kelly solver failed")

// Config contiene los límites de dimensionado.
type Config struct {
	MaxLeverage       float64 // tope de peso por mercado
	HalfKellyDrawdown float64 // por encima de este drawdown el tope total se reduce a la mitad
	ClusterCap        float64 // guardarraíl sobre el peso total tras optimizar
	MaxIterations     int
	Tolerance         float64
}

// DefaultConfig devuelve los límites de producción.
func DefaultConfig() Config {
	return Config{
		MaxLeverage:       0.2,
		HalfKellyDrawdown: 0.10,
		ClusterCap:        0.5,
		MaxIterations:     10_000,
		Tolerance:         1e-10,
	}
}

// Manager calcula pesos Kelly. No guarda estado entre llamadas.
type Manager struct {
	cfg Config
}

// NewManager crea un Manager; los campos a cero toman el valor por defecto.
func NewManager(cfg Config) *Manager {
	def := DefaultConfig()
	if cfg.MaxLeverage <= 0 {
		cfg.MaxLeverage = def.MaxLeverage
	}
	if cfg.HalfKellyDrawdown <= 0 {
		cfg.HalfKellyDrawdown = def.HalfKellyDrawdown
	}
	if cfg.ClusterCap <= 0 {
		cfg.ClusterCap = def.ClusterCap
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = def.MaxIterations
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	return &Manager{cfg: cfg}
}

// KellyWeights maximiza w·edges − ½·wΣw sujeto a 0 ≤ w_i ≤ MaxLeverage y
// Σw ≤ 1 (0.5 si el drawdown supera HalfKellyDrawdown). Si el solver falla se
// reparte de forma uniforme entre los edges positivos; nunca devuelve error.
func (m *Manager) KellyWeights(markets []string, edges []float64, cov [][]float64, drawdown float64) domain.KellyWeights {
	half := drawdown > m.cfg.HalfKellyDrawdown
	total := 1.0
	if half {
		total = 0.5
	}

	out := domain.KellyWeights{
		Markets:   markets,
		Weights:   make(map[string]float64, len(markets)),
		HalfKelly: half,
	}

	w, err := m.solve(edges, cov, total)
	if err != nil || len(markets) != len(edges) {
		slog.Warn("risk: kelly solver fallback",
			"markets", len(markets),
			"err", err,
		)
		w = m.uniform(edges, total)
		out.Fallback = true
	}

	// guardarraíl: tope al peso activo total
	if sum := sumOf(w); sum > m.cfg.ClusterCap {
		scale := m.cfg.ClusterCap / sum
		for i := range w {
			w[i] *= scale
		}
	}

	for i, id := range markets {
		if i < len(w) {
			out.Weights[id] = w[i]
		}
	}
	out.TotalLeverage = sumOf(w)
	if !out.Fallback {
		variance := quad(w, cov)
		out.ExpectedLogGrowth = dot(w, edges) - 0.5*variance
		out.MaxDrawdownEst = 2 * math.Sqrt(math.Max(variance, 0))
	} else if len(cov) == len(w) && finiteMatrix(cov, len(w)) {
		variance := quad(w, cov)
		out.ExpectedLogGrowth = dot(w, positive(edges)) - 0.5*variance
		out.MaxDrawdownEst = 2 * math.Sqrt(math.Max(variance, 0))
	}
	return out
}

// solve hace ascenso de gradiente proyectado con paso 1/L, siendo L una cota de
// Gershgorin del mayor autovalor de Σ.
func (m *Manager) solve(edges []float64, cov [][]float64, total float64) ([]float64, error) {
	n := len(edges)
	if n == 0 {
		return nil, nil
	}
	if len(cov) != n {
		return nil, fmt.Errorf("risk.solve: covariance is %dx?, want %dx%d: %w", len(cov), n, n, ErrSolverFailed)
	}
	if !finiteVector(edges) || !finiteMatrix(cov, n) {
		return nil, fmt.Errorf("risk.solve: non-finite input: %w", ErrSolverFailed)
	}

	var lip float64
	for i := range n {
		if cov[i][i] < 0 {
			return nil, fmt.Errorf("risk.solve: negative variance at %d: %w", i, ErrSolverFailed)
		}
		var row float64
		for j := range n {
			if math.Abs(cov[i][j]-cov[j][i]) > 1e-9 {
				return nil, fmt.Errorf("risk.solve: covariance not symmetric: %w", ErrSolverFailed)
			}
			row += math.Abs(cov[i][j])
		}
		lip = math.Max(lip, row)
	}
	if lip == 0 {
		lip = 1
	}
	step := 1 / lip

	w := make([]float64, n)
	next := make([]float64, n)
	for range m.cfg.MaxIterations {
		for i := range n {
			var sw float64
			for j := range n {
				sw += cov[i][j] * w[j]
			}
			next[i] = w[i] + step*(edges[i]-sw)
		}
		project(next, m.cfg.MaxLeverage, total)

		var delta float64
		for i := range n {
			delta = math.Max(delta, math.Abs(next[i]-w[i]))
		}
		w, next = next, w
		if !finiteVector(w) {
			return nil, fmt.Errorf("risk.solve: diverged: %w", ErrSolverFailed)
		}
		if delta < m.cfg.Tolerance {
			return w, nil
		}
	}
	return nil, fmt.Errorf("risk.solve: no convergence after %d iterations: %w", m.cfg.MaxIterations, ErrSolverFailed)
}

// uniform da a cada mercado con edge positivo min(MaxLeverage, total/n).
func (m *Manager) uniform(edges []float64, total float64) []float64 {
	w := make([]float64, len(edges))
	var n int
	for _, e := range edges {
		if e > 0 {
			n++
		}
	}
	if n == 0 {
		return w
	}
	each := math.Min(m.cfg.MaxLeverage, total/float64(n))
	for i, e := range edges {
		if e > 0 {
			w[i] = each
		}
	}
	return w
}

// project proyecta w sobre {0 ≤ w_i ≤ hi, Σw ≤ total} in place. Si la suma
// recortada supera total, busca por bisección el τ con Σ clip(w_i−τ, 0, hi) = total.
func project(w []float64, hi, total float64) {
	clipped := func(tau float64) float64 {
		var s float64
		for _, x := range w {
			s += math.Max(0, math.Min(hi, x-tau))
		}
		return s
	}
	if clipped(0) <= total {
		for i, x := range w {
			w[i] = math.Max(0, math.Min(hi, x))
		}
		return
	}

	lo, up := 0.0, 0.0
	for _, x := range w {
		up = math.Max(up, x)
	}
	for range 100 {
		mid := (lo + up) / 2
		if clipped(mid) > total {
			lo = mid
		} else {
			up = mid
		}
	}
	for i, x := range w {
		w[i] = math.Max(0, math.Min(hi, x-up))
	}
}

func sumOf(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		if i < len(b) {
			s += a[i] * b[i]
		}
	}
	return s
}

// quad es w·Σ·w.
func quad(w []float64, cov [][]float64) float64 {
	var s float64
	for i := range w {
		for j := range w {
			s += w[i] * cov[i][j] * w[j]
		}
	}
	return s
}

func positive(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		if x > 0 {
			out[i] = x
		}
	}
	return out
}

func finiteVector(xs []float64) bool {
	for _, x := range xs {
		if !domain.Finite(x) {
			return false
		}
	}
	return true
}

func finiteMatrix(m [][]float64, n int) bool {
	for _, row := range m {
		if len(row) != n || !finiteVector(row) {
			return false
		}
	}
	return true
}
