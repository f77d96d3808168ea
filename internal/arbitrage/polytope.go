// Package arbitrage proyecta los precios observados sobre el politopo marginal
// libre de arbitraje y reporta los mispricings.
package arbitrage

import (
	"errors"
	"fmt"
)

// ErrInfeasibleDependencies indica que la matriz de dependencias eliminó todos
// los vectores de resultado. El politopo cae al simplex.
var ErrInfeasibleDependencies = errors.New("arbitrage: dependencies eliminate every outcome")

// Polytope es la envolvente convexa de un conjunto finito de vértices.
type Polytope struct {
	Dim      int
	Vertices [][]float64
}

// SimplexPolytope es el simplex de probabilidad sobre n condiciones excluyentes.
func SimplexPolytope(n int) *Polytope {
	p := &Polytope{Dim: n, Vertices: make([][]float64, n)}
	for i := range n {
		v := make([]float64, n)
		v[i] = 1
		p.Vertices[i] = v
	}
	return p
}

// DependentPolytope enumera los vectores de resultado de varios mercados en los
// que exactamente una condición por mercado resuelve true (groups tiene el
// número de condiciones de cada mercado). deps[i][j] = true significa que si
// la condición i es true, la j es false.
//
// Si no sobrevive ningún vértice devuelve el simplex sobre todas las
// condiciones junto con ErrInfeasibleDependencies. El caller puede quedarse
// con el politopo y mostrar el aviso.
func DependentPolytope(groups []int, deps [][]bool) (*Polytope, error) {
	dim := 0
	for gi, g := range groups {
		if g <= 0 {
			return nil, fmt.Errorf("arbitrage.DependentPolytope: group %d is empty", gi)
		}
		dim += g
	}
	if len(deps) != 0 && len(deps) != dim {
		return nil, fmt.Errorf("arbitrage.DependentPolytope: deps has %d rows, want %d", len(deps), dim)
	}
	for i, row := range deps {
		if len(row) != dim {
			return nil, fmt.Errorf("arbitrage.DependentPolytope: deps row %d has %d cols, want %d", i, len(row), dim)
		}
	}

	var vertices [][]float64
	chosen := make([]int, len(groups)) // chosen[g] = índice absoluto de la condición true
	var walk func(g, offset int)
	walk = func(g, offset int) {
		if g == len(groups) {
			if consistent(chosen, deps) {
				v := make([]float64, dim)
				for _, idx := range chosen {
					v[idx] = 1
				}
				vertices = append(vertices, v)
			}
			return
		}
		for k := range groups[g] {
			chosen[g] = offset + k
			walk(g+1, offset+groups[g])
		}
	}
	walk(0, 0)

	if len(vertices) == 0 {
		return SimplexPolytope(dim), ErrInfeasibleDependencies
	}
	return &Polytope{Dim: dim, Vertices: vertices}, nil
}

func consistent(trueIdx []int, deps [][]bool) bool {
	if len(deps) == 0 {
		return true
	}
	for _, i := range trueIdx {
		for _, j := range trueIdx {
			if i != j && deps[i][j] {
				return false
			}
		}
	}
	return true
}

// nearestVertex devuelve el vértice más cercano a x en distancia euclídea.
func (p *Polytope) nearestVertex(x []float64) []float64 {
	best, bestDist := p.Vertices[0], sqDist(p.Vertices[0], x)
	for _, v := range p.Vertices[1:] {
		if d := sqDist(v, x); d < bestDist {
			best, bestDist = v, d
		}
	}
	return best
}

// minVertex es el oráculo de minimización lineal: argmin sobre los vértices de v·g.
func (p *Polytope) minVertex(g []float64) []float64 {
	best, bestVal := p.Vertices[0], dot(p.Vertices[0], g)
	for _, v := range p.Vertices[1:] {
		if val := dot(v, g); val < bestVal {
			best, bestVal = v, val
		}
	}
	return best
}
