package arbitrage

import (
	"fmt"
	"math"
)

// Projection es el resultado de proyectar un punto sobre un politopo.
type Projection struct {
	Point      []float64
	Distance   float64 // distancia euclídea al input
	Iterations int
	Gap        float64 // duality gap de Frank-Wolfe al salir
}

// Project busca con Frank-Wolfe el punto de poly más cercano a x. Arranca en el
// vértice más cercano y avanza hacia el vértice que minimiza el objetivo
// linealizado con el paso exacto de la cuadrática. Para cuando el duality gap
// baja de tol o tras maxIter iteraciones.
func Project(poly *Polytope, x []float64, maxIter int, tol float64) (Projection, error) {
	if poly == nil || len(poly.Vertices) == 0 {
		return Projection{}, fmt.Errorf("arbitrage.Project: empty polytope")
	}
	if len(x) != poly.Dim {
		return Projection{}, fmt.Errorf("arbitrage.Project: point has dim %d, polytope %d", len(x), poly.Dim)
	}

	cur := append([]float64(nil), poly.nearestVertex(x)...)
	grad := make([]float64, len(x))
	dir := make([]float64, len(x))

	var it int
	var gap float64
	for it = 0; it < maxIter; it++ {
		for i := range cur {
			grad[i] = 2 * (cur[i] - x[i])
		}
		s := poly.minVertex(grad)

		var dd, toward float64
		gap = 0
		for i := range cur {
			dir[i] = s[i] - cur[i]
			gap -= grad[i] * dir[i]
			dd += dir[i] * dir[i]
			toward += (x[i] - cur[i]) * dir[i]
		}
		if gap < tol || dd == 0 {
			break
		}

		gamma := math.Max(0, math.Min(1, toward/dd))
		for i := range cur {
			cur[i] += gamma * dir[i]
		}
	}

	return Projection{
		Point:      cur,
		Distance:   math.Sqrt(sqDist(cur, x)),
		Iterations: it,
		Gap:        gap,
	}, nil
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}
