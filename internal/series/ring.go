// Package series contiene el ring buffer numérico de capacidad fija donde se
// guarda cada serie temporal por mercado.
package series

import "math"

// RingBuffer es una serie circular de float64 con capacidad fija.
// Lleno, Append sobrescribe el valor más viejo. No es seguro para uso concurrente.
type RingBuffer struct {
	data  []float64
	head  int // siguiente slot de escritura
	count int
}

// New crea un RingBuffer con la capacidad dada (mínimo 1).
func New(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{data: make([]float64, capacity)}
}

// Cap devuelve la capacidad fija.
func (r *RingBuffer) Cap() int { return len(r.data) }

// Len devuelve cuántos valores hay guardados, nunca más que Cap.
func (r *RingBuffer) Len() int { return r.count }

// Append guarda v y sobrescribe el más viejo si está lleno. O(1).
func (r *RingBuffer) Append(v float64) {
	r.data[r.head] = v
	r.head = (r.head + 1) % len(r.data)
	if r.count < len(r.data) {
		r.count++
	}
}

// Extend añade values en orden. O(k); solo sobreviven los últimos Cap.
func (r *RingBuffer) Extend(values []float64) {
	capacity := len(r.data)
	if len(values) >= capacity {
		// solo importa la ventana final
		copy(r.data, values[len(values)-capacity:])
		r.head = 0
		r.count = capacity
		return
	}
	first := copy(r.data[r.head:], values)
	if first < len(values) {
		copy(r.data, values[first:])
	}
	r.head = (r.head + len(values)) % capacity
	r.count = min(r.count+len(values), capacity)
}

// SetLast sobrescribe el valor más reciente. No hace nada si está vacío.
func (r *RingBuffer) SetLast(v float64) {
	if r.count == 0 {
		return
	}
	r.data[r.index(r.count-1)] = v
}

// At devuelve el i-ésimo valor en orden cronológico (0 = el más viejo).
func (r *RingBuffer) At(i int) float64 {
	if i < 0 || i >= r.count {
		return math.NaN()
	}
	return r.data[r.index(i)]
}

// Tail devuelve los últimos min(n, Len) valores en orden cronológico.
func (r *RingBuffer) Tail(n int) []float64 {
	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []float64{}
	}
	out := make([]float64, n)
	start := r.count - n
	for i := 0; i < n; i++ {
		out[i] = r.data[r.index(start+i)]
	}
	return out
}

// Values devuelve todos los valores en orden cronológico.
func (r *RingBuffer) Values() []float64 {
	return r.Tail(r.count)
}

// Last devuelve el valor más reciente; NaN si está vacío. O(1).
func (r *RingBuffer) Last() float64 {
	if r.count == 0 {
		return math.NaN()
	}
	return r.data[r.index(r.count-1)]
}

// First devuelve el valor más viejo; NaN si está vacío. O(1).
func (r *RingBuffer) First() float64 {
	if r.count == 0 {
		return math.NaN()
	}
	return r.data[r.index(0)]
}

// Mean devuelve la media aritmética; NaN si está vacío. O(n).
func (r *RingBuffer) Mean() float64 {
	if r.count == 0 {
		return math.NaN()
	}
	var sum float64
	for i := 0; i < r.count; i++ {
		sum += r.data[r.index(i)]
	}
	return sum / float64(r.count)
}

// Std devuelve la desviación estándar poblacional; NaN si está vacío. O(n).
func (r *RingBuffer) Std() float64 {
	if r.count == 0 {
		return math.NaN()
	}
	mean := r.Mean()
	var ss float64
	for i := 0; i < r.count; i++ {
		d := r.data[r.index(i)] - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(r.count))
}

// index traduce una posición cronológica a un slot de data.
func (r *RingBuffer) index(i int) int {
	oldest := r.head - r.count
	if oldest < 0 {
		oldest += len(r.data)
	}
	return (oldest + i) % len(r.data)
}

// MeanStd devuelve la media y la desviación estándar poblacional de xs.
// Ambas son NaN con un slice vacío.
func MeanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
