package risk

import (
	"math"

	"github.com/alejandrodnm/polyfusion/internal/domain"
)

// TrailingStop sigue una posición abierta: ACTIVE hasta que el precio cae
// stopPct por debajo del high-water mark o el edge baja del umbral de
// take-profit; después TRIGGERED hasta Reset. No es seguro para uso concurrente.
type TrailingStop struct {
	entry          float64
	stopPct        float64
	takeProfitEdge float64
	hwm            float64
	triggered      bool
	reason         domain.ExitReason
}

// NewTrailingStop arma un stop en entry.
func NewTrailingStop(entry, stopPct, takeProfitEdge float64) *TrailingStop {
	return &TrailingStop{
		entry:          entry,
		stopPct:        stopPct,
		takeProfitEdge: takeProfitEdge,
		hwm:            entry,
	}
}

// Update recibe un precio. Devuelve (true, reason) en el update que dispara y
// (true, ALREADY_TRIGGERED) en todos los siguientes.
func (s *TrailingStop) Update(price float64) (bool, domain.ExitReason) {
	if s.triggered {
		return true, domain.ExitAlreadyTriggered
	}
	s.hwm = math.Max(s.hwm, price)
	if price < s.hwm*(1-s.stopPct) {
		return s.trigger(domain.ExitStopLoss)
	}
	return false, domain.ExitNone
}

// UpdateWithEdge es Update más el chequeo de take-profit sobre el edge actual.
func (s *TrailingStop) UpdateWithEdge(price, edge float64) (bool, domain.ExitReason) {
	if hit, reason := s.Update(price); hit {
		return hit, reason
	}
	if edge < s.takeProfitEdge {
		return s.trigger(domain.ExitTakeProfit)
	}
	return false, domain.ExitNone
}

func (s *TrailingStop) trigger(reason domain.ExitReason) (bool, domain.ExitReason) {
	s.triggered = true
	s.reason = reason
	return true, reason
}

// Reset vuelve a armar el stop en un nuevo precio de entrada.
func (s *TrailingStop) Reset(entry float64) {
	s.entry = entry
	s.hwm = entry
	s.triggered = false
	s.reason = domain.ExitNone
}

func (s *TrailingStop) Entry() float64            { return s.entry }
func (s *TrailingStop) HighWaterMark() float64    { return s.hwm }
func (s *TrailingStop) Triggered() bool           { return s.triggered }
func (s *TrailingStop) Reason() domain.ExitReason { return s.reason }
