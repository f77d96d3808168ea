package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderIntent es lo que el core entrega a la capa de ejecución: nunca coloca órdenes.
type OrderIntent struct {
	ID         string
	DecisionID string
	MarketID   string
	Action     Action
	Weight     float64
	Notional   decimal.Decimal // USD
	EntryPrice float64
}

// ExitReason explica por qué se disparó un trailing stop.
type ExitReason string

const (
	ExitNone             ExitReason = ""
	ExitStopLoss         ExitReason = "STOP_LOSS"
	ExitTakeProfit       ExitReason = "TAKE_PROFIT"
	ExitAlreadyTriggered ExitReason = "ALREADY_TRIGGERED"
)

// ExitEvent es un trailing stop disparado.
type ExitEvent struct {
	MarketID      string
	Reason        ExitReason
	Price         float64
	HighWaterMark float64
	TimestampMs   int64
}

// CycleReport agrupa todo lo producido en un ciclo de decisión.
type CycleReport struct {
	StartedAt  time.Time
	Duration   time.Duration
	Signals    []SignalOutput
	Decisions  []CouncilDecision
	Kelly      KellyWeights
	Intents    []OrderIntent
	Exits      []ExitEvent
	Arbitrage  []ArbitrageOpportunity
	CrossVenue map[string]CrossVenueArb // eventID → resultado
}

// ApprovedCount cuenta las decisiones que abren posición.
func (r CycleReport) ApprovedCount() int {
	n := 0
	for _, d := range r.Decisions {
		if d.Approved() {
			n++
		}
	}
	return n
}

// VetoCount cuenta las decisiones vetadas por el Doomer.
func (r CycleReport) VetoCount() int {
	n := 0
	for _, d := range r.Decisions {
		if d.DoomerOverride {
			n++
		}
	}
	return n
}
