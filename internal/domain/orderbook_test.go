package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderBook_BestBid_Empty(t *testing.T) {
	assert.Equal(t, 0.0, OrderBook{}.BestBid())
}

func TestOrderBook_BestAsk_Empty(t *testing.T) {
	assert.Equal(t, 0.0, OrderBook{}.BestAsk())
}

func TestOrderBook_Midpoint(t *testing.T) {
	ob := OrderBook{
		Bids: []BookEntry{{Price: 0.70, Size: 100}},
		Asks: []BookEntry{{Price: 0.72, Size: 150}},
	}
	assert.InDelta(t, 0.71, ob.Midpoint(), 0.0001)
}

func TestOrderBook_SpreadBps(t *testing.T) {
	ob := OrderBook{
		Bids: []BookEntry{{Price: 0.495, Size: 100}},
		Asks: []BookEntry{{Price: 0.505, Size: 100}},
	}
	// (0.505-0.495)/0.50 × 10000 = 200
	assert.InDelta(t, 200.0, ob.SpreadBps(), 0.0001)
}

func TestOrderBook_Imbalance_TopLevels(t *testing.T) {
	ob := OrderBook{
		Bids: []BookEntry{{Price: 0.50, Size: 300}, {Price: 0.49, Size: 1000}},
		Asks: []BookEntry{{Price: 0.51, Size: 100}, {Price: 0.52, Size: 1000}},
	}
	// Solo el primer nivel: (300-100)/(300+100) = 0.5
	assert.InDelta(t, 0.5, ob.Imbalance(1), 0.0001)
	// Dos niveles: (1300-1100)/2400
	assert.InDelta(t, 200.0/2400.0, ob.Imbalance(2), 0.0001)
}

func TestOrderBook_Imbalance_Empty(t *testing.T) {
	assert.Equal(t, 0.0, OrderBook{}.Imbalance(5))
}

func TestOrderBook_DepthUSD(t *testing.T) {
	ob := OrderBook{
		Bids: []BookEntry{{Price: 0.70, Size: 100}, {Price: 0.65, Size: 200}},
		Asks: []BookEntry{{Price: 0.72, Size: 150}},
	}
	bid, ask := ob.DepthUSD(1)
	assert.InDelta(t, 70.0, bid, 0.001)
	assert.InDelta(t, 108.0, ask, 0.001)

	bid, _ = ob.DepthUSD(0) // 0 = todos los niveles
	assert.InDelta(t, 200.0, bid, 0.001)
}

func TestSignalType_Tier(t *testing.T) {
	assert.Equal(t, 0, SignalHold.Tier())
	assert.Equal(t, 1, SignalBuy.Tier())
	assert.Equal(t, 1, SignalSell.Tier())
	assert.Equal(t, 2, SignalStrongBuy.Tier())
	assert.Equal(t, 2, SignalStrongSell.Tier())
}

func TestConditionSet_MinVolume(t *testing.T) {
	assert.Equal(t, 0.0, ConditionSet{}.MinVolume())
	cs := ConditionSet{VolumesUSD: []float64{500, 120, 900}}
	assert.Equal(t, 120.0, cs.MinVolume())
}

func TestCycleReport_Counts(t *testing.T) {
	r := CycleReport{Decisions: []CouncilDecision{
		{Action: ActionLong},
		{Action: ActionHold, DoomerOverride: true},
		{Action: ActionShort},
	}}
	assert.Equal(t, 2, r.ApprovedCount())
	assert.Equal(t, 1, r.VetoCount())
}
