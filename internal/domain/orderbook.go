package domain

import "math"

// OrderBook es el último snapshot del libro de órdenes de un mercado.
// Solo se retiene uno por mercado: el más reciente reemplaza al anterior.
type OrderBook struct {
	MarketID    string
	TimestampMs int64
	Bids        []BookEntry // ordenados mayor a menor precio
	Asks        []BookEntry // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint devuelve el punto medio entre best bid y best ask.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// Spread devuelve el spread del book (ask - bid).
func (ob OrderBook) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// SpreadBps devuelve el spread en puntos básicos sobre el midpoint.
func (ob OrderBook) SpreadBps() float64 {
	return SpreadBps(ob.BestBid(), ob.BestAsk())
}

// Imbalance calcula el order-book imbalance sobre los primeros levels niveles:
//
//	(bid_vol - ask_vol) / (bid_vol + ask_vol)
//
// Resultado en [-1, 1]; 0 si no hay volumen.
func (ob OrderBook) Imbalance(levels int) float64 {
	bidVol := sumSize(ob.Bids, levels)
	askVol := sumSize(ob.Asks, levels)
	total := bidVol + askVol
	if total <= 0 {
		return 0
	}
	return Clamp((bidVol-askVol)/total, -1, 1)
}

// DepthUSD devuelve el valor en USD (size × price) de bids y asks
// dentro de los primeros levels niveles.
func (ob OrderBook) DepthUSD(levels int) (bid, ask float64) {
	for i, b := range ob.Bids {
		if levels > 0 && i >= levels {
			break
		}
		bid += b.Size * b.Price
	}
	for i, a := range ob.Asks {
		if levels > 0 && i >= levels {
			break
		}
		ask += a.Size * a.Price
	}
	return bid, ask
}

func sumSize(entries []BookEntry, levels int) float64 {
	var total float64
	for i, e := range entries {
		if levels > 0 && i >= levels {
			break
		}
		total += e.Size
	}
	return total
}

// SpreadBps convierte un par bid/ask en spread en bps: (ask-bid)/mid × 10000.
// Devuelve 0 si alguno de los lados falta.
func SpreadBps(bid, ask float64) float64 {
	if bid <= 0 || ask <= 0 {
		return 0
	}
	mid := (bid + ask) / 2
	return (ask - bid) / mid * 10000
}

// Clamp limita v al rango [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Sign devuelve -1, 0 o 1.
func Sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Finite devuelve true si v no es NaN ni ±Inf.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
