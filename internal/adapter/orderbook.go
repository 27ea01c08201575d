package adapter

import "strconv"

// book is the minimal order-book state needed to know the current best bid
// and best ask: one price-level to size map per side. No depth beyond
// top-of-book is derived from it.
type book struct {
	bids map[string]string
	asks map[string]string
}

func newBook() *book {
	return &book{bids: make(map[string]string), asks: make(map[string]string)}
}

// reset clears both sides, used when a provider replays a full snapshot.
func (b *book) reset() {
	b.bids = make(map[string]string)
	b.asks = make(map[string]string)
}

// applyBid upserts a bid level; a zero (or unparseable-to-positive) quantity
// removes it. Removing an absent level is a no-op.
func (b *book) applyBid(price, qty string) {
	apply(b.bids, price, qty)
}

// applyAsk upserts an ask level with the same zero-quantity removal rule.
func (b *book) applyAsk(price, qty string) {
	apply(b.asks, price, qty)
}

func apply(side map[string]string, price, qty string) {
	q, err := strconv.ParseFloat(qty, 64)
	if err != nil || q <= 0 {
		delete(side, price)
		return
	}
	side[price] = qty
}

// mid returns (bestBid+bestAsk)/2. It is only defined when both a best bid
// and a best ask are known.
func (b *book) mid() (float64, bool) {
	bestBid, okBid := bestPrice(b.bids, true)
	bestAsk, okAsk := bestPrice(b.asks, false)
	if !okBid || !okAsk {
		return 0, false
	}
	return (bestBid + bestAsk) / 2, true
}

func bestPrice(side map[string]string, highest bool) (float64, bool) {
	best := 0.0
	found := false
	for p := range side {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		if !found || (highest && v > best) || (!highest && v < best) {
			best = v
			found = true
		}
	}
	return best, found
}
