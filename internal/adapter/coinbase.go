package adapter

import (
	"encoding/json"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

// Coinbase consumes the Advanced Trade level2 channel. Unlike the level-1
// feeds it delivers a full snapshot followed by incremental side/price/size
// updates, so the adapter keeps a local top-of-book map per side and
// recomputes the mid-price after every batch of updates. Coinbase quotes in
// USD directly; no reference-rate conversion applies.
type Coinbase struct {
	sym  market.Symbol
	emit Emitter
	book *book
}

func NewCoinbase(sym market.Symbol, emit Emitter) *Coinbase {
	return &Coinbase{sym: sym, emit: emit, book: newBook()}
}

func (a *Coinbase) Source() market.Source { return market.SourceCoinbase }

func (a *Coinbase) OnOpen(conn Conn) {
	productID, ok := symbols.ToCoinbase(a.sym)
	if !ok {
		return
	}
	_ = conn.SendJSON(map[string]any{
		"type":        "subscribe",
		"product_ids": []string{productID},
		"channel":     "level2",
	})
}

func (a *Coinbase) OnClose() {}

type coinbaseL2Message struct {
	Channel string `json:"channel"`
	Events  []struct {
		Type      string `json:"type"`
		ProductID string `json:"product_id"`
		Updates   []struct {
			Side        string `json:"side"`
			PriceLevel  string `json:"price_level"`
			NewQuantity string `json:"new_quantity"`
		} `json:"updates"`
	} `json:"events"`
}

func (a *Coinbase) OnMessage(_ Conn, frame []byte) {
	var msg coinbaseL2Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourceCoinbase)
		return
	}
	if msg.Channel != "l2_data" {
		return
	}

	for _, event := range msg.Events {
		sym, ok := symbols.FromCoinbase(event.ProductID)
		if !ok || sym != a.sym {
			continue
		}

		switch event.Type {
		case "snapshot":
			a.book.reset()
			a.applyUpdates(event.Updates)
		case "update":
			if len(event.Updates) == 0 {
				continue
			}
			a.applyUpdates(event.Updates)
		default:
			continue
		}

		if mid, ok := a.book.mid(); ok {
			a.emit.AddDataPoint(market.SourceCoinbase, a.sym, market.Tick{
				Price:     mid,
				Timestamp: time.Now().UnixMilli(),
			})
		}
	}
}

func (a *Coinbase) applyUpdates(updates []struct {
	Side        string `json:"side"`
	PriceLevel  string `json:"price_level"`
	NewQuantity string `json:"new_quantity"`
}) {
	for _, u := range updates {
		switch u.Side {
		case "bid":
			a.book.applyBid(u.PriceLevel, u.NewQuantity)
		case "offer":
			a.book.applyAsk(u.PriceLevel, u.NewQuantity)
		}
	}
}
