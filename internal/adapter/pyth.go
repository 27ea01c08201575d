package adapter

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

// Pyth consumes the Hermes streaming endpoint. Prices arrive as a fixed-point
// integer plus exponent and are scaled as price * 10^expo; feeds already
// quote in USD so no reference-rate conversion applies.
type Pyth struct {
	sym  market.Symbol
	emit Emitter
}

func NewPyth(sym market.Symbol, emit Emitter) *Pyth {
	return &Pyth{sym: sym, emit: emit}
}

func (a *Pyth) Source() market.Source { return market.SourcePyth }

func (a *Pyth) OnOpen(conn Conn) {
	feedID, ok := symbols.PythFeedID(a.sym)
	if !ok {
		return
	}
	_ = conn.SendJSON(map[string]any{
		"type": "subscribe",
		"ids":  []string{feedID},
	})
}

func (a *Pyth) OnClose() {}

type pythPriceUpdate struct {
	Type      string `json:"type"`
	PriceFeed struct {
		ID    string `json:"id"`
		Price struct {
			Price string `json:"price"`
			Expo  int    `json:"expo"`
		} `json:"price"`
	} `json:"price_feed"`
}

func (a *Pyth) OnMessage(_ Conn, frame []byte) {
	var msg pythPriceUpdate
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourcePyth)
		return
	}
	// Subscription acks carry type "response"; only price updates matter.
	if msg.Type != "price_update" {
		return
	}
	sym, ok := symbols.FromPythFeedID(msg.PriceFeed.ID)
	if !ok || sym != a.sym {
		return
	}

	raw, err := strconv.ParseFloat(msg.PriceFeed.Price.Price, 64)
	if err != nil {
		metrics.CountDrop(market.SourcePyth)
		return
	}
	price := raw * math.Pow(10, float64(msg.PriceFeed.Price.Expo))

	a.emit.AddDataPoint(market.SourcePyth, a.sym, market.Tick{
		Price:     price,
		Timestamp: time.Now().UnixMilli(),
	})
}
