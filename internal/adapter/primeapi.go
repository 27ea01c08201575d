package adapter

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
)

// PrimeAPI consumes the Prime forex ticker stream. Quotes arrive as a
// fixed-point integer with an explicit exponent field and are scaled as
// price * 10^exp; the payload's own exponent is authoritative, no hardcoded
// scaling.
type PrimeAPI struct {
	sym  market.Symbol
	emit Emitter
}

func NewPrimeAPI(sym market.Symbol, emit Emitter) *PrimeAPI {
	return &PrimeAPI{sym: sym, emit: emit}
}

func (a *PrimeAPI) Source() market.Source { return market.SourcePrimeAPI }

func (a *PrimeAPI) OnOpen(conn Conn) {
	class, ok := market.ClassOf(a.sym)
	if !ok || class != market.ClassForex {
		return
	}
	_ = conn.SendJSON(map[string]any{
		"op":     "subscribe",
		"symbol": string(a.sym),
	})
}

func (a *PrimeAPI) OnClose() {}

type primeTickerPush struct {
	Event  string `json:"event"`
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
	Exp    int    `json:"exp"`
}

func (a *PrimeAPI) OnMessage(_ Conn, frame []byte) {
	var msg primeTickerPush
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourcePrimeAPI)
		return
	}
	if msg.Event != "tick" || msg.Symbol != string(a.sym) {
		return
	}

	raw, err := strconv.ParseFloat(msg.Price, 64)
	if err != nil {
		metrics.CountDrop(market.SourcePrimeAPI)
		return
	}

	a.emit.AddDataPoint(market.SourcePrimeAPI, a.sym, market.Tick{
		Price:     raw * math.Pow(10, float64(msg.Exp)),
		Timestamp: time.Now().UnixMilli(),
	})
}
