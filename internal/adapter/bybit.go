package adapter

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

// Bybit consumes the spot level-1 orderbook topic. Snapshots and deltas carry
// bid/ask arrays whose first element is the best level; at depth 1 the push
// itself is the top of book, no local book state is needed.
type Bybit struct {
	sym   market.Symbol
	emit  Emitter
	rates RateSource
}

func NewBybit(sym market.Symbol, emit Emitter, rates RateSource) *Bybit {
	return &Bybit{sym: sym, emit: emit, rates: rates}
}

func (a *Bybit) Source() market.Source { return market.SourceBybit }

func (a *Bybit) OnOpen(conn Conn) {
	topic, ok := symbols.ToBybit(a.sym)
	if !ok {
		return
	}
	_ = conn.SendJSON(map[string]any{
		"op":   "subscribe",
		"args": []string{"orderbook.1." + topic},
	})
}

func (a *Bybit) OnClose() {}

type bybitOrderbookMsg struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Data  struct {
		Symbol string      `json:"s"`
		Bids   [][2]string `json:"b"`
		Asks   [][2]string `json:"a"`
	} `json:"data"`
}

func (a *Bybit) OnMessage(_ Conn, frame []byte) {
	var msg bybitOrderbookMsg
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourceBybit)
		return
	}
	if !strings.HasPrefix(msg.Topic, "orderbook.1.") {
		return
	}
	if msg.Type != "snapshot" && msg.Type != "delta" {
		return
	}
	if msg.Data.Symbol != string(a.sym) {
		return
	}
	if len(msg.Data.Bids) == 0 || len(msg.Data.Asks) == 0 {
		return
	}

	bid, errB := strconv.ParseFloat(msg.Data.Bids[0][0], 64)
	ask, errA := strconv.ParseFloat(msg.Data.Asks[0][0], 64)
	if errB != nil || errA != nil {
		metrics.CountDrop(market.SourceBybit)
		return
	}

	rate, ok := a.rates.Rate()
	if !ok {
		return
	}

	a.emit.AddDataPoint(market.SourceBybit, a.sym, market.Tick{
		Price:     (bid + ask) / 2 * rate,
		Timestamp: time.Now().UnixMilli(),
	})
}
