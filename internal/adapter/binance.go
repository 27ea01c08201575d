package adapter

import (
	"encoding/json"
	"strconv"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

// Binance consumes the bookTicker stream. The subscription is encoded in the
// connection URL path, so there is no handshake to send; every push carries
// the current best bid and best ask for the pair.
type Binance struct {
	sym   market.Symbol
	emit  Emitter
	rates RateSource
}

func NewBinance(sym market.Symbol, emit Emitter, rates RateSource) *Binance {
	return &Binance{sym: sym, emit: emit, rates: rates}
}

func (a *Binance) Source() market.Source { return market.SourceBinance }

func (a *Binance) OnOpen(Conn) {}

func (a *Binance) OnClose() {}

type binanceBookTicker struct {
	Symbol  string `json:"s"`
	BestBid string `json:"b"`
	BestAsk string `json:"a"`
}

func (a *Binance) OnMessage(_ Conn, frame []byte) {
	var msg binanceBookTicker
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourceBinance)
		return
	}
	if msg.Symbol != string(a.sym) {
		return
	}

	bid, errB := strconv.ParseFloat(msg.BestBid, 64)
	ask, errA := strconv.ParseFloat(msg.BestAsk, 64)
	if errB != nil || errA != nil {
		metrics.CountDrop(market.SourceBinance)
		return
	}

	// Binance quotes in USDT; without a known reference rate no tick may
	// reach the store.
	rate, ok := a.rates.Rate()
	if !ok {
		return
	}

	a.emit.AddDataPoint(market.SourceBinance, a.sym, market.Tick{
		Price:     (bid + ask) / 2 * rate,
		Timestamp: time.Now().UnixMilli(),
	})
}

// BinanceStreamPath renders the bookTicker stream path segment for sym,
// e.g. btcusdt@bookTicker. False when the pair is not mapped for Binance.
func BinanceStreamPath(sym market.Symbol) (string, bool) {
	s, ok := symbols.ToBinanceStream(sym)
	if !ok {
		return "", false
	}
	return s + "@bookTicker", true
}
