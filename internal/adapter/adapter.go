// Package adapter holds one source adapter per upstream provider. An adapter
// knows the provider's subscribe handshake and wire message shape and reduces
// inbound frames to canonical ticks for the selected symbol, writing them
// straight into the aggregation store.
package adapter

import (
	"quoteflow/internal/market"
)

// Conn is the outbound half of a supervised connection, the only part an
// adapter may touch.
type Conn interface {
	Send(payload []byte) error
	SendJSON(v any) error
}

// Emitter receives normalized ticks. Satisfied by *store.Store.
type Emitter interface {
	AddDataPoint(src market.Source, sym market.Symbol, tick market.Tick)
}

// RateSource exposes the shared USDT to USD reference rate. The boolean is
// false until the rate has been fetched at least once.
type RateSource interface {
	Rate() (float64, bool)
}

// Adapter normalizes one provider's wire protocol.
//
// OnOpen sends the provider-specific subscription for the configured symbol
// and is a no-op when the symbol has no mapping for the provider. OnMessage
// must tolerate malformed frames: parse failures are counted as dropped
// frames, discarded per message, and never affect the next frame. OnClose
// releases any adapter-owned resources such as heartbeat tickers.
type Adapter interface {
	Source() market.Source
	OnOpen(conn Conn)
	OnMessage(conn Conn, frame []byte)
	OnClose()
}

// New builds the adapter for src, bound to one selected symbol, emitter and
// rate source. The boolean is false for sources with no adapter (polling
// sources are driven by the poller, not a stream adapter).
func New(src market.Source, sym market.Symbol, emit Emitter, rates RateSource) (Adapter, bool) {
	switch src {
	case market.SourceBinance:
		return NewBinance(sym, emit, rates), true
	case market.SourceBybit:
		return NewBybit(sym, emit, rates), true
	case market.SourceCoinbase:
		return NewCoinbase(sym, emit), true
	case market.SourceOKX:
		return NewOKX(sym, emit, rates), true
	case market.SourcePyth:
		return NewPyth(sym, emit), true
	case market.SourcePythPro:
		return NewPythLazer(sym, emit), true
	case market.SourceInfoway:
		return NewInfoway(sym, emit), true
	case market.SourceTwelveData:
		return NewTwelveData(sym, emit), true
	case market.SourcePrimeAPI:
		return NewPrimeAPI(sym, emit), true
	default:
		return nil, false
	}
}
