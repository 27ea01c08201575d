package adapter

import (
	"encoding/json"
	"strconv"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

// OKX consumes the bbo-tbt channel: each push carries only the current best
// bid and best ask for the instrument.
type OKX struct {
	sym   market.Symbol
	emit  Emitter
	rates RateSource
}

func NewOKX(sym market.Symbol, emit Emitter, rates RateSource) *OKX {
	return &OKX{sym: sym, emit: emit, rates: rates}
}

func (a *OKX) Source() market.Source { return market.SourceOKX }

func (a *OKX) OnOpen(conn Conn) {
	instID, ok := symbols.ToOKX(a.sym)
	if !ok {
		return
	}
	_ = conn.SendJSON(map[string]any{
		"op": "subscribe",
		"args": []map[string]string{{
			"channel": "bbo-tbt",
			"instId":  instID,
		}},
	})
}

func (a *OKX) OnClose() {}

type okxBBOMsg struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []struct {
		Bids [][]string `json:"bids"`
		Asks [][]string `json:"asks"`
	} `json:"data"`
}

func (a *OKX) OnMessage(_ Conn, frame []byte) {
	var msg okxBBOMsg
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourceOKX)
		return
	}
	if msg.Arg.Channel != "bbo-tbt" || len(msg.Data) == 0 {
		return
	}
	instID, ok := symbols.ToOKX(a.sym)
	if !ok || msg.Arg.InstID != instID {
		return
	}

	tick := msg.Data[0]
	if len(tick.Bids) == 0 || len(tick.Bids[0]) == 0 || len(tick.Asks) == 0 || len(tick.Asks[0]) == 0 {
		return
	}
	bid, errB := strconv.ParseFloat(tick.Bids[0][0], 64)
	ask, errA := strconv.ParseFloat(tick.Asks[0][0], 64)
	if errB != nil || errA != nil {
		metrics.CountDrop(market.SourceOKX)
		return
	}

	rate, ok := a.rates.Rate()
	if !ok {
		return
	}

	a.emit.AddDataPoint(market.SourceOKX, a.sym, market.Tick{
		Price:     (bid + ask) / 2 * rate,
		Timestamp: time.Now().UnixMilli(),
	})
}
