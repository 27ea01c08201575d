package adapter

import (
	"encoding/json"
	"sync"
	"time"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

const twelveHeartbeatInterval = 10 * time.Second

// TwelveData consumes the Twelve Data price stream: explicit subscribe with
// the provider-formatted symbol, a repeating heartbeat action to keep the
// session alive, and price events pushed as numeric JSON.
type TwelveData struct {
	sym  market.Symbol
	emit Emitter

	mu       sync.Mutex
	stopBeat chan struct{}
}

func NewTwelveData(sym market.Symbol, emit Emitter) *TwelveData {
	return &TwelveData{sym: sym, emit: emit}
}

func (a *TwelveData) Source() market.Source { return market.SourceTwelveData }

func (a *TwelveData) OnOpen(conn Conn) {
	providerSym, ok := symbols.ToTwelveData(a.sym)
	if !ok {
		return
	}

	a.startHeartbeat(conn)

	_ = conn.SendJSON(map[string]any{
		"action": "subscribe",
		"params": map[string]string{"symbols": providerSym},
	})
}

func (a *TwelveData) OnClose() {
	a.mu.Lock()
	if a.stopBeat != nil {
		close(a.stopBeat)
		a.stopBeat = nil
	}
	a.mu.Unlock()
}

func (a *TwelveData) startHeartbeat(conn Conn) {
	a.OnClose()
	stop := make(chan struct{})
	a.mu.Lock()
	a.stopBeat = stop
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(twelveHeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = conn.SendJSON(map[string]string{"action": "heartbeat"})
			}
		}
	}()
}

type twelvePriceEvent struct {
	Event string  `json:"event"`
	Price float64 `json:"price"`
}

func (a *TwelveData) OnMessage(_ Conn, frame []byte) {
	var msg twelvePriceEvent
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourceTwelveData)
		return
	}
	// Subscribe-status and heartbeat acks are discarded here.
	if msg.Event != "price" {
		return
	}

	a.emit.AddDataPoint(market.SourceTwelveData, a.sym, market.Tick{
		Price:     msg.Price,
		Timestamp: time.Now().UnixMilli(),
	})
}
