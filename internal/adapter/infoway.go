package adapter

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
	"quoteflow/internal/symbols"
)

// Infoway protocol codes: 10000 subscribes, 10010 is the application-level
// heartbeat, 10002 is a trade push.
const (
	infowayCodeSubscribe = 10000
	infowayCodeTrade     = 10002
	infowayCodeHeartbeat = 10010
)

const infowayHeartbeatInterval = 10 * time.Second

// Infoway consumes the Infoway aggregator feed. The session dies without a
// periodic application-level heartbeat, so the adapter runs a heartbeat
// ticker for the lifetime of each connection. Every request carries a uuid
// trace id.
type Infoway struct {
	sym  market.Symbol
	emit Emitter

	mu       sync.Mutex
	stopBeat chan struct{}
}

func NewInfoway(sym market.Symbol, emit Emitter) *Infoway {
	return &Infoway{sym: sym, emit: emit}
}

func (a *Infoway) Source() market.Source { return market.SourceInfoway }

func (a *Infoway) OnOpen(conn Conn) {
	code, ok := symbols.ToInfoway(a.sym)
	if !ok {
		return
	}

	a.startHeartbeat(conn)

	_ = conn.SendJSON(map[string]any{
		"code":  infowayCodeSubscribe,
		"data":  map[string]string{"codes": code},
		"trace": uuid.NewString(),
	})
}

func (a *Infoway) OnClose() {
	a.mu.Lock()
	if a.stopBeat != nil {
		close(a.stopBeat)
		a.stopBeat = nil
	}
	a.mu.Unlock()
}

func (a *Infoway) startHeartbeat(conn Conn) {
	a.OnClose() // replace any heartbeat left over from a previous connection
	stop := make(chan struct{})
	a.mu.Lock()
	a.stopBeat = stop
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(infowayHeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				_ = conn.SendJSON(map[string]any{
					"code":  infowayCodeHeartbeat,
					"trace": uuid.NewString(),
				})
			}
		}
	}()
}

type infowayTradePush struct {
	Code int `json:"code"`
	Data struct {
		Symbol string `json:"s"`
		Price  string `json:"p"`
	} `json:"data"`
}

func (a *Infoway) OnMessage(_ Conn, frame []byte) {
	var msg infowayTradePush
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourceInfoway)
		return
	}
	if msg.Code != infowayCodeTrade {
		return
	}

	price, err := strconv.ParseFloat(msg.Data.Price, 64)
	if err != nil {
		metrics.CountDrop(market.SourceInfoway)
		return
	}

	a.emit.AddDataPoint(market.SourceInfoway, a.sym, market.Tick{
		Price:     price,
		Timestamp: time.Now().UnixMilli(),
	})
}
