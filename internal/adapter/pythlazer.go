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

// lazerExponent scales Lazer fixed-point prices; the stream publishes eight
// implied decimal places.
const lazerExponent = -8

// lazerSubscriptionID identifies this client's single subscription on the
// multiplexed stream.
const lazerSubscriptionID = 1

// PythLazer consumes the low-latency Lazer stream: numeric feed ids, one
// subscription id per client request, and a configurable channel cadence
// (real_time here).
type PythLazer struct {
	sym  market.Symbol
	emit Emitter
}

func NewPythLazer(sym market.Symbol, emit Emitter) *PythLazer {
	return &PythLazer{sym: sym, emit: emit}
}

func (a *PythLazer) Source() market.Source { return market.SourcePythPro }

func (a *PythLazer) OnOpen(conn Conn) {
	feedID, ok := symbols.PythLazerFeedID(a.sym)
	if !ok {
		return
	}
	_ = conn.SendJSON(map[string]any{
		"subscriptionId": lazerSubscriptionID,
		"type":           "subscribe",
		"priceFeedIds":   []int{feedID},
		"properties":     []string{"price"},
		"chains":         []string{},
		"channel":        "real_time",
	})
}

func (a *PythLazer) OnClose() {}

type lazerStreamUpdate struct {
	Type           string `json:"type"`
	SubscriptionID int    `json:"subscriptionId"`
	Parsed         struct {
		PriceFeeds []struct {
			PriceFeedID int    `json:"priceFeedId"`
			Price       string `json:"price"`
		} `json:"priceFeeds"`
	} `json:"parsed"`
}

func (a *PythLazer) OnMessage(_ Conn, frame []byte) {
	var msg lazerStreamUpdate
	if err := json.Unmarshal(frame, &msg); err != nil {
		metrics.CountDrop(market.SourcePythPro)
		return
	}
	if msg.Type != "streamUpdated" || msg.SubscriptionID != lazerSubscriptionID {
		return
	}

	for _, feed := range msg.Parsed.PriceFeeds {
		sym, ok := symbols.FromPythLazerFeedID(feed.PriceFeedID)
		if !ok || sym != a.sym {
			continue
		}
		raw, err := strconv.ParseFloat(feed.Price, 64)
		if err != nil {
			metrics.CountDrop(market.SourcePythPro)
			continue
		}
		a.emit.AddDataPoint(market.SourcePythPro, a.sym, market.Tick{
			Price:     raw * math.Pow(10, lazerExponent),
			Timestamp: time.Now().UnixMilli(),
		})
	}
}
