package market

// Tick is one normalized price observation from one source. Timestamp is
// local receipt time in milliseconds, not the exchange's event time.
type Tick struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// Metric is the rolling per-(source, symbol) state derived from ticks.
// Change and ChangePercent are relative to the immediately preceding metric
// for the same key; the first observation yields zero for both.
type Metric struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	Timestamp     int64   `json:"timestamp"`
}

// Next derives the metric that follows m after observing t.
func (m Metric) Next(t Tick) Metric {
	change := t.Price - m.Price
	pct := 0.0
	if m.Price > 0 {
		pct = change / m.Price * 100
	}
	return Metric{
		Price:         t.Price,
		Change:        change,
		ChangePercent: pct,
		Timestamp:     t.Timestamp,
	}
}

// First builds the initial metric for a key: previousPrice is the tick's own
// price, so change and changePercent are zero.
func First(t Tick) Metric {
	return Metric{Price: t.Price, Timestamp: t.Timestamp}
}

// Status models the lifecycle of one provider connection. Closed is both the
// initial state and the state after any terminal failure or teardown.
type Status string

const (
	StatusClosed       Status = "closed"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
)
