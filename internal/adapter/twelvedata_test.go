package adapter

import "testing"

func TestTwelveDataSubscribe(t *testing.T) {
	conn := &fakeConn{}
	a := NewTwelveData("EURUSD", &captureEmitter{})
	a.OnOpen(conn)
	defer a.OnClose()

	msg := conn.lastJSON(t)
	if msg["action"] != "subscribe" {
		t.Fatalf("action = %v", msg["action"])
	}
	params := msg["params"].(map[string]any)
	if params["symbols"] != "EUR/USD" {
		t.Fatalf("symbols = %v", params["symbols"])
	}
}

func TestTwelveDataPriceEvent(t *testing.T) {
	emit := &captureEmitter{}
	a := NewTwelveData("EURUSD", emit)

	a.OnMessage(nil, []byte(`{"event":"price","symbol":"EUR/USD","price":1.0832}`))

	_, sym, tick := emit.last(t)
	if sym != "EURUSD" || tick.Price != 1.0832 {
		t.Fatalf("tick = %s %v", sym, tick.Price)
	}
}

func TestTwelveDataIgnoresStatusEvents(t *testing.T) {
	emit := &captureEmitter{}
	a := NewTwelveData("EURUSD", emit)

	a.OnMessage(nil, []byte(`{"event":"subscribe-status","status":"ok"}`))
	a.OnMessage(nil, []byte(`{"event":"heartbeat","status":"ok"}`))

	if emit.count() != 0 {
		t.Fatalf("status events produced ticks")
	}
}

func TestTwelveDataCloseStopsHeartbeat(t *testing.T) {
	a := NewTwelveData("EURUSD", &captureEmitter{})
	a.OnOpen(&fakeConn{})
	a.OnClose()
	a.OnClose()
}
