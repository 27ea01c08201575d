package adapter

import "testing"

func TestBybitSubscribe(t *testing.T) {
	conn := &fakeConn{}
	a := NewBybit("BTCUSDT", &captureEmitter{}, fixedRate{rate: 1, known: true})
	a.OnOpen(conn)

	msg := conn.lastJSON(t)
	if msg["op"] != "subscribe" {
		t.Fatalf("op = %v", msg["op"])
	}
	args, ok := msg["args"].([]any)
	if !ok || len(args) != 1 || args[0] != "orderbook.1.BTCUSDT" {
		t.Fatalf("args = %v", msg["args"])
	}
}

func TestBybitSnapshotAndDelta(t *testing.T) {
	emit := &captureEmitter{}
	a := NewBybit("BTCUSDT", emit, fixedRate{rate: 1, known: true})

	snapshot := `{"topic":"orderbook.1.BTCUSDT","type":"snapshot","data":{"s":"BTCUSDT","b":[["100","1"]],"a":[["102","1"]]}}`
	a.OnMessage(nil, []byte(snapshot))
	_, _, tick := emit.last(t)
	if tick.Price != 101 {
		t.Fatalf("snapshot mid = %v, want 101", tick.Price)
	}

	delta := `{"topic":"orderbook.1.BTCUSDT","type":"delta","data":{"s":"BTCUSDT","b":[["104","1"]],"a":[["106","1"]]}}`
	a.OnMessage(nil, []byte(delta))
	_, _, tick = emit.last(t)
	if tick.Price != 105 {
		t.Fatalf("delta mid = %v, want 105", tick.Price)
	}
}

func TestBybitIgnoresUnrelatedTopics(t *testing.T) {
	emit := &captureEmitter{}
	a := NewBybit("BTCUSDT", emit, fixedRate{rate: 1, known: true})

	a.OnMessage(nil, []byte(`{"topic":"tickers.BTCUSDT","type":"snapshot","data":{"s":"BTCUSDT","b":[["100","1"]],"a":[["102","1"]]}}`))
	a.OnMessage(nil, []byte(`{"op":"subscribe","success":true}`))

	if n := emit.count(); n != 0 {
		t.Fatalf("unrelated messages produced %d ticks", n)
	}
}

func TestBybitSuppressedWhileRateUnknown(t *testing.T) {
	emit := &captureEmitter{}
	a := NewBybit("BTCUSDT", emit, fixedRate{})

	a.OnMessage(nil, []byte(`{"topic":"orderbook.1.BTCUSDT","type":"snapshot","data":{"s":"BTCUSDT","b":[["100","1"]],"a":[["102","1"]]}}`))
	if emit.count() != 0 {
		t.Fatalf("bybit must not emit while the reference rate is unknown")
	}
}
