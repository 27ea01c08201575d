package adapter

import (
	"math"
	"testing"
)

func TestPrimeAPISubscribeForexOnly(t *testing.T) {
	conn := &fakeConn{}
	a := NewPrimeAPI("EURUSD", &captureEmitter{})
	a.OnOpen(conn)

	msg := conn.lastJSON(t)
	if msg["op"] != "subscribe" || msg["symbol"] != "EURUSD" {
		t.Fatalf("subscribe payload = %v", msg)
	}

	// Non-forex symbols are not offered on this feed.
	conn2 := &fakeConn{}
	NewPrimeAPI("BTCUSDT", &captureEmitter{}).OnOpen(conn2)
	if conn2.sentCount() != 0 {
		t.Fatalf("non-forex symbol sent a subscription")
	}
}

func TestPrimeAPIExponentScaling(t *testing.T) {
	emit := &captureEmitter{}
	a := NewPrimeAPI("EURUSD", emit)

	a.OnMessage(nil, []byte(`{"event":"tick","symbol":"EURUSD","price":"108325","exp":-5}`))

	_, _, tick := emit.last(t)
	if math.Abs(tick.Price-1.08325) > 1e-9 {
		t.Fatalf("price = %v, want 1.08325", tick.Price)
	}
}

func TestPrimeAPIIgnoresOtherSymbols(t *testing.T) {
	emit := &captureEmitter{}
	a := NewPrimeAPI("EURUSD", emit)

	a.OnMessage(nil, []byte(`{"event":"tick","symbol":"GBPUSD","price":"127000","exp":-5}`))
	if emit.count() != 0 {
		t.Fatalf("tick for another pair was emitted")
	}
}
