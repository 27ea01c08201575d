package adapter

import "testing"

func TestOKXSubscribe(t *testing.T) {
	conn := &fakeConn{}
	a := NewOKX("BTCUSDT", &captureEmitter{}, fixedRate{rate: 1, known: true})
	a.OnOpen(conn)

	msg := conn.lastJSON(t)
	if msg["op"] != "subscribe" {
		t.Fatalf("op = %v", msg["op"])
	}
	args, ok := msg["args"].([]any)
	if !ok || len(args) != 1 {
		t.Fatalf("args = %v", msg["args"])
	}
	arg := args[0].(map[string]any)
	if arg["channel"] != "bbo-tbt" || arg["instId"] != "BTC-USDT" {
		t.Fatalf("arg = %v", arg)
	}
}

func TestOKXEmitsConvertedMid(t *testing.T) {
	emit := &captureEmitter{}
	a := NewOKX("BTCUSDT", emit, fixedRate{rate: 2, known: true})

	msg := `{"arg":{"channel":"bbo-tbt","instId":"BTC-USDT"},"data":[{"bids":[["100","1","0","1"]],"asks":[["102","1","0","1"]]}]}`
	a.OnMessage(nil, []byte(msg))

	_, _, tick := emit.last(t)
	if tick.Price != 202 {
		t.Fatalf("price = %v, want 202", tick.Price)
	}
}

func TestOKXEmptyBookSideIgnored(t *testing.T) {
	emit := &captureEmitter{}
	a := NewOKX("BTCUSDT", emit, fixedRate{rate: 1, known: true})

	msg := `{"arg":{"channel":"bbo-tbt","instId":"BTC-USDT"},"data":[{"bids":[],"asks":[["102","1","0","1"]]}]}`
	a.OnMessage(nil, []byte(msg))

	if emit.count() != 0 {
		t.Fatalf("tick emitted with an empty bid side")
	}
}
