package adapter

import (
	"testing"

	"quoteflow/internal/market"
)

func TestBinanceEmitsConvertedMid(t *testing.T) {
	emit := &captureEmitter{}
	a := NewBinance("BTCUSDT", emit, fixedRate{rate: 0.999, known: true})

	a.OnMessage(nil, []byte(`{"s":"BTCUSDT","b":"100","a":"102"}`))

	src, sym, tick := emit.last(t)
	if src != market.SourceBinance || sym != "BTCUSDT" {
		t.Fatalf("tick attributed to %s/%s", src, sym)
	}
	want := 101 * 0.999
	if tick.Price != want {
		t.Fatalf("price = %v, want %v", tick.Price, want)
	}
}

func TestBinanceSuppressedWhileRateUnknown(t *testing.T) {
	emit := &captureEmitter{}
	a := NewBinance("BTCUSDT", emit, fixedRate{})

	a.OnMessage(nil, []byte(`{"s":"BTCUSDT","b":"100","a":"102"}`))

	if n := emit.count(); n != 0 {
		t.Fatalf("emitted %d ticks while the reference rate is unknown", n)
	}
}

func TestBinanceIgnoresOtherSymbols(t *testing.T) {
	emit := &captureEmitter{}
	a := NewBinance("BTCUSDT", emit, fixedRate{rate: 1, known: true})

	a.OnMessage(nil, []byte(`{"s":"ETHUSDT","b":"100","a":"102"}`))

	if n := emit.count(); n != 0 {
		t.Fatalf("tick for another symbol was emitted")
	}
}

func TestBinanceStreamPath(t *testing.T) {
	path, ok := BinanceStreamPath("BTCUSDT")
	if !ok || path != "btcusdt@bookTicker" {
		t.Fatalf("path = %q, %v", path, ok)
	}
	if _, ok := BinanceStreamPath("AAPL"); ok {
		t.Fatalf("AAPL has no Binance stream path")
	}
}
