package adapter

import (
	"encoding/json"
	"sync"
	"testing"

	"quoteflow/internal/market"
	"quoteflow/internal/metrics"
)

// captureEmitter records emitted ticks for assertions.
type captureEmitter struct {
	mu    sync.Mutex
	ticks []struct {
		src  market.Source
		sym  market.Symbol
		tick market.Tick
	}
}

func (c *captureEmitter) AddDataPoint(src market.Source, sym market.Symbol, tick market.Tick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks = append(c.ticks, struct {
		src  market.Source
		sym  market.Symbol
		tick market.Tick
	}{src, sym, tick})
}

func (c *captureEmitter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ticks)
}

func (c *captureEmitter) last(t *testing.T) (market.Source, market.Symbol, market.Tick) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.ticks) == 0 {
		t.Fatalf("no ticks emitted")
	}
	e := c.ticks[len(c.ticks)-1]
	return e.src, e.sym, e.tick
}

// fakeConn records outbound payloads.
type fakeConn struct {
	mu   sync.Mutex
	sent []any
}

func (f *fakeConn) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeConn) SendJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeConn) lastJSON(t *testing.T) map[string]any {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		t.Fatalf("nothing sent")
	}
	raw, err := json.Marshal(f.sent[len(f.sent)-1])
	if err != nil {
		t.Fatalf("marshal sent payload: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal sent payload: %v", err)
	}
	return out
}

// fixedRate is a RateSource with a static answer.
type fixedRate struct {
	rate  float64
	known bool
}

func (r fixedRate) Rate() (float64, bool) { return r.rate, r.known }

func TestRegistryCoversStreamingSources(t *testing.T) {
	emit := &captureEmitter{}
	rates := fixedRate{rate: 1, known: true}

	streaming := []market.Source{
		market.SourceBinance, market.SourceBybit, market.SourceCoinbase,
		market.SourceOKX, market.SourcePyth, market.SourcePythPro,
		market.SourceInfoway, market.SourceTwelveData, market.SourcePrimeAPI,
	}
	for _, src := range streaming {
		ad, ok := New(src, "BTCUSDT", emit, rates)
		if !ok || ad == nil {
			t.Fatalf("no adapter for %s", src)
		}
		if ad.Source() != src {
			t.Fatalf("adapter for %s reports source %s", src, ad.Source())
		}
	}

	if _, ok := New(market.SourceYahoo, "US10Y", emit, rates); ok {
		t.Fatalf("yahoo is poller driven and must have no stream adapter")
	}
}

func TestMalformedFramesAreDiscarded(t *testing.T) {
	emit := &captureEmitter{}
	rates := fixedRate{rate: 1, known: true}

	frames := [][]byte{
		[]byte("not json"),
		[]byte("{}"),
		[]byte(`{"s":"BTCUSDT","b":"oops","a":"101"}`),
		nil,
	}

	adapters := []Adapter{
		NewBinance("BTCUSDT", emit, rates),
		NewBybit("BTCUSDT", emit, rates),
		NewCoinbase("BTCUSDT", emit),
		NewOKX("BTCUSDT", emit, rates),
		NewPyth("BTCUSDT", emit),
		NewPythLazer("BTCUSDT", emit),
		NewInfoway("AAPL", emit),
		NewTwelveData("EURUSD", emit),
		NewPrimeAPI("EURUSD", emit),
	}
	for _, ad := range adapters {
		for _, f := range frames {
			ad.OnMessage(&fakeConn{}, f)
		}
	}

	if n := emit.count(); n != 0 {
		t.Fatalf("malformed frames produced %d ticks", n)
	}
}

func TestUnparsableFramesCountDrops(t *testing.T) {
	emit := &captureEmitter{}
	rates := fixedRate{rate: 1, known: true}

	drops := func(src market.Source) int64 { return metrics.Snapshot()[src].Drops }

	bn := NewBinance("BTCUSDT", emit, rates)
	before := drops(market.SourceBinance)
	bn.OnMessage(&fakeConn{}, []byte("not json"))
	bn.OnMessage(&fakeConn{}, []byte(`{"s":"BTCUSDT","b":"oops","a":"101"}`))
	if got := drops(market.SourceBinance); got != before+2 {
		t.Fatalf("binance drops = %d, want %d", got, before+2)
	}

	// Frames that parse but are simply irrelevant, acks or other symbols,
	// are not drops.
	before = drops(market.SourceBinance)
	bn.OnMessage(&fakeConn{}, []byte(`{"s":"ETHUSDT","b":"100","a":"101"}`))
	if got := drops(market.SourceBinance); got != before {
		t.Fatalf("irrelevant frame counted as drop")
	}

	pa := NewPrimeAPI("EURUSD", emit)
	before = drops(market.SourcePrimeAPI)
	pa.OnMessage(&fakeConn{}, []byte(`{"event":"tick","symbol":"EURUSD","price":"abc","exp":-5}`))
	if got := drops(market.SourcePrimeAPI); got != before+1 {
		t.Fatalf("prime_api drops = %d, want %d", got, before+1)
	}
}
