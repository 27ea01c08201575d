package market

import "testing"

func TestClassOf(t *testing.T) {
	cases := []struct {
		sym   Symbol
		class AssetClass
	}{
		{"BTCUSDT", ClassCrypto},
		{"AAPL", ClassEquity},
		{"EURUSD", ClassForex},
		{"US10Y", ClassTreasury},
		{"ES", ClassFuture},
	}
	for _, c := range cases {
		class, ok := ClassOf(c.sym)
		if !ok || class != c.class {
			t.Fatalf("ClassOf(%s) = %v, %v; want %v", c.sym, class, ok, c.class)
		}
	}

	if _, ok := ClassOf("DOGEUSDT"); ok {
		t.Fatalf("expected DOGEUSDT to be unknown")
	}
}

func TestSourcesForCrypto(t *testing.T) {
	srcs := SourcesFor("BTCUSDT")
	want := []Source{SourceBinance, SourceBybit, SourceCoinbase, SourceOKX, SourcePyth, SourcePythPro}
	if len(srcs) != len(want) {
		t.Fatalf("got %d sources, want %d", len(srcs), len(want))
	}
	for i, s := range want {
		if srcs[i] != s {
			t.Fatalf("source[%d] = %s, want %s", i, srcs[i], s)
		}
	}
}

func TestSourcesForTreasuryIncludesPollingSource(t *testing.T) {
	found := false
	for _, s := range SourcesFor("US10Y") {
		if s == SourceYahoo {
			found = true
		}
	}
	if !found {
		t.Fatalf("treasury sources missing yahoo")
	}
}

func TestSourcesForUnknownSymbol(t *testing.T) {
	if srcs := SourcesFor("NOPE"); srcs != nil {
		t.Fatalf("expected nil sources for unknown symbol, got %v", srcs)
	}
}

func TestRequiresCredential(t *testing.T) {
	gated := []Source{SourcePythPro, SourcePrimeAPI, SourceInfoway, SourceTwelveData}
	for _, s := range gated {
		if !RequiresCredential(s) {
			t.Fatalf("%s should require a credential", s)
		}
	}
	open := []Source{SourceBinance, SourceBybit, SourceCoinbase, SourceOKX, SourcePyth, SourceYahoo}
	for _, s := range open {
		if RequiresCredential(s) {
			t.Fatalf("%s should not require a credential", s)
		}
	}
}

func TestMetricChangeSequence(t *testing.T) {
	m := First(Tick{Price: 100, Timestamp: 1})
	if m.Change != 0 || m.ChangePercent != 0 {
		t.Fatalf("first metric should have zero change, got %+v", m)
	}

	m = m.Next(Tick{Price: 105, Timestamp: 2})
	if m.Change != 5 {
		t.Fatalf("change = %v, want 5", m.Change)
	}
	if m.ChangePercent != 5 {
		t.Fatalf("changePercent = %v, want 5", m.ChangePercent)
	}

	m = m.Next(Tick{Price: 95, Timestamp: 3})
	if m.Change != -10 {
		t.Fatalf("change = %v, want -10", m.Change)
	}
	wantPct := -10.0 / 105 * 100
	if m.ChangePercent != wantPct {
		t.Fatalf("changePercent = %v, want %v", m.ChangePercent, wantPct)
	}
}

func TestMetricChangePercentZeroPrev(t *testing.T) {
	m := First(Tick{Price: 0, Timestamp: 1}).Next(Tick{Price: 3, Timestamp: 2})
	if m.Change != 3 {
		t.Fatalf("change = %v, want 3", m.Change)
	}
	if m.ChangePercent != 0 {
		t.Fatalf("changePercent must be zero when previous price is zero, got %v", m.ChangePercent)
	}
}
