package market

// Source identifies one upstream data provider.
type Source string

const (
	SourceBinance    Source = "binance"
	SourceBybit      Source = "bybit"
	SourceCoinbase   Source = "coinbase"
	SourceOKX        Source = "okx"
	SourcePyth       Source = "pyth"
	SourcePythPro    Source = "pyth_pro"
	SourcePrimeAPI   Source = "prime_api"
	SourceInfoway    Source = "infoway_io"
	SourceTwelveData Source = "twelve_data"
	SourceYahoo      Source = "yahoo"
)

// AllSources lists every known provider in display order.
var AllSources = []Source{
	SourceBinance,
	SourceBybit,
	SourceCoinbase,
	SourceOKX,
	SourcePyth,
	SourcePythPro,
	SourcePrimeAPI,
	SourceInfoway,
	SourceTwelveData,
	SourceYahoo,
}

// AssetClass partitions symbols into disjoint instrument families.
type AssetClass string

const (
	ClassCrypto   AssetClass = "crypto"
	ClassEquity   AssetClass = "equity"
	ClassForex    AssetClass = "forex"
	ClassTreasury AssetClass = "treasury"
	ClassFuture   AssetClass = "future"
)

// Symbol is the canonical identifier of the instrument being monitored.
type Symbol string

var allowedSymbols = map[AssetClass][]Symbol{
	ClassCrypto:   {"BTCUSDT", "ETHUSDT"},
	ClassEquity:   {"AAPL", "MSFT", "NVDA", "TSLA"},
	ClassForex:    {"EURUSD", "GBPUSD", "USDJPY"},
	ClassTreasury: {"US10Y"},
	ClassFuture:   {"ES", "NQ"},
}

// classSources maps each asset class to the ordered set of sources that can
// quote instruments of that class.
var classSources = map[AssetClass][]Source{
	ClassCrypto:   {SourceBinance, SourceBybit, SourceCoinbase, SourceOKX, SourcePyth, SourcePythPro},
	ClassEquity:   {SourcePyth, SourcePythPro, SourceInfoway, SourceTwelveData},
	ClassForex:    {SourcePyth, SourcePythPro, SourcePrimeAPI, SourceInfoway, SourceTwelveData},
	ClassTreasury: {SourcePyth, SourcePythPro, SourceYahoo},
	ClassFuture:   {SourcePyth, SourcePythPro},
}

// ClassOf resolves the asset class of a canonical symbol. The second return
// value is false for unknown symbols.
func ClassOf(sym Symbol) (AssetClass, bool) {
	for class, syms := range allowedSymbols {
		for _, s := range syms {
			if s == sym {
				return class, true
			}
		}
	}
	return "", false
}

// IsAllowed reports whether sym is one of the supported instruments.
func IsAllowed(sym Symbol) bool {
	_, ok := ClassOf(sym)
	return ok
}

// SourcesFor returns the providers applicable to sym's asset class, in the
// configured order. Unknown symbols have no applicable sources.
func SourcesFor(sym Symbol) []Source {
	class, ok := ClassOf(sym)
	if !ok {
		return nil
	}
	out := make([]Source, len(classSources[class]))
	copy(out, classSources[class])
	return out
}

// AllowedSymbols returns the allow-list for one asset class.
func AllowedSymbols(class AssetClass) []Symbol {
	syms := allowedSymbols[class]
	out := make([]Symbol, len(syms))
	copy(out, syms)
	return out
}

// RequiresCredential reports whether a source is gated behind an API token.
// Sources without a configured credential are never enabled; this is a
// degraded state, not an error.
func RequiresCredential(src Source) bool {
	switch src {
	case SourcePythPro, SourcePrimeAPI, SourceInfoway, SourceTwelveData:
		return true
	default:
		return false
	}
}

// QuotesInUSDT reports whether a source quotes crypto pairs in USDT and
// therefore needs the reference rate applied before a tick may be emitted.
func QuotesInUSDT(src Source) bool {
	switch src {
	case SourceBinance, SourceBybit, SourceOKX:
		return true
	default:
		return false
	}
}
