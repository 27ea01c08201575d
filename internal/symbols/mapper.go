package symbols

import (
	"strings"

	"quoteflow/internal/market"
)

// Provider naming differs per upstream: Coinbase wants BTC-USD, OKX wants
// BTC-USDT, Twelve Data wants EUR/USD, Infoway wants AAPL.US. Each ToX helper
// translates a canonical symbol into the provider's convention and reports
// whether the symbol is mapped for that provider at all. An unmapped symbol
// makes the calling adapter a no-op.

// ToCoinbase converts a canonical crypto pair to a Coinbase product id.
func ToCoinbase(sym market.Symbol) (string, bool) {
	switch sym {
	case "BTCUSDT":
		return "BTC-USD", true
	case "ETHUSDT":
		return "ETH-USD", true
	default:
		return "", false
	}
}

// FromCoinbase converts a Coinbase product id back to the canonical symbol.
func FromCoinbase(productID string) (market.Symbol, bool) {
	switch productID {
	case "BTC-USD":
		return "BTCUSDT", true
	case "ETH-USD":
		return "ETHUSDT", true
	default:
		return "", false
	}
}

// ToOKX converts a canonical crypto pair to an OKX instrument id.
func ToOKX(sym market.Symbol) (string, bool) {
	switch sym {
	case "BTCUSDT":
		return "BTC-USDT", true
	case "ETHUSDT":
		return "ETH-USDT", true
	default:
		return "", false
	}
}

// ToBinanceStream lowercases the canonical pair for Binance stream paths.
func ToBinanceStream(sym market.Symbol) (string, bool) {
	switch sym {
	case "BTCUSDT", "ETHUSDT":
		return strings.ToLower(string(sym)), true
	default:
		return "", false
	}
}

// ToBybit passes the canonical pair through; Bybit spot topics use the same
// naming as the canonical form.
func ToBybit(sym market.Symbol) (string, bool) {
	switch sym {
	case "BTCUSDT", "ETHUSDT":
		return string(sym), true
	default:
		return "", false
	}
}

// ToInfoway renders the canonical symbol in Infoway's code convention:
// equities carry a market suffix, everything else is passed through.
func ToInfoway(sym market.Symbol) (string, bool) {
	class, ok := market.ClassOf(sym)
	if !ok {
		return "", false
	}
	if class == market.ClassEquity {
		return string(sym) + ".US", true
	}
	return string(sym), true
}

// ToTwelveData renders the canonical symbol for Twelve Data: forex pairs use
// the slash-separated form, equities are passed through.
func ToTwelveData(sym market.Symbol) (string, bool) {
	class, ok := market.ClassOf(sym)
	if !ok {
		return "", false
	}
	if class == market.ClassForex && len(sym) == 6 {
		return string(sym[:3]) + "/" + string(sym[3:]), true
	}
	return string(sym), true
}

// PythFeedID maps a canonical symbol to its Hermes price-feed id (hex,
// without the 0x prefix). Only instruments with a published feed are mapped.
func PythFeedID(sym market.Symbol) (string, bool) {
	id, ok := pythFeeds[sym]
	return id, ok
}

// FromPythFeedID is the reverse lookup used when classifying price updates.
func FromPythFeedID(id string) (market.Symbol, bool) {
	for sym, feed := range pythFeeds {
		if feed == id {
			return sym, true
		}
	}
	return "", false
}

var pythFeeds = map[market.Symbol]string{
	"BTCUSDT": "e62df6c8b4a85fe1a67db44dc12de5db330f7ac66b72dc658afedf0f4a415b43",
	"ETHUSDT": "ff61491a931112ddf1bd8147cd1b641375f79f5825126d665480874634fd0ace",
	"EURUSD":  "a995d00bb36a63cef7fd2c287dc105fc8f3d93779f062f09551b0af3e81ec30b",
}

// PythLazerFeedID maps a canonical symbol to the numeric Lazer feed id.
func PythLazerFeedID(sym market.Symbol) (int, bool) {
	id, ok := lazerFeeds[sym]
	return id, ok
}

// FromPythLazerFeedID is the reverse lookup for Lazer stream updates.
func FromPythLazerFeedID(id int) (market.Symbol, bool) {
	for sym, feed := range lazerFeeds {
		if feed == id {
			return sym, true
		}
	}
	return "", false
}

var lazerFeeds = map[market.Symbol]int{
	"BTCUSDT": 1,
	"ETHUSDT": 2,
}
