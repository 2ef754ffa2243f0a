package symbol

import (
	"strings"
	"unicode"
)

// Class is the instrument class a symbol routes under.
type Class string

const (
	ClassStocks  Class = "stocks"
	ClassETFs    Class = "etfs"
	ClassCrypto  Class = "crypto"
	ClassOptions Class = "options"
)

// Static pattern tables. Classification is intentionally table-driven so the
// router never dispatches on free-form strings.
var (
	cryptoTickers = []string{"BTC", "ETH", "USDT", "USDC", "DOGE", "ADA", "DOT", "LINK", "UNI", "AAVE"}
	etfTickers    = []string{"SPY", "QQQ", "IWM", "GLD", "TLT", "VTI", "VOO", "VEA", "VWO", "AGG"}
)

// Classify maps a raw ticker onto its instrument class. Unrecognized symbols
// default to stocks.
func Classify(raw string) Class {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if s == "" {
		return ClassStocks
	}
	base := baseToken(s)
	for _, c := range cryptoTickers {
		if base == c {
			return ClassCrypto
		}
	}
	for _, e := range etfTickers {
		if base == e {
			return ClassETFs
		}
	}
	if looksLikeOption(s) {
		return ClassOptions
	}
	return ClassStocks
}

// baseToken strips a pair suffix such as -USD or /USDT so quoted crypto
// pairs classify by their base asset. Tables match whole tokens only; a
// ticker that merely contains a listed symbol stays a stock.
func baseToken(s string) string {
	if i := strings.IndexAny(s, "-/"); i > 0 {
		return s[:i]
	}
	return s
}

// looksLikeOption matches OCC-style contract symbols: a long ticker whose
// tail carries the yymmdd + strike digits, e.g. AAPL240119C00190000.
func looksLikeOption(s string) bool {
	if len(s) <= 6 {
		return false
	}
	digits := 0
	for _, r := range s[len(s)-8:] {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 6
}

// Normalize returns the canonical uppercase ticker form used as map keys
// throughout the pipeline.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
