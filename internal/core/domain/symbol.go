package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var assetPattern = regexp.MustCompile(`^[A-Z0-9]{1,20}$`)

// KnownQuotes are the quote assets recognised in concatenated symbols such as
// BTCUSDT. Longer suffixes come first.
var KnownQuotes = []string{"USDT", "USDC", "BUSD", "BTC", "ETH", "USD", "EUR"}

// NormalizeSymbol turns user input into BASE/QUOTE form.
// "btc/usdt", "BTC-USDT", "btc_usdt" and "BTCUSDT" all yield "BTC/USDT".
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("%w: symbol cannot be empty", ErrInvalidSymbol)
	}

	base, quote, ok := splitSymbol(s)
	if !ok || !assetPattern.MatchString(base) || !assetPattern.MatchString(quote) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return base + "/" + quote, nil
}

// SplitSymbol returns the base and quote of a normalized symbol.
func SplitSymbol(symbol string) (base, quote string) {
	base, quote, _ = strings.Cut(symbol, "/")
	return base, quote
}

func splitSymbol(s string) (string, string, bool) {
	for _, sep := range []string{"/", "-", "_"} {
		if strings.Contains(s, sep) {
			parts := strings.Split(s, sep)
			if len(parts) != 2 {
				return "", "", false
			}
			return parts[0], parts[1], true
		}
	}
	for _, q := range KnownQuotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q, true
		}
	}
	return "", "", false
}
