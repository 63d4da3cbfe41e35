package exchanges

import (
	"strings"

	"cryptoarb/internal/core/domain"
)

var popularSymbols = []string{
	"BTC/USDT", "ETH/USDT", "BNB/USDT", "SOL/USDT", "XRP/USDT", "ADA/USDT",
	"DOGE/USDT", "DOT/USDT", "MATIC/USDT", "AVAX/USDT", "LINK/USDT", "UNI/USDT",
	"ATOM/USDT", "ETC/USDT", "LTC/USDT", "NEAR/USDT", "APT/USDT", "ARB/USDT",
	"OP/USDT", "SUI/USDT", "INJ/USDT", "SEI/USDT", "TIA/USDT", "FTM/USDT",
	"ALGO/USDT", "AAVE/USDT", "MKR/USDT", "SNX/USDT", "COMP/USDT", "CRV/USDT",
	"SHIB/USDT", "PEPE/USDT", "FLOKI/USDT", "BONK/USDT", "WIF/USDT", "SUSHI/USDT",
	"1INCH/USDT", "CAKE/USDT", "GMX/USDT", "RDNT/USDT", "STRK/USDT", "MANTA/USDT",
	"METIS/USDT", "AXS/USDT", "SAND/USDT", "MANA/USDT", "ENJ/USDT", "GALA/USDT",
}

// PopularSymbols returns the list of popular trading pairs
func PopularSymbols() []string {
	out := make([]string, len(popularSymbols))
	copy(out, popularSymbols)
	return out
}

// Symbol formats understood by FormatSymbol
const (
	FormatConcat     = "concat"     // BTCUSDT
	FormatDash       = "dash"       // BTC-USDT
	FormatUnderscore = "underscore" // BTC_USDT
	FormatSlash      = "slash"      // BTC/USDT
	FormatLower      = "lower"      // btcusdt
)

// FormatSymbol renders a BASE/QUOTE symbol the way a venue expects it.
func FormatSymbol(symbol, format string) string {
	base, quote := domain.SplitSymbol(symbol)
	switch format {
	case FormatDash:
		return base + "-" + quote
	case FormatUnderscore:
		return base + "_" + quote
	case FormatSlash:
		return base + "/" + quote
	case FormatLower:
		return strings.ToLower(base + quote)
	default:
		return base + quote
	}
}
