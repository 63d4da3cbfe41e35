package comparison

import (
	"math"

	"cryptoarb/internal/core/domain"

	"github.com/shopspring/decimal"
)

// DefaultThreshold is the spread, in percent, that counts as an opportunity.
const DefaultThreshold = 1.0

// Reduce builds a comparison from the venue answers. Venues are visited in
// the given order and strict comparisons keep the first venue on ties.
func Reduce(symbol string, venues []string, quote domain.SymbolQuote, timestamp int64) *domain.SymbolComparison {
	cmp := &domain.SymbolComparison{
		Symbol:    symbol,
		Prices:    quote,
		Timestamp: timestamp,
		Venues:    venues,
	}

	var (
		maxVenue, minVenue string
		maxPrice, minPrice float64
		valid              int
	)
	for _, venue := range venues {
		p := quote[venue]
		if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
			continue
		}
		if valid == 0 || *p > maxPrice {
			maxPrice, maxVenue = *p, venue
		}
		if valid == 0 || *p < minPrice {
			minPrice, minVenue = *p, venue
		}
		valid++
	}

	if valid < 2 {
		return cmp
	}

	cmp.MaxPrice = domain.Float(maxPrice)
	cmp.MinPrice = domain.Float(minPrice)
	cmp.Difference = domain.Float(Difference(maxPrice, minPrice))
	cmp.HigherVenue = domain.String(maxVenue)
	cmp.LowerVenue = domain.String(minVenue)
	return cmp
}

// Difference is (max-min)/min*100, or 0 when min is 0.
func Difference(maxPrice, minPrice float64) float64 {
	if minPrice == 0 {
		return 0
	}
	hi := decimal.NewFromFloat(maxPrice)
	lo := decimal.NewFromFloat(minPrice)
	diff, _ := hi.Sub(lo).Div(lo).Mul(decimal.NewFromInt(100)).Float64()
	return diff
}

// Filter returns cmp when its difference reaches threshold, nil otherwise.
func Filter(cmp *domain.SymbolComparison, threshold float64) *domain.SymbolComparison {
	if !cmp.HasSpread() || *cmp.Difference < threshold {
		return nil
	}
	return cmp
}
