package domain

// SymbolComparison is a cross-venue snapshot for one symbol. It is built once
// per request and never mutated afterwards.
type SymbolComparison struct {
	Symbol      string      `json:"symbol"`
	Prices      SymbolQuote `json:"prices"`
	MaxPrice    *float64    `json:"maxPrice"`
	MinPrice    *float64    `json:"minPrice"`
	Difference  *float64    `json:"difference"`  // percent of MinPrice
	HigherVenue *string     `json:"higherVenue"` // venue quoting MaxPrice
	LowerVenue  *string     `json:"lowerVenue"`  // venue quoting MinPrice
	Timestamp   int64       `json:"timestamp"`   // unix milliseconds

	// Venues keeps the order the venues were asked in.
	Venues []string `json:"-"`
}

// HasSpread reports whether enough venues answered to compute a difference.
func (c *SymbolComparison) HasSpread() bool {
	return c != nil && c.Difference != nil
}

// MarketSummary is one row of the market overview.
type MarketSummary struct {
	Symbol     string   `json:"symbol"`
	Price      *float64 `json:"price"`
	Difference *float64 `json:"difference"`
	Exchanges  int      `json:"exchanges"` // venues with a price
}
