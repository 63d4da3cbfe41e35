package domain

import "time"

// ArbitrageOpportunity is a comparison that met the scanner threshold.
type ArbitrageOpportunity struct {
	ID          string      `json:"id" db:"id"`
	Symbol      string      `json:"symbol" db:"symbol"`
	MaxPrice    float64     `json:"maxPrice" db:"max_price"`
	MinPrice    float64     `json:"minPrice" db:"min_price"`
	Difference  float64     `json:"difference" db:"difference"`
	HigherVenue string      `json:"higherVenue" db:"higher_venue"`
	LowerVenue  string      `json:"lowerVenue" db:"lower_venue"`
	Threshold   float64     `json:"threshold" db:"threshold"`
	Prices      SymbolQuote `json:"prices" db:"-"`
	DetectedAt  time.Time   `json:"detectedAt" db:"detected_at"`
}

// NewOpportunity converts a filtered comparison. It returns nil when the
// comparison has no spread.
func NewOpportunity(id string, c *SymbolComparison, threshold float64, at time.Time) *ArbitrageOpportunity {
	if !c.HasSpread() {
		return nil
	}
	return &ArbitrageOpportunity{
		ID:          id,
		Symbol:      c.Symbol,
		MaxPrice:    *c.MaxPrice,
		MinPrice:    *c.MinPrice,
		Difference:  *c.Difference,
		HigherVenue: *c.HigherVenue,
		LowerVenue:  *c.LowerVenue,
		Threshold:   threshold,
		Prices:      c.Prices,
		DetectedAt:  at.UTC(),
	}
}
