package domain

// SymbolQuote maps a venue name to its last traded price. A venue that was
// asked but produced nothing is present with a nil price.
type SymbolQuote map[string]*float64

// VenuePrice is one venue's answer during an aggregation.
type VenuePrice struct {
	Venue string
	Price *float64
	Err   error
}

// Valid reports how many venues returned a price.
func (q SymbolQuote) Valid() int {
	n := 0
	for _, p := range q {
		if p != nil {
			n++
		}
	}
	return n
}

// Float returns a pointer to v, for building nullable fields.
func Float(v float64) *float64 {
	return &v
}

// String returns a pointer to s.
func String(s string) *string {
	return &s
}
