// File: internal/core/port/exchange.go
package port

import "context"

// VenueClient fetches last traded prices from one trading venue
type VenueClient interface {
	// Get venue name/identifier
	Name() string

	// Last traded price for a BASE/QUOTE symbol. Unknown symbols, network
	// errors, timeouts and empty tickers are all reported as errors.
	FetchLastPrice(ctx context.Context, symbol string) (float64, error)
}

type VenueRegistry interface {
	// Venue names in configuration order
	EnabledVenues() []string

	// Static catalog of popular pairs
	PopularSymbols() []string

	// Client for an enabled venue
	Client(name string) (VenueClient, bool)
}
