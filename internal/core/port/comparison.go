package port

import (
	"context"

	"cryptoarb/internal/core/domain"
)

type ComparisonService interface {
	// Compare fetches the symbol from every requested venue (all enabled
	// venues when venues is empty) and reduces the answers.
	Compare(ctx context.Context, symbol string, venues []string) (*domain.SymbolComparison, error)

	// CheckArbitrage returns the comparison only if its difference reaches
	// threshold, nil otherwise.
	CheckArbitrage(ctx context.Context, symbol string, threshold float64) (*domain.SymbolComparison, error)

	// Markets summarizes the first limit popular symbols.
	Markets(ctx context.Context, limit int, filter string) ([]domain.MarketSummary, error)

	EnabledVenues() []string
	PopularSymbols() []string
}
