// File: internal/core/port/history.go
package port

import (
	"context"
	"time"

	"cryptoarb/internal/core/domain"
)

type HistoryService interface {
	// Latest comparison recorded by the scanner
	LatestComparison(ctx context.Context, symbol string) (*domain.SymbolComparison, error)

	HighestSpread(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error)
	LowestSpread(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error)
	AverageSpread(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error)
}
