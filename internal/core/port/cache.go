package port

import (
	"context"
	"time"

	"cryptoarb/internal/core/domain"
)

type SnapshotCache interface {
	// Store the comparison as the latest snapshot and append its difference
	// to the spread time series
	SaveComparison(ctx context.Context, cmp *domain.SymbolComparison) error

	// Latest stored comparison for a symbol
	LatestComparison(ctx context.Context, symbol string) (*domain.SymbolComparison, error)

	// Recorded differences for a symbol within time range
	SpreadsInRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.SpreadPoint, error)

	// Clean up old data (older than specified duration)
	CleanupOldData(ctx context.Context, olderThan time.Duration) error

	// Health check
	Ping(ctx context.Context) error
}
