package port

import (
	"context"

	"cryptoarb/internal/core/domain"
)

type Scanner interface {
	// Start the scheduled sweeps
	Start(ctx context.Context) error

	// Stop scheduling and wait for a running sweep
	Stop() error

	// Run a single sweep and return the opportunities found
	ScanOnce(ctx context.Context) ([]domain.ArbitrageOpportunity, error)

	Stats() domain.ScannerStats
	IsRunning() bool
}
