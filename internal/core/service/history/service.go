// File: internal/core/service/history/service.go
package history

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"
	"cryptoarb/internal/utils"

	"github.com/shopspring/decimal"
)

type HistoryService struct {
	cache port.SnapshotCache
	now   func() time.Time
}

// NewHistoryService serves recorded scanner data. cache may be nil, in which
// case every query reports domain.ErrUnavailable.
func NewHistoryService(cache port.SnapshotCache) port.HistoryService {
	return &HistoryService{
		cache: cache,
		now:   time.Now,
	}
}

func (s *HistoryService) LatestComparison(ctx context.Context, symbol string) (*domain.SymbolComparison, error) {
	validSymbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if s.cache == nil {
		return nil, fmt.Errorf("%w: snapshot cache is not configured", domain.ErrUnavailable)
	}
	return s.cache.LatestComparison(ctx, validSymbol)
}

func (s *HistoryService) HighestSpread(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error) {
	return s.aggregate(ctx, symbol, period, func(points []domain.SpreadPoint) float64 {
		highest := points[0].Difference
		for _, p := range points[1:] {
			if p.Difference > highest {
				highest = p.Difference
			}
		}
		return highest
	})
}

func (s *HistoryService) LowestSpread(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error) {
	return s.aggregate(ctx, symbol, period, func(points []domain.SpreadPoint) float64 {
		lowest := points[0].Difference
		for _, p := range points[1:] {
			if p.Difference < lowest {
				lowest = p.Difference
			}
		}
		return lowest
	})
}

func (s *HistoryService) AverageSpread(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error) {
	return s.aggregate(ctx, symbol, period, func(points []domain.SpreadPoint) float64 {
		sum := decimal.Zero
		for _, p := range points {
			sum = sum.Add(decimal.NewFromFloat(p.Difference))
		}
		avg, _ := sum.Div(decimal.NewFromInt(int64(len(points)))).Float64()
		return avg
	})
}

func (s *HistoryService) aggregate(ctx context.Context, symbol string, period time.Duration,
	reduce func([]domain.SpreadPoint) float64) (*domain.SpreadStatistic, error) {
	validSymbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	if period <= 0 {
		period = utils.DefaultPeriod
	}
	if s.cache == nil {
		return nil, fmt.Errorf("%w: snapshot cache is not configured", domain.ErrUnavailable)
	}

	from, to := utils.TimeRangeEndingAt(s.now(), period)

	points, err := s.cache.SpreadsInRange(ctx, validSymbol, from, to)
	if err != nil {
		slog.Error("Failed to get spreads from cache", "error", err, "symbol", validSymbol)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}

	slog.Debug("Retrieved spread data from cache",
		"symbol", validSymbol,
		"count", len(points),
		"period", utils.FormatPeriod(period))

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no spread data for %s in period %s",
			domain.ErrNotFound, validSymbol, utils.FormatPeriod(period))
	}

	return &domain.SpreadStatistic{
		Symbol:     validSymbol,
		Difference: reduce(points),
		Samples:    len(points),
		Period:     utils.FormatPeriod(period),
		StartTime:  from,
		EndTime:    to,
		Timestamp:  to.Unix(),
	}, nil
}
