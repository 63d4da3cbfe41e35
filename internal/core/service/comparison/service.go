package comparison

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"
	"cryptoarb/internal/metrics"
)

const (
	DefaultMarketLimit = 20
	MaxMarketLimit     = 100

	// concurrent symbols during Markets
	marketWorkers = 8
)

type ComparisonService struct {
	registry port.VenueRegistry
	now      func() time.Time
}

// NewComparisonService creates the aggregator over the given registry
func NewComparisonService(registry port.VenueRegistry) port.ComparisonService {
	return &ComparisonService{
		registry: registry,
		now:      time.Now,
	}
}

func (s *ComparisonService) EnabledVenues() []string {
	return s.registry.EnabledVenues()
}

func (s *ComparisonService) PopularSymbols() []string {
	return s.registry.PopularSymbols()
}

// Compare fetches symbol from each venue concurrently and reduces the
// answers. A failing venue is recorded as a nil price.
func (s *ComparisonService) Compare(ctx context.Context, symbol string, venues []string) (*domain.SymbolComparison, error) {
	validSymbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	targets := s.targets(venues)
	answers := s.fetchAll(ctx, validSymbol, targets)

	quote := make(domain.SymbolQuote, len(targets))
	for _, a := range answers {
		quote[a.Venue] = a.Price
	}

	return Reduce(validSymbol, targets, quote, s.now().UnixMilli()), nil
}

// CheckArbitrage returns the comparison when its difference reaches
// threshold. A nil comparison with a nil error means no opportunity.
func (s *ComparisonService) CheckArbitrage(ctx context.Context, symbol string, threshold float64) (*domain.SymbolComparison, error) {
	if threshold < 0 || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidThreshold, threshold)
	}

	cmp, err := s.Compare(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	return Filter(cmp, threshold), nil
}

// Markets summarizes the first limit popular symbols, then keeps those
// whose symbol contains filter.
func (s *ComparisonService) Markets(ctx context.Context, limit int, filter string) ([]domain.MarketSummary, error) {
	if limit <= 0 {
		limit = DefaultMarketLimit
	}
	if limit > MaxMarketLimit {
		return nil, fmt.Errorf("%w: limit must be at most %d", domain.ErrInvalidLimit, MaxMarketLimit)
	}

	symbols := s.registry.PopularSymbols()
	if len(symbols) > limit {
		symbols = symbols[:limit]
	}

	summaries := make([]domain.MarketSummary, len(symbols))
	sem := make(chan struct{}, marketWorkers)
	var wg sync.WaitGroup

	for i, symbol := range symbols {
		wg.Add(1)
		go func(i int, symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			summaries[i] = domain.MarketSummary{Symbol: symbol}
			cmp, err := s.Compare(ctx, symbol, nil)
			if err != nil {
				slog.Warn("Failed to compare market", "symbol", symbol, "error", err)
				return
			}
			summaries[i] = summarize(cmp)
		}(i, symbol)
	}
	wg.Wait()

	if filter = strings.ToLower(strings.TrimSpace(filter)); filter == "" {
		return summaries, nil
	}

	filtered := make([]domain.MarketSummary, 0, len(summaries))
	for _, m := range summaries {
		if strings.Contains(strings.ToLower(m.Symbol), filter) {
			filtered = append(filtered, m)
		}
	}
	return filtered, nil
}

func summarize(cmp *domain.SymbolComparison) domain.MarketSummary {
	price := cmp.MaxPrice
	if price == nil {
		price = cmp.MinPrice
	}
	return domain.MarketSummary{
		Symbol:     cmp.Symbol,
		Price:      price,
		Difference: cmp.Difference,
		Exchanges:  cmp.Prices.Valid(),
	}
}

// targets resolves the venue subset: lower-cased, de-duplicated, in request
// order. An empty subset means every enabled venue.
func (s *ComparisonService) targets(venues []string) []string {
	out := make([]string, 0, len(venues))
	seen := make(map[string]bool, len(venues))
	for _, v := range venues {
		name := strings.ToLower(strings.TrimSpace(v))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	if len(out) == 0 {
		return s.registry.EnabledVenues()
	}
	return out
}

// fetchAll runs one fetch per venue. Results land in per-venue slots so the
// output order follows venues, not completion order. Fetches are detached
// from ctx cancellation and bounded by each client's own timeout.
func (s *ComparisonService) fetchAll(ctx context.Context, symbol string, venues []string) []domain.VenuePrice {
	results := make([]domain.VenuePrice, len(venues))
	fetchCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for i, venue := range venues {
		results[i].Venue = venue

		client, ok := s.registry.Client(venue)
		if !ok {
			results[i].Err = fmt.Errorf("venue %s is not enabled", venue)
			continue
		}

		wg.Add(1)
		go func(slot *domain.VenuePrice, client port.VenueClient) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slot.Err = fmt.Errorf("panic fetching %s: %v", slot.Venue, r)
					slog.Error("Panic in venue fetch", "venue", slot.Venue, "panic", r)
				}
			}()

			start := time.Now()
			price, err := client.FetchLastPrice(fetchCtx, symbol)
			if err == nil && (math.IsNaN(price) || math.IsInf(price, 0)) {
				err = fmt.Errorf("%s: non-finite price %v", slot.Venue, price)
			}
			metrics.RecordVenueFetch(slot.Venue, time.Since(start), err)
			if err != nil {
				slot.Err = err
				slog.Debug("Venue fetch failed", "venue", slot.Venue, "symbol", symbol, "error", err)
				return
			}
			slot.Price = domain.Float(price)
		}(&results[i], client)
	}
	wg.Wait()

	return results
}
