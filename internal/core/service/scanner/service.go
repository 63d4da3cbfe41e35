package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"
	"cryptoarb/internal/core/service/comparison"
	"cryptoarb/internal/metrics"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule = "@every 30s"
	DefaultWorkers  = 4

	stopTimeout = 5 * time.Second
)

type Options struct {
	Schedule  string
	Threshold float64
	Workers   int
	Symbols   []string
}

// ScannerService periodically compares a symbol list across all enabled
// venues and records the comparisons that exceed the threshold.
type ScannerService struct {
	comparison port.ComparisonService
	cache      port.SnapshotCache
	repo       port.OpportunityRepository
	publisher  port.OpportunityPublisher

	schedule  string
	threshold float64
	workers   int
	symbols   []string

	// Control
	cron      *cron.Cron
	cancel    context.CancelFunc
	isRunning bool
	runMutex  sync.RWMutex

	// Stats
	sweeps        atomic.Int64
	opportunities atomic.Int64
	lastSweep     atomic.Int64
	lastDuration  atomic.Int64

	now   func() time.Time
	newID func() string
}

// NewScannerService creates a scanner. cache, repo and publisher may be nil.
func NewScannerService(cmp port.ComparisonService, cache port.SnapshotCache, repo port.OpportunityRepository,
	publisher port.OpportunityPublisher, opts Options) port.Scanner {
	return newScannerService(cmp, cache, repo, publisher, opts)
}

func newScannerService(cmp port.ComparisonService, cache port.SnapshotCache, repo port.OpportunityRepository,
	publisher port.OpportunityPublisher, opts Options) *ScannerService {
	if opts.Schedule == "" {
		opts.Schedule = DefaultSchedule
	}
	if opts.Threshold <= 0 || math.IsNaN(opts.Threshold) || math.IsInf(opts.Threshold, 0) {
		opts.Threshold = comparison.DefaultThreshold
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	symbols := append([]string(nil), opts.Symbols...)
	if len(symbols) == 0 {
		symbols = cmp.PopularSymbols()
	}

	return &ScannerService{
		comparison: cmp,
		cache:      cache,
		repo:       repo,
		publisher:  publisher,
		schedule:   opts.Schedule,
		threshold:  opts.Threshold,
		workers:    opts.Workers,
		symbols:    symbols,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

func (s *ScannerService) Start(ctx context.Context) error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	if s.isRunning {
		slog.Warn("Scanner already running")
		return nil
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	runCtx, cancel := context.WithCancel(ctx)
	if _, err := c.AddFunc(s.schedule, func() { s.sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("invalid scanner schedule %q: %w", s.schedule, err)
	}

	c.Start()
	s.cron = c
	s.cancel = cancel
	s.isRunning = true

	slog.Info("Scanner started", "schedule", s.schedule, "symbols", len(s.symbols), "workers", s.workers, "threshold", s.threshold)
	return nil
}

func (s *ScannerService) Stop() error {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	if !s.isRunning {
		return nil
	}

	slog.Info("Stopping scanner...")
	s.cancel()
	done := s.cron.Stop().Done()

	select {
	case <-done:
		slog.Info("Scanner stopped")
	case <-time.After(stopTimeout):
		slog.Warn("Timeout waiting for running sweep to stop")
	}

	s.cron = nil
	s.cancel = nil
	s.isRunning = false
	return nil
}

func (s *ScannerService) IsRunning() bool {
	s.runMutex.RLock()
	defer s.runMutex.RUnlock()
	return s.isRunning
}

func (s *ScannerService) Stats() domain.ScannerStats {
	stats := domain.ScannerStats{
		IsRunning:     s.IsRunning(),
		Schedule:      s.schedule,
		Workers:       s.workers,
		Symbols:       len(s.symbols),
		Sweeps:        s.sweeps.Load(),
		Opportunities: s.opportunities.Load(),
		LastSweep:     s.lastSweep.Load(),
		Venues:        s.comparison.EnabledVenues(),
	}
	if d := s.lastDuration.Load(); d > 0 {
		stats.LastDuration = time.Duration(d).String()
	}
	return stats
}

func (s *ScannerService) sweep(ctx context.Context) {
	opps, err := s.ScanOnce(ctx)
	if err != nil {
		slog.Error("Scanner sweep failed", "error", err)
		return
	}
	slog.Info("Scanner sweep completed", "opportunities", len(opps))
}

// ScanOnce compares every configured symbol using a bounded worker pool and
// returns the detected opportunities, largest difference first.
func (s *ScannerService) ScanOnce(ctx context.Context) ([]domain.ArbitrageOpportunity, error) {
	start := s.now()

	jobs := make(chan string)
	var (
		mu     sync.Mutex
		found  []domain.ArbitrageOpportunity
		failed []error
		wg     sync.WaitGroup
	)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for symbol := range jobs {
				opp, err := s.scanSymbol(ctx, symbol)
				mu.Lock()
				if err != nil {
					failed = append(failed, err)
				} else if opp != nil {
					found = append(found, *opp)
				}
				mu.Unlock()
			}
			slog.Debug("Scanner worker finished", "id", id)
		}(i)
	}

dispatch:
	for _, symbol := range s.symbols {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = fmt.Errorf("sweep interrupted: %w", ctxErr)
	} else if len(s.symbols) > 0 && len(failed) == len(s.symbols) {
		err = fmt.Errorf("every symbol failed: %w", errors.Join(failed...))
	}

	duration := s.now().Sub(start)
	metrics.RecordSweep(duration, err)
	s.sweeps.Add(1)
	s.lastSweep.Store(start.UnixMilli())
	s.lastDuration.Store(int64(duration))

	if err != nil {
		return nil, err
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].Difference > found[j].Difference
	})
	return found, nil
}

func (s *ScannerService) scanSymbol(ctx context.Context, symbol string) (opp *domain.ArbitrageOpportunity, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic while scanning symbol", "symbol", symbol, "panic", r)
			opp, err = nil, fmt.Errorf("%s: panic: %v", symbol, r)
		}
	}()

	cmp, err := s.comparison.Compare(ctx, symbol, nil)
	if err != nil {
		slog.Warn("Scanner comparison failed", "symbol", symbol, "error", err)
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}

	if s.cache != nil {
		if err := s.cache.SaveComparison(ctx, cmp); err != nil {
			slog.Warn("Failed to cache comparison", "symbol", cmp.Symbol, "error", err)
		}
	}

	if comparison.Filter(cmp, s.threshold) == nil {
		return nil, nil
	}

	opp = domain.NewOpportunity(s.newID(), cmp, s.threshold, s.now())
	s.opportunities.Add(1)
	metrics.RecordOpportunity(opp.Symbol)

	slog.Info("Arbitrage opportunity detected",
		"symbol", opp.Symbol,
		"difference", opp.Difference,
		"higher", opp.HigherVenue,
		"lower", opp.LowerVenue)

	if s.repo != nil {
		if err := s.repo.Save(ctx, opp); err != nil {
			slog.Warn("Failed to persist opportunity", "id", opp.ID, "error", err)
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(opp)
	}
	return opp, nil
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
