package health

import (
	"context"
	"os"
	"strconv"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const (
	StatusHealthy     = "healthy"
	StatusDegraded    = "degraded"
	StatusUnhealthy   = "unhealthy"
	StatusUnavailable = "unavailable"
)

type HealthService struct {
	repo       port.OpportunityRepository
	cache      port.SnapshotCache
	comparison port.ComparisonService
	scanner    port.Scanner
	publisher  port.OpportunityPublisher
	startedAt  time.Time
	now        func() time.Time
	resources  func(ctx context.Context) map[string]string
}

// NewHealthService builds the health reporter. Every dependency except
// comparison may be nil when the component is not configured.
func NewHealthService(repo port.OpportunityRepository, cache port.SnapshotCache, comparison port.ComparisonService,
	scanner port.Scanner, publisher port.OpportunityPublisher) port.HealthService {
	return &HealthService{
		repo:       repo,
		cache:      cache,
		comparison: comparison,
		scanner:    scanner,
		publisher:  publisher,
		startedAt:  time.Now(),
		now:        time.Now,
		resources:  hostResources,
	}
}

func (s *HealthService) GetSystemHealth(ctx context.Context) (*domain.HealthStatus, error) {
	now := s.now()
	status := &domain.HealthStatus{
		Components: make(map[string]string),
		Timestamp:  now.Unix(),
		Uptime:     now.Sub(s.startedAt).Seconds(),
	}

	allHealthy := true

	// Check PostgreSQL
	if s.repo != nil {
		if err := s.repo.Ping(ctx); err != nil {
			status.Components["database"] = StatusUnhealthy
			allHealthy = false
		} else {
			status.Components["database"] = StatusHealthy
		}
	} else {
		status.Components["database"] = StatusUnavailable
		allHealthy = false
	}

	// Check Redis
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			status.Components["cache"] = StatusUnhealthy
			allHealthy = false
		} else {
			status.Components["cache"] = StatusHealthy
		}
	} else {
		status.Components["cache"] = StatusUnavailable
		allHealthy = false
	}

	// Venues are the only critical component
	if s.comparison != nil && len(s.comparison.EnabledVenues()) > 0 {
		status.Components["venues"] = StatusHealthy
	} else {
		status.Components["venues"] = StatusUnhealthy
		allHealthy = false
	}

	if s.scanner != nil {
		if s.scanner.IsRunning() {
			status.Components["scanner"] = StatusHealthy
		} else {
			status.Components["scanner"] = StatusDegraded
			allHealthy = false
		}
	} else {
		status.Components["scanner"] = StatusUnavailable
		allHealthy = false
	}

	switch {
	case allHealthy:
		status.Status = StatusHealthy
		status.Message = "All systems operational"
	case status.Components["venues"] == StatusUnhealthy:
		status.Status = StatusUnhealthy
		status.Message = "No venues are enabled"
	default:
		status.Status = StatusDegraded
		status.Message = "Some components are not fully operational"
	}

	return status, nil
}

func (s *HealthService) GetDetailedHealth(ctx context.Context) (*domain.HealthStatus, error) {
	status, err := s.GetSystemHealth(ctx)
	if err != nil {
		return nil, err
	}

	if s.comparison != nil {
		venues := s.comparison.EnabledVenues()
		status.Components["enabled_venues"] = strconv.Itoa(len(venues))
		for _, v := range venues {
			status.Components["venue:"+v] = "enabled"
		}
	}

	if s.scanner != nil {
		stats := s.scanner.Stats()
		status.Components["scanner_schedule"] = stats.Schedule
		status.Components["scanner_sweeps"] = strconv.FormatInt(stats.Sweeps, 10)
		status.Components["scanner_opportunities"] = strconv.FormatInt(stats.Opportunities, 10)
		if stats.LastSweep > 0 {
			status.Components["scanner_last_sweep"] = time.UnixMilli(stats.LastSweep).UTC().Format(time.RFC3339)
			status.Components["scanner_last_duration"] = stats.LastDuration
		}
	}

	if s.publisher != nil {
		status.Components["stream_clients"] = strconv.Itoa(s.publisher.ClientCount())
	}

	for k, v := range s.resources(ctx) {
		status.Components[k] = v
	}

	return status, nil
}

// hostResources reports memory usage; unreadable values are left out.
func hostResources(ctx context.Context) map[string]string {
	out := make(map[string]string)

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out["system_memory_used_percent"] = strconv.FormatFloat(vm.UsedPercent, 'f', 1, 64)
	}

	if proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())); err == nil {
		if info, err := proc.MemoryInfoWithContext(ctx); err == nil {
			out["process_rss_bytes"] = strconv.FormatUint(info.RSS, 10)
		}
	}

	return out
}
