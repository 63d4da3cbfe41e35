package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"

	"github.com/redis/go-redis/v9"
)

const (
	latestPrefix = "latest:"
	spreadPrefix = "spread:"

	DefaultSnapshotTTL = 2 * time.Minute
	DefaultRetention   = 24 * time.Hour
)

type RedisAdapter struct {
	client      *redis.Client
	snapshotTTL time.Duration
	retention   time.Duration
}

func NewRedisAdapter(client *redis.Client, snapshotTTL, retention time.Duration) port.SnapshotCache {
	if snapshotTTL <= 0 {
		snapshotTTL = DefaultSnapshotTTL
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisAdapter{
		client:      client,
		snapshotTTL: snapshotTTL,
		retention:   retention,
	}
}

// SaveComparison stores the comparison as the latest snapshot and, when it
// has a spread, appends the difference to the symbol's time series.
func (r *RedisAdapter) SaveComparison(ctx context.Context, cmp *domain.SymbolComparison) error {
	if cmp == nil {
		return errors.New("nil comparison")
	}

	dataBytes, err := json.Marshal(cmp)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, latestKey(cmp.Symbol), dataBytes, r.snapshotTTL)

	if cmp.HasSpread() {
		ts := time.UnixMilli(cmp.Timestamp)
		key := spreadKey(cmp.Symbol)
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(ts.Unix()),
			Member: spreadMember(ts, *cmp.Difference),
		})
		pipe.Expire(ctx, key, r.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store comparison: %w", err)
	}
	return nil
}

// LatestComparison retrieves the last stored comparison for a symbol
func (r *RedisAdapter) LatestComparison(ctx context.Context, symbol string) (*domain.SymbolComparison, error) {
	dataStr, err := r.client.Get(ctx, latestKey(symbol)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: no snapshot for %s", domain.ErrNotFound, symbol)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	var cmp domain.SymbolComparison
	if err := json.Unmarshal([]byte(dataStr), &cmp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &cmp, nil
}

// SpreadsInRange retrieves recorded differences for a symbol within time range
func (r *RedisAdapter) SpreadsInRange(ctx context.Context, symbol string, from, to time.Time) ([]domain.SpreadPoint, error) {
	key := spreadKey(symbol)
	results, err := r.client.ZRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min: strconv.FormatInt(from.Unix(), 10),
		Max: strconv.FormatInt(to.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreads in range: %w", err)
	}

	points := make([]domain.SpreadPoint, 0, len(results))
	for _, z := range results {
		member, _ := z.Member.(string)
		diff, err := parseSpreadMember(member)
		if err != nil {
			slog.Warn("Failed to parse spread member", "key", key, "member", member, "error", err)
			continue
		}
		points = append(points, domain.SpreadPoint{
			Difference: diff,
			Timestamp:  int64(z.Score),
		})
	}

	slog.Debug("Spreads in range", "symbol", symbol, "points", len(points))
	return points, nil
}

// CleanupOldData removes spread points older than specified duration
func (r *RedisAdapter) CleanupOldData(ctx context.Context, olderThan time.Duration) error {
	cutoff := strconv.FormatInt(time.Now().Add(-olderThan).Unix(), 10)

	var cursor uint64
	for {
		keys, next, err := r.client.Scan(ctx, cursor, spreadPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan spread keys for cleanup: %w", err)
		}

		for _, key := range keys {
			// exclusive upper bound keeps points exactly at the cutoff
			if err := r.client.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff).Err(); err != nil {
				slog.Warn("Failed to trim spread series", "key", key, "error", err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Ping checks Redis connection health
func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func latestKey(symbol string) string {
	return latestPrefix + symbol
}

func spreadKey(symbol string) string {
	return spreadPrefix + symbol
}

// spreadMember is unique per sample: "<unix nanos>:<difference>".
func spreadMember(ts time.Time, diff float64) string {
	return strconv.FormatInt(ts.UnixNano(), 10) + ":" + strconv.FormatFloat(diff, 'f', -1, 64)
}

func parseSpreadMember(member string) (float64, error) {
	idx := strings.LastIndexByte(member, ':')
	if idx < 0 {
		return 0, fmt.Errorf("invalid member %q", member)
	}
	return strconv.ParseFloat(member[idx+1:], 64)
}
