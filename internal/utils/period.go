// File: internal/utils/period.go
package utils

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const (
	// DefaultPeriod is the window used when none is specified
	DefaultPeriod = 1 * time.Minute

	MinPeriod = 1 * time.Second
	MaxPeriod = 24 * time.Hour
)

var ErrInvalidPeriod = errors.New("invalid period")

// ValidPeriods defines the named spread windows
var ValidPeriods = map[string]time.Duration{
	"1s":  1 * time.Second,
	"5s":  5 * time.Second,
	"30s": 30 * time.Second,
	"1m":  1 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  1 * time.Hour,
	"3h":  3 * time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"24h": 24 * time.Hour,
}

// ParsePeriod parses a named period or any Go duration within bounds.
func ParsePeriod(periodStr string) (time.Duration, error) {
	if periodStr == "" {
		return DefaultPeriod, nil
	}

	if duration, exists := ValidPeriods[periodStr]; exists {
		return duration, nil
	}

	duration, err := time.ParseDuration(periodStr)
	if err != nil {
		return 0, fmt.Errorf("%w '%s': must be one of %v or a valid Go duration",
			ErrInvalidPeriod, periodStr, validPeriodKeys())
	}

	if duration < MinPeriod {
		return 0, fmt.Errorf("%w: minimum is %s", ErrInvalidPeriod, MinPeriod)
	}
	if duration > MaxPeriod {
		return 0, fmt.Errorf("%w: maximum is %s", ErrInvalidPeriod, MaxPeriod)
	}

	return duration, nil
}

// FormatPeriod converts a duration to its short name when it has one
func FormatPeriod(duration time.Duration) string {
	for key, validDuration := range ValidPeriods {
		if duration == validDuration {
			return key
		}
	}
	return duration.String()
}

// validPeriodKeys returns the named periods shortest first
func validPeriodKeys() []string {
	keys := make([]string, 0, len(ValidPeriods))
	for key := range ValidPeriods {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return ValidPeriods[keys[i]] < ValidPeriods[keys[j]]
	})
	return keys
}

// TimeRangeEndingAt returns the window of the given length ending at end
func TimeRangeEndingAt(end time.Time, period time.Duration) (time.Time, time.Time) {
	return end.Add(-period), end
}
