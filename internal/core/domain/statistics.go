package domain

import "time"

// SpreadStatistic represents an aggregated spread over a time period
type SpreadStatistic struct {
	Symbol     string    `json:"symbol"`
	Difference float64   `json:"difference"`
	Samples    int       `json:"samples"`
	Period     string    `json:"period"` // "5m", "1h"
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Timestamp  int64     `json:"timestamp"`
}

// SpreadPoint is a single recorded difference.
type SpreadPoint struct {
	Difference float64
	Timestamp  int64 // unix seconds
}

// HealthStatus represents system health information
type HealthStatus struct {
	Status     string            `json:"status"` // "healthy", "degraded", "unhealthy"
	Components map[string]string `json:"components"`
	Timestamp  int64             `json:"timestamp"`
	Uptime     float64           `json:"uptime"` // seconds
	Message    string            `json:"message,omitempty"`
}

// ScannerStats describes the background scanner
type ScannerStats struct {
	IsRunning     bool     `json:"is_running"`
	Schedule      string   `json:"schedule"`
	Workers       int      `json:"workers"`
	Symbols       int      `json:"symbols"`
	Sweeps        int64    `json:"sweeps"`
	Opportunities int64    `json:"opportunities"`
	LastSweep     int64    `json:"last_sweep"`
	LastDuration  string   `json:"last_duration"`
	Venues        []string `json:"venues"`
}
