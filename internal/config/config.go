package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default values applied when the file leaves a field empty
const (
	DefaultPort             = 8080
	DefaultFetchTimeoutMs   = 10000
	DefaultRateLimit        = 10.0
	DefaultRateBurst        = 5
	DefaultScannerSchedule  = "@every 30s"
	DefaultScannerThreshold = 1.0
	DefaultScannerWorkers   = 4
	DefaultSnapshotTTL      = "2m"
	DefaultRetention        = "24h"
)

// DefaultVenues are enabled when neither the file nor VENUES names any.
var DefaultVenues = []string{"bybit", "binance", "okx", "kucoin", "gateio", "huobi", "kraken", "bitget", "mexc"}

// GetConfig reads path (JSON, or YAML for .yaml/.yml), then applies .env and
// environment overrides, defaults and validation.
func GetConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Parse decodes raw config bytes. ext selects the format.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return &cfg, nil
}

func (cfg *Config) applyEnv() error {
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid PORT: %w", err)
		}
		cfg.App.Port = p
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.App.LogLevel = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.App.LogFormat = format
	}

	// DB environment variables
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Repository.DBHost = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Repository.DBPort = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.Repository.DBUsername = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.Repository.DBPassword = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.Repository.DBName = name
	}
	if enabled := os.Getenv("DB_ENABLED"); enabled != "" {
		cfg.Repository.Enabled = parseBool(enabled)
	}

	// Redis environment variables
	if redisHost := os.Getenv("REDIS_HOST"); redisHost != "" {
		cfg.Cache.RedisHost = redisHost
	}
	if redisPort := os.Getenv("REDIS_PORT"); redisPort != "" {
		cfg.Cache.RedisPort, _ = strconv.Atoi(redisPort)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Cache.RedisPassword = redisPassword
	}
	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		cfg.Cache.RedisDB, _ = strconv.Atoi(redisDB)
	}
	if poolSize := os.Getenv("REDIS_POOL_SIZE"); poolSize != "" {
		cfg.Cache.PoolSize, _ = strconv.Atoi(poolSize)
	}
	if enabled := os.Getenv("REDIS_ENABLED"); enabled != "" {
		cfg.Cache.Enabled = parseBool(enabled)
	}

	// Venue environment variables
	if venues := os.Getenv("VENUES"); venues != "" {
		cfg.Venues.Enabled = splitList(venues)
	}
	if timeout := os.Getenv("VENUE_FETCH_TIMEOUT_MS"); timeout != "" {
		if ms, err := strconv.Atoi(timeout); err == nil {
			cfg.Venues.FetchTimeoutMs = ms
		}
	}

	// Scanner environment variables
	if enabled := os.Getenv("SCANNER_ENABLED"); enabled != "" {
		cfg.Scanner.Enabled = parseBool(enabled)
	}
	if schedule := os.Getenv("SCANNER_SCHEDULE"); schedule != "" {
		cfg.Scanner.Schedule = schedule
	}
	if threshold := os.Getenv("SCANNER_THRESHOLD"); threshold != "" {
		t, err := strconv.ParseFloat(threshold, 64)
		if err != nil {
			return fmt.Errorf("invalid SCANNER_THRESHOLD: %w", err)
		}
		cfg.Scanner.Threshold = t
	}
	if workers := os.Getenv("SCANNER_WORKERS"); workers != "" {
		if w, err := strconv.Atoi(workers); err == nil {
			cfg.Scanner.Workers = w
		}
	}
	if symbols := os.Getenv("SCANNER_SYMBOLS"); symbols != "" {
		cfg.Scanner.Symbols = splitList(symbols)
	}

	return nil
}

func (cfg *Config) applyDefaults() {
	if cfg.App.Port == 0 {
		cfg.App.Port = DefaultPort
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "text"
	}
	if cfg.Repository.DBSSLMode == "" {
		cfg.Repository.DBSSLMode = "disable"
	}
	if cfg.Cache.SnapshotTTL == "" {
		cfg.Cache.SnapshotTTL = DefaultSnapshotTTL
	}
	if cfg.Cache.Retention == "" {
		cfg.Cache.Retention = DefaultRetention
	}
	if len(cfg.Venues.Enabled) == 0 {
		cfg.Venues.Enabled = append([]string(nil), DefaultVenues...)
		for _, custom := range cfg.Venues.Custom {
			cfg.Venues.Enabled = append(cfg.Venues.Enabled, custom.Name)
		}
	}
	if cfg.Venues.FetchTimeoutMs == 0 {
		cfg.Venues.FetchTimeoutMs = DefaultFetchTimeoutMs
	}
	if cfg.Venues.RateLimit == 0 {
		cfg.Venues.RateLimit = DefaultRateLimit
	}
	if cfg.Venues.RateBurst == 0 {
		cfg.Venues.RateBurst = DefaultRateBurst
	}
	if cfg.Scanner.Schedule == "" {
		cfg.Scanner.Schedule = DefaultScannerSchedule
	}
	if cfg.Scanner.Threshold == 0 {
		cfg.Scanner.Threshold = DefaultScannerThreshold
	}
	if cfg.Scanner.Workers == 0 {
		cfg.Scanner.Workers = DefaultScannerWorkers
	}
}

// Validate checks values that would otherwise fail at request time.
// Venue names are checked against the venue factories by the server.
func (cfg *Config) Validate() error {
	var errs []error

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("app.port out of range: %d", cfg.App.Port))
	}
	if cfg.Venues.FetchTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("venues.fetch_timeout_ms must be positive"))
	}
	if cfg.Venues.RateLimit < 0 || cfg.Venues.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("venues rate limit must not be negative"))
	}
	if math.IsNaN(cfg.Scanner.Threshold) || math.IsInf(cfg.Scanner.Threshold, 0) {
		errs = append(errs, fmt.Errorf("scanner.threshold must be a finite number"))
	} else if cfg.Scanner.Threshold < 0 {
		errs = append(errs, fmt.Errorf("scanner.threshold must not be negative"))
	}
	if cfg.Scanner.Workers < 0 {
		errs = append(errs, fmt.Errorf("scanner.workers must not be negative"))
	}
	if _, err := time.ParseDuration(cfg.Cache.SnapshotTTL); err != nil {
		errs = append(errs, fmt.Errorf("cache.snapshot_ttl: %w", err))
	}
	if _, err := time.ParseDuration(cfg.Cache.Retention); err != nil {
		errs = append(errs, fmt.Errorf("cache.retention: %w", err))
	}

	seen := make(map[string]bool)
	for i, custom := range cfg.Venues.Custom {
		name := strings.ToLower(strings.TrimSpace(custom.Name))
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("venues.custom[%d]: name cannot be empty", i))
		case seen[name]:
			errs = append(errs, fmt.Errorf("venues.custom[%d]: duplicate name %s", i, name))
		}
		seen[name] = true
		if !strings.Contains(custom.TickerURL, "{symbol}") {
			errs = append(errs, fmt.Errorf("venues.custom[%d]: ticker_url must contain {symbol}", i))
		}
		if custom.PricePath == "" {
			errs = append(errs, fmt.Errorf("venues.custom[%d]: price_path cannot be empty", i))
		}
	}

	return errors.Join(errs...)
}

// SnapshotTTLDuration returns the parsed snapshot TTL, zero if invalid.
func (c Cache) SnapshotTTLDuration() time.Duration {
	d, _ := time.ParseDuration(c.SnapshotTTL)
	return d
}

func (c Cache) RetentionDuration() time.Duration {
	d, _ := time.ParseDuration(c.Retention)
	return d
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes"
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

type Config struct {
	App        App        `json:"app" yaml:"app"`
	Repository Repository `json:"repository" yaml:"repository"`
	Cache      Cache      `json:"cache" yaml:"cache"`
	Venues     Venues     `json:"venues" yaml:"venues"`
	Scanner    Scanner    `json:"scanner" yaml:"scanner"`
}

type App struct {
	Port      int    `json:"port" yaml:"port"`
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // "text" or "json"
}

type Repository struct {
	Enabled     bool   `json:"enabled" yaml:"enabled"`
	DBHost      string `json:"db_host" yaml:"db_host"`
	DBPort      int    `json:"db_port" yaml:"db_port"`
	DBUsername  string `json:"db_username" yaml:"db_username"`
	DBPassword  string `json:"db_password" yaml:"db_password"`
	DBName      string `json:"db_name" yaml:"db_name"`
	DBSSLMode   string `json:"db_ssl_mode" yaml:"db_ssl_mode"`
	MaxConn     int    `json:"max_conn" yaml:"max_conn"`
	MaxIdleConn int    `json:"max_idle_conn" yaml:"max_idle_conn"`
}

type Cache struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	RedisHost     string `json:"redis_host" yaml:"redis_host"`
	RedisPort     int    `json:"redis_port" yaml:"redis_port"`
	RedisPassword string `json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	PoolSize      int    `json:"pool_size" yaml:"pool_size"`
	MinIdleConns  int    `json:"min_idle_conns" yaml:"min_idle_conns"`
	SnapshotTTL   string `json:"snapshot_ttl" yaml:"snapshot_ttl"`
	Retention     string `json:"retention" yaml:"retention"`
}

type Venues struct {
	Enabled        []string      `json:"enabled" yaml:"enabled"`
	FetchTimeoutMs int           `json:"fetch_timeout_ms" yaml:"fetch_timeout_ms"`
	RateLimit      float64       `json:"rate_limit" yaml:"rate_limit"` // requests per second per venue
	RateBurst      int           `json:"rate_burst" yaml:"rate_burst"`
	Custom         []CustomVenue `json:"custom" yaml:"custom"`
}

// CustomVenue describes a REST ticker endpoint not built in.
type CustomVenue struct {
	Name         string `json:"name" yaml:"name"`
	TickerURL    string `json:"ticker_url" yaml:"ticker_url"`       // must contain {symbol}
	SymbolFormat string `json:"symbol_format" yaml:"symbol_format"` // concat, dash, underscore, slash, lower
	PricePath    string `json:"price_path" yaml:"price_path"`       // gjson path
	ErrorPath    string `json:"error_path" yaml:"error_path"`
}

type Scanner struct {
	Enabled   bool     `json:"enabled" yaml:"enabled"`
	Schedule  string   `json:"schedule" yaml:"schedule"` // cron spec
	Threshold float64  `json:"threshold" yaml:"threshold"`
	Workers   int      `json:"workers" yaml:"workers"`
	Symbols   []string `json:"symbols" yaml:"symbols"`
}
