// Package exchanges provides REST ticker clients for cryptocurrency trading
// venues and the registry that wires them by name.
package exchanges

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"cryptoarb/internal/config"
	"cryptoarb/internal/core/port"
)

// Built-in venue names
const (
	Bybit   = "bybit"
	Binance = "binance"
	OKX     = "okx"
	KuCoin  = "kucoin"
	GateIO  = "gateio"
	Huobi   = "huobi"
	Kraken  = "kraken"
	Bitget  = "bitget"
	MEXC    = "mexc"
)

// Default connection settings
const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 10.0
	DefaultRateBurst = 5
)

// Options configures every client built by a registry.
type Options struct {
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	RateBurst int

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	// BaseURLs replaces scheme and host of a venue's endpoint, keyed by venue.
	BaseURLs map[string]string
}

// OptionsFromConfig converts the venue section of the config.
func OptionsFromConfig(cfg config.Venues) Options {
	return Options{
		Timeout:   time.Duration(cfg.FetchTimeoutMs) * time.Millisecond,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	}
}

// Factory builds a client for one venue.
type Factory func(opts Options) port.VenueClient

var factories = map[string]Factory{}

func init() {
	for name, endpoint := range builtinEndpoints {
		Register(name, endpointFactory(name, endpoint))
	}
}

// Register adds a venue factory. Registering a name twice panics.
func Register(name string, factory Factory) {
	key := normalizeName(name)
	if key == "" {
		panic("exchanges: empty venue name")
	}
	if factory == nil {
		panic(fmt.Sprintf("exchanges: nil factory for %s", name))
	}
	if _, exists := factories[key]; exists {
		panic(fmt.Sprintf("exchanges: duplicate registration for %s", key))
	}
	factories[key] = factory
}

// SupportedVenues returns the names of the built-in and registered venues.
func SupportedVenues() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckNames fails on the first venue name that has no factory and is not
// declared as a custom venue.
func CheckNames(names []string, custom []config.CustomVenue) error {
	declared := make(map[string]bool, len(custom))
	for _, c := range custom {
		key := normalizeName(c.Name)
		if _, builtin := factories[key]; builtin {
			return fmt.Errorf("custom venue %s shadows a built-in venue", key)
		}
		declared[key] = true
	}

	for _, name := range names {
		key := normalizeName(name)
		if _, ok := factories[key]; ok || declared[key] {
			continue
		}
		return fmt.Errorf("unknown venue %q (supported: %s)", name, strings.Join(SupportedVenues(), ", "))
	}
	return nil
}

// Registry maps venue names to ready clients.
type Registry struct {
	names   []string
	clients map[string]port.VenueClient
	popular []string
}

// NewRegistry builds a client for every name in order. Names without a
// factory or custom definition are skipped with a warning.
func NewRegistry(names []string, custom []config.CustomVenue, opts Options) *Registry {
	customFactories := make(map[string]Factory, len(custom))
	for _, c := range custom {
		key := normalizeName(c.Name)
		customFactories[key] = endpointFactory(key, CustomEndpoint(c))
	}

	r := &Registry{
		clients: make(map[string]port.VenueClient),
		popular: PopularSymbols(),
	}

	for _, name := range names {
		key := normalizeName(name)
		if _, dup := r.clients[key]; dup {
			continue
		}

		factory, ok := customFactories[key]
		if !ok {
			factory, ok = factories[key]
		}
		if !ok {
			slog.Warn("Unknown venue, skipping", "venue", name)
			continue
		}

		r.clients[key] = factory(opts)
		r.names = append(r.names, key)
	}

	slog.Info("Venue registry ready", "venues", r.names)
	return r
}

// NewRegistryWithClients wires pre-built clients, keeping their order.
func NewRegistryWithClients(clients ...port.VenueClient) *Registry {
	r := &Registry{
		clients: make(map[string]port.VenueClient, len(clients)),
		popular: PopularSymbols(),
	}
	for _, c := range clients {
		key := normalizeName(c.Name())
		if _, dup := r.clients[key]; dup {
			continue
		}
		r.clients[key] = c
		r.names = append(r.names, key)
	}
	return r
}

func (r *Registry) EnabledVenues() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func (r *Registry) PopularSymbols() []string {
	out := make([]string, len(r.popular))
	copy(out, r.popular)
	return out
}

func (r *Registry) Client(name string) (port.VenueClient, bool) {
	c, ok := r.clients[normalizeName(name)]
	return c, ok
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
