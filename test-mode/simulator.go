package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Ticker is the body served for GET /ticker
type Ticker struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
}

// SymbolData holds the random walk state for one symbol
type SymbolData struct {
	BasePrice    float64
	CurrentPrice float64
	Volatility   float64 // percentage as decimal (0.02 = 2%)
	Trend        float64 // 1.0 for up, -1.0 for down
}

func DefaultSymbols() map[string]SymbolData {
	return map[string]SymbolData{
		"BTCUSDT":  {BasePrice: 96000.0, Volatility: 0.002, Trend: 1.0},
		"ETHUSDT":  {BasePrice: 3300.0, Volatility: 0.0025, Trend: 1.0},
		"SOLUSDT":  {BasePrice: 210.0, Volatility: 0.003, Trend: 1.0},
		"DOGEUSDT": {BasePrice: 0.32, Volatility: 0.005, Trend: 1.0},
		"TONUSDT":  {BasePrice: 5.45, Volatility: 0.004, Trend: 1.0},
	}
}

// Venue is a simulated exchange with its own price path per symbol
type Venue struct {
	Name string
	Port int

	mu      sync.RWMutex
	symbols map[string]*SymbolData
	rng     *rand.Rand

	server *http.Server
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewVenue(name string, port int, symbols map[string]SymbolData, seed int64) *Venue {
	rng := rand.New(rand.NewSource(seed))
	state := make(map[string]*SymbolData, len(symbols))
	for symbol, data := range symbols {
		d := data
		// each venue starts slightly off the base so spreads exist from the start
		d.CurrentPrice = roundPrice(d.BasePrice * (1 + (rng.Float64()-0.5)*0.02))
		state[symbol] = &d
	}

	v := &Venue{
		Name:    name,
		Port:    port,
		symbols: state,
		rng:     rng,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ticker", v.handleTicker)
	v.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return v
}

// Start serves HTTP and moves prices every interval until ctx is done
func (v *Venue) Start(ctx context.Context, interval time.Duration) error {
	ctx, v.cancel = context.WithCancel(ctx)

	errChan := make(chan error, 1)
	go func() {
		if err := v.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		v.cancel()
		return err
	case <-time.After(100 * time.Millisecond):
	}

	v.wg.Add(1)
	go v.generate(ctx, interval)

	slog.Info("Venue started", "name", v.Name, "port", v.Port)
	return nil
}

func (v *Venue) generate(ctx context.Context, interval time.Duration) {
	defer v.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Step()
		}
	}
}

// Step advances every symbol by one random walk step
func (v *Venue) Step() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, data := range v.symbols {
		data.CurrentPrice = nextPrice(v.rng, data)
	}
}

func (v *Venue) Price(symbol string) (float64, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	data, ok := v.symbols[symbol]
	if !ok {
		return 0, false
	}
	return data.CurrentPrice, true
}

func (v *Venue) handleTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	w.Header().Set("Content-Type", "application/json")

	price, ok := v.Price(symbol)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown symbol " + symbol})
		return
	}

	json.NewEncoder(w).Encode(Ticker{
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (v *Venue) Shutdown() {
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := v.server.Shutdown(ctx); err != nil {
		slog.Error("Failed to stop venue", "name", v.Name, "error", err)
	}
	v.wg.Wait()
}

// nextPrice is a random walk with trend, kept within 20% of the base price
func nextPrice(rng *rand.Rand, data *SymbolData) float64 {
	change := rng.NormFloat64() * data.Volatility * data.CurrentPrice

	// 10% of the change follows the trend
	change += change * 0.1 * data.Trend

	newPrice := data.CurrentPrice + change

	maxDeviation := data.BasePrice * 0.2
	if newPrice > data.BasePrice+maxDeviation {
		newPrice = data.BasePrice + maxDeviation
		data.Trend = -1.0
	} else if newPrice < data.BasePrice-maxDeviation {
		newPrice = data.BasePrice - maxDeviation
		data.Trend = 1.0
	}

	if newPrice <= 0 {
		newPrice = data.BasePrice * 0.01
	}

	// Occasionally change trend (5% chance)
	if rng.Float64() < 0.05 {
		data.Trend = -data.Trend
	}

	return roundPrice(newPrice)
}

// roundPrice rounds to a precision that suits the price level
func roundPrice(price float64) float64 {
	switch {
	case price > 1000:
		return math.Round(price*100) / 100
	case price > 10:
		return math.Round(price*1000) / 1000
	default:
		return math.Round(price*1000000) / 1000000
	}
}
