// File: internal/adapters/handler/http/v1/endpoints.go
package v1

import (
	"net/http"

	"cryptoarb/internal/metrics"
)

// SetMarketRoutes sets up all API routes. stream may be nil.
func SetMarketRoutes(router *http.ServeMux, priceHandler *PriceHandler, historyHandler *HistoryHandler,
	healthHandler *HealthHandler, stream http.Handler) {
	// Live comparison routes
	setPriceRoutes(priceHandler, router)

	// Scanner history routes
	setHistoryRoutes(historyHandler, router)

	// System Health Routes
	setHealthRoutes(healthHandler, router)

	if stream != nil {
		router.Handle("GET /ws/opportunities", stream)
	}
	router.Handle("GET /metrics", metrics.Handler())
}

// setPriceRoutes sets up the venue and comparison endpoints.
// Symbols may contain a slash, so they are matched as trailing wildcards.
func setPriceRoutes(handler *PriceHandler, router *http.ServeMux) {
	router.HandleFunc("GET /exchanges", handler.GetExchanges)
	router.HandleFunc("GET /symbols/popular", handler.GetPopularSymbols)
	router.HandleFunc("GET /markets", handler.GetMarkets)

	router.HandleFunc("GET /prices/{symbol...}", handler.GetPrices)         // ?venues=a,b
	router.HandleFunc("GET /arbitrage/{symbol...}", handler.CheckArbitrage) // ?threshold=N
}

func setHistoryRoutes(handler *HistoryHandler, router *http.ServeMux) {
	router.HandleFunc("GET /snapshots/{symbol...}", handler.GetSnapshot)

	// ?period={duration}, default 1m
	router.HandleFunc("GET /spreads/highest/{symbol...}", handler.GetHighestSpread)
	router.HandleFunc("GET /spreads/lowest/{symbol...}", handler.GetLowestSpread)
	router.HandleFunc("GET /spreads/average/{symbol...}", handler.GetAverageSpread)

	router.HandleFunc("GET /opportunities", handler.GetOpportunities)
}

// setHealthRoutes sets up system health endpoints
func setHealthRoutes(handler *HealthHandler, router *http.ServeMux) {
	router.HandleFunc("GET /health", handler.GetSystemHealth)
	router.HandleFunc("GET /health/detailed", handler.GetDetailedHealth)
}
