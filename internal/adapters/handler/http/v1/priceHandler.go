package v1

import (
	"fmt"
	"net/http"
	"strconv"

	"cryptoarb/internal/core/port"
	"cryptoarb/internal/core/service/comparison"
)

type PriceHandler struct {
	comparisonService port.ComparisonService
}

func NewPriceHandler(
	comparisonService port.ComparisonService,
) *PriceHandler {
	return &PriceHandler{
		comparisonService: comparisonService,
	}
}

type ExchangesResponse struct {
	Exchanges []string `json:"exchanges"`
}

type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// GetExchanges handles GET /exchanges
func (h *PriceHandler) GetExchanges(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, ExchangesResponse{Exchanges: h.comparisonService.EnabledVenues()})
}

// GetPopularSymbols handles GET /symbols/popular
func (h *PriceHandler) GetPopularSymbols(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, SymbolsResponse{Symbols: h.comparisonService.PopularSymbols()})
}

// GetPrices handles GET /prices/{symbol...}?venues=a,b
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeErrorResponse(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}

	query := r.URL.Query()
	venues := splitList(query.Get("venues"))
	if len(venues) == 0 {
		venues = splitList(query.Get("exchanges"))
	}

	cmp, err := h.comparisonService.Compare(r.Context(), symbol, venues)
	if err != nil {
		writeServiceError(w, err, "failed to compare prices")
		return
	}

	writeJSONResponse(w, http.StatusOK, cmp)
}

// CheckArbitrage handles GET /arbitrage/{symbol...}?threshold=1.5
// The body is null when the spread is below the threshold.
func (h *PriceHandler) CheckArbitrage(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeErrorResponse(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}

	threshold := comparison.DefaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid threshold: "+raw)
			return
		}
		threshold = v
	}

	cmp, err := h.comparisonService.CheckArbitrage(r.Context(), symbol, threshold)
	if err != nil {
		writeServiceError(w, err, "failed to check arbitrage")
		return
	}

	writeJSONResponse(w, http.StatusOK, cmp)
}

// GetMarkets handles GET /markets?limit=20&symbol=BTC
func (h *PriceHandler) GetMarkets(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	markets, err := h.comparisonService.Markets(r.Context(), limit, r.URL.Query().Get("symbol"))
	if err != nil {
		writeServiceError(w, err, "failed to get markets")
		return
	}

	writeJSONResponse(w, http.StatusOK, markets)
}

// parseLimit reads ?limit; an absent value is 0 and lets the service decide.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("invalid limit: %s", raw)
	}
	return limit, nil
}
