package v1

import (
	"context"
	"net/http"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/port"
	"cryptoarb/internal/utils"
)

type HistoryHandler struct {
	historyService port.HistoryService
	repository     port.OpportunityRepository
}

// NewHistoryHandler serves recorded scanner output. repository may be nil.
func NewHistoryHandler(
	historyService port.HistoryService,
	repository port.OpportunityRepository,
) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
		repository:     repository,
	}
}

type SpreadStatisticResponse struct {
	Symbol     string  `json:"symbol"`
	Difference float64 `json:"difference"`
	Samples    int     `json:"samples"`
	Period     string  `json:"period"`
	StartTime  int64   `json:"start_time"`
	EndTime    int64   `json:"end_time"`
	Timestamp  int64   `json:"timestamp"`
}

type spreadFunc func(ctx context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error)

// GetSnapshot handles GET /snapshots/{symbol...}
func (h *HistoryHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeErrorResponse(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}

	cmp, err := h.historyService.LatestComparison(r.Context(), symbol)
	if err != nil {
		writeServiceError(w, err, "failed to get snapshot")
		return
	}

	writeJSONResponse(w, http.StatusOK, cmp)
}

// GetHighestSpread handles GET /spreads/highest/{symbol...}?period=5m
func (h *HistoryHandler) GetHighestSpread(w http.ResponseWriter, r *http.Request) {
	h.serveSpread(w, r, "highest", h.historyService.HighestSpread)
}

// GetLowestSpread handles GET /spreads/lowest/{symbol...}?period=5m
func (h *HistoryHandler) GetLowestSpread(w http.ResponseWriter, r *http.Request) {
	h.serveSpread(w, r, "lowest", h.historyService.LowestSpread)
}

// GetAverageSpread handles GET /spreads/average/{symbol...}?period=5m
func (h *HistoryHandler) GetAverageSpread(w http.ResponseWriter, r *http.Request) {
	h.serveSpread(w, r, "average", h.historyService.AverageSpread)
}

func (h *HistoryHandler) serveSpread(w http.ResponseWriter, r *http.Request, kind string, fn spreadFunc) {
	symbol := r.PathValue("symbol")
	if symbol == "" {
		writeErrorResponse(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}

	period, err := utils.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	statistic, err := fn(r.Context(), symbol, period)
	if err != nil {
		writeServiceError(w, err, "failed to get "+kind+" spread")
		return
	}

	writeJSONResponse(w, http.StatusOK, SpreadStatisticResponse{
		Symbol:     statistic.Symbol,
		Difference: statistic.Difference,
		Samples:    statistic.Samples,
		Period:     statistic.Period,
		StartTime:  statistic.StartTime.Unix(),
		EndTime:    statistic.EndTime.Unix(),
		Timestamp:  statistic.Timestamp,
	})
}

// GetOpportunities handles GET /opportunities?limit=50&symbol=BTC/USDT
func (h *HistoryHandler) GetOpportunities(w http.ResponseWriter, r *http.Request) {
	if h.repository == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "opportunity repository not available")
		return
	}

	limit, err := parseLimit(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol != "" {
		if symbol, err = domain.NormalizeSymbol(symbol); err != nil {
			writeServiceError(w, err, "failed to list opportunities")
			return
		}
	}

	opps, err := h.repository.ListRecent(r.Context(), limit, symbol)
	if err != nil {
		writeServiceError(w, err, "failed to list opportunities")
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}

	writeJSONResponse(w, http.StatusOK, opps)
}
