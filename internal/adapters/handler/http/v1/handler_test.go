package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cryptoarb/internal/core/domain"
	"cryptoarb/internal/core/service/comparison"
	"cryptoarb/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComparison struct {
	lastSymbol    string
	lastVenues    []string
	lastThreshold float64
	lastLimit     int
	lastFilter    string
}

func (f *fakeComparison) Compare(_ context.Context, symbol string, venues []string) (*domain.SymbolComparison, error) {
	f.lastSymbol, f.lastVenues = symbol, venues
	norm, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	quote := domain.SymbolQuote{"a": domain.Float(100), "b": domain.Float(102), "c": nil}
	return comparison.Reduce(norm, []string{"a", "b", "c"}, quote, 1700000000000), nil
}

func (f *fakeComparison) CheckArbitrage(ctx context.Context, symbol string, threshold float64) (*domain.SymbolComparison, error) {
	f.lastThreshold = threshold
	if threshold < 0 {
		return nil, domain.ErrInvalidThreshold
	}
	cmp, err := f.Compare(ctx, symbol, nil)
	if err != nil {
		return nil, err
	}
	return comparison.Filter(cmp, threshold), nil
}

func (f *fakeComparison) Markets(_ context.Context, limit int, filter string) ([]domain.MarketSummary, error) {
	f.lastLimit, f.lastFilter = limit, filter
	if limit > 100 {
		return nil, domain.ErrInvalidLimit
	}
	return []domain.MarketSummary{{Symbol: "BTC/USDT", Price: domain.Float(102), Exchanges: 2}}, nil
}

func (f *fakeComparison) EnabledVenues() []string { return []string{"a", "b", "c"} }

func (f *fakeComparison) PopularSymbols() []string { return []string{"BTC/USDT", "ETH/USDT"} }

type fakeHistory struct {
	period time.Duration
}

func (f *fakeHistory) LatestComparison(_ context.Context, symbol string) (*domain.SymbolComparison, error) {
	if symbol == "ETH/USDT" {
		return &domain.SymbolComparison{Symbol: symbol, Prices: domain.SymbolQuote{}}, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeHistory) stat(symbol string, period time.Duration, diff float64) (*domain.SpreadStatistic, error) {
	f.period = period
	if symbol == "DOGE/USDT" {
		return nil, domain.ErrUnavailable
	}
	end := time.Unix(1700000000, 0)
	return &domain.SpreadStatistic{
		Symbol:     symbol,
		Difference: diff,
		Samples:    3,
		Period:     utils.FormatPeriod(period),
		StartTime:  end.Add(-period),
		EndTime:    end,
		Timestamp:  end.Unix(),
	}, nil
}

func (f *fakeHistory) HighestSpread(_ context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error) {
	return f.stat(symbol, period, 3)
}

func (f *fakeHistory) LowestSpread(_ context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error) {
	return f.stat(symbol, period, 1)
}

func (f *fakeHistory) AverageSpread(_ context.Context, symbol string, period time.Duration) (*domain.SpreadStatistic, error) {
	return f.stat(symbol, period, 2)
}

type fakeRepo struct {
	limit  int
	symbol string
	err    error
}

func (f *fakeRepo) Save(context.Context, *domain.ArbitrageOpportunity) error { return nil }

func (f *fakeRepo) ListRecent(_ context.Context, limit int, symbol string) ([]domain.ArbitrageOpportunity, error) {
	f.limit, f.symbol = limit, symbol
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ArbitrageOpportunity{{ID: "1", Symbol: "BTC/USDT", Difference: 2}}, nil
}

func (f *fakeRepo) Ping(context.Context) error { return nil }

type fakeHealth struct {
	status string
}

func (f fakeHealth) GetSystemHealth(context.Context) (*domain.HealthStatus, error) {
	return &domain.HealthStatus{Status: f.status, Components: map[string]string{"venues": f.status}}, nil
}

func (f fakeHealth) GetDetailedHealth(ctx context.Context) (*domain.HealthStatus, error) {
	return f.GetSystemHealth(ctx)
}

type testEnv struct {
	cmp     *fakeComparison
	history *fakeHistory
	repo    *fakeRepo
	handler http.Handler
}

func newEnv(healthStatus string) *testEnv {
	env := &testEnv{cmp: &fakeComparison{}, history: &fakeHistory{}, repo: &fakeRepo{}}
	mux := http.NewServeMux()
	SetMarketRoutes(mux,
		NewPriceHandler(env.cmp),
		NewHistoryHandler(env.history, env.repo),
		NewHealthHandler(fakeHealth{status: healthStatus}),
		nil)
	env.handler = Wrap(mux)
	return env
}

func (e *testEnv) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestGetExchangesAndSymbols(t *testing.T) {
	env := newEnv("healthy")

	var ex ExchangesResponse
	rec := env.get(t, "/exchanges")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &ex)
	assert.Equal(t, []string{"a", "b", "c"}, ex.Exchanges)

	var sym SymbolsResponse
	rec = env.get(t, "/symbols/popular")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &sym)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, sym.Symbols)
}

func TestGetPrices(t *testing.T) {
	env := newEnv("healthy")

	rec := env.get(t, "/prices/BTC/USDT?venues=a,b")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC/USDT", env.cmp.lastSymbol)
	assert.Equal(t, []string{"a", "b"}, env.cmp.lastVenues)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "BTC/USDT", body["symbol"])
	assert.Equal(t, 102.0, body["maxPrice"])
	assert.Equal(t, 2.0, body["difference"])
	assert.Equal(t, "b", body["higherVenue"])
	prices := body["prices"].(map[string]interface{})
	assert.Contains(t, prices, "c")
	assert.Nil(t, prices["c"])
}

func TestGetPricesExchangesAlias(t *testing.T) {
	env := newEnv("healthy")

	rec := env.get(t, "/prices/ETHUSDT?exchanges=okx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ETHUSDT", env.cmp.lastSymbol)
	assert.Equal(t, []string{"okx"}, env.cmp.lastVenues)
}

func TestGetPricesInvalidSymbol(t *testing.T) {
	env := newEnv("healthy")

	rec := env.get(t, "/prices/%3F%3F")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "bad_request", body.Error)

	rec = env.get(t, "/prices/")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckArbitrage(t *testing.T) {
	env := newEnv("healthy")

	rec := env.get(t, "/arbitrage/BTC/USDT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, comparison.DefaultThreshold, env.cmp.lastThreshold)
	assert.Contains(t, rec.Body.String(), `"difference":2`)

	rec = env.get(t, "/arbitrage/BTC/USDT?threshold=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))

	rec = env.get(t, "/arbitrage/BTC/USDT?threshold=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.get(t, "/arbitrage/BTC/USDT?threshold=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMarkets(t *testing.T) {
	env := newEnv("healthy")

	rec := env.get(t, "/markets?limit=5&symbol=btc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, env.cmp.lastLimit)
	assert.Equal(t, "btc", env.cmp.lastFilter)

	var markets []domain.MarketSummary
	decode(t, rec, &markets)
	require.Len(t, markets, 1)
	assert.Equal(t, 2, markets[0].Exchanges)

	assert.Equal(t, http.StatusOK, env.get(t, "/markets").Code)
	assert.Equal(t, 0, env.cmp.lastLimit)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/markets?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/markets?limit=x").Code)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/markets?limit=101").Code)
}

func TestGetSnapshot(t *testing.T) {
	env := newEnv("healthy")

	assert.Equal(t, http.StatusOK, env.get(t, "/snapshots/ETH/USDT").Code)

	rec := env.get(t, "/snapshots/BTC/USDT")
	require.Equal(t, http.StatusNotFound, rec.Code)
	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "not_found", body.Error)
}

func TestGetSpreads(t *testing.T) {
	env := newEnv("healthy")

	var stat SpreadStatisticResponse
	rec := env.get(t, "/spreads/highest/BTC/USDT?period=5m")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stat)
	assert.Equal(t, 3.0, stat.Difference)
	assert.Equal(t, "5m", stat.Period)
	assert.Equal(t, int64(1700000000-300), stat.StartTime)

	rec = env.get(t, "/spreads/lowest/BTC/USDT")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, utils.DefaultPeriod, env.history.period)

	rec = env.get(t, "/spreads/average/BTC/USDT?period=1h")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &stat)
	assert.Equal(t, 2.0, stat.Difference)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/spreads/average/BTC/USDT?period=forever").Code)

	rec = env.get(t, "/spreads/highest/DOGE/USDT")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body ErrorResponse
	decode(t, rec, &body)
	assert.Equal(t, "service_unavailable", body.Error)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/spreads/median/BTC/USDT").Code)
}

func TestGetOpportunities(t *testing.T) {
	env := newEnv("healthy")

	rec := env.get(t, "/opportunities?limit=10&symbol=btcusdt")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, env.repo.limit)
	assert.Equal(t, "BTC/USDT", env.repo.symbol)

	var opps []domain.ArbitrageOpportunity
	decode(t, rec, &opps)
	require.Len(t, opps, 1)
	assert.Equal(t, "1", opps[0].ID)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/opportunities?symbol=%3F").Code)

	env.repo.err = errors.New("connection reset")
	assert.Equal(t, http.StatusInternalServerError, env.get(t, "/opportunities").Code)
}

func TestGetOpportunitiesWithoutRepository(t *testing.T) {
	mux := http.NewServeMux()
	SetMarketRoutes(mux, NewPriceHandler(&fakeComparison{}), NewHistoryHandler(&fakeHistory{}, nil),
		NewHealthHandler(fakeHealth{status: "healthy"}), nil)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/opportunities", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		status string
		code   int
	}{
		{"healthy", http.StatusOK},
		{"degraded", http.StatusOK},
		{"unhealthy", http.StatusServiceUnavailable},
		{"confused", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		env := newEnv(tt.status)
		assert.Equal(t, tt.code, env.get(t, "/health").Code, tt.status)

		rec := env.get(t, "/health/detailed")
		assert.Equal(t, tt.code, rec.Code, tt.status)
		var body HealthResponse
		decode(t, rec, &body)
		assert.Equal(t, tt.status, body.Status)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newEnv("healthy")
	env.get(t, "/exchanges")

	rec := env.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cryptoarb_http_requests_total")
}
