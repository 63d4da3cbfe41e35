package exchanges

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Canned responses keyed by request path, shaped like each venue's ticker.
var venueFixtures = map[string]struct {
	path  string
	query string
	body  string
	want  float64
}{
	Bybit:   {"/v5/market/tickers", "category=spot&symbol=BTCUSDT", `{"retCode":0,"result":{"list":[{"symbol":"BTCUSDT","lastPrice":"65000.5"}]}}`, 65000.5},
	Binance: {"/api/v3/ticker/price", "symbol=BTCUSDT", `{"symbol":"BTCUSDT","price":"65001.00"}`, 65001},
	OKX:     {"/api/v5/market/ticker", "instId=BTC-USDT", `{"code":"0","data":[{"instId":"BTC-USDT","last":"65002"}]}`, 65002},
	KuCoin:  {"/api/v1/market/orderbook/level1", "symbol=BTC-USDT", `{"code":"200000","data":{"price":"65003.1"}}`, 65003.1},
	GateIO:  {"/api/v4/spot/tickers", "currency_pair=BTC_USDT", `[{"currency_pair":"BTC_USDT","last":"65004"}]`, 65004},
	Huobi:   {"/market/detail/merged", "symbol=btcusdt", `{"status":"ok","tick":{"close":65005.25}}`, 65005.25},
	Kraken:  {"/0/public/Ticker", "pair=BTCUSDT", `{"error":[],"result":{"XBTUSDT":{"c":["65006.0","0.1"]}}}`, 65006},
	Bitget:  {"/api/v2/spot/market/tickers", "symbol=BTCUSDT", `{"code":"00000","data":[{"symbol":"BTCUSDT","lastPr":"65007"}]}`, 65007},
	MEXC:    {"/api/v3/ticker/price", "symbol=BTCUSDT", `{"symbol":"BTCUSDT","price":"65008"}`, 65008},
}

func TestBuiltinVenuesParseTickers(t *testing.T) {
	for venue, fx := range venueFixtures {
		t.Run(venue, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, fx.path, r.URL.Path)
				assert.Equal(t, fx.query, r.URL.RawQuery)
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(fx.body))
			}))
			defer srv.Close()

			r := NewRegistry([]string{venue}, nil, Options{BaseURLs: map[string]string{venue: srv.URL}})
			client, ok := r.Client(venue)
			require.True(t, ok)

			price, err := client.FetchLastPrice(context.Background(), "BTC/USDT")
			require.NoError(t, err)
			assert.InDelta(t, fx.want, price, 1e-9)
		})
	}
}

func newTestClient(t *testing.T, status int, body string) *TickerClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return NewTickerClient("test", Endpoint{
		URL:       srv.URL + "/ticker?symbol={symbol}",
		PricePath: "price",
		ErrorPath: "error",
	}, Options{Timeout: time.Second})
}

func TestTickerClientFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, `{"price":"1"}`},
		{"invalid json", http.StatusOK, `not json`},
		{"missing price", http.StatusOK, `{"symbol":"BTCUSDT"}`},
		{"zero price", http.StatusOK, `{"price":"0"}`},
		{"nan price", http.StatusOK, `{"price":"NaN"}`},
		{"inf price", http.StatusOK, `{"price":"Inf"}`},
		{"negative inf price", http.StatusOK, `{"price":"-Inf"}`},
		{"venue error", http.StatusOK, `{"error":"unknown symbol","price":"1"}`},
		{"venue error list", http.StatusOK, `{"error":["EQuery:Unknown asset pair"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, tc.status, tc.body)
			_, err := c.FetchLastPrice(context.Background(), "BTC/USDT")
			assert.Error(t, err)
		})
	}
}

func TestTickerClientNoPrice(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"price":""}`)
	_, err := c.FetchLastPrice(context.Background(), "BTC/USDT")
	assert.ErrorIs(t, err, ErrNoPrice)
}

func TestTickerClientEmptyErrorListIsFine(t *testing.T) {
	c := newTestClient(t, http.StatusOK, `{"error":[],"price":42.5}`)
	price, err := c.FetchLastPrice(context.Background(), "ETH/USDT")
	require.NoError(t, err)
	assert.Equal(t, 42.5, price)
}

func TestTickerClientTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewTickerClient("slow", Endpoint{URL: srv.URL + "/?s={symbol}", PricePath: "price"}, Options{Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := c.FetchLastPrice(context.Background(), "BTC/USDT")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestTickerClientRateLimitHonoursContext(t *testing.T) {
	c := NewTickerClient("limited", Endpoint{URL: "http://127.0.0.1:1/{symbol}", PricePath: "price"}, Options{RateLimit: 0.001, RateBurst: 1})
	// drain the single token
	c.limiter.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.FetchLastPrice(ctx, "BTC/USDT")
	assert.ErrorContains(t, err, "rate limit")
}

func TestTickerClientRateLimitWaitIsBounded(t *testing.T) {
	c := NewTickerClient("limited", Endpoint{URL: "http://127.0.0.1:1/{symbol}", PricePath: "price"},
		Options{Timeout: 50 * time.Millisecond, RateLimit: 0.001, RateBurst: 1})
	c.limiter.Allow()

	start := time.Now()
	_, err := c.FetchLastPrice(context.WithoutCancel(context.Background()), "BTC/USDT")
	assert.ErrorContains(t, err, "rate limit")
	assert.Less(t, time.Since(start), time.Second)
}

func TestEndpointWithBase(t *testing.T) {
	ep := Endpoint{URL: "https://api.binance.com/api/v3/ticker/price?symbol={symbol}"}
	assert.Equal(t, "http://127.0.0.1:9000/api/v3/ticker/price?symbol={symbol}", ep.withBase("http://127.0.0.1:9000").URL)
	assert.Equal(t, "http://h/prefix/api/v3/ticker/price?symbol={symbol}", ep.withBase("http://h/prefix/").URL)
}

func TestTickerClientJSONPath(t *testing.T) {
	cases := []struct {
		body string
		path string
		want float64
	}{
		{`{"data":[{"last":"101.5"}]}`, "$.data[0].last", 101.5},
		{`{"ticker":{"price":99.25}}`, "$.ticker.price", 99.25},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(tc.body))
		}))
		c := NewTickerClient("jp", Endpoint{URL: srv.URL + "/t?s={symbol}", PricePath: tc.path}, Options{Timeout: time.Second})

		price, err := c.FetchLastPrice(context.Background(), "BTC/USDT")
		srv.Close()
		require.NoError(t, err, tc.path)
		assert.Equal(t, tc.want, price)
	}

	_, err := jsonPathPrice([]byte(`{"data":[]}`), "$.data[0].last")
	assert.ErrorIs(t, err, ErrNoPrice)
	_, err = jsonPathPrice([]byte(`{"p":"abc"}`), "$.p")
	assert.ErrorIs(t, err, ErrNoPrice)

	for _, body := range []string{`{"p":"NaN"}`, `{"p":"+Inf"}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		c := NewTickerClient("jp", Endpoint{URL: srv.URL + "/t?s={symbol}", PricePath: "$.p"}, Options{Timeout: time.Second})
		_, err := c.FetchLastPrice(context.Background(), "BTC/USDT")
		srv.Close()
		assert.ErrorIs(t, err, ErrNoPrice, body)
	}
}
