package exchanges

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cryptoarb/internal/config"
	"cryptoarb/internal/core/port"

	"github.com/PaesslerAG/jsonpath"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// ErrNoPrice is returned when a ticker carries no usable last price.
var ErrNoPrice = errors.New("ticker has no last price")

const maxBodySize = 1 << 20

// Endpoint describes a public REST ticker.
type Endpoint struct {
	URL          string // template with {symbol}
	SymbolFormat string
	PricePath    string // gjson path, or JSONPath when it starts with "$"
	ErrorPath    string // optional gjson path, non-empty value means failure
}

var builtinEndpoints = map[string]Endpoint{
	Bybit: {
		URL:          "https://api.bybit.com/v5/market/tickers?category=spot&symbol={symbol}",
		SymbolFormat: FormatConcat,
		PricePath:    "result.list.0.lastPrice",
	},
	Binance: {
		URL:          "https://api.binance.com/api/v3/ticker/price?symbol={symbol}",
		SymbolFormat: FormatConcat,
		PricePath:    "price",
	},
	OKX: {
		URL:          "https://www.okx.com/api/v5/market/ticker?instId={symbol}",
		SymbolFormat: FormatDash,
		PricePath:    "data.0.last",
	},
	KuCoin: {
		URL:          "https://api.kucoin.com/api/v1/market/orderbook/level1?symbol={symbol}",
		SymbolFormat: FormatDash,
		PricePath:    "data.price",
	},
	GateIO: {
		URL:          "https://api.gateio.ws/api/v4/spot/tickers?currency_pair={symbol}",
		SymbolFormat: FormatUnderscore,
		PricePath:    "0.last",
		ErrorPath:    "label",
	},
	Huobi: {
		URL:          "https://api.huobi.pro/market/detail/merged?symbol={symbol}",
		SymbolFormat: FormatLower,
		PricePath:    "tick.close",
		ErrorPath:    "err-msg",
	},
	Kraken: {
		URL:          "https://api.kraken.com/0/public/Ticker?pair={symbol}",
		SymbolFormat: FormatConcat,
		PricePath:    "result|@values|0.c.0",
		ErrorPath:    "error",
	},
	Bitget: {
		URL:          "https://api.bitget.com/api/v2/spot/market/tickers?symbol={symbol}",
		SymbolFormat: FormatConcat,
		PricePath:    "data.0.lastPr",
	},
	MEXC: {
		URL:          "https://api.mexc.com/api/v3/ticker/price?symbol={symbol}",
		SymbolFormat: FormatConcat,
		PricePath:    "price",
		ErrorPath:    "msg",
	},
}

// CustomEndpoint turns a configured custom venue into an Endpoint.
func CustomEndpoint(c config.CustomVenue) Endpoint {
	return Endpoint{
		URL:          c.TickerURL,
		SymbolFormat: c.SymbolFormat,
		PricePath:    c.PricePath,
		ErrorPath:    c.ErrorPath,
	}
}

func endpointFactory(name string, endpoint Endpoint) Factory {
	return func(opts Options) port.VenueClient {
		ep := endpoint
		if base, ok := opts.BaseURLs[name]; ok {
			ep = ep.withBase(base)
		}
		return NewTickerClient(name, ep, opts)
	}
}

// withBase swaps scheme and host, keeping path and query.
func (e Endpoint) withBase(base string) Endpoint {
	u, err := url.Parse(base)
	if err != nil {
		return e
	}
	idx := strings.Index(e.URL, "://")
	if idx < 0 {
		return e
	}
	rest := e.URL[idx+3:]
	if slash := strings.Index(rest, "/"); slash >= 0 {
		rest = rest[slash:]
	} else {
		rest = ""
	}
	e.URL = strings.TrimSuffix(u.Scheme+"://"+u.Host+u.Path, "/") + rest
	return e
}

// TickerClient polls a venue's REST ticker for the last price.
type TickerClient struct {
	name       string
	endpoint   Endpoint
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

func NewTickerClient(name string, endpoint Endpoint, opts Options) *TickerClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}

	return &TickerClient{
		name:       name,
		endpoint:   endpoint,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		timeout:    timeout,
	}
}

func (c *TickerClient) Name() string {
	return c.name
}

// FetchLastPrice bounds the rate-limit wait and the request by the same
// fetch timeout.
func (c *TickerClient) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%s: rate limit: %w", c.name, err)
	}

	target := c.tickerURL(symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: request failed: %w", c.name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return 0, fmt.Errorf("%s: failed to read body: %w", c.name, err)
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: unexpected status %d for %s", c.name, resp.StatusCode, symbol)
	}

	price, err := c.parsePrice(body)
	if err != nil {
		return 0, fmt.Errorf("%s: %s: %w", c.name, symbol, err)
	}

	slog.Debug("Fetched ticker", "venue", c.name, "symbol", symbol, "price", price)
	return price, nil
}

func (c *TickerClient) tickerURL(symbol string) string {
	formatted := FormatSymbol(symbol, c.endpoint.SymbolFormat)
	return strings.ReplaceAll(c.endpoint.URL, "{symbol}", url.QueryEscape(formatted))
}

func (c *TickerClient) parsePrice(body []byte) (float64, error) {
	if !gjson.ValidBytes(body) {
		return 0, errors.New("invalid JSON body")
	}

	if c.endpoint.ErrorPath != "" {
		if e := gjson.GetBytes(body, c.endpoint.ErrorPath); isVenueError(e) {
			return 0, fmt.Errorf("venue error: %s", e.String())
		}
	}

	var price float64
	if strings.HasPrefix(c.endpoint.PricePath, "$") {
		p, err := jsonPathPrice(body, c.endpoint.PricePath)
		if err != nil {
			return 0, err
		}
		price = p
	} else {
		result := gjson.GetBytes(body, c.endpoint.PricePath)
		if !result.Exists() {
			return 0, ErrNoPrice
		}
		price = result.Float()
	}

	if math.IsNaN(price) || math.IsInf(price, 0) || price <= 0 {
		return 0, ErrNoPrice
	}
	return price, nil
}

// jsonPathPrice evaluates a "$." style JSONPath expression. Prices may be
// JSON numbers or numeric strings.
func jsonPathPrice(body []byte, path string) (float64, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return 0, fmt.Errorf("invalid JSON body: %w", err)
	}

	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return 0, ErrNoPrice
	}

	switch p := v.(type) {
	case float64:
		return p, nil
	case string:
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, ErrNoPrice
		}
		return f, nil
	default:
		return 0, ErrNoPrice
	}
}

func isVenueError(r gjson.Result) bool {
	switch {
	case !r.Exists():
		return false
	case r.IsArray():
		return len(r.Array()) > 0
	case r.Type == gjson.String:
		return r.String() != ""
	case r.Type == gjson.True:
		return true
	default:
		return false
	}
}
