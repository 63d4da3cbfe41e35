package exchanges

import (
	"context"
	"testing"

	"cryptoarb/internal/config"
	"cryptoarb/internal/core/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	name  string
	price float64
	err   error
}

func (s *stubClient) Name() string { return s.name }

func (s *stubClient) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	return s.price, s.err
}

func TestNewRegistrySkipsUnknownVenues(t *testing.T) {
	r := NewRegistry([]string{"Binance", "nosuchvenue", "okx", "binance", " KRAKEN "}, nil, Options{})

	assert.Equal(t, []string{"binance", "okx", "kraken"}, r.EnabledVenues())

	c, ok := r.Client("OKX")
	require.True(t, ok)
	assert.Equal(t, "okx", c.Name())

	_, ok = r.Client("nosuchvenue")
	assert.False(t, ok)
}

func TestNewRegistryCustomVenue(t *testing.T) {
	custom := []config.CustomVenue{{
		Name:      "Sim",
		TickerURL: "http://127.0.0.1:1/ticker?symbol={symbol}",
		PricePath: "price",
	}}

	r := NewRegistry([]string{"sim", "bybit"}, custom, Options{})
	assert.Equal(t, []string{"sim", "bybit"}, r.EnabledVenues())
}

func TestEnabledVenuesIsACopy(t *testing.T) {
	r := NewRegistryWithClients(&stubClient{name: "a"}, &stubClient{name: "b"}, &stubClient{name: "a"})
	venues := r.EnabledVenues()
	venues[0] = "mutated"
	assert.Equal(t, []string{"a", "b"}, r.EnabledVenues())
}

func TestPopularSymbols(t *testing.T) {
	r := NewRegistryWithClients()
	symbols := r.PopularSymbols()
	require.Len(t, symbols, 48)
	assert.Equal(t, "BTC/USDT", symbols[0])
	assert.Equal(t, "ETH/USDT", symbols[1])
	assert.Equal(t, "GALA/USDT", symbols[len(symbols)-1])
}

func TestCheckNames(t *testing.T) {
	assert.NoError(t, CheckNames([]string{"binance", "OKX", "mexc"}, nil))

	err := CheckNames([]string{"binance", "ftx"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ftx"`)

	custom := []config.CustomVenue{{Name: "sim"}}
	assert.NoError(t, CheckNames([]string{"sim", "kraken"}, custom))

	err = CheckNames([]string{"binance"}, []config.CustomVenue{{Name: "Binance"}})
	assert.ErrorContains(t, err, "shadows")
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	assert.Panics(t, func() { Register(Binance, func(Options) port.VenueClient { return nil }) })
	assert.Panics(t, func() { Register(" ", func(Options) port.VenueClient { return nil }) })
	assert.Panics(t, func() { Register("fresh-venue", nil) })
}

func TestSupportedVenues(t *testing.T) {
	assert.Equal(t, []string{"binance", "bitget", "bybit", "gateio", "huobi", "kraken", "kucoin", "mexc", "okx"}, SupportedVenues())
}

func TestFormatSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", FormatSymbol("BTC/USDT", FormatConcat))
	assert.Equal(t, "BTCUSDT", FormatSymbol("BTC/USDT", ""))
	assert.Equal(t, "BTC-USDT", FormatSymbol("BTC/USDT", FormatDash))
	assert.Equal(t, "BTC_USDT", FormatSymbol("BTC/USDT", FormatUnderscore))
	assert.Equal(t, "BTC/USDT", FormatSymbol("BTC/USDT", FormatSlash))
	assert.Equal(t, "btcusdt", FormatSymbol("BTC/USDT", FormatLower))
}
