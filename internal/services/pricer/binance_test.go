package pricer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
)

// tickerServer serves /api/v3/ticker/price from a fixed price table.
type tickerServer struct {
	prices   map[string]string
	failing  map[string]int
	allCode  int
	allBody  string
	requests atomic.Int32
}

func (s *tickerServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)
	if r.URL.Path != "/api/v3/ticker/price" {
		http.NotFound(w, r)
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		if s.allCode != 0 {
			w.WriteHeader(s.allCode)
		}
		fmt.Fprint(w, s.allBody)
		return
	}

	if code, ok := s.failing[symbol]; ok {
		w.WriteHeader(code)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
		return
	}
	price, ok := s.prices[symbol]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
		return
	}
	fmt.Fprintf(w, `{"symbol":%q,"price":%q}`, symbol, price)
}

func newTestPricer(t *testing.T, ts *tickerServer, top []string) *BinancePricer {
	t.Helper()
	server := httptest.NewServer(ts)
	t.Cleanup(server.Close)
	return NewBinancePricer(clients.NewBinanceClient(server.URL), top, zap.NewNop())
}

func TestBinancePricer_GetPrices(t *testing.T) {
	ts := &tickerServer{prices: map[string]string{
		"BTCUSDT": "60000.00000000",
		"ETHUSDT": "3000.50000000",
	}}
	p := newTestPricer(t, ts, nil)

	prices, err := p.GetPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT"})
	require.NoError(t, err)

	assert.Equal(t, domain.PriceMap{"BTCUSDT": 60000, "ETHUSDT": 3000.5}, prices)
	assert.EqualValues(t, 2, ts.requests.Load())
}

func TestBinancePricer_GetPricesFailsOnAnySymbol(t *testing.T) {
	ts := &tickerServer{
		prices:  map[string]string{"BTCUSDT": "60000"},
		failing: map[string]int{"ETHUSDT": http.StatusBadGateway},
	}
	p := newTestPricer(t, ts, nil)

	prices, err := p.GetPrices(context.Background(), []string{"BTCUSDT", "ETHUSDT"})

	var fetchErr *domain.PriceFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "ETHUSDT", fetchErr.Symbol)
	assert.Equal(t, http.StatusBadGateway, fetchErr.StatusCode)
	assert.Nil(t, prices)
}

func TestBinancePricer_GetPricesEmptyIsNoop(t *testing.T) {
	ts := &tickerServer{allBody: `[{"symbol":"BTCUSDT","price":"1"}]`}
	p := newTestPricer(t, ts, nil)

	prices, err := p.GetPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)

	prices, err = p.GetPrices(context.Background(), []string{})
	require.NoError(t, err)
	assert.Empty(t, prices)

	assert.Zero(t, ts.requests.Load())
}

func TestBinancePricer_GetPricesNonNumeric(t *testing.T) {
	ts := &tickerServer{prices: map[string]string{"BTCUSDT": "not-a-number"}}
	p := newTestPricer(t, ts, nil)

	_, err := p.GetPrices(context.Background(), []string{"BTCUSDT"})

	var fetchErr *domain.PriceFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "BTCUSDT", fetchErr.Symbol)
	assert.Zero(t, fetchErr.StatusCode)
}

func TestBinancePricer_GetAllPrices(t *testing.T) {
	ts := &tickerServer{allBody: `[
		{"symbol":"BTCUSDT","price":"60000.00"},
		{"symbol":"ETHBTC","price":"0.05"},
		{"symbol":"OLDBTC","price":"0.00000000"}
	]`}
	p := newTestPricer(t, ts, nil)

	prices, err := p.GetAllPrices(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.PriceMap{"BTCUSDT": 60000, "ETHBTC": 0.05}, prices)
	assert.EqualValues(t, 1, ts.requests.Load())
}

func TestBinancePricer_GetAllPricesErrors(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		body       string
		statusCode int
		message    string
	}{
		{name: "non-success status", code: http.StatusTooManyRequests, body: `{"code":-1003,"msg":"Too many requests"}`, statusCode: http.StatusTooManyRequests},
		{name: "malformed body", body: `{"not":"an array"}`, message: "decode tickers"},
		{name: "non-numeric price", body: `[{"symbol":"BTCUSDT","price":"abc"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPricer(t, &tickerServer{allCode: tt.code, allBody: tt.body}, nil)

			prices, err := p.GetAllPrices(context.Background())

			var fetchErr *domain.PriceFetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.statusCode, fetchErr.StatusCode)
			assert.Contains(t, err.Error(), tt.message)
			assert.Nil(t, prices)
		})
	}
}

func TestBinancePricer_GetTopCoinPrices(t *testing.T) {
	t.Run("returns curated prices", func(t *testing.T) {
		ts := &tickerServer{prices: map[string]string{
			"BTCUSDT": "60000", "ETHUSDT": "3000", "SOLUSDT": "150", "XRPUSDT": "0.5", "BNBUSDT": "600",
		}}
		p := newTestPricer(t, ts, nil)

		prices := p.GetTopCoinPrices(context.Background())
		assert.Len(t, prices, len(DefaultTopSymbols))
		assert.Equal(t, 0.5, prices["XRPUSDT"])
	})

	t.Run("failure yields empty map", func(t *testing.T) {
		ts := &tickerServer{
			prices:  map[string]string{"BTCUSDT": "60000"},
			failing: map[string]int{"ETHUSDT": http.StatusInternalServerError},
		}
		p := newTestPricer(t, ts, []string{"BTCUSDT", "ETHUSDT"})

		prices := p.GetTopCoinPrices(context.Background())
		require.NotNil(t, prices)
		assert.Empty(t, prices)
	})

	t.Run("unreachable host yields empty map", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		p := NewBinancePricer(clients.NewBinanceClient(url), nil, nil)
		assert.Empty(t, p.GetTopCoinPrices(context.Background()))
	})
}
