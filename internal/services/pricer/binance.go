package pricer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
)

const tickerPricePath = "/api/v3/ticker/price"

var _ Pricer = (*BinancePricer)(nil)

// BinancePricer fetches prices from the Binance public ticker endpoint.
// No credentials are required.
type BinancePricer struct {
	client     *clients.BinanceClient
	topSymbols []string
	logger     *zap.Logger
}

// NewBinancePricer creates a pricer. An empty topSymbols selects DefaultTopSymbols.
func NewBinancePricer(client *clients.BinanceClient, topSymbols []string, logger *zap.Logger) *BinancePricer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(topSymbols) == 0 {
		topSymbols = DefaultTopSymbols
	}
	return &BinancePricer{
		client:     client,
		topSymbols: append([]string(nil), topSymbols...),
		logger:     logger,
	}
}

// GetPrices fetches each symbol concurrently and merges the results.
// The call fails if any single lookup fails; no partial map is returned.
// An empty symbol list is a no-op returning an empty map, use GetAllPrices to
// fetch every symbol.
func (p *BinancePricer) GetPrices(ctx context.Context, symbols []string) (domain.PriceMap, error) {
	prices := make(domain.PriceMap, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, symbol := range symbols {
		g.Go(func() error {
			price, err := p.getPrice(ctx, symbol)
			if err != nil {
				return err
			}
			mu.Lock()
			if price > 0 {
				prices[symbol] = price
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return prices, nil
}

func (p *BinancePricer) getPrice(ctx context.Context, symbol string) (float64, error) {
	resp, err := p.client.Get(ctx, tickerPricePath, clients.SymbolQuery(symbol), "")
	if err != nil {
		return 0, &domain.PriceFetchError{Symbol: symbol, Err: err}
	}
	if !resp.OK() {
		return 0, &domain.PriceFetchError{Symbol: symbol, StatusCode: resp.StatusCode}
	}

	var ticker binance.SymbolPrice
	if err := json.Unmarshal(resp.Body, &ticker); err != nil {
		return 0, &domain.PriceFetchError{Symbol: symbol, Err: errors.Wrap(err, "decode ticker")}
	}

	price, err := parsePrice(ticker.Price)
	if err != nil {
		return 0, &domain.PriceFetchError{Symbol: symbol, Err: err}
	}

	return price, nil
}

// GetAllPrices fetches the full exchange price list in a single request.
func (p *BinancePricer) GetAllPrices(ctx context.Context) (domain.PriceMap, error) {
	resp, err := p.client.Get(ctx, tickerPricePath, "", "")
	if err != nil {
		return nil, &domain.PriceFetchError{Err: err}
	}
	if !resp.OK() {
		return nil, &domain.PriceFetchError{StatusCode: resp.StatusCode}
	}

	var tickers []binance.SymbolPrice
	if err := json.Unmarshal(resp.Body, &tickers); err != nil {
		return nil, &domain.PriceFetchError{Err: errors.Wrap(err, "decode tickers")}
	}

	prices := make(domain.PriceMap, len(tickers))
	for _, ticker := range tickers {
		price, err := parsePrice(ticker.Price)
		if err != nil {
			return nil, &domain.PriceFetchError{Symbol: ticker.Symbol, Err: err}
		}
		// delisted symbols are reported with a zero price
		if price > 0 {
			prices[ticker.Symbol] = price
		}
	}

	return prices, nil
}

// GetTopCoinPrices fetches the curated top symbols. It never fails: on error
// it returns an empty map, which callers must treat as unknown prices.
func (p *BinancePricer) GetTopCoinPrices(ctx context.Context) domain.PriceMap {
	prices, err := p.GetPrices(ctx, p.topSymbols)
	if err != nil {
		p.logger.Warn("failed to fetch top coin prices", zap.Error(err))
		return domain.PriceMap{}
	}
	return prices
}

func parsePrice(raw string) (float64, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid price %q", raw)
	}
	return price.InexactFloat64(), nil
}
