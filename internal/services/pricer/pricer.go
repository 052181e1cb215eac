// Package pricer fetches market prices from the exchange public ticker endpoint.
package pricer

import (
	"context"

	"github.com/vadiminshakov/folio/internal/domain"
)

// DefaultTopSymbols curated set of symbols shown even without an account.
var DefaultTopSymbols = []string{
	domain.Pair{From: "BTC", To: domain.QuoteAsset}.Symbol(),
	domain.Pair{From: "ETH", To: domain.QuoteAsset}.Symbol(),
	domain.Pair{From: "SOL", To: domain.QuoteAsset}.Symbol(),
	domain.Pair{From: "XRP", To: domain.QuoteAsset}.Symbol(),
	domain.Pair{From: "BNB", To: domain.QuoteAsset}.Symbol(),
}

// Pricer market data operations used by the session.
type Pricer interface {
	GetPrices(ctx context.Context, symbols []string) (domain.PriceMap, error)
	GetAllPrices(ctx context.Context) (domain.PriceMap, error)
	GetTopCoinPrices(ctx context.Context) domain.PriceMap
}
