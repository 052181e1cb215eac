// Package valuator turns raw account balances and a price map into a ranked,
// valued asset list. It performs no I/O and keeps no state.
package valuator

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/folio/internal/domain"
)

const (
	bridgeAsset   = "BTC"
	fallbackQuote = "BUSD"
)

// Value prices every balance of the snapshot in the quote unit.
//
// Balances with a non-positive total, no usable price route or a value below
// domain.DustThreshold are dropped. The result is sorted by value, highest
// first; equal values keep the balance order.
//
// Free and Locked must be decimal strings. A malformed amount is a contract
// violation of the caller and fails the whole valuation.
func Value(snapshot domain.AccountSnapshot, prices domain.PriceMap) ([]domain.ValuedAsset, error) {
	assets := make([]domain.ValuedAsset, 0, len(snapshot.Balances))

	for _, balance := range snapshot.Balances {
		total, err := totalAmount(balance)
		if err != nil {
			return nil, err
		}
		if total <= 0 {
			continue
		}

		value, source, ok := resolve(balance.Asset, total, prices)
		if !ok || value < domain.DustThreshold {
			continue
		}

		assets = append(assets, domain.ValuedAsset{
			Coin:        balance.Asset,
			Amount:      total,
			Value:       value,
			PriceSource: source,
			Color:       Color(balance.Asset),
		})
	}

	slices.SortStableFunc(assets, func(a, b domain.ValuedAsset) int {
		return cmp.Compare(b.Value, a.Value)
	})

	return assets, nil
}

// NewPortfolio values the snapshot and wraps the result with its total.
func NewPortfolio(snapshot domain.AccountSnapshot, prices domain.PriceMap, at time.Time) (*domain.Portfolio, error) {
	assets, err := Value(snapshot, prices)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, a := range assets {
		total += a.Value
	}

	return &domain.Portfolio{Assets: assets, TotalValue: total, UpdatedAt: at}, nil
}

func totalAmount(balance domain.BalanceRecord) (float64, error) {
	free, err := parseAmount(balance.Free)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid free balance for %s", balance.Asset)
	}
	locked, err := parseAmount(balance.Locked)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid locked balance for %s", balance.Asset)
	}
	return free.Add(locked).InexactFloat64(), nil
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// resolve finds the quote value of total units of coin. Routes are tried in
// order: the quote asset itself, COIN/USDT, COIN/BUSD, then COIN/BTC bridged
// through BTC/USDT.
func resolve(coin string, total float64, prices domain.PriceMap) (float64, string, bool) {
	if coin == domain.QuoteAsset {
		return total, domain.PriceSourceDirect, true
	}

	for _, quote := range []string{domain.QuoteAsset, fallbackQuote} {
		symbol := domain.Pair{From: coin, To: quote}.Symbol()
		if price, ok := prices.Lookup(symbol); ok {
			return total * price, symbol, true
		}
	}

	coinLeg := domain.Pair{From: coin, To: bridgeAsset}.Symbol()
	bridgeLeg := domain.Pair{From: bridgeAsset, To: domain.QuoteAsset}.Symbol()
	coinPrice, okCoin := prices.Lookup(coinLeg)
	bridgePrice, okBridge := prices.Lookup(bridgeLeg)
	if okCoin && okBridge {
		return total * coinPrice * bridgePrice, BridgeSource(coinLeg, bridgeLeg), true
	}

	return 0, "", false
}

// BridgeSource formats the price source of a two-hop valuation.
func BridgeSource(first, second string) string {
	return fmt.Sprintf("%s -> %s", first, second)
}
