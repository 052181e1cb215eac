package domain

// PriceMap maps a trading symbol (e.g. "BTCUSDT") to its last price.
// A published map is never mutated; callers that need to modify one must Clone it.
type PriceMap map[string]float64

// Lookup returns the price for symbol when it is known and positive.
func (m PriceMap) Lookup(symbol string) (float64, bool) {
	price, ok := m[symbol]
	if !ok || price <= 0 {
		return 0, false
	}
	return price, true
}

// Clone returns an independent copy of the map.
func (m PriceMap) Clone() PriceMap {
	out := make(PriceMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
