package domain

import "time"

// DustThreshold is the minimal value, in quote units, an asset needs to be shown.
const DustThreshold = 1.0

// PriceSourceDirect is the price source of the quote asset itself.
const PriceSourceDirect = "direct"

// ValuedAsset is a holding priced in the quote unit.
type ValuedAsset struct {
	Coin        string  `json:"coin"`
	Amount      float64 `json:"amount"`
	Value       float64 `json:"value"`
	PriceSource string  `json:"price_source"`
	Color       string  `json:"color"`
}

// Portfolio is an immutable valuation result. Assets are ordered by value, highest first.
type Portfolio struct {
	Assets     []ValuedAsset `json:"assets"`
	TotalValue float64       `json:"total_value"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Allocation returns the share of asset i in the total value, in percent.
func (p *Portfolio) Allocation(i int) float64 {
	if p == nil || i < 0 || i >= len(p.Assets) || p.TotalValue <= 0 {
		return 0
	}
	return p.Assets[i].Value / p.TotalValue * 100
}

// Allocations returns the allocation weight of every asset in order.
func (p *Portfolio) Allocations() []float64 {
	if p == nil {
		return nil
	}
	out := make([]float64, len(p.Assets))
	for i := range p.Assets {
		out[i] = p.Allocation(i)
	}
	return out
}

// Empty reports whether the portfolio holds no valued assets.
func (p *Portfolio) Empty() bool {
	return p == nil || len(p.Assets) == 0
}
