// Package domain defines core data structures used throughout the portfolio dashboard.
package domain

import "fmt"

// QuoteAsset is the stable unit all portfolio values are expressed in.
const QuoteAsset = "USDT"

// Pair cryptocurrency trading pair.
type Pair struct {
	// From base currency symbol.
	From string
	// To quote currency symbol.
	To string
}

// String returns the string representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s_%s", p.From, p.To)
}

// Symbol returns the concatenated symbol representation used by the exchange.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}
