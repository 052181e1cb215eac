package domain

// BalanceRecord is a single asset balance as reported by the exchange.
// Free and Locked are decimal strings to avoid precision loss on the wire.
type BalanceRecord struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// AccountSnapshot authenticated account state at the time of the request.
type AccountSnapshot struct {
	Balances []BalanceRecord `json:"balances"`
}
