package domain

import "fmt"

// SignatureError is returned when a request signature cannot be produced.
// It is fatal to the request being signed.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("failed to create API signature: %v", e.Err)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// PriceFetchError is returned when prices cannot be fetched or decoded.
// StatusCode is zero when no HTTP response was received.
type PriceFetchError struct {
	Symbol     string
	StatusCode int
	Err        error
}

func (e *PriceFetchError) Error() string {
	switch {
	case e.Symbol != "" && e.StatusCode != 0:
		return fmt.Sprintf("failed to fetch price for %s: %d", e.Symbol, e.StatusCode)
	case e.Symbol != "":
		return fmt.Sprintf("failed to fetch price for %s: %v", e.Symbol, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("failed to fetch prices: %d", e.StatusCode)
	default:
		return fmt.Sprintf("failed to fetch prices: %v", e.Err)
	}
}

func (e *PriceFetchError) Unwrap() error { return e.Err }

// AccountFetchError is returned when the authenticated account call fails.
// Message is the exchange-provided text when available and is shown to the user as is.
type AccountFetchError struct {
	StatusCode int
	Code       int64
	Message    string
	Err        error
}

func (e *AccountFetchError) Error() string {
	return e.Message
}

func (e *AccountFetchError) Unwrap() error { return e.Err }

// ValidationError is returned for invalid user input, before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
