// Package account fetches the authenticated account snapshot.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
)

const accountPath = "/api/v3/account"

// BinanceAccount reads the spot account of the credential owner.
type BinanceAccount struct {
	client     *clients.BinanceClient
	signer     clients.Signer
	recvWindow time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures BinanceAccount.
type Option func(*BinanceAccount)

// WithRecvWindow sets the validity window the exchange accepts for the request timestamp.
// Zero leaves the exchange default.
func WithRecvWindow(d time.Duration) Option {
	return func(a *BinanceAccount) {
		a.recvWindow = d
	}
}

// WithClock overrides the time source of the request timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *BinanceAccount) {
		if now != nil {
			a.now = now
		}
	}
}

// NewBinanceAccount creates an account client.
func NewBinanceAccount(client *clients.BinanceClient, signer clients.Signer, logger *zap.Logger, opts ...Option) *BinanceAccount {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &BinanceAccount{
		client: client,
		signer: signer,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetAccountInfo issues a signed account request. The API key travels in a header,
// the secret is only used to sign the query. Failures are not retried.
func (a *BinanceAccount) GetAccountInfo(ctx context.Context, creds domain.Credentials) (domain.AccountSnapshot, error) {
	if err := creds.Validate(); err != nil {
		return domain.AccountSnapshot{}, err
	}

	query := a.buildQuery()
	signature, err := a.signer.Sign(query, creds.APISecret)
	if err != nil {
		return domain.AccountSnapshot{}, err
	}

	a.logger.Debug("getting account info", zap.String("api_key", creds.Redacted()))

	resp, err := a.client.Get(ctx, accountPath, query+"&signature="+signature, creds.APIKey)
	if err != nil {
		return domain.AccountSnapshot{}, &domain.AccountFetchError{
			Message: fmt.Sprintf("Failed to fetch account information: %v", err),
			Err:     err,
		}
	}

	if !resp.OK() {
		result := parseAPIResult(resp.StatusCode, resp.Body)
		a.logger.Warn("account request rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("kind", result.kind),
			zap.String("message", result.message))
		return domain.AccountSnapshot{}, &domain.AccountFetchError{
			StatusCode: resp.StatusCode,
			Code:       result.code,
			Message:    result.message,
		}
	}

	var account binance.Account
	if err := json.Unmarshal(resp.Body, &account); err != nil {
		return domain.AccountSnapshot{}, &domain.AccountFetchError{
			StatusCode: resp.StatusCode,
			Message:    "Failed to decode account information",
			Err:        err,
		}
	}

	snapshot := domain.AccountSnapshot{Balances: make([]domain.BalanceRecord, 0, len(account.Balances))}
	for _, b := range account.Balances {
		snapshot.Balances = append(snapshot.Balances, domain.BalanceRecord{
			Asset:  b.Asset,
			Free:   b.Free,
			Locked: b.Locked,
		})
	}

	return snapshot, nil
}

func (a *BinanceAccount) buildQuery() string {
	q := "timestamp=" + strconv.FormatInt(a.now().UnixMilli(), 10)
	if a.recvWindow > 0 {
		q += "&recvWindow=" + strconv.FormatInt(a.recvWindow.Milliseconds(), 10)
	}
	return q
}

// apiResult is the outcome of decoding an exchange error body.
type apiResult struct {
	kind    string
	code    int64
	message string
}

const (
	resultKindExchange = "exchange"
	resultKindGeneric  = "generic"
)

// parseAPIResult decodes an error body of any shape. The exchange message is
// preferred; otherwise the status is reported together with the raw body.
func parseAPIResult(status int, body []byte) apiResult {
	var apiErr common.APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return apiResult{kind: resultKindExchange, code: apiErr.Code, message: apiErr.Message}
	}

	message := fmt.Sprintf("API Error (%d)", status)
	if text := strings.TrimSpace(string(body)); text != "" {
		message += ": " + text
	}

	return apiResult{kind: resultKindGeneric, message: message}
}
