package account

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/domain"
)

var fixedNow = time.UnixMilli(1700000000000)

type capturedRequest struct {
	path     string
	rawQuery string
	apiKey   string
}

func newTestAccount(t *testing.T, status int, body string, opts ...Option) (*BinanceAccount, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.rawQuery = r.URL.RawQuery
		captured.apiKey = r.Header.Get("X-MBX-APIKEY")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)

	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewBinanceAccount(clients.NewBinanceClient(server.URL), clients.NewHMACSigner(), zap.NewNop(), opts...), captured
}

// failingSigner always fails to sign.
type failingSigner struct{}

func (failingSigner) Sign(string, string) (string, error) {
	return "", &domain.SignatureError{Err: fmt.Errorf("crypto unavailable")}
}

func TestBinanceAccount_GetAccountInfo(t *testing.T) {
	creds := domain.Credentials{APIKey: "my-api-key", APISecret: "my-secret"}
	body := `{"makerCommission":10,"canTrade":true,"balances":[
		{"asset":"BTC","free":"0.01000000","locked":"0.00000000"},
		{"asset":"USDT","free":"50.00","locked":"1.5"}
	]}`
	acc, captured := newTestAccount(t, http.StatusOK, body)

	snapshot, err := acc.GetAccountInfo(context.Background(), creds)
	require.NoError(t, err)

	assert.Equal(t, []domain.BalanceRecord{
		{Asset: "BTC", Free: "0.01000000", Locked: "0.00000000"},
		{Asset: "USDT", Free: "50.00", Locked: "1.5"},
	}, snapshot.Balances)

	expectedSig, err := clients.NewHMACSigner().Sign("timestamp=1700000000000", "my-secret")
	require.NoError(t, err)

	assert.Equal(t, "/api/v3/account", captured.path)
	assert.Equal(t, "timestamp=1700000000000&signature="+expectedSig, captured.rawQuery)
	assert.Equal(t, "my-api-key", captured.apiKey)
	assert.NotContains(t, captured.rawQuery, "my-secret")
	assert.NotContains(t, captured.rawQuery, "my-api-key")
}

func TestBinanceAccount_RecvWindow(t *testing.T) {
	acc, captured := newTestAccount(t, http.StatusOK, `{"balances":[]}`, WithRecvWindow(5*time.Second))

	snapshot, err := acc.GetAccountInfo(context.Background(), domain.Credentials{APIKey: "k", APISecret: "s"})
	require.NoError(t, err)
	assert.Empty(t, snapshot.Balances)

	assert.True(t, strings.HasPrefix(captured.rawQuery, "timestamp=1700000000000&recvWindow=5000&signature="))
}

func TestBinanceAccount_ErrorMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected string
		code     int64
	}{
		{
			name:     "exchange message preferred",
			status:   http.StatusUnauthorized,
			body:     `{"code":-2015,"msg":"Invalid API-key, IP, or permissions for action."}`,
			expected: "Invalid API-key, IP, or permissions for action.",
			code:     -2015,
		},
		{
			name:     "timestamp rejection",
			status:   http.StatusBadRequest,
			body:     `{"code":-1021,"msg":"Timestamp for this request is outside of the recvWindow."}`,
			expected: "Timestamp for this request is outside of the recvWindow.",
			code:     -1021,
		},
		{
			name:     "plain text body",
			status:   http.StatusBadGateway,
			body:     "Proxy error: connection refused",
			expected: "API Error (502): Proxy error: connection refused",
		},
		{
			name:     "empty body",
			status:   http.StatusForbidden,
			body:     "",
			expected: "API Error (403)",
		},
		{
			name:     "json without message",
			status:   http.StatusInternalServerError,
			body:     `{"error":"boom"}`,
			expected: `API Error (500): {"error":"boom"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, _ := newTestAccount(t, tt.status, tt.body)

			_, err := acc.GetAccountInfo(context.Background(), domain.Credentials{APIKey: "k", APISecret: "s"})

			var accErr *domain.AccountFetchError
			require.ErrorAs(t, err, &accErr)
			assert.Equal(t, tt.expected, accErr.Error())
			assert.Equal(t, tt.status, accErr.StatusCode)
			assert.Equal(t, tt.code, accErr.Code)
		})
	}
}

func TestBinanceAccount_ValidationBeforeNetwork(t *testing.T) {
	acc, captured := newTestAccount(t, http.StatusOK, `{"balances":[]}`)

	_, err := acc.GetAccountInfo(context.Background(), domain.Credentials{APISecret: "s"})

	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, captured.path, "no request expected")
}

func TestBinanceAccount_SignatureFailureIsFatal(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	acc := NewBinanceAccount(clients.NewBinanceClient(server.URL), failingSigner{}, nil)
	_, err := acc.GetAccountInfo(context.Background(), domain.Credentials{APIKey: "k", APISecret: "s"})

	var sigErr *domain.SignatureError
	require.ErrorAs(t, err, &sigErr)
	assert.Zero(t, requests)
}

func TestBinanceAccount_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	acc := NewBinanceAccount(clients.NewBinanceClient(url), clients.NewHMACSigner(), nil)
	_, err := acc.GetAccountInfo(context.Background(), domain.Credentials{APIKey: "k", APISecret: "s"})

	var accErr *domain.AccountFetchError
	require.ErrorAs(t, err, &accErr)
	assert.Zero(t, accErr.StatusCode)
	assert.NotNil(t, accErr.Unwrap())
}
