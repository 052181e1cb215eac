package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/folio/internal/domain"
)

func TestHMACSigner_Sign(t *testing.T) {
	signer := NewHMACSigner()

	tests := []struct {
		name     string
		message  string
		secret   string
		expected string
	}{
		{
			name:     "RFC 4231 test case 2",
			message:  "what do ya want for nothing?",
			secret:   "Jefe",
			expected: "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843",
		},
		{
			name:     "Binance documentation example",
			message:  "symbol=LTCBTC&side=BUY&type=LIMIT&timeInForce=GTC&quantity=1&price=0.1&recvWindow=5000&timestamp=1499827319559",
			secret:   "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j",
			expected: "c8db56825ae71d6d79447849e617115f4a920fa2acdcab2b053c4b2838bd6b71",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := signer.Sign(tt.message, tt.secret)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sig)
			assert.Len(t, sig, 64)
		})
	}
}

func TestHMACSigner_Deterministic(t *testing.T) {
	signer := NewHMACSigner()

	first, err := signer.Sign("timestamp=1700000000000", "secret")
	require.NoError(t, err)
	second, err := signer.Sign("timestamp=1700000000000", "secret")
	require.NoError(t, err)
	other, err := signer.Sign("timestamp=1700000000001", "secret")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first, other)
}

func TestHMACSigner_Errors(t *testing.T) {
	signer := NewHMACSigner()

	tests := []struct {
		name    string
		message string
		secret  string
	}{
		{name: "empty secret", message: "timestamp=1", secret: ""},
		{name: "invalid secret encoding", message: "timestamp=1", secret: "\xff\xfe"},
		{name: "invalid message encoding", message: "\xc3\x28", secret: "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := signer.Sign(tt.message, tt.secret)
			var sigErr *domain.SignatureError
			require.ErrorAs(t, err, &sigErr)
			assert.Empty(t, sig)
		})
	}
}
