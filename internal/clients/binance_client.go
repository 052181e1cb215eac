package clients

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL is the public Binance REST endpoint.
	DefaultBaseURL        = "https://api.binance.com"
	defaultRequestTimeout = 10 * time.Second

	apiKeyHeader = "X-MBX-APIKEY"
	// maxResponseSize guards against a misbehaving proxy streaming an endless body.
	maxResponseSize = 16 << 20
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response has a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// BinanceClient is the HTTP transport shared by the market data and account clients.
// It only knows about a base URL, so requests may go through a local forwarding
// shim or straight to the exchange.
type BinanceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a BinanceClient.
type Option func(*BinanceClient)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *BinanceClient) {
		if c != nil {
			b.httpClient = c
		}
	}
}

// WithTimeout sets the deadline of every request.
func WithTimeout(d time.Duration) Option {
	return func(b *BinanceClient) {
		if d > 0 {
			b.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *BinanceClient) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBinanceClient creates a transport rooted at baseURL.
func NewBinanceClient(baseURL string, opts ...Option) *BinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &BinanceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultRequestTimeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *BinanceClient) BaseURL() string {
	return c.baseURL
}

// Get issues a GET request to path with an already encoded raw query.
// apiKey is sent in the X-MBX-APIKEY header when not empty.
func (c *BinanceClient) Get(ctx context.Context, path, rawQuery, apiKey string) (*Response, error) {
	target := c.baseURL + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create HTTP request")
	}
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	c.logger.Debug("exchange request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// SymbolQuery encodes a single symbol filter.
func SymbolQuery(symbol string) string {
	return url.Values{"symbol": []string{symbol}}.Encode()
}
