// Package session orchestrates login, periodic refresh and publication of the portfolio.
package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/events"
	"github.com/vadiminshakov/folio/internal/services/valuator"
	"github.com/vadiminshakov/folio/internal/storage/credentials"
)

// DefaultPollInterval cadence of background refreshes.
const DefaultPollInterval = 30 * time.Second

const updateBuffer = 16

type priceService interface {
	GetAllPrices(ctx context.Context) (domain.PriceMap, error)
	GetTopCoinPrices(ctx context.Context) domain.PriceMap
}

type accountService interface {
	GetAccountInfo(ctx context.Context, creds domain.Credentials) (domain.AccountSnapshot, error)
}

// Session holds the credentials of one user and keeps the portfolio up to date.
// Published portfolios and price maps are immutable and swapped atomically, so
// readers never observe a partially updated result. Overlapping refreshes are
// last-write-wins.
type Session struct {
	pricer       priceService
	account      accountService
	store        credentials.Store
	broadcaster  *events.PortfolioBroadcaster
	pollInterval time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu          sync.RWMutex
	state       domain.SessionState
	creds       domain.Credentials
	generation  uint64
	loading     int
	refreshing  int
	lastErr     string
	lastUpdated time.Time

	portfolio atomic.Pointer[domain.Portfolio]
	prices    atomic.Pointer[domain.PriceMap]
	topPrices atomic.Pointer[domain.PriceMap]

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithPollInterval sets the background refresh cadence.
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBroadcaster publishes every update to b.
func WithBroadcaster(b *events.PortfolioBroadcaster) Option {
	return func(s *Session) {
		s.broadcaster = b
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a logged out session. A nil store selects an in-memory store.
func New(pricer priceService, account accountService, store credentials.Store, opts ...Option) *Session {
	if store == nil {
		store = credentials.NewMemoryStore()
	}
	s := &Session{
		pricer:       pricer,
		account:      account,
		store:        store,
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
		now:          time.Now,
		state:        domain.StateLoggedOut,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.broadcaster == nil {
		s.broadcaster = events.NewPortfolioBroadcaster(updateBuffer)
	}
	return s
}

// Login validates the credentials with a probe account request. On success the
// session becomes authenticated and, when remember is set, the credentials are
// mirrored to the store. On failure the previous state is kept and the account
// error is returned as is.
func (s *Session) Login(ctx context.Context, apiKey, apiSecret string, remember bool) error {
	creds := domain.Credentials{APIKey: strings.TrimSpace(apiKey), APISecret: strings.TrimSpace(apiSecret)}
	if err := creds.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == domain.StateAuthenticating {
		s.mu.Unlock()
		return errors.New("login already in progress")
	}
	prev := s.state
	s.state = domain.StateAuthenticating
	s.mu.Unlock()

	logger := s.logger.With(zap.String("api_key", creds.Redacted()))
	logger.Info("attempting login")

	if _, err := s.account.GetAccountInfo(ctx, creds); err != nil {
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
		logger.Warn("login failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.creds = creds
	s.state = domain.StateAuthenticated
	s.generation++
	s.lastErr = ""
	s.mu.Unlock()

	if remember {
		s.store.Set(credentials.KeyAPIKey, creds.APIKey)
		s.store.Set(credentials.KeyAPISecret, creds.APISecret)
	} else {
		s.clearStore()
	}

	logger.Info("login successful", zap.Bool("remember", remember))
	s.publish()

	return nil
}

// Restore adopts credentials previously mirrored to the store, without a probe.
// It reports whether the session became authenticated.
func (s *Session) Restore() bool {
	key, okKey := s.store.Get(credentials.KeyAPIKey)
	secret, okSecret := s.store.Get(credentials.KeyAPISecret)
	creds := domain.Credentials{APIKey: key, APISecret: secret}
	if !okKey || !okSecret || creds.Empty() {
		return false
	}

	s.mu.Lock()
	s.creds = creds
	s.state = domain.StateAuthenticated
	s.generation++
	s.mu.Unlock()

	s.logger.Info("restored stored credentials", zap.String("api_key", creds.Redacted()))
	return true
}

// Logout clears the credentials from memory and the store and discards the portfolio.
func (s *Session) Logout() {
	s.mu.Lock()
	s.creds = domain.Credentials{}
	s.state = domain.StateLoggedOut
	s.generation++
	s.lastErr = ""
	s.lastUpdated = time.Time{}
	s.mu.Unlock()

	s.clearStore()
	s.portfolio.Store(nil)
	s.prices.Store(nil)

	s.logger.Info("logged out")
	s.publish()
}

func (s *Session) clearStore() {
	s.store.Remove(credentials.KeyAPIKey)
	s.store.Remove(credentials.KeyAPISecret)
}

// Refresh runs one refresh cycle. Top coin prices are always fetched and never
// fail the cycle. When authenticated, the full price map (falling back to the
// top coin prices), the account snapshot and the valuation follow. A failure
// of that leg is recorded in the status and returned; credentials and the last
// good portfolio are kept. interactive only selects which UI flag is raised.
func (s *Session) Refresh(ctx context.Context, interactive bool) error {
	logger := s.logger.With(zap.String("cycle", uuid.NewString()), zap.Bool("interactive", interactive))

	s.begin(interactive)
	defer s.end(interactive)

	top := s.pricer.GetTopCoinPrices(ctx)
	s.topPrices.Store(&top)
	if len(top) == 0 {
		logger.Warn("top coin prices unavailable")
	}

	creds, generation, ok := s.credentials()
	if !ok {
		s.publish()
		return nil
	}

	prices, err := s.pricer.GetAllPrices(ctx)
	if err != nil {
		// the cycle goes on with the top coin prices, the error stays visible
		s.fail(generation, "Failed to load all prices: "+err.Error())
		logger.Warn("failed to load all prices, using top coin prices", zap.Error(err))
		prices = top.Clone()
	}

	snapshot, err := s.account.GetAccountInfo(ctx, creds)
	if err != nil {
		s.fail(generation, "Failed to load account data: "+err.Error())
		logger.Error("failed to load account data", zap.Error(err))
		return errors.Wrap(err, "failed to load account data")
	}

	portfolio, err := valuator.NewPortfolio(snapshot, prices, s.now())
	if err != nil {
		s.fail(generation, "Failed to value portfolio: "+err.Error())
		logger.Error("failed to value portfolio", zap.Error(err))
		return errors.Wrap(err, "failed to value portfolio")
	}

	if !s.commit(generation, prices, portfolio) {
		logger.Debug("session changed during refresh, result discarded")
		return nil
	}

	logger.Info("portfolio refreshed",
		zap.Int("assets", len(portfolio.Assets)),
		zap.Float64("total_value", portfolio.TotalValue))
	s.publish()

	return nil
}

func (s *Session) begin(interactive bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interactive {
		s.loading++
	} else {
		s.refreshing++
	}
	s.lastErr = ""
}

func (s *Session) end(interactive bool) {
	s.mu.Lock()
	if interactive {
		s.loading--
	} else {
		s.refreshing--
	}
	s.mu.Unlock()
}

func (s *Session) credentials() (domain.Credentials, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds, s.generation, s.state.IsAuthenticated() && !s.creds.Empty()
}

func (s *Session) fail(generation uint64, msg string) {
	s.mu.Lock()
	if s.generation == generation {
		s.lastErr = msg
	}
	s.mu.Unlock()
	s.publish()
}

// commit publishes the cycle result unless the session was logged out or
// re-authenticated while the cycle was running.
func (s *Session) commit(generation uint64, prices domain.PriceMap, portfolio *domain.Portfolio) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		return false
	}
	s.prices.Store(&prices)
	s.portfolio.Store(portfolio)
	s.lastUpdated = portfolio.UpdatedAt
	return true
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == domain.StateAuthenticated && s.loading+s.refreshing > 0 {
		return domain.StateRefreshing
	}
	return s.state
}

// Status returns the presentation flags of the session.
func (s *Session) Status() domain.Status {
	state := s.State()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Status{
		State:       state,
		Loading:     s.loading > 0,
		Refreshing:  s.refreshing > 0,
		Error:       s.lastErr,
		LastUpdated: s.lastUpdated,
	}
}

// Portfolio returns the last published portfolio, nil when none.
func (s *Session) Portfolio() *domain.Portfolio {
	return s.portfolio.Load()
}

// Prices returns the price map used by the last successful valuation.
func (s *Session) Prices() domain.PriceMap {
	if p := s.prices.Load(); p != nil {
		return *p
	}
	return domain.PriceMap{}
}

// TopPrices returns the last fetched top coin prices. Empty means unknown.
func (s *Session) TopPrices() domain.PriceMap {
	if p := s.topPrices.Load(); p != nil {
		return *p
	}
	return domain.PriceMap{}
}

// Update returns the current state as a broadcastable update.
func (s *Session) Update() events.PortfolioUpdate {
	portfolio := s.Portfolio()
	return events.PortfolioUpdate{
		Timestamp:   s.now(),
		Status:      s.Status(),
		Portfolio:   portfolio,
		Allocations: portfolio.Allocations(),
		TopPrices:   s.TopPrices(),
	}
}

// Subscribe registers a consumer of published updates.
func (s *Session) Subscribe() chan events.PortfolioUpdate {
	return s.broadcaster.Subscribe()
}

// Unsubscribe removes a consumer registered with Subscribe.
func (s *Session) Unsubscribe(ch chan events.PortfolioUpdate) {
	s.broadcaster.Unsubscribe(ch)
}

func (s *Session) publish() {
	s.broadcaster.Publish(s.Update())
}
