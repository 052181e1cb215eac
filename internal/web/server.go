// Package web exposes the session to presentation consumers over a local HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/vadiminshakov/folio/internal/domain"
	"github.com/vadiminshakov/folio/internal/events"
)

const (
	heartbeatInterval = 30 * time.Second
	wsWriteTimeout    = 10 * time.Second
	maxLoginBodySize  = 4 << 10
)

type portfolioSession interface {
	Login(ctx context.Context, apiKey, apiSecret string, remember bool) error
	Logout()
	Refresh(ctx context.Context, interactive bool) error
	Status() domain.Status
	Portfolio() *domain.Portfolio
	Prices() domain.PriceMap
	TopPrices() domain.PriceMap
	Update() events.PortfolioUpdate
}

type updateSource interface {
	Subscribe() chan events.PortfolioUpdate
	Unsubscribe(ch chan events.PortfolioUpdate)
}

// Server exposes JSON views, session actions, an SSE stream and a websocket.
type Server struct {
	Addr    string
	Session portfolioSession
	Updates updateSource
	logger  *zap.Logger

	baseCtx  context.Context
	upgrader websocket.Upgrader
}

// NewServer creates a new web server instance.
func NewServer(addr string, session portfolioSession, updates updateSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Addr:    addr,
		Session: session,
		Updates: updates,
		logger:  logger,
		baseCtx: context.Background(),
	}
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/prices", s.handlePrices)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /portfolio/stream", s.handlePortfolioStream)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx = ctx

	server := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard API listening", zap.String("addr", s.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type portfolioView struct {
	Assets      []assetView `json:"assets"`
	TotalValue  float64     `json:"total_value"`
	UpdatedAt   time.Time   `json:"updated_at,omitempty"`
	Unavailable bool        `json:"unavailable,omitempty"`
}

type assetView struct {
	domain.ValuedAsset
	Allocation float64 `json:"allocation"`
}

func newPortfolioView(p *domain.Portfolio) portfolioView {
	if p == nil {
		return portfolioView{Assets: []assetView{}, Unavailable: true}
	}
	view := portfolioView{
		Assets:     make([]assetView, len(p.Assets)),
		TotalValue: p.TotalValue,
		UpdatedAt:  p.UpdatedAt,
	}
	for i, a := range p.Assets {
		view.Assets[i] = assetView{ValuedAsset: a, Allocation: p.Allocation(i)}
	}
	return view
}

type errorView struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Session.Status())
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, newPortfolioView(s.Session.Portfolio()))
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("all") == "1" {
		s.writeJSON(w, http.StatusOK, s.Session.Prices())
		return
	}
	s.writeJSON(w, http.StatusOK, s.Session.TopPrices())
}

type loginRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
	Remember  bool   `json:"remember"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodySize)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: "invalid login request"})
		return
	}

	err := s.Session.Login(r.Context(), req.APIKey, req.APISecret, req.Remember)
	var (
		validationErr *domain.ValidationError
		accountErr    *domain.AccountFetchError
	)
	switch {
	case err == nil:
	case errors.As(err, &validationErr):
		s.writeJSON(w, http.StatusBadRequest, errorView{Error: validationErr.Message, Field: validationErr.Field})
		return
	case errors.As(err, &accountErr) && accountErr.StatusCode == 0:
		// exchange unreachable
		s.writeJSON(w, http.StatusBadGateway, errorView{Error: accountErr.Error()})
		return
	case errors.As(err, &accountErr):
		s.writeJSON(w, http.StatusUnauthorized, errorView{Error: accountErr.Error()})
		return
	default:
		s.logger.Error("login failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorView{Error: err.Error()})
		return
	}

	go func() {
		if err := s.Session.Refresh(s.baseCtx, true); err != nil {
			s.logger.Warn("refresh after login failed", zap.Error(err))
		}
	}()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Session.Logout()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Refresh(r.Context(), true); err != nil {
		s.writeJSON(w, http.StatusBadGateway, errorView{Error: s.Session.Status().Error})
		return
	}
	s.writeJSON(w, http.StatusOK, s.Session.Update())
}

func (s *Server) handlePortfolioStream(w http.ResponseWriter, r *http.Request) {
	if s.Updates == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "update stream not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	updates := s.Updates.Subscribe()
	defer s.Updates.Unsubscribe(updates)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// send a comment heartbeat so proxies keep connection
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	send := func(u events.PortfolioUpdate) error {
		payload, err := json.Marshal(u)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "event: portfolio\n")
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return nil
	}

	if err := send(s.Session.Update()); err != nil {
		s.logger.Error("portfolio stream initial send", zap.Error(err))
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := send(u); err != nil {
				s.logger.Warn("portfolio stream send", zap.Error(err))
			}
		}
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	if s.Updates == nil {
		http.Error(w, "update stream not available", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates := s.Updates.Subscribe()
	defer s.Updates.Unsubscribe(updates)

	// the read loop only detects the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	write := func(u events.PortfolioUpdate) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteJSON(u)
	}

	if err := write(s.Session.Update()); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if err := write(u); err != nil {
				s.logger.Debug("websocket write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}
