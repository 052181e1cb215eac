// Command folio runs a local Binance portfolio dashboard.
// It polls spot balances and prices, values the holdings in USDT and serves
// the result on a loopback HTTP API, printing a summary to the terminal.
//
// Usage:
//
//	folio --config config.yaml
//	folio --addr 127.0.0.1:8080 --poll 30s
//
// Credentials are read from BINANCE_API_KEY and BINANCE_API_SECRET (a .env file
// in the working directory is honoured) or asked for on the terminal.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/folio/config"
	"github.com/vadiminshakov/folio/internal/clients"
	"github.com/vadiminshakov/folio/internal/services/account"
	"github.com/vadiminshakov/folio/internal/services/pricer"
	"github.com/vadiminshakov/folio/internal/session"
	"github.com/vadiminshakov/folio/internal/setup"
	"github.com/vadiminshakov/folio/internal/storage/credentials"
	"github.com/vadiminshakov/folio/internal/web"
)

func main() {
	conf, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(conf.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := clients.NewBinanceClient(conf.BaseURL,
		clients.WithTimeout(conf.RequestTimeout),
		clients.WithLogger(logger),
	)
	store := credentials.NewMemoryStore()
	sess := session.New(
		pricer.NewBinancePricer(client, conf.TopSymbols, logger),
		account.NewBinanceAccount(client, clients.NewHMACSigner(), logger, account.WithRecvWindow(conf.RecvWindow)),
		store,
		session.WithPollInterval(conf.PollInterval),
		session.WithLogger(logger),
	)

	if err := login(ctx, conf, sess, logger); err != nil {
		// the dashboard API still accepts a login
		logger.Warn("login failed, starting logged out", zap.Error(err))
	}

	server := web.NewServer(conf.ListenAddr, sess, sess, logger)
	updates := sess.Subscribe()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sess.Run(ctx)
	})
	g.Go(func() error {
		return server.Start(ctx)
	})
	g.Go(func() error {
		defer sess.Unsubscribe(updates)
		setup.Watch(ctx, updates, os.Stdout)
		return nil
	})

	logger.Info("folio started", zap.Stringer("config", conf))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("folio stopped", zap.Error(err))
	}
	logger.Info("folio stopped")
}

// login authenticates from the environment or the terminal prompt. Credentials
// are kept in memory only. Without any credentials the dashboard shows top coin
// prices only.
func login(ctx context.Context, conf config.Config, sess *session.Session, logger *zap.Logger) error {
	if conf.APIKey != "" && conf.APISecret != "" {
		return sess.Login(ctx, conf.APIKey, conf.APISecret, false)
	}
	if !conf.Prompt {
		logger.Info("no credentials, showing market prices only")
		return nil
	}

	creds, err := setup.PromptCredentials()
	if err != nil {
		return err
	}
	return sess.Login(ctx, creds.APIKey, creds.APISecret, false)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
