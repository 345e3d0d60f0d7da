package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"resxwatch/config"
	"resxwatch/internal/account"
	"resxwatch/internal/app"
	"resxwatch/internal/session"
	"resxwatch/logger"
	"resxwatch/pkg/exchange"
)

// runtime is what every subcommand needs: config, logger, exchange client
// and the session-backed application state.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	client   *exchange.Client
	state    *app.State
	accounts *account.Service
	closers  []func()
}

func newRuntime() (*runtime, error) {
	// viper config
	cfg := config.Load()

	// zap logger on stderr so stdout stays clean for frames and reports
	log, err := logger.NewWithWriter(cfg.Log, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	rt := &runtime{cfg: cfg, log: log}
	rt.closers = append(rt.closers, func() { _ = log.Sync() })

	sessions, err := rt.sessionStore()
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.client = exchange.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	rt.state = app.NewState(sessions)
	rt.accounts = account.NewService(rt.client, rt.state, log)
	return rt, nil
}

func (rt *runtime) sessionStore() (session.Store, error) {
	if rt.cfg.Session.Backend != "redis" {
		return session.NewMemoryStore(), nil
	}
	key := "resxwatch:session:" + rt.cfg.Session.Key
	store, err := session.NewRedisStoreFromURL(rt.cfg.Redis.URL, key, rt.cfg.Session.TTL)
	if err != nil {
		return nil, err
	}
	rt.closers = append(rt.closers, func() { _ = store.Close() })
	return store, nil
}

// Close runs cleanups in reverse order.
func (rt *runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// credentials are the optional -u/-p flags shared by several commands.
type credentials struct {
	username string
	password string
}

func (c *credentials) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.username, "u", "", "Username. Signs in when no saved session exists.")
	f.StringVar(&c.password, "p", "", "Password. Defaults to $RESXWATCH_PASSWORD.")
}

func (c *credentials) pass() string {
	if c.password != "" {
		return c.password
	}
	return os.Getenv("RESXWATCH_PASSWORD")
}

var errNoSession = errors.New("not signed in: run 'resxwatch login' or pass -u")

// signIn resumes a saved session, or logs in with the given credentials.
func (rt *runtime) signIn(ctx context.Context, c credentials) error {
	if c.username != "" {
		_, err := rt.accounts.Login(ctx, c.username, c.pass())
		return err
	}
	ok, err := rt.accounts.Resume(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errNoSession
	}
	return nil
}

// userMessage prefers the exchange's reason over Go error text.
func userMessage(err error) string {
	if detail, ok := exchange.RejectionDetail(err); ok {
		return detail
	}
	if exchange.IsTransport(err) {
		return "could not reach the exchange at the configured api.base_url"
	}
	return err.Error()
}
