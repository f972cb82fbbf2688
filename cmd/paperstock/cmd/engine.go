package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/paperstock/config"
	"github.com/rustyeddy/paperstock/ledger"
	"github.com/rustyeddy/paperstock/market"
	"github.com/rustyeddy/paperstock/quote"
	"github.com/rustyeddy/paperstock/store"
	"github.com/rustyeddy/paperstock/watchlist"
)

// engine bundles the wired-up core components for the CLI commands. One
// cache and one ledger per process, injected everywhere; no globals.
type engine struct {
	cfg   *config.Config
	log   *logrus.Logger
	store *store.Store
	cache *quote.Cache
	led   *ledger.Ledger
	watch *watchlist.Service
}

// openEngine loads config and constructs the store, cache, ledger and
// watchlist service. Callers must Close it.
func openEngine(cfgPath string) (*engine, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	src, err := buildSource(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	cache := quote.New(src, quote.Options{
		TTL:          cfg.Quote.TTL.Std(),
		StaleGrace:   cfg.Quote.StaleGrace.Std(),
		FetchTimeout: cfg.Quote.FetchTimeout.Std(),
		IdleEviction: cfg.Quote.IdleEviction.Std(),
	})
	cache.SetLogger(log)

	led := ledger.New(st, cache, ledger.Options{
		MaxQuoteAge:   cfg.Ledger.MaxQuoteAge.Std(),
		DefaultCash:   market.Money(cfg.Ledger.DefaultCash),
		ResetKeepsLog: cfg.Ledger.ResetKeepsLog,
	})
	led.SetLogger(log)

	return &engine{
		cfg:   cfg,
		log:   log,
		store: st,
		cache: cache,
		led:   led,
		watch: watchlist.New(st),
	}, nil
}

func (e *engine) Close() {
	e.store.Close()
}

// buildSource picks the configured upstream quote provider.
func buildSource(cfg *config.Config) (quote.Source, error) {
	switch cfg.Quote.Provider {
	case "naver":
		return quote.NewNaverClient("", cfg.Quote.FetchTimeout.Std()), nil
	case "sim":
		base := make(map[string]market.Money, len(cfg.Poller.TopSymbols))
		for i, sym := range cfg.Poller.TopSymbols {
			base[market.NormalizeSymbol(sym)] = market.Money(10_000 * (i + 1))
		}
		return quote.NewSimSource(base), nil
	}
	return nil, fmt.Errorf("unknown quote provider %q", cfg.Quote.Provider)
}
