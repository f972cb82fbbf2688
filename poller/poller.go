// Package poller drives the periodic quote refresh that keeps the cache warm
// for every symbol anyone is watching or holding, plus a curated top list.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/paperstock/market"
)

// State is the coordinator's own bookkeeping per symbol. There is no failed
// state: a refresh failure leaves the symbol where it was and the next tick
// retries unconditionally.
type State int

const (
	// Cold means the symbol has never produced a usable snapshot, or was
	// evicted after going idle.
	Cold State = iota
	// Warm means the cache holds a fresh or stale-but-usable snapshot.
	Warm
)

func (s State) String() string {
	if s == Warm {
		return "WARM"
	}
	return "COLD"
}

// Cache is the slice of the quote cache the coordinator drives.
type Cache interface {
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
	Peek(symbol string) (market.Quote, bool)
	EvictIdle() []string
}

// SymbolSource yields the symbols with at least one subscriber: the union of
// every watchlist and every non-zero holding. The store satisfies it.
type SymbolSource interface {
	ActiveSymbols(ctx context.Context) ([]string, error)
}

// Options tunes the refresh loop.
type Options struct {
	// Interval between refresh ticks. Defaults to the 1 Hz client poll rate.
	Interval time.Duration
	// TopSymbols is the fixed curated list kept warm regardless of
	// subscribers, served by Top in this order.
	TopSymbols []string
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	return o
}

// Coordinator refreshes the interesting set on a ticker. Client reads never
// wait on it: they read whatever the cache holds, falling back to the
// cache's own on-demand fetch for cold symbols.
type Coordinator struct {
	cache   Cache
	symbols SymbolSource
	opt     Options
	log     logrus.FieldLogger

	mu     sync.Mutex
	states map[string]State
}

// New creates a Coordinator. Run starts the loop.
func New(cache Cache, symbols SymbolSource, opt Options) *Coordinator {
	return &Coordinator{
		cache:   cache,
		symbols: symbols,
		opt:     opt.withDefaults(),
		log:     logrus.StandardLogger(),
		states:  make(map[string]State),
	}
}

// SetLogger replaces the default process logger.
func (c *Coordinator) SetLogger(log logrus.FieldLogger) { c.log = log }

// Run ticks until ctx is canceled. The first refresh happens immediately so
// the cache is warm before the first interval elapses.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opt.Interval)
	defer ticker.Stop()

	c.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick refreshes every symbol in the interesting set once and sweeps idle
// cache entries. Failures are logged and retried on the next tick; a tick
// never fails the loop.
func (c *Coordinator) Tick(ctx context.Context) {
	start := time.Now()

	set, err := c.interestingSet(ctx)
	if err != nil {
		c.log.WithError(err).Warn("poller could not list active symbols")
		return
	}

	var warmed, failed int
	for _, sym := range set {
		if ctx.Err() != nil {
			return
		}
		if _, err := c.cache.GetQuote(ctx, sym); err != nil {
			failed++
			continue
		}
		warmed++
		c.setState(sym, Warm)
	}

	for _, sym := range c.cache.EvictIdle() {
		c.setState(sym, Cold)
	}

	c.log.WithFields(logrus.Fields{
		"symbols": len(set),
		"warmed":  warmed,
		"failed":  failed,
		"took":    time.Since(start).Round(time.Millisecond).String(),
	}).Debug("poller tick")
}

// Top returns cached snapshots for the curated list, in configured order.
// Symbols with no snapshot yet are omitted; nothing blocks on a refresh.
func (c *Coordinator) Top(n int) []market.Quote {
	if n <= 0 || n > len(c.opt.TopSymbols) {
		n = len(c.opt.TopSymbols)
	}

	out := make([]market.Quote, 0, n)
	for _, sym := range c.opt.TopSymbols {
		if len(out) == n {
			break
		}
		if q, ok := c.cache.Peek(sym); ok {
			out = append(out, q)
		}
	}
	return out
}

// State reports the coordinator's bookkeeping for a symbol.
func (c *Coordinator) State(symbol string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[symbol]
}

func (c *Coordinator) setState(symbol string, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == Cold {
		delete(c.states, symbol)
		return
	}
	c.states[symbol] = s
}

// interestingSet is the union of active symbols and the curated top list,
// deduped, in a stable order.
func (c *Coordinator) interestingSet(ctx context.Context) ([]string, error) {
	active, err := c.symbols.ActiveSymbols(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(active)+len(c.opt.TopSymbols))
	out := make([]string, 0, len(active)+len(c.opt.TopSymbols))
	for _, sym := range append(append([]string{}, active...), c.opt.TopSymbols...) {
		sym = market.NormalizeSymbol(sym)
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out, nil
}
