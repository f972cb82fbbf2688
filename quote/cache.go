package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/rustyeddy/paperstock/market"
)

// Options tunes the cache. The upstream's latency and error distribution are
// unknown, so none of these are hard-coded; config owns the values.
type Options struct {
	// TTL is how long a snapshot counts as fresh. Matched to the ~1 Hz
	// client poll rate.
	TTL time.Duration
	// StaleGrace is how long past TTL a snapshot may still be served when a
	// refresh fails (stale-if-error). Must be >= TTL to be useful.
	StaleGrace time.Duration
	// FetchTimeout bounds a single upstream fetch.
	FetchTimeout time.Duration
	// IdleEviction is how long an entry may go unread before EvictIdle
	// drops it.
	IdleEviction time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 2 * time.Second
	}
	if o.StaleGrace <= 0 {
		o.StaleGrace = 2 * time.Minute
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 5 * time.Second
	}
	if o.IdleEviction <= 0 {
		o.IdleEviction = 10 * time.Minute
	}
	return o
}

type entry struct {
	quote    market.Quote
	lastRead time.Time
}

// Cache wraps a Source with a short-TTL snapshot cache, per-symbol request
// coalescing and stale-if-error fallback. One instance lives for the whole
// process and is injected wherever quotes are read; there is no ambient
// global state.
type Cache struct {
	src Source
	opt Options
	log logrus.FieldLogger

	mu      sync.Mutex
	entries map[string]*entry

	flight singleflight.Group

	// now is swapped out by tests.
	now func() time.Time
}

// New creates a Cache over src.
func New(src Source, opt Options) *Cache {
	return &Cache{
		src:     src,
		opt:     opt.withDefaults(),
		log:     logrus.StandardLogger(),
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// SetLogger replaces the default process logger.
func (c *Cache) SetLogger(log logrus.FieldLogger) { c.log = log }

// GetQuote returns a snapshot for symbol. A fresh cached snapshot is returned
// without touching the upstream. Otherwise a refresh is started, and
// concurrent callers for the same symbol attach to the single in-flight
// fetch: at most one outstanding upstream request per symbol, ever.
//
// If the refresh fails but a snapshot younger than StaleGrace exists, that
// snapshot is returned with Stale set instead of an error.
func (c *Cache) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	if q, ok := c.fresh(symbol); ok {
		return q, nil
	}

	ch := c.flight.DoChan(symbol, func() (interface{}, error) {
		// Re-check under the flight: a waiter that queued behind a completed
		// refresh should not trigger a second upstream call.
		if q, ok := c.fresh(symbol); ok {
			return q, nil
		}
		return c.refresh(symbol)
	})

	select {
	case <-ctx.Done():
		// The caller is gone; the fetch keeps running for the other waiters.
		return market.Quote{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return market.Quote{}, res.Err
		}
		return res.Val.(market.Quote), nil
	}
}

// Peek returns the cached snapshot for symbol without fetching or extending
// its idle clock. Used by read paths that must never block on a refresh.
func (c *Cache) Peek(symbol string) (market.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[symbol]
	if !ok {
		return market.Quote{}, false
	}
	q := e.quote
	if q.Age(c.now()) >= c.opt.TTL {
		q.Stale = true
	}
	return q, true
}

// EvictIdle removes entries that have not been read for longer than the
// configured idle window and returns their symbols. It only touches the
// entry map, so an in-flight fetch is never blocked by eviction.
func (c *Cache) EvictIdle() []string {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	var evicted []string
	for sym, e := range c.entries {
		if now.Sub(e.lastRead) > c.opt.IdleEviction {
			delete(c.entries, sym)
			evicted = append(evicted, sym)
		}
	}
	return evicted
}

// Len reports the number of cached symbols.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fresh returns the cached snapshot if it is within TTL, marking the read.
func (c *Cache) fresh(symbol string) (market.Quote, bool) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[symbol]
	if !ok || e.quote.Age(now) >= c.opt.TTL {
		return market.Quote{}, false
	}
	e.lastRead = now
	return e.quote, true
}

// refresh performs one upstream fetch and applies the stale-if-error policy.
// The fetch runs on a detached context: a caller disconnecting mid-poll must
// not cancel a result other waiters still need.
func (c *Cache) refresh(symbol string) (market.Quote, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opt.FetchTimeout)
	defer cancel()

	q, err := c.src.Fetch(ctx, symbol)
	now := c.now()

	if err == nil {
		if q.Price <= 0 {
			err = fmt.Errorf("non-positive price %d for %s", q.Price, symbol)
		} else {
			q.Stale = false
			c.mu.Lock()
			c.entries[symbol] = &entry{quote: q, lastRead: now}
			c.mu.Unlock()
			return q, nil
		}
	}

	// Refresh failed; fall back to a stale snapshot inside the grace period.
	c.mu.Lock()
	e, ok := c.entries[symbol]
	if ok {
		e.lastRead = now
	}
	c.mu.Unlock()

	if ok && e.quote.Age(now) < c.opt.StaleGrace {
		c.log.WithFields(logrus.Fields{
			"symbol": symbol,
			"age":    e.quote.Age(now).String(),
		}).WithError(err).Warn("quote refresh failed, serving stale snapshot")

		stale := e.quote
		stale.Stale = true
		return stale, nil
	}

	c.log.WithField("symbol", symbol).WithError(err).Warn("quote unavailable")
	return market.Quote{}, fmt.Errorf("%w: %s: %v", ErrQuoteUnavailable, symbol, err)
}
