package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rustyeddy/paperstock/internal/id"
	"github.com/rustyeddy/paperstock/market"
	"github.com/rustyeddy/paperstock/quote"
	"github.com/rustyeddy/paperstock/store"
)

// Typed, user-presentable outcomes. Business-rule rejections are expected
// results, not system failures; nothing internal leaks through them.
var (
	ErrInvalidQuantity      = errors.New("quantity must be a positive integer")
	ErrInvalidSymbol        = errors.New("symbol must not be empty")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
	ErrInternal             = errors.New("internal ledger error")

	// ErrQuoteTooOld wraps quote.ErrQuoteUnavailable so callers that only
	// distinguish "no usable price" keep matching with errors.Is.
	ErrQuoteTooOld = fmt.Errorf("quote too old: %w", quote.ErrQuoteUnavailable)
)

// Quoter is the price feed the ledger validates orders against. The quote
// cache satisfies it.
type Quoter interface {
	GetQuote(ctx context.Context, symbol string) (market.Quote, error)
}

// Peeker is the optional non-blocking read side of a Quoter, used to value
// portfolios without triggering upstream fetches.
type Peeker interface {
	Peek(symbol string) (market.Quote, bool)
}

// Options tunes ledger behavior.
type Options struct {
	// MaxQuoteAge rejects orders priced from snapshots older than this.
	MaxQuoteAge time.Duration
	// DefaultCash is the balance an account is (re)initialized with.
	DefaultCash market.Money
	// ResetKeepsLog decides whether Reset retains the trade log for audit
	// or purges it along with holdings.
	ResetKeepsLog bool
}

func (o Options) withDefaults() Options {
	if o.MaxQuoteAge <= 0 {
		o.MaxQuoteAge = 30 * time.Second
	}
	if o.DefaultCash <= 0 {
		o.DefaultCash = 100_000_000
	}
	return o
}

// Fill is the confirmation of an executed order.
type Fill struct {
	TradeID  string
	Symbol   string
	Side     market.Side
	Qty      int64
	Price    market.Money
	Cash     market.Money  // balance after the fill
	Holding  store.Holding // resulting position; Qty 0 means the row was removed
	Realized market.Money  // qty*(price-avg) on sells, derived, never stored
}

// Position is one valued holding in a portfolio view.
type Position struct {
	Symbol       string
	Qty          int64
	AvgCost      market.Money
	Price        market.Money // 0 when no snapshot is cached
	MarketValue  market.Money
	UnrealizedPL market.Money
	Stale        bool
}

// Portfolio is an account's cash plus valued holdings.
type Portfolio struct {
	AccountID string
	Cash      market.Money
	Positions []Position
}

// Ledger is the only component that mutates account and holding state. Every
// order commits atomically or not at all, and orders for the same account
// are serialized through a per-account lock so two concurrent orders can
// never both pass the funds or position check against the same stale read.
type Ledger struct {
	store  *store.Store
	quotes Quoter
	opt    Options
	log    logrus.FieldLogger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	now func() time.Time
}

// New creates a Ledger over the store and quote feed.
func New(st *store.Store, quotes Quoter, opt Options) *Ledger {
	return &Ledger{
		store:  st,
		quotes: quotes,
		opt:    opt.withDefaults(),
		log:    logrus.StandardLogger(),
		locks:  make(map[string]*sync.Mutex),
		now:    time.Now,
	}
}

// SetLogger replaces the default process logger.
func (l *Ledger) SetLogger(log logrus.FieldLogger) { l.log = log }

// accountLock returns the mutex serializing writes for one account. Locks
// are never removed; the map grows with the number of active accounts, which
// is bounded and small next to their row data.
func (l *Ledger) accountLock(accountID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[accountID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[accountID] = m
	}
	return m
}

// PlaceOrder validates and executes an immediate market fill. Preconditions
// are checked in order before any mutation; a failed precondition leaves
// cash and holdings untouched. There is no partial fill and no retry; a
// caller that wants to retry re-quotes and resubmits.
func (l *Ledger) PlaceOrder(ctx context.Context, accountID, symbol string, side market.Side, qty int64) (Fill, error) {
	if qty <= 0 {
		return Fill{}, ErrInvalidQuantity
	}
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return Fill{}, ErrInvalidSymbol
	}

	q, err := l.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return Fill{}, err
	}
	now := l.now()
	if q.Price <= 0 || q.Age(now) > l.opt.MaxQuoteAge {
		return Fill{}, fmt.Errorf("%w: snapshot for %s is %s old",
			ErrQuoteTooOld, symbol, q.Age(now).Round(time.Millisecond))
	}

	lock := l.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	var fill Fill
	err = l.store.WithTx(ctx, func(tx *store.Tx) error {
		acct, err := tx.Account(accountID)
		if err != nil {
			return err
		}
		h, held, err := tx.Holding(accountID, symbol)
		if err != nil {
			return err
		}

		switch side {
		case market.Buy:
			fill, err = l.applyBuy(tx, acct, h, held, symbol, qty, q.Price)
		case market.Sell:
			fill, err = l.applySell(tx, acct, h, held, symbol, qty, q.Price)
		default:
			err = fmt.Errorf("unknown order side %q", side)
		}
		if err != nil {
			return err
		}

		entry := store.TradeLogEntry{
			ID:        id.New(),
			AccountID: accountID,
			Symbol:    symbol,
			Side:      side,
			Qty:       qty,
			Price:     q.Price,
			CreatedAt: now,
		}
		if err := tx.AppendTrade(entry); err != nil {
			return err
		}
		fill.TradeID = entry.ID
		return nil
	})
	if err != nil {
		return Fill{}, err
	}

	l.log.WithFields(logrus.Fields{
		"account": accountID,
		"symbol":  symbol,
		"side":    side,
		"qty":     qty,
		"price":   fill.Price,
		"cash":    fill.Cash,
	}).Info("order filled")

	return fill, nil
}

func (l *Ledger) applyBuy(tx *store.Tx, acct store.Account, h store.Holding, held bool, symbol string, qty int64, price market.Money) (Fill, error) {
	cost := qty * price
	if acct.Cash < cost {
		return Fill{}, ErrInsufficientFunds
	}

	newCash := acct.Cash - cost
	var oldQty int64
	var oldAvg market.Money
	if held {
		oldQty, oldAvg = h.Qty, h.AvgCost
	}
	newQty := oldQty + qty
	newAvg := weightedAvg(oldQty, oldAvg, qty, price)

	if newCash < 0 || newQty <= 0 || newAvg < 0 {
		return Fill{}, fmt.Errorf("%w: buy would leave cash=%d qty=%d avg=%d",
			ErrInternal, newCash, newQty, newAvg)
	}

	next := store.Holding{AccountID: acct.ID, Symbol: symbol, Qty: newQty, AvgCost: newAvg}
	if err := tx.UpsertHolding(next); err != nil {
		return Fill{}, err
	}
	if err := tx.SetCash(acct.ID, newCash); err != nil {
		return Fill{}, err
	}

	return Fill{
		Symbol:  symbol,
		Side:    market.Buy,
		Qty:     qty,
		Price:   price,
		Cash:    newCash,
		Holding: next,
	}, nil
}

func (l *Ledger) applySell(tx *store.Tx, acct store.Account, h store.Holding, held bool, symbol string, qty int64, price market.Money) (Fill, error) {
	if !held || h.Qty < qty {
		return Fill{}, ErrInsufficientPosition
	}

	proceeds := qty * price
	newCash := acct.Cash + proceeds
	newQty := h.Qty - qty

	if newCash < 0 || newQty < 0 {
		return Fill{}, fmt.Errorf("%w: sell would leave cash=%d qty=%d",
			ErrInternal, newCash, newQty)
	}

	next := store.Holding{AccountID: acct.ID, Symbol: symbol, Qty: newQty, AvgCost: h.AvgCost}
	if newQty == 0 {
		// Average cost is undefined without a position; the row goes away.
		if err := tx.DeleteHolding(acct.ID, symbol); err != nil {
			return Fill{}, err
		}
		next = store.Holding{AccountID: acct.ID, Symbol: symbol}
	} else {
		if err := tx.UpsertHolding(next); err != nil {
			return Fill{}, err
		}
	}
	if err := tx.SetCash(acct.ID, newCash); err != nil {
		return Fill{}, err
	}

	return Fill{
		Symbol:   symbol,
		Side:     market.Sell,
		Qty:      qty,
		Price:    price,
		Cash:     newCash,
		Holding:  next,
		Realized: qty * (price - h.AvgCost),
	}, nil
}

// weightedAvg recomputes the volume-weighted average cost after a buy,
// rounding to the nearest smallest currency unit.
func weightedAvg(oldQty int64, oldAvg market.Money, qty int64, price market.Money) market.Money {
	num := oldQty*oldAvg + qty*price
	den := oldQty + qty
	return (num + den/2) / den
}

// Portfolio returns the account's cash and holdings. When the quote feed
// supports non-blocking reads, each position is valued against the cached
// snapshot; valuation never triggers an upstream fetch.
func (l *Ledger) Portfolio(ctx context.Context, accountID string) (Portfolio, error) {
	acct, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return Portfolio{}, err
	}
	holdings, err := l.store.Holdings(ctx, accountID)
	if err != nil {
		return Portfolio{}, err
	}

	peeker, _ := l.quotes.(Peeker)

	p := Portfolio{AccountID: accountID, Cash: acct.Cash}
	for _, h := range holdings {
		pos := Position{
			Symbol:  h.Symbol,
			Qty:     h.Qty,
			AvgCost: h.AvgCost,
		}
		if peeker != nil {
			if q, ok := peeker.Peek(h.Symbol); ok {
				pos.Price = q.Price
				pos.MarketValue = h.Qty * q.Price
				pos.UnrealizedPL = h.Qty * (q.Price - h.AvgCost)
				pos.Stale = q.Stale
			}
		}
		p.Positions = append(p.Positions, pos)
	}
	return p, nil
}

// TradeLog returns the account's fills, newest first.
func (l *Ledger) TradeLog(ctx context.Context, accountID string, limit int) ([]store.TradeLogEntry, error) {
	return l.store.ListTrades(ctx, accountID, limit)
}

// Reset reinitializes the account's cash to the configured default and
// deletes its holdings and watchlist. The trade log survives or not per
// Options.ResetKeepsLog.
func (l *Ledger) Reset(ctx context.Context, accountID string) error {
	lock := l.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := l.store.ResetAccount(ctx, accountID, l.opt.DefaultCash, l.opt.ResetKeepsLog); err != nil {
		return err
	}

	l.log.WithFields(logrus.Fields{
		"account":  accountID,
		"cash":     l.opt.DefaultCash,
		"keep_log": l.opt.ResetKeepsLog,
	}).Info("account reset")
	return nil
}
