package ledger

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/paperstock/market"
	"github.com/rustyeddy/paperstock/quote"
	"github.com/rustyeddy/paperstock/store"
)

// fakeQuoter serves a fixed price with a controllable timestamp. It also
// implements Peeker so portfolio valuation is exercised.
type fakeQuoter struct {
	mu    sync.Mutex
	price market.Money
	asOf  time.Time
	err   error
}

func (f *fakeQuoter) set(price market.Money) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = price
}

func (f *fakeQuoter) GetQuote(ctx context.Context, symbol string) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return market.Quote{}, f.err
	}
	asOf := f.asOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return market.Quote{Symbol: symbol, Price: f.price, AsOf: asOf}, nil
}

func (f *fakeQuoter) Peek(symbol string) (market.Quote, bool) {
	q, err := f.GetQuote(context.Background(), symbol)
	return q, err == nil
}

func newTestLedger(t *testing.T, q Quoter, opt Options) (*Ledger, *store.Store) {
	t.Helper()

	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return New(st, q, opt), st
}

func TestPlaceOrderScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 50_000}
	l, st := newTestLedger(t, fq, Options{})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 100_000_000))

	fill, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 10)
	require.NoError(t, err)
	assert.Equal(t, market.Money(50_000), fill.Price)
	assert.Equal(t, market.Money(99_500_000), fill.Cash)
	assert.EqualValues(t, 10, fill.Holding.Qty)
	assert.Equal(t, market.Money(50_000), fill.Holding.AvgCost)

	fq.set(60_000)
	fill, err = l.PlaceOrder(ctx, "u1", "005930", market.Sell, 5)
	require.NoError(t, err)
	assert.Equal(t, market.Money(99_800_000), fill.Cash)
	assert.EqualValues(t, 5, fill.Holding.Qty)
	assert.Equal(t, market.Money(50_000), fill.Holding.AvgCost)
	assert.Equal(t, market.Money(5*(60_000-50_000)), fill.Realized)

	// Log has both fills, newest first, each matching its mutation.
	trades, err := l.TradeLog(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, market.Sell, trades[0].Side)
	assert.Equal(t, market.Money(60_000), trades[0].Price)
	assert.EqualValues(t, 5, trades[0].Qty)
	assert.Equal(t, market.Buy, trades[1].Side)
	assert.Equal(t, market.Money(50_000), trades[1].Price)
	assert.EqualValues(t, 10, trades[1].Qty)
}

func TestBuyRecomputesWeightedAverage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 100}
	l, st := newTestLedger(t, fq, Options{})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 100_000))

	_, err := l.PlaceOrder(ctx, "u1", "035420", market.Buy, 10)
	require.NoError(t, err)

	fq.set(200)
	fill, err := l.PlaceOrder(ctx, "u1", "035420", market.Buy, 10)
	require.NoError(t, err)

	assert.EqualValues(t, 20, fill.Holding.Qty)
	assert.Equal(t, market.Money(150), fill.Holding.AvgCost)
}

func TestSellToZeroRemovesHolding(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 1_000}
	l, st := newTestLedger(t, fq, Options{})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 1_000_000))

	_, err := l.PlaceOrder(ctx, "u1", "000660", market.Buy, 7)
	require.NoError(t, err)

	fill, err := l.PlaceOrder(ctx, "u1", "000660", market.Sell, 7)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fill.Holding.Qty)

	p, err := l.Portfolio(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, p.Positions)

	// Selling again fails: the position is gone.
	_, err = l.PlaceOrder(ctx, "u1", "000660", market.Sell, 1)
	assert.ErrorIs(t, err, ErrInsufficientPosition)
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 1_000}
	l, st := newTestLedger(t, fq, Options{})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 1_000_000))

	_, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = l.PlaceOrder(ctx, "u1", "005930", market.Buy, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = l.PlaceOrder(ctx, "u1", "  ", market.Buy, 1)
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = l.PlaceOrder(ctx, "nobody", "005930", market.Buy, 1)
	assert.ErrorIs(t, err, store.ErrAccountNotFound)
}

func TestPlaceOrderRejectsOldQuote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 1_000, asOf: time.Now().Add(-time.Hour)}
	l, st := newTestLedger(t, fq, Options{MaxQuoteAge: 30 * time.Second})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 1_000_000))

	_, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 1)
	assert.ErrorIs(t, err, quote.ErrQuoteUnavailable)
}

func TestFailedPreconditionLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 300_000}
	l, st := newTestLedger(t, fq, Options{})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 1_000_000))

	_, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 2)
	require.NoError(t, err)

	// Overdraw attempt: 2 more at 300k needs 600k, only 400k left.
	_, err = l.PlaceOrder(ctx, "u1", "005930", market.Buy, 2)
	require.ErrorIs(t, err, ErrInsufficientFunds)

	acct, err := st.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, market.Money(400_000), acct.Cash)

	holdings, err := st.Holdings(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, holdings, 1)
	assert.EqualValues(t, 2, holdings[0].Qty)

	// The rejected order produced no log entry.
	trades, err := l.TradeLog(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestConcurrentOrdersOnOneAccountSerialize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 600_000}
	l, st := newTestLedger(t, fq, Options{})

	// Each order alone passes the funds check; together they overdraw.
	require.NoError(t, st.EnsureAccount(ctx, "u1", 1_000_000))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = l.PlaceOrder(ctx, "u1", "005930", market.Buy, 1)
		}(i)
	}
	wg.Wait()

	var ok, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrInsufficientFunds):
			rejected++
		}
	}
	assert.Equal(t, 1, ok, "exactly one order must fill")
	assert.Equal(t, 1, rejected, "the other must be rejected")

	acct, err := st.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, market.Money(400_000), acct.Cash)
}

func TestPortfolioValuation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fq := &fakeQuoter{price: 50_000}
	l, st := newTestLedger(t, fq, Options{})

	require.NoError(t, st.EnsureAccount(ctx, "u1", 10_000_000))

	_, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 10)
	require.NoError(t, err)

	fq.set(55_000)
	p, err := l.Portfolio(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, market.Money(9_500_000), p.Cash)
	require.Len(t, p.Positions, 1)
	pos := p.Positions[0]
	assert.Equal(t, market.Money(55_000), pos.Price)
	assert.Equal(t, market.Money(550_000), pos.MarketValue)
	assert.Equal(t, market.Money(50_000), pos.UnrealizedPL)
}

func TestResetAccount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("keeps_log", func(t *testing.T) {
		t.Parallel()

		fq := &fakeQuoter{price: 1_000}
		l, st := newTestLedger(t, fq, Options{DefaultCash: 5_000_000, ResetKeepsLog: true})

		require.NoError(t, st.EnsureAccount(ctx, "u1", 5_000_000))
		_, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 3)
		require.NoError(t, err)
		require.NoError(t, st.AddWatch(ctx, "u1", "000660"))

		require.NoError(t, l.Reset(ctx, "u1"))

		acct, err := st.GetAccount(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, market.Money(5_000_000), acct.Cash)

		holdings, err := st.Holdings(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, holdings)

		watched, err := st.ListWatch(ctx, "u1")
		require.NoError(t, err)
		assert.Empty(t, watched)

		trades, err := l.TradeLog(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Len(t, trades, 1, "audit trail survives the reset")
	})

	t.Run("purges_log", func(t *testing.T) {
		t.Parallel()

		fq := &fakeQuoter{price: 1_000}
		l, st := newTestLedger(t, fq, Options{DefaultCash: 5_000_000, ResetKeepsLog: false})

		require.NoError(t, st.EnsureAccount(ctx, "u1", 5_000_000))
		_, err := l.PlaceOrder(ctx, "u1", "005930", market.Buy, 3)
		require.NoError(t, err)

		require.NoError(t, l.Reset(ctx, "u1"))

		trades, err := l.TradeLog(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Empty(t, trades)
	})
}

func TestWeightedAvgRounding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		oldQty   int64
		oldAvg   market.Money
		qty      int64
		price    market.Money
		expected market.Money
	}{
		{"first_buy", 0, 0, 10, 50_000, 50_000},
		{"equal_weights", 10, 100, 10, 200, 150},
		{"rounds_nearest", 1, 100, 2, 200, 167}, // 500/3 = 166.67
		{"heavier_old", 99, 1_000, 1, 2_000, 1_010},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := weightedAvg(tt.oldQty, tt.oldAvg, tt.qty, tt.price)
			assert.Equal(t, tt.expected, got)
		})
	}
}
