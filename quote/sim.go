package quote

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/paperstock/market"
)

// SimSource is an offline Source that random-walks prices around configured
// base values. It exists so the daemon and examples run without network
// access; it is not used when a real provider is configured.
type SimSource struct {
	mu     sync.Mutex
	prices map[string]market.Money
	base   map[string]market.Money
	rng    *rand.Rand
}

// NewSimSource seeds the walk with base prices per symbol.
func NewSimSource(base map[string]market.Money) *SimSource {
	prices := make(map[string]market.Money, len(base))
	for sym, p := range base {
		prices[sym] = p
	}
	return &SimSource{
		prices: prices,
		base:   base,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Fetch returns the next step of the symbol's walk. Unknown symbols fail the
// same way an upstream miss would.
func (s *SimSource) Fetch(ctx context.Context, symbol string) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.prices[symbol]
	if !ok {
		return market.Quote{}, fmt.Errorf("unknown symbol %s", symbol)
	}

	// Step within ±0.5% of the current price, floored at 1.
	step := market.Money(float64(prev) * (s.rng.Float64() - 0.5) / 100)
	next := prev + step
	if next < 1 {
		next = 1
	}
	s.prices[symbol] = next

	base := s.base[symbol]
	var pct float64
	if base > 0 {
		pct = float64(next-base) / float64(base) * 100
	}

	return market.Quote{
		Symbol:    symbol,
		Name:      symbol,
		Price:     next,
		Change:    next - base,
		ChangePct: pct,
		AsOf:      time.Now(),
	}, nil
}
