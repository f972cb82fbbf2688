// Package watchlist is per-account symbol tracking. It is thin CRUD over
// the store; its one coupling to the rest of the engine is that the union of
// all watchlists (plus held symbols) defines what the polling coordinator
// keeps warm.
package watchlist

import (
	"context"

	"github.com/rustyeddy/paperstock/ledger"
	"github.com/rustyeddy/paperstock/market"
	"github.com/rustyeddy/paperstock/store"
)

type Service struct {
	store *store.Store
}

func New(st *store.Store) *Service {
	return &Service{store: st}
}

// Add tracks a symbol for an account. Adding an already-tracked symbol is a
// no-op, not an error.
func (s *Service) Add(ctx context.Context, accountID, symbol string) error {
	symbol = market.NormalizeSymbol(symbol)
	if symbol == "" {
		return ledger.ErrInvalidSymbol
	}
	return s.store.AddWatch(ctx, accountID, symbol)
}

// Remove stops tracking a symbol. Removing an absent entry is a no-op.
func (s *Service) Remove(ctx context.Context, accountID, symbol string) error {
	return s.store.RemoveWatch(ctx, accountID, market.NormalizeSymbol(symbol))
}

// List returns the account's tracked symbols in display order.
func (s *Service) List(ctx context.Context, accountID string) ([]string, error) {
	return s.store.ListWatch(ctx, accountID)
}
