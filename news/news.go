// Package news is the read-only headline feed. It carries no ledger
// invariants; failures degrade to an empty list at the call site.
package news

import (
	"context"
	"time"
)

// Item is one normalized headline.
type Item struct {
	Title  string
	Link   string
	Source string
	Time   time.Time
}

// Source fetches headlines for a symbol from an external provider.
type Source interface {
	Fetch(ctx context.Context, symbol string) ([]Item, error)
}
