package quote

import (
	"context"
	"errors"

	"github.com/rustyeddy/paperstock/market"
)

// ErrQuoteUnavailable is returned when neither a fresh fetch nor a usable
// cached snapshot can satisfy a quote request.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// Source answers "what is this symbol trading at right now". Implementations
// talk to an external provider and must be treated as slow, unreliable and
// rate-limited; callers bound every Fetch with a context deadline.
type Source interface {
	Fetch(ctx context.Context, symbol string) (market.Quote, error)
}
