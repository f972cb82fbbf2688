package market

import (
	"fmt"
	"strings"
	"time"
)

// Money is an amount in the smallest currency denomination (e.g. won).
// All ledger arithmetic stays in integers; floats never enter the money path.
type Money = int64

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide converts a string into a Side, accepting any casing.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	}
	return "", fmt.Errorf("unknown order side %q", s)
}

// Quote is the one fixed shape every upstream price response is normalized
// into. Upstream field-name variability never leaks past the quote package.
type Quote struct {
	Symbol    string
	Name      string
	Price     Money
	Change    Money
	ChangePct float64
	AsOf      time.Time
	Stale     bool // served past its freshness window after a refresh failure
}

// Age returns how old the snapshot is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.AsOf)
}

// NormalizeSymbol canonicalizes a symbol identifier for use as a cache and
// storage key: trimmed and upper-cased. Validation beyond non-emptiness is a
// caller concern.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
