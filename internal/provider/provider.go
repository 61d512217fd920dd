package provider

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol is a canonical ticker such as "AAPL" or "BTC-USD".
type Symbol string

func (s Symbol) String() string { return string(s) }

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-=^]{1,15}$`)

// ParseSymbol trims and upper-cases s and checks it looks like a ticker.
func ParseSymbol(s string) (Symbol, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	if !symbolPattern.MatchString(v) {
		return "", fmt.Errorf("invalid ticker symbol %q", s)
	}
	return Symbol(v), nil
}

// Quote is the normalized shape returned by all providers.
type Quote struct {
	Symbol    Symbol          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Currency  string          `json:"currency"`
	Exchange  string          `json:"exchange"`
	Source    string          `json:"source"`
	Timestamp time.Time       `json:"timestamp"`
}

// Provider fetches the latest quote for one symbol with a single request.
type Provider interface {
	Name() string
	Quote(ctx context.Context, symbol Symbol) (Quote, error)
}

// Normalize enforces the Quote invariants: a positive price and a UTC
// timestamp that is not after now. A zero timestamp becomes now.
func Normalize(q Quote, now time.Time) (Quote, error) {
	if !q.Price.IsPositive() {
		return Quote{}, fmt.Errorf("non-positive price %s for %s", q.Price, q.Symbol)
	}
	now = now.UTC()
	if q.Timestamp.IsZero() || q.Timestamp.After(now) {
		q.Timestamp = now
	}
	q.Timestamp = q.Timestamp.UTC()
	if q.Currency == "" {
		q.Currency = "USD"
	}
	return q, nil
}
