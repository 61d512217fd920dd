// Package search runs one lookup: resolve a name if needed, fetch the quote,
// fill in what the provider left out.
package search

import (
	"context"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"tradedesk/internal/directory"
	"tradedesk/internal/errs"
	"tradedesk/internal/market"
	"tradedesk/internal/provider"
	"tradedesk/internal/resolver"
)

// QuoteProvider fetches quotes. Every provider.Provider satisfies it.
//
//go:generate mockgen -package=search_test -destination=mock_search_test.go -source=search.go
type QuoteProvider interface {
	Name() string
	Quote(ctx context.Context, symbol provider.Symbol) (provider.Quote, error)
}

// NameResolver turns a company name into a symbol.
type NameResolver interface {
	Resolve(ctx context.Context, name string) (resolver.Match, error)
}

type Request struct {
	Ticker string
	Name   string
}

type Result struct {
	Quote    provider.Quote
	Market   market.Session
	Resolved *resolver.Match
}

type Service struct {
	provider  QuoteProvider
	resolver  NameResolver
	directory *directory.Directory
	session   func(symbol string, t time.Time) market.Session
}

type Option func(*Service)

func WithResolver(r NameResolver) Option {
	return func(s *Service) { s.resolver = r }
}

// WithDirectory supplies company names for providers that do not return one.
func WithDirectory(d *directory.Directory) Option {
	return func(s *Service) { s.directory = d }
}

// WithSession replaces the exchange calendar lookup.
func WithSession(fn func(symbol string, t time.Time) market.Session) Option {
	return func(s *Service) { s.session = fn }
}

func New(p QuoteProvider, opts ...Option) *Service {
	s := &Service{provider: p, session: market.SessionAt}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup fetches a quote for req. A ticker takes precedence over a name.
func (s *Service) Lookup(ctx context.Context, req Request) (Result, error) {
	var (
		symbol provider.Symbol
		match  *resolver.Match
	)

	ticker := strings.TrimSpace(req.Ticker)
	name := strings.TrimSpace(req.Name)

	switch {
	case ticker != "":
		if name != "" {
			log.WithFields(log.Fields{"ticker": ticker, "name": name}).Warn("both ticker and name given, using ticker")
		}
		sym, err := provider.ParseSymbol(ticker)
		if err != nil {
			return Result{}, errs.Usagef("%v", err)
		}
		symbol = sym
	case name != "":
		if s.resolver == nil {
			return Result{}, errs.Usagef("name lookup is not configured")
		}
		m, err := s.resolver.Resolve(ctx, name)
		if err != nil {
			return Result{}, err
		}
		symbol, match = m.Symbol, &m
	default:
		return Result{}, errs.Usagef("provide --ticker or --name")
	}

	log.WithFields(log.Fields{"symbol": symbol, "provider": s.provider.Name()}).Debug("fetching quote")

	q, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return Result{}, err
	}

	if q.Name == "" {
		q.Name = s.companyName(symbol, match)
	}
	if q.Exchange == "" && s.directory != nil {
		if e, ok := s.directory.Lookup(symbol); ok {
			q.Exchange = e.Exchange
		}
	}

	return Result{
		Quote:    q,
		Market:   s.session(q.Symbol.String(), q.Timestamp),
		Resolved: match,
	}, nil
}

func (s *Service) companyName(symbol provider.Symbol, match *resolver.Match) string {
	if match != nil && match.Name != "" {
		return match.Name
	}
	if s.directory != nil {
		if e, ok := s.directory.Lookup(symbol); ok {
			return e.Name
		}
	}
	return symbol.String()
}
