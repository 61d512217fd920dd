package yahooadapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"tradedesk/internal/errs"
	"tradedesk/internal/provider"
	"tradedesk/internal/provider/yahoo"
)

// Client is the part of the Yahoo client the adapter uses.
type Client interface {
	GetChart(ctx context.Context, symbol string) (*yahoo.ChartMeta, error)
	Search(ctx context.Context, q string, limit int) ([]yahoo.SearchQuote, error)
}

type Config struct {
	Name        string // display name, default: yahoo
	SearchLimit int    // quotes requested from the search endpoint, default 5
}

// searchable lists the quote types accepted from the search endpoint.
var searchable = map[string]bool{
	"EQUITY":         true,
	"ETF":            true,
	"INDEX":          true,
	"MUTUALFUND":     true,
	"CRYPTOCURRENCY": true,
	"CURRENCY":       true,
	"FUTURE":         true,
}

// Adapter turns the Yahoo client into a provider.Provider and a remote
// name searcher.
type Adapter struct {
	cfg    Config
	client Client
	now    func() time.Time
}

func New(cfg Config, client Client) *Adapter {
	if cfg.Name == "" {
		cfg.Name = "yahoo"
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 5
	}
	return &Adapter{cfg: cfg, client: client, now: time.Now}
}

func (a *Adapter) Name() string { return a.cfg.Name }

// Quote fetches the chart metadata for symbol with one request.
func (a *Adapter) Quote(ctx context.Context, symbol provider.Symbol) (provider.Quote, error) {
	meta, err := a.client.GetChart(ctx, symbol.String())
	if err != nil {
		return provider.Quote{}, a.mapError(err, "symbol", symbol.String())
	}

	log.WithFields(log.Fields{
		"provider": a.cfg.Name,
		"symbol":   meta.Symbol,
		"price":    meta.RegularMarketPrice,
		"time":     meta.RegularMarketTime,
	}).Debug("chart metadata received")

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	exchange := meta.FullExchangeName
	if exchange == "" {
		exchange = meta.ExchangeName
	}

	q, err := provider.Normalize(provider.Quote{
		Symbol:    symbol,
		Name:      name,
		Price:     decimal.NewFromFloat(meta.RegularMarketPrice),
		Currency:  strings.ToUpper(meta.Currency),
		Exchange:  exchange,
		Source:    a.cfg.Name,
		Timestamp: meta.MarketTime(),
	}, a.now())
	if err != nil {
		return provider.Quote{}, &errs.UpstreamError{Provider: a.cfg.Name, Message: "malformed chart response", Cause: err}
	}
	return q, nil
}

// SearchSymbol asks the search endpoint for name and returns the first
// tradeable hit.
func (a *Adapter) SearchSymbol(ctx context.Context, name string) (provider.Symbol, string, error) {
	quotes, err := a.client.Search(ctx, name, a.cfg.SearchLimit)
	if err != nil {
		return "", "", a.mapError(err, "name", name)
	}
	for _, q := range quotes {
		if q.Symbol == "" || !searchable[strings.ToUpper(q.QuoteType)] {
			continue
		}
		sym, err := provider.ParseSymbol(q.Symbol)
		if err != nil {
			log.WithField("symbol", q.Symbol).Debug("skipping unparsable search result")
			continue
		}
		return sym, q.DisplayName(), nil
	}
	return "", "", &errs.NotFoundError{Kind: "name", Query: name}
}

func (a *Adapter) mapError(err error, kind, query string) error {
	var se *yahoo.StatusError
	if errors.As(err, &se) {
		switch {
		case se.NotFound():
			return &errs.NotFoundError{Kind: kind, Query: query}
		case se.StatusCode == http.StatusTooManyRequests:
			return &errs.RateLimitError{Provider: a.cfg.Name, RetryAfter: se.RetryAfter}
		default:
			return &errs.UpstreamError{Provider: a.cfg.Name, StatusCode: se.StatusCode, Message: "unexpected response"}
		}
	}
	return &errs.UpstreamError{Provider: a.cfg.Name, Message: "request failed", Cause: err}
}
