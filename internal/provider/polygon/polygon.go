// Package polygon serves quotes from the Polygon.io last-trade endpoint.
package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"tradedesk/internal/errs"
	"tradedesk/internal/provider"
)

// Client is the part of the Polygon REST client the provider uses.
// *polygonrest.Client satisfies it.
type Client interface {
	GetLastTrade(ctx context.Context, params *models.GetLastTradeParams, options ...models.RequestOption) (*models.GetLastTradeResponse, error)
}

type Config struct {
	Name     string // display name, default: polygon
	APIKey   string
	Currency string // Polygon does not report it for US equities, default USD
}

type Provider struct {
	cfg    Config
	client Client
	now    func() time.Time
}

// New builds a provider around the official REST client.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("polygon: missing API key")
	}
	return NewWithClient(cfg, newRESTClient(cfg.APIKey)), nil
}

// newRESTClient returns the official client with retries off and its
// transport log routed to logrus at debug level. One lookup is one request.
func newRESTClient(apiKey string) *polygonrest.Client {
	c := polygonrest.New(apiKey)
	c.HTTP.SetRetryCount(0)
	c.HTTP.SetLogger(restLogger{log.WithField("provider", "polygon")})
	return c
}

// restLogger satisfies the resty logger interface. Transport failures are
// reported once through the returned error, so they only show at debug.
type restLogger struct {
	entry *log.Entry
}

func (l restLogger) Errorf(format string, v ...any) { l.entry.Debugf(format, v...) }
func (l restLogger) Warnf(format string, v ...any)  { l.entry.Debugf(format, v...) }
func (l restLogger) Debugf(format string, v ...any) { l.entry.Debugf(format, v...) }

// NewWithClient builds a provider around any Client.
func NewWithClient(cfg Config, client Client) *Provider {
	if cfg.Name == "" {
		cfg.Name = "polygon"
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	return &Provider{cfg: cfg, client: client, now: time.Now}
}

func (p *Provider) Name() string { return p.cfg.Name }

// Quote returns the last trade for symbol. The company name is left empty;
// Polygon needs a second request for it.
func (p *Provider) Quote(ctx context.Context, symbol provider.Symbol) (provider.Quote, error) {
	res, err := p.client.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: symbol.String()})
	if err != nil {
		return provider.Quote{}, p.mapError(err, symbol)
	}
	if res == nil {
		return provider.Quote{}, &errs.UpstreamError{Provider: p.cfg.Name, Message: "empty last trade response"}
	}

	trade := res.Results
	log.WithFields(log.Fields{
		"provider": p.cfg.Name,
		"symbol":   symbol,
		"price":    trade.Price,
		"exchange": trade.Exchange,
	}).Debug("last trade received")

	if trade.Price == 0 && time.Time(trade.Timestamp).IsZero() {
		return provider.Quote{}, &errs.NotFoundError{Kind: "symbol", Query: symbol.String()}
	}

	q, err := provider.Normalize(provider.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(trade.Price),
		Currency:  p.cfg.Currency,
		Source:    p.cfg.Name,
		Timestamp: time.Time(trade.Timestamp),
	}, p.now())
	if err != nil {
		return provider.Quote{}, &errs.UpstreamError{Provider: p.cfg.Name, Message: "malformed last trade", Cause: err}
	}
	return q, nil
}

func (p *Provider) mapError(err error, symbol provider.Symbol) error {
	var apiErr *models.ErrorResponse
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusNotFound:
			return &errs.NotFoundError{Kind: "symbol", Query: symbol.String()}
		case http.StatusTooManyRequests:
			return &errs.RateLimitError{Provider: p.cfg.Name}
		default:
			return &errs.UpstreamError{Provider: p.cfg.Name, StatusCode: apiErr.StatusCode, Message: "unexpected response", Cause: err}
		}
	}
	return &errs.UpstreamError{Provider: p.cfg.Name, Message: "request failed", Cause: err}
}
