package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"tradedesk/internal/config"
	"tradedesk/internal/directory"
	"tradedesk/internal/errs"
	"tradedesk/internal/httpx"
	"tradedesk/internal/present"
	"tradedesk/internal/provider"
	"tradedesk/internal/provider/polygon"
	"tradedesk/internal/provider/ratelimit"
	"tradedesk/internal/provider/yahoo"
	"tradedesk/internal/provider/yahooadapter"
	"tradedesk/internal/resolver"
	"tradedesk/internal/search"
)

// providerFactory builds the quote provider named in cfg and, when one is
// available, the remote name searcher.
type providerFactory func(cfg config.Config) (search.QuoteProvider, resolver.Searcher, error)

type searchFlags struct {
	ticker   string
	name     string
	json     bool
	table    bool
	provider string
}

func (a *app) searchCmd() *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search by ticker or company name and print the current price",
		Example: `  tradedesk search --ticker AAPL
  tradedesk search --name "Tesla"
  tradedesk search -t BTC-USD --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("provider") {
				a.cfg.Provider = f.provider
			}
			return a.runSearch(cmd.Context(), f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.ticker, "ticker", "t", "", "ticker symbol, e.g. AAPL, TSLA, BTC-USD")
	fl.StringVarP(&f.name, "name", "n", "", `company or asset name, e.g. "Apple", "Tesla"`)
	fl.BoolVar(&f.json, "json", false, "print JSON instead of text")
	fl.BoolVar(&f.table, "table", false, "print a table instead of text")
	fl.StringVar(&f.provider, "provider", "", "quote provider: yahoo or polygon (default from config)")
	cmd.MarkFlagsMutuallyExclusive("json", "table")

	return cmd
}

func (a *app) runSearch(ctx context.Context, f searchFlags) error {
	if f.ticker == "" && f.name == "" {
		return errs.Usagef("provide --ticker or --name (see --help)")
	}

	format := a.cfg.Output
	switch {
	case f.json:
		format = present.FormatJSON
	case f.table:
		format = present.FormatTable
	}
	a.cfg.Output = format

	if err := a.cfg.Validate(); err != nil {
		return errs.Usagef("config: %v", err)
	}

	out, err := present.New(a.stdout, format)
	if err != nil {
		return errs.Usagef("%v", err)
	}

	dir, err := directory.Load(a.cfg.Directory)
	if err != nil {
		return errs.Usagef("directory: %v", err)
	}

	p, searcher, err := a.buildProvider(a.cfg)
	if err != nil {
		return errs.Usagef("%v", err)
	}

	opts := []resolver.Option{resolver.WithMaxDistance(a.cfg.Resolver.MaxDistance)}
	if a.cfg.Resolver.RemoteSearch && searcher != nil {
		opts = append(opts, resolver.WithRemote(searcher))
	}

	svc := search.New(p,
		search.WithResolver(resolver.New(dir, opts...)),
		search.WithDirectory(dir),
	)

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout())
	defer cancel()

	req := search.Request{Ticker: f.ticker, Name: f.name}
	res, err := svc.Lookup(ctx, req)
	if err != nil {
		if werr := out.Error(req, err); werr != nil {
			log.WithError(werr).Warn("writing error output")
		}
		return err
	}

	log.WithFields(log.Fields{
		"symbol":   res.Quote.Symbol,
		"provider": res.Quote.Source,
		"market":   res.Market.State,
	}).Info("quote fetched")

	if err := out.Result(res); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	return nil
}

func buildProvider(cfg config.Config) (search.QuoteProvider, resolver.Searcher, error) {
	httpClient := httpx.New(cfg.RequestTimeout())
	if cfg.Yahoo.UserAgent != "" {
		httpClient.UserAgent = cfg.Yahoo.UserAgent
	}

	opts := []yahoo.ClientOption{
		yahoo.WithHTTPClient(httpClient),
		yahoo.WithHeader(http.Header{"Accept-Language": []string{"en-US,en;q=0.9"}}),
	}
	if cfg.Yahoo.BaseURL != "" {
		opts = append(opts, yahoo.WithBaseURL(cfg.Yahoo.BaseURL))
	}
	ya := yahooadapter.New(yahooadapter.Config{
		Name:        config.ProviderYahoo,
		SearchLimit: cfg.Yahoo.SearchLimit,
	}, yahoo.NewClient(opts...))

	var p provider.Provider
	switch cfg.Provider {
	case config.ProviderYahoo:
		p = ratelimit.Wrap(ya, cfg.Yahoo.MaxRequestsPerMinute, cfg.Yahoo.Burst,
			time.Duration(cfg.Yahoo.MinRequestIntervalSec)*time.Second)
	case config.ProviderPolygon:
		pg, err := polygon.New(polygon.Config{
			Name:     config.ProviderPolygon,
			APIKey:   cfg.Polygon.APIKey,
			Currency: cfg.Polygon.Currency,
		})
		if err != nil {
			return nil, nil, err
		}
		p = ratelimit.Wrap(pg, cfg.Polygon.MaxRequestsPerMinute, cfg.Polygon.Burst,
			time.Duration(cfg.Polygon.MinRequestIntervalSec)*time.Second)
	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}

	// Yahoo search needs no key, so it backs name lookups for every provider.
	return p, ya, nil
}
