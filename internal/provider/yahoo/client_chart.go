package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ChartMeta is the subset of the chart response metadata used for a quote.
type ChartMeta struct {
	Currency             string  `json:"currency"`
	Symbol               string  `json:"symbol"`
	ExchangeName         string  `json:"exchangeName"`
	FullExchangeName     string  `json:"fullExchangeName"`
	InstrumentType       string  `json:"instrumentType"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	ExchangeTimezoneName string  `json:"exchangeTimezoneName"`
}

// MarketTime returns RegularMarketTime as a UTC instant, or the zero time.
func (m ChartMeta) MarketTime() time.Time {
	if m.RegularMarketTime <= 0 {
		return time.Time{}
	}
	return time.Unix(m.RegularMarketTime, 0).UTC()
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta ChartMeta `json:"meta"`
		} `json:"result"`
		Error *chartError `json:"error"`
	} `json:"chart"`
}

// GetChart fetches the daily chart for symbol and returns its metadata,
// which carries the latest regular-market price and time.
func (c *Client) GetChart(ctx context.Context, symbol string) (*ChartMeta, error) {
	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("range", "1d")
	query.Set("includePrePost", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v8/finance/chart/"+url.PathEscape(symbol), query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	var body chartResponse
	decodeErr := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&body)

	if res.StatusCode != http.StatusOK {
		se := &StatusError{
			StatusCode: res.StatusCode,
			RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"), time.Now()),
		}
		if decodeErr == nil && body.Chart.Error != nil {
			se.Code = body.Chart.Error.Code
			se.Description = body.Chart.Error.Description
		}
		return nil, se
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding chart response: %w", decodeErr)
	}

	// Yahoo sometimes answers 200 with an error envelope.
	if body.Chart.Error != nil {
		return nil, &StatusError{StatusCode: res.StatusCode, Code: body.Chart.Error.Code, Description: body.Chart.Error.Description}
	}
	if len(body.Chart.Result) == 0 {
		return nil, &StatusError{StatusCode: http.StatusNotFound, Code: "Not Found", Description: "empty chart result for " + symbol}
	}

	meta := body.Chart.Result[0].Meta
	return &meta, nil
}
