package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// SearchQuote is one instrument returned by the search endpoint.
type SearchQuote struct {
	Symbol    string  `json:"symbol"`
	ShortName string  `json:"shortname"`
	LongName  string  `json:"longname"`
	QuoteType string  `json:"quoteType"`
	Exchange  string  `json:"exchange"`
	Score     float64 `json:"score"`
}

// DisplayName prefers the short name, then the long name, then the symbol.
func (q SearchQuote) DisplayName() string {
	switch {
	case q.ShortName != "":
		return q.ShortName
	case q.LongName != "":
		return q.LongName
	default:
		return q.Symbol
	}
}

type searchResponse struct {
	Quotes []SearchQuote `json:"quotes"`
}

// Search looks up instruments matching a free-text query, best match first.
func (c *Client) Search(ctx context.Context, q string, limit int) ([]SearchQuote, error) {
	if limit <= 0 {
		limit = 5
	}
	query := url.Values{}
	query.Set("q", q)
	query.Set("quotesCount", strconv.Itoa(limit))
	query.Set("newsCount", "0")
	query.Set("listsCount", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/v1/finance/search", query), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header = c.header.Clone()

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("performing request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &StatusError{
			StatusCode: res.StatusCode,
			RetryAfter: parseRetryAfter(res.Header.Get("Retry-After"), time.Now()),
		}
	}

	var body searchResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return body.Quotes, nil
}
