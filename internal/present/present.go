// Package present renders lookup results for the terminal.
package present

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"tradedesk/internal/search"
)

// Formats accepted by Writer.
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatTable = "table"
)

const timeLayout = "2006-01-02 15:04"

// Writer renders results and errors in one format.
type Writer struct {
	out    io.Writer
	format string
}

func New(out io.Writer, format string) (*Writer, error) {
	switch format {
	case "", FormatText:
		format = FormatText
	case FormatJSON, FormatTable:
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
	return &Writer{out: out, format: format}, nil
}

func (w *Writer) Result(res search.Result) error {
	switch w.format {
	case FormatJSON:
		return w.json(res)
	case FormatTable:
		return w.table(res)
	default:
		return w.text(res)
	}
}

// Error writes a failed lookup. Only the JSON format puts errors on the
// output stream; the other formats leave them to the caller's log.
func (w *Writer) Error(req search.Request, err error) error {
	if w.format != FormatJSON {
		return nil
	}
	name := req.Name
	if name == "" {
		name = req.Ticker
	}
	return w.encode(payload{
		Ticker:  strings.ToUpper(strings.TrimSpace(req.Ticker)),
		Name:    name,
		Success: false,
		Error:   err.Error(),
	})
}

// Price formats p with two decimals, or four below 1.
func Price(p decimal.Decimal) string {
	if p.LessThan(decimal.NewFromInt(1)) {
		return p.StringFixed(4)
	}
	return p.StringFixed(2)
}

// Timestamp formats t as "YYYY-MM-DD HH:MM UTC".
func Timestamp(t time.Time) string {
	return t.UTC().Format(timeLayout) + " UTC"
}

func displayName(res search.Result) string {
	if res.Quote.Name != "" {
		return res.Quote.Name
	}
	return res.Quote.Symbol.String()
}

func (w *Writer) text(res search.Result) error {
	_, err := fmt.Fprintf(w.out, "🔎 Stock: %s (%s)\n💰 Current Price: $%s\n⏰ Last Updated: %s\n",
		displayName(res),
		res.Quote.Symbol,
		Price(res.Quote.Price),
		Timestamp(res.Quote.Timestamp),
	)
	return err
}

type payload struct {
	Ticker    string `json:"ticker"`
	Name      string `json:"name"`
	Price     string `json:"price,omitempty"`
	Currency  string `json:"currency,omitempty"`
	Exchange  string `json:"exchange,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Market    string `json:"market,omitempty"`
	Source    string `json:"source,omitempty"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

func (w *Writer) json(res search.Result) error {
	q := res.Quote
	return w.encode(payload{
		Ticker:    q.Symbol.String(),
		Name:      displayName(res),
		Price:     q.Price.String(),
		Currency:  q.Currency,
		Exchange:  q.Exchange,
		Timestamp: q.Timestamp.UTC().Format(time.RFC3339),
		Market:    res.Market.State,
		Source:    q.Source,
		Success:   true,
	})
}

func (w *Writer) encode(p payload) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(p)
}

func (w *Writer) table(res search.Result) error {
	q := res.Quote
	p := message.NewPrinter(language.English)

	price := p.Sprintf("%.2f", q.Price.InexactFloat64())
	if q.Price.LessThan(decimal.NewFromInt(1)) {
		price = p.Sprintf("%.4f", q.Price.InexactFloat64())
	}
	if q.Currency != "" && q.Currency != "USD" {
		price += " " + q.Currency
	} else {
		price = "$" + price
	}

	market := res.Market.State
	if market == "" {
		market = "-"
	}

	if _, err := io.WriteString(w.out, "Price Lookup\n"); err != nil {
		return err
	}
	table := tablewriter.NewWriter(w.out)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Name", "Ticker", "Current Price", "Last Updated", "Market"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})
	table.Append([]string{displayName(res), q.Symbol.String(), price, Timestamp(q.Timestamp), market})
	table.Render()
	return nil
}
