// Package directory holds the company reference table the resolver matches
// names against. A built-in table ships with the binary; a user file in CSV,
// YAML or SQLite form can extend or override it.
package directory

import (
	"bytes"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	"tradedesk/internal/provider"
)

//go:embed companies.csv
var builtin []byte

type Entry struct {
	Symbol   provider.Symbol
	Name     string
	Exchange string
	Aliases  []string
}

// Directory is read-only once built.
type Directory struct {
	entries  []Entry
	bySymbol map[provider.Symbol]int
}

// csvRow is the on-disk CSV layout. Aliases are separated by "|".
type csvRow struct {
	Symbol   string `csv:"symbol"`
	Name     string `csv:"name"`
	Exchange string `csv:"exchange"`
	Aliases  string `csv:"aliases"`
}

type yamlFile struct {
	Companies []struct {
		Symbol   string   `yaml:"symbol"`
		Name     string   `yaml:"name"`
		Exchange string   `yaml:"exchange"`
		Aliases  []string `yaml:"aliases"`
	} `yaml:"companies"`
}

// New validates entries and builds a directory. The same symbol listed twice
// on one exchange is an error.
func New(entries []Entry) (*Directory, error) {
	d := &Directory{bySymbol: make(map[provider.Symbol]int, len(entries))}
	seen := make(map[string]struct{}, len(entries))

	for i, e := range entries {
		if e.Symbol == "" {
			return nil, fmt.Errorf("entry %d: missing symbol", i+1)
		}
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("entry %d (%s): missing name", i+1, e.Symbol)
		}
		key := strings.ToUpper(e.Exchange) + "|" + e.Symbol.String()
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate symbol %s on exchange %q", e.Symbol, e.Exchange)
		}
		seen[key] = struct{}{}

		if _, ok := d.bySymbol[e.Symbol]; !ok {
			d.bySymbol[e.Symbol] = len(d.entries)
		}
		d.entries = append(d.entries, e)
	}
	return d, nil
}

// Builtin returns the table embedded in the binary.
func Builtin() (*Directory, error) {
	entries, err := parseCSV(bytes.NewReader(builtin))
	if err != nil {
		return nil, fmt.Errorf("built-in directory: %w", err)
	}
	return New(entries)
}

// Load returns the built-in table merged with the file at path. Entries from
// the file replace built-in entries with the same symbol and exchange. An
// empty path yields the built-in table alone.
func Load(path string) (*Directory, error) {
	base, err := parseCSV(bytes.NewReader(builtin))
	if err != nil {
		return nil, fmt.Errorf("built-in directory: %w", err)
	}
	if path == "" {
		return New(base)
	}

	extra, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	// validate the user file on its own first so duplicates inside it are reported
	if _, err := New(extra); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	override := make(map[string]struct{}, len(extra))
	for _, e := range extra {
		override[strings.ToUpper(e.Exchange)+"|"+e.Symbol.String()] = struct{}{}
	}
	merged := make([]Entry, 0, len(base)+len(extra))
	merged = append(merged, extra...)
	for _, e := range base {
		if _, ok := override[strings.ToUpper(e.Exchange)+"|"+e.Symbol.String()]; ok {
			continue
		}
		merged = append(merged, e)
	}

	log.WithFields(log.Fields{
		"path":    path,
		"entries": len(extra),
		"total":   len(merged),
	}).Debug("company directory loaded")

	return New(merged)
}

// ReadFile parses a directory file, choosing the format by extension.
func ReadFile(path string) ([]Entry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening directory: %w", err)
		}
		defer f.Close()
		entries, err := parseCSV(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return entries, nil
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading directory: %w", err)
		}
		entries, err := parseYAML(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return entries, nil
	case ".db", ".sqlite", ".sqlite3":
		return readSQLite(path)
	default:
		return nil, fmt.Errorf("unsupported directory format %q", filepath.Ext(path))
	}
}

func parseCSV(r io.Reader) ([]Entry, error) {
	var rows []csvRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}
	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		e, err := newEntry(row.Symbol, row.Name, row.Exchange, strings.Split(row.Aliases, "|"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func parseYAML(b []byte) ([]Entry, error) {
	var f yamlFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parsing yaml: %w", err)
	}
	entries := make([]Entry, 0, len(f.Companies))
	for i, c := range f.Companies {
		e, err := newEntry(c.Symbol, c.Name, c.Exchange, c.Aliases)
		if err != nil {
			return nil, fmt.Errorf("company %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func readSQLite(path string) ([]Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening directory: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT symbol, name, COALESCE(exchange, ''), COALESCE(aliases, '') FROM companies`)
	if err != nil {
		return nil, fmt.Errorf("querying companies: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var symbol, name, exchange, aliases string
		if err := rows.Scan(&symbol, &name, &exchange, &aliases); err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		e, err := newEntry(symbol, name, exchange, strings.Split(aliases, "|"))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading companies: %w", err)
	}
	return entries, nil
}

func newEntry(symbol, name, exchange string, aliases []string) (Entry, error) {
	sym, err := provider.ParseSymbol(symbol)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		Symbol:   sym,
		Name:     strings.TrimSpace(name),
		Exchange: strings.TrimSpace(exchange),
	}
	for _, a := range aliases {
		if a = strings.TrimSpace(a); a != "" {
			e.Aliases = append(e.Aliases, a)
		}
	}
	return e, nil
}

// Entries returns a copy of all entries in load order.
func (d *Directory) Entries() []Entry {
	out := make([]Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

func (d *Directory) Len() int { return len(d.entries) }

// Lookup returns the first entry for symbol.
func (d *Directory) Lookup(symbol provider.Symbol) (Entry, bool) {
	i, ok := d.bySymbol[symbol]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}
