// Package resolver maps free-text company names to ticker symbols.
//
// Matching runs in stages and stops at the first stage that produces
// anything: exact key match, key prefix match, then Levenshtein distance
// within a threshold that grows with the query length. A stage whose best
// matches point at more than one symbol fails with errs.AmbiguousError. When
// no stage matches the resolver can fall back to a remote Searcher.
package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	log "github.com/sirupsen/logrus"

	"tradedesk/internal/directory"
	"tradedesk/internal/errs"
	"tradedesk/internal/provider"
)

const DefaultMaxDistance = 3

// Searcher looks a name up remotely. The Yahoo adapter implements it.
type Searcher interface {
	SearchSymbol(ctx context.Context, name string) (provider.Symbol, string, error)
}

// Stage names reported in Match.
const (
	StageExact  = "exact"
	StagePrefix = "prefix"
	StageFuzzy  = "fuzzy"
	StageRemote = "remote"
)

type Match struct {
	Symbol provider.Symbol
	Name   string
	Stage  string
}

type key struct {
	text   string
	symbol provider.Symbol
	name   string
	// ticker keys only match exactly
	ticker bool
}

type Resolver struct {
	keys        []key
	maxDistance int
	remote      Searcher
}

type Option func(*Resolver)

// WithMaxDistance caps the edit distance accepted by the fuzzy stage.
func WithMaxDistance(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDistance = n
		}
	}
}

// WithRemote enables the remote fallback.
func WithRemote(s Searcher) Option {
	return func(r *Resolver) {
		r.remote = s
	}
}

// New indexes every entry of d by its normalized name, aliases and symbol.
// Symbols take part in the exact stage only.
func New(d *directory.Directory, opts ...Option) *Resolver {
	r := &Resolver{maxDistance: DefaultMaxDistance}
	for _, opt := range opts {
		opt(r)
	}

	for _, e := range d.Entries() {
		texts := make([]string, 0, len(e.Aliases)+1)
		texts = append(texts, e.Name)
		texts = append(texts, e.Aliases...)

		seen := make(map[string]bool, len(texts)+1)
		for _, t := range texts {
			n := Normalize(t)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			r.keys = append(r.keys, key{text: n, symbol: e.Symbol, name: e.Name})
		}
		if n := Normalize(e.Symbol.String()); n != "" && !seen[n] {
			r.keys = append(r.keys, key{text: n, symbol: e.Symbol, name: e.Name, ticker: true})
		}
	}
	return r
}

// Resolve returns the single best match for name.
func (r *Resolver) Resolve(ctx context.Context, name string) (Match, error) {
	m, err := r.resolveLocal(name)
	if err == nil {
		log.WithFields(log.Fields{"query": name, "symbol": m.Symbol, "stage": m.Stage}).Debug("name resolved")
		return m, nil
	}

	var nf *errs.NotFoundError
	if r.remote == nil || !errors.As(err, &nf) {
		return Match{}, err
	}

	log.WithField("query", name).Debug("no local match, trying remote search")
	sym, display, err := r.remote.SearchSymbol(ctx, strings.TrimSpace(name))
	if err != nil {
		return Match{}, err
	}
	return Match{Symbol: sym, Name: display, Stage: StageRemote}, nil
}

func (r *Resolver) resolveLocal(name string) (Match, error) {
	q := Normalize(name)
	if q == "" {
		return Match{}, &errs.NotFoundError{Kind: "name", Query: name}
	}

	var exact []key
	for _, k := range r.keys {
		if k.text == q {
			exact = append(exact, k)
		}
	}
	if len(exact) > 0 {
		return pick(name, exact, StageExact)
	}

	if utf8.RuneCountInString(q) >= 2 {
		var prefix []key
		for _, k := range r.keys {
			if !k.ticker && strings.HasPrefix(k.text, q) {
				prefix = append(prefix, k)
			}
		}
		if len(prefix) > 0 {
			return pick(name, prefix, StagePrefix)
		}
	}

	threshold := r.threshold(q)
	best := threshold + 1
	var fuzzy []key
	for _, k := range r.keys {
		if k.ticker {
			continue
		}
		d := levenshtein.ComputeDistance(q, k.text)
		switch {
		case d < best:
			best = d
			fuzzy = append(fuzzy[:0], k)
		case d == best:
			fuzzy = append(fuzzy, k)
		}
	}
	if best <= threshold && len(fuzzy) > 0 {
		return pick(name, fuzzy, StageFuzzy)
	}

	return Match{}, &errs.NotFoundError{Kind: "name", Query: name}
}

// threshold allows one edit below five runes and at least two from five
// up, so a swapped pair of letters in a word like "tesal" still matches.
func (r *Resolver) threshold(q string) int {
	n := utf8.RuneCountInString(q)
	t := n / 4
	switch {
	case n >= 5 && t < 2:
		t = 2
	case t < 1:
		t = 1
	}
	if t > r.maxDistance {
		t = r.maxDistance
	}
	return t
}

// pick collapses keys to distinct symbols. One symbol wins; more is ambiguous.
func pick(query string, keys []key, stage string) (Match, error) {
	bySymbol := make(map[provider.Symbol]key, len(keys))
	for _, k := range keys {
		if _, ok := bySymbol[k.symbol]; !ok {
			bySymbol[k.symbol] = k
		}
	}
	if len(bySymbol) == 1 {
		k := keys[0]
		return Match{Symbol: k.symbol, Name: k.name, Stage: stage}, nil
	}

	candidates := make([]errs.Candidate, 0, len(bySymbol))
	for sym, k := range bySymbol {
		candidates = append(candidates, errs.Candidate{Symbol: sym.String(), Name: k.name})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Symbol < candidates[j].Symbol })
	return Match{}, &errs.AmbiguousError{Query: query, Candidates: candidates}
}
