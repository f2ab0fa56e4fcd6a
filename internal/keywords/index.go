// Package keywords maps free-text coin names and tickers to canonical
// cryptocurrency symbols.
package keywords

import (
	"sort"
	"strings"
	"unicode"
)

// Entry is one row of a cryptocurrency catalog.
type Entry struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Rank   int    `json:"rank"`
}

// Collision records a keyword that was claimed by more than one symbol.
// The later symbol wins.
type Collision struct {
	Keyword  string `json:"keyword"`
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

// Index is a read-only mapping from lowercase keyword to symbol.
type Index struct {
	symbols    map[string]string
	keywords   []string
	bySymbol   map[string][]string
	collisions []Collision
}

// Build creates an index from a catalog. An empty catalog yields the
// built-in table. Entries without a name or symbol are skipped.
// When two entries claim the same keyword the later entry wins and the
// overwrite is reported by Collisions.
func Build(catalog []Entry) *Index {
	if len(catalog) == 0 {
		catalog = builtinCatalog
	}

	idx := &Index{symbols: make(map[string]string)}
	for _, e := range catalog {
		name := strings.TrimSpace(e.Name)
		symbol := strings.TrimSpace(e.Symbol)
		if name == "" || symbol == "" {
			continue
		}
		idx.register(strings.ToLower(symbol), symbol)
		idx.register(strings.ToLower(firstToken(name)), symbol)
	}

	idx.keywords = make([]string, 0, len(idx.symbols))
	idx.bySymbol = make(map[string][]string)
	for kw, sym := range idx.symbols {
		idx.keywords = append(idx.keywords, kw)
		idx.bySymbol[sym] = append(idx.bySymbol[sym], kw)
	}
	sort.Strings(idx.keywords)
	for _, kws := range idx.bySymbol {
		sort.Strings(kws)
	}

	return idx
}

// Default returns an index over the built-in table.
func Default() *Index {
	return Build(nil)
}

func (idx *Index) register(keyword, symbol string) {
	if prev, ok := idx.symbols[keyword]; ok && prev != symbol {
		idx.collisions = append(idx.collisions, Collision{Keyword: keyword, Previous: prev, Current: symbol})
	}
	idx.symbols[keyword] = symbol
}

// firstToken returns the part of name before the first whitespace.
func firstToken(name string) string {
	if i := strings.IndexFunc(name, unicode.IsSpace); i >= 0 {
		return name[:i]
	}
	return name
}

// Lookup returns the symbol for a keyword, case-insensitively.
func (idx *Index) Lookup(keyword string) (string, bool) {
	sym, ok := idx.symbols[strings.ToLower(keyword)]
	return sym, ok
}

// Keywords returns all keywords in lexical order.
func (idx *Index) Keywords() []string {
	out := make([]string, len(idx.keywords))
	copy(out, idx.keywords)
	return out
}

// KeywordsFor returns the keywords that map to symbol.
func (idx *Index) KeywordsFor(symbol string) []string {
	kws := idx.bySymbol[symbol]
	out := make([]string, len(kws))
	copy(out, kws)
	return out
}

// Symbols returns every distinct symbol in lexical order.
func (idx *Index) Symbols() []string {
	out := make([]string, 0, len(idx.bySymbol))
	for sym := range idx.bySymbol {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Collisions returns keywords that were reassigned during Build.
func (idx *Index) Collisions() []Collision {
	out := make([]Collision, len(idx.collisions))
	copy(out, idx.collisions)
	return out
}

// Len returns the number of keywords.
func (idx *Index) Len() int {
	return len(idx.keywords)
}
