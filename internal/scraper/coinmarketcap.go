package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/crypto-analyser/internal/keywords"
)

const rowsPerPage = 100

// MaxCatalogLimit bounds how many coins one listing request may ask for.
const MaxCatalogLimit = 5000

// symbolInName matches "Ethereum (ETH)" or "Bitcoin BTC".
var symbolInName = regexp.MustCompile(`\(([A-Z0-9]+)\)|\s([A-Z0-9]{2,10})$`)

// CoinMarketCap scrapes the ranked coin listing.
type CoinMarketCap struct {
	client  *Client
	baseURL string
}

// NewCoinMarketCap creates a listing scraper rooted at baseURL.
func NewCoinMarketCap(client *Client, baseURL string) *CoinMarketCap {
	return &CoinMarketCap{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// TopCryptocurrencies returns up to limit coins in listing order, limit
// being clamped to MaxCatalogLimit. Paging stops at the first page that
// fails or adds no coin. When nothing is parsed the static fallback
// catalog is returned and fallback is true.
func (s *CoinMarketCap) TopCryptocurrencies(ctx context.Context, limit int) (entries []keywords.Entry, fallback bool) {
	if limit <= 0 {
		limit = rowsPerPage
	}
	limit = min(limit, MaxCatalogLimit)
	pages := (limit + rowsPerPage - 1) / rowsPerPage

	catalog := newCatalogBuilder(limit)
	for page := 1; page <= pages && !catalog.full(); page++ {
		url := fmt.Sprintf("%s/?page=%d", s.baseURL, page)
		doc, err := s.client.GetDocument(ctx, "coinmarketcap", url)
		if err != nil {
			s.client.log.Warnw("listing page unavailable", "page", page, "error", err)
			break
		}
		if catalog.addRows(doc) == 0 {
			s.client.log.Debugw("listing page has no new coins", "page", page)
			break
		}
	}

	if len(catalog.entries) == 0 {
		s.client.log.Warnw("no coins parsed from listing, using fallback catalog")
		fb := keywords.FallbackCatalog()
		if len(fb) > limit {
			fb = fb[:limit]
		}
		return fb, true
	}

	return catalog.entries, false
}

type catalogBuilder struct {
	limit    int
	entries  []keywords.Entry
	position map[string]int
}

func newCatalogBuilder(limit int) *catalogBuilder {
	return &catalogBuilder{limit: limit, position: make(map[string]int)}
}

func (b *catalogBuilder) full() bool {
	return len(b.entries) >= b.limit
}

// addRows parses listing table rows. Rows without a recognisable symbol
// are skipped; a symbol seen twice keeps its first position. It returns
// the number of new symbols.
func (b *catalogBuilder) addRows(doc *goquery.Document) int {
	before := len(b.entries)
	doc.Find("table tbody tr").EachWithBreak(func(i int, row *goquery.Selection) bool {
		nameEl := row.Find(".cmc-link").First()
		if nameEl.Length() == 0 {
			return true
		}
		name := strings.TrimSpace(nameEl.Text())

		symbol := strings.TrimSpace(row.Find(".coin-item-symbol").First().Text())
		if symbol == "" {
			m := symbolInName.FindStringSubmatch(name)
			if m == nil {
				return true
			}
			symbol = m[1]
			if symbol == "" {
				symbol = m[2]
			}
		}
		if symbol != "" {
			// The symbol is often rendered inside the link text.
			name = strings.TrimSuffix(strings.TrimSpace(name), "("+symbol+")")
			name = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(name), symbol))
		}

		rank, err := strconv.Atoi(strings.TrimSpace(row.Find("td").First().Text()))
		if err != nil || rank <= 0 {
			rank = len(b.entries) + 1
		}

		entry := keywords.Entry{Name: name, Symbol: symbol, Rank: rank}
		if pos, ok := b.position[symbol]; ok {
			b.entries[pos] = entry
			return true
		}
		b.position[symbol] = len(b.entries)
		b.entries = append(b.entries, entry)

		return !b.full()
	})
	return len(b.entries) - before
}
