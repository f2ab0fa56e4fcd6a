package scraper

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var handlePattern = regexp.MustCompile(`@([A-Za-z0-9_]+)`)

// platformHandles are site accounts that appear in share links rather
// than people.
var platformHandles = map[string]bool{
	"twitter":   true,
	"instagram": true,
	"facebook":  true,
	"youtube":   true,
}

// Influencer is a handle discovered on a listing page.
type Influencer struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// Influencers discovers social handles on listing pages.
type Influencers struct {
	client *Client
}

// NewInfluencers creates a new influencer discovery scraper.
func NewInfluencers(client *Client) *Influencers {
	return &Influencers{client: client}
}

// Discover fetches url and returns the handles mentioned on it.
func (s *Influencers) Discover(ctx context.Context, url string) ([]Influencer, error) {
	doc, err := s.client.GetDocument(ctx, "influencers", url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch influencer list: %w", err)
	}
	return ExtractInfluencers(doc), nil
}

// ExtractInfluencers collects @handles from the page text and then from
// each div, section and article. Handles keep their first-seen order and
// are numbered in that order.
func ExtractInfluencers(doc *goquery.Document) []Influencer {
	var handles []string
	seen := make(map[string]bool)

	collect := func(text string) {
		for _, m := range handlePattern.FindAllStringSubmatch(text, -1) {
			handle := m[1]
			if platformHandles[strings.ToLower(handle)] || seen[handle] {
				continue
			}
			seen[handle] = true
			handles = append(handles, handle)
		}
	}

	collect(doc.Text())
	doc.Find("div, section, article").Each(func(i int, s *goquery.Selection) {
		if strings.Contains(s.Text(), "@") {
			collect(s.Text())
		}
	})

	influencers := make([]Influencer, len(handles))
	for i, h := range handles {
		influencers[i] = Influencer{Name: fmt.Sprintf("Influencer %d", i+1), Handle: h}
	}
	return influencers
}
