// Package analyzer turns non-social content sources into analysable subjects.
package analyzer

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/user/crypto-analyser/internal/metrics"
	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/pkg/logger"
)

const defaultMaxItems = 50

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// FeedSubject is a feed viewed as one subject: its description plays the
// role of a bio and its items are the posts.
type FeedSubject struct {
	Title string
	URL   string
	Bio   string
	Posts []sentiment.TextUnit
}

// FeedSource fetches RSS and Atom feeds.
type FeedSource struct {
	parser   *gofeed.Parser
	maxItems int
	log      *logger.Logger
}

// NewFeedSource creates a feed source. maxItems <= 0 keeps the newest 50.
func NewFeedSource(userAgent string, maxItems int, log *logger.Logger) *FeedSource {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	parser := gofeed.NewParser()
	if userAgent != "" {
		parser.UserAgent = userAgent
	}
	return &FeedSource{
		parser:   parser,
		maxItems: maxItems,
		log:      log.With("component", "feeds"),
	}
}

// Fetch downloads and converts a single feed.
func (f *FeedSource) Fetch(ctx context.Context, feedURL string) (*FeedSubject, error) {
	start := time.Now()
	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		metrics.RecordScrape("feed", "error", time.Since(start))
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	metrics.RecordScrape("feed", "success", time.Since(start))

	subject := f.subjectFromFeed(feedURL, feed)
	f.log.Debugw("feed fetched", "url", feedURL, "items", len(subject.Posts))
	return subject, nil
}

// ParseString converts an already downloaded feed document.
func (f *FeedSource) ParseString(feedURL, body string) (*FeedSubject, error) {
	feed, err := f.parser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	return f.subjectFromFeed(feedURL, feed), nil
}

func (f *FeedSource) subjectFromFeed(feedURL string, feed *gofeed.Feed) *FeedSubject {
	subject := &FeedSubject{
		Title: feedTitle(feedURL, feed.Title),
		URL:   feedURL,
		Bio:   stripHTML(feed.Description),
	}

	for _, item := range feed.Items {
		if len(subject.Posts) >= f.maxItems {
			break
		}

		text := strings.TrimSpace(stripHTML(item.Title) + " " + stripHTML(item.Description))
		if text == "" {
			continue
		}

		post := sentiment.TextUnit{Text: text}
		if item.PublishedParsed != nil {
			post.Timestamp = item.PublishedParsed.UTC().Format(time.RFC3339)
		} else if item.UpdatedParsed != nil {
			post.Timestamp = item.UpdatedParsed.UTC().Format(time.RFC3339)
		}
		subject.Posts = append(subject.Posts, post)
	}

	return subject
}

// feedTitle names a feed by its title, falling back to the URL host.
func feedTitle(feedURL, title string) string {
	if title = strings.TrimSpace(title); title != "" {
		return title
	}
	if u, err := url.Parse(feedURL); err == nil && u.Host != "" {
		return u.Host
	}
	return feedURL
}

// stripHTML removes HTML tags and entities from text.
func stripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
