// Package scraper fetches catalog listings and social profiles over HTTP.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/user/crypto-analyser/internal/metrics"
	"github.com/user/crypto-analyser/pkg/logger"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	// ErrBadStatus is returned when a page answers with a non-200 status.
	ErrBadStatus = errors.New("unexpected status")
	// ErrRateLimited is returned when retries on 429 are exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrNoContent is returned when a profile yields no usable text.
	ErrNoContent = errors.New("no content")
)

// Options configures a Client.
type Options struct {
	Timeout      time.Duration
	Delay        time.Duration // minimum spacing between requests
	MaxRetries   int
	RetryBackoff time.Duration
	UserAgent    string
}

// Client fetches and parses HTML pages politely: requests are spaced by
// a rate limiter and 429 answers are retried with linear backoff.
type Client struct {
	http       *http.Client
	limiter    *rate.Limiter
	userAgent  string
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

// NewClient creates a new scraping client.
func NewClient(opts Options, log *logger.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Client{
		http:       &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		userAgent:  opts.UserAgent,
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		log:        log.With("component", "scraper"),
	}
}

// GetDocument fetches url and parses it as HTML. target labels the
// request in metrics.
func (c *Client) GetDocument(ctx context.Context, target, url string) (*goquery.Document, error) {
	start := time.Now()
	doc, status, err := c.getDocument(ctx, url)
	metrics.RecordScrape(target, status, time.Since(start))
	if err != nil {
		c.log.Debugw("fetch failed", "target", target, "url", url, "error", err)
		return nil, err
	}
	return doc, nil
}

func (c *Client) getDocument(ctx context.Context, url string) (*goquery.Document, string, error) {
	var resp *http.Response

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "error", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "error", fmt.Errorf("failed to create request: %w", err)
		}

		// Set headers to mimic browser
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Cache-Control", "no-cache")

		resp, err = c.http.Do(req)
		if err != nil {
			return nil, "error", fmt.Errorf("failed to fetch page: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		if attempt+1 >= c.maxRetries {
			return nil, "rate_limited", fmt.Errorf("%w: %s", ErrRateLimited, url)
		}

		backoff := time.Duration(attempt+1) * c.backoff
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, "error", ctx.Err()
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "error", fmt.Errorf("%w %d for %s", ErrBadStatus, resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "error", fmt.Errorf("failed to parse HTML: %w", err)
	}

	return doc, "success", nil
}
