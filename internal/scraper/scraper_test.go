package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/crypto-analyser/pkg/logger"
)

func newTestClient() *Client {
	return NewClient(Options{
		Timeout:      2 * time.Second,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	}, logger.NewNop())
}

const listingPage = `<html><body><table><tbody>
<tr><td>1</td><td><a class="cmc-link">Bitcoin<span class="coin-item-symbol">BTC</span></a></td></tr>
<tr><td>2</td><td><a class="cmc-link">Ethereum (ETH)</a></td></tr>
<tr><td></td><td><a class="cmc-link">Solana SOL</a></td></tr>
<tr><td>4</td><td><a class="cmc-link">no symbol here</a></td></tr>
<tr><td>5</td><td>no link</td></tr>
</tbody></table></body></html>`

func TestCoinMarketCapParsesListing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	cmc := NewCoinMarketCap(newTestClient(), srv.URL)
	entries, fallback := cmc.TopCryptocurrencies(context.Background(), 10)

	assert.False(t, fallback)
	require.Len(t, entries, 3)
	assert.Equal(t, "BTC", entries[0].Symbol)
	assert.Equal(t, "Bitcoin", entries[0].Name)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "ETH", entries[1].Symbol)
	assert.Equal(t, "Ethereum", entries[1].Name)
	assert.Equal(t, "SOL", entries[2].Symbol)
	assert.Equal(t, "Solana", entries[2].Name)
	assert.Equal(t, 3, entries[2].Rank)
}

func TestCoinMarketCapRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	entries, fallback := NewCoinMarketCap(newTestClient(), srv.URL).TopCryptocurrencies(context.Background(), 2)
	assert.False(t, fallback)
	assert.Len(t, entries, 2)
}

func TestCoinMarketCapStopsAtExhaustedPage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		fmt.Fprint(w, listingPage)
	}))
	defer srv.Close()

	// page 2 repeats page 1, so paging ends there instead of walking all pages
	entries, fallback := NewCoinMarketCap(newTestClient(), srv.URL).TopCryptocurrencies(context.Background(), 1000)
	assert.False(t, fallback)
	assert.Len(t, entries, 3)
	assert.EqualValues(t, 2, atomic.LoadInt32(&requests))
}

func TestCoinMarketCapStopsAtFailedPage(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, fallback := NewCoinMarketCap(newTestClient(), srv.URL).TopCryptocurrencies(context.Background(), MaxCatalogLimit*10)
	assert.True(t, fallback)
	assert.EqualValues(t, 1, atomic.LoadInt32(&requests))
}

func TestCoinMarketCapFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	entries, fallback := NewCoinMarketCap(newTestClient(), srv.URL).TopCryptocurrencies(context.Background(), 5)
	assert.True(t, fallback)
	require.Len(t, entries, 5)
	assert.Equal(t, "BTC", entries[0].Symbol)
}

func TestClientRetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "<html><title>ok</title></html>")
	}))
	defer srv.Close()

	doc, err := newTestClient().GetDocument(context.Background(), "test", srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Find("title").Text())
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestClientGivesUpOnRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient().GetDocument(context.Background(), "test", srv.URL)
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestClientBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient().GetDocument(context.Background(), "test", srv.URL)
	assert.ErrorIs(t, err, ErrBadStatus)
}

func tweet(text, ts string) string {
	return fmt.Sprintf(`<article data-testid="tweet"><time datetime="%s"></time><div data-testid="tweetText">%s</div></article>`, ts, text)
}

func TestTwitterFetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/satoshi", r.URL.Path)
		fmt.Fprintf(w, `<html><head><title>Satoshi (@satoshi) / X</title></head><body>
<div data-testid="UserDescription">BTC only</div>%s%s%s</body></html>`,
			tweet("Bitcoin to the moon", "2024-01-02T03:04:05.000Z"),
			tweet("", ""),
			tweet("eth is a bubble", "2024-01-03T03:04:05.000Z"))
	}))
	defer srv.Close()

	profile, err := NewTwitter(newTestClient(), srv.URL, 0).FetchProfile(context.Background(), "@satoshi")
	require.NoError(t, err)
	assert.Equal(t, "satoshi", profile.Username)
	assert.Equal(t, "Satoshi", profile.Name)
	assert.Equal(t, "BTC only", profile.Bio)
	require.Len(t, profile.Posts, 2)
	assert.Equal(t, "Bitcoin to the moon", profile.Posts[0].Text)
	assert.Equal(t, "2024-01-02T03:04:05.000Z", profile.Posts[0].Timestamp)
}

func TestTwitterMaxPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b strings.Builder
		for i := 0; i < 30; i++ {
			b.WriteString(tweet(fmt.Sprintf("post %d", i), ""))
		}
		fmt.Fprintf(w, "<html><body>%s</body></html>", b.String())
	}))
	defer srv.Close()

	profile, err := NewTwitter(newTestClient(), srv.URL, 0).FetchProfile(context.Background(), "busy")
	require.NoError(t, err)
	assert.Len(t, profile.Posts, 20)
}

func TestTwitterBioOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div data-testid="UserDescription">HODL DOGE</div></body></html>`)
	}))
	defer srv.Close()

	profile, err := NewTwitter(newTestClient(), srv.URL, 0).FetchProfile(context.Background(), "quiet")
	require.NoError(t, err)
	require.Len(t, profile.Posts, 1)
	assert.Equal(t, "HODL DOGE", profile.Posts[0].Text)
}

func TestTwitterSearchFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			assert.Equal(t, "from:hidden", r.URL.Query().Get("q"))
			assert.Equal(t, "live", r.URL.Query().Get("f"))
			fmt.Fprintf(w, "<html><body>%s</body></html>", tweet("sol pump", ""))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	profile, err := NewTwitter(newTestClient(), srv.URL, 0).FetchProfile(context.Background(), "hidden")
	require.NoError(t, err)
	require.Len(t, profile.Posts, 1)
	assert.Equal(t, "sol pump", profile.Posts[0].Text)
}

func TestTwitterNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer srv.Close()

	_, err := NewTwitter(newTestClient(), srv.URL, 0).FetchProfile(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNoContent)
}

func TestExtractInfluencers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<p>Follow us @Twitter and @YouTube</p>
<section><h2>1. @VitalikButerin</h2><p>Ethereum founder</p></section>
<article>@cz_binance and again @VitalikButerin</article>
<div>contact: @instagram</div>
</body></html>`)
	}))
	defer srv.Close()

	got, err := NewInfluencers(newTestClient()).Discover(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []Influencer{
		{Name: "Influencer 1", Handle: "VitalikButerin"},
		{Name: "Influencer 2", Handle: "cz_binance"},
	}, got)
}

func TestDiscoverInfluencersFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewInfluencers(newTestClient()).Discover(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrBadStatus)
}
