package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/crypto-analyser/internal/sentiment"
)

const defaultMaxPosts = 20

// Profile is the public text of one social account.
type Profile struct {
	Username string               `json:"username"`
	Name     string               `json:"name"`
	Bio      string               `json:"bio"`
	Posts    []sentiment.TextUnit `json:"posts"`
}

// Twitter scrapes public profile pages.
type Twitter struct {
	client   *Client
	baseURL  string
	maxPosts int
}

// NewTwitter creates a profile scraper rooted at baseURL. maxPosts <= 0
// uses the default of 20.
func NewTwitter(client *Client, baseURL string, maxPosts int) *Twitter {
	if maxPosts <= 0 {
		maxPosts = defaultMaxPosts
	}
	return &Twitter{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		maxPosts: maxPosts,
	}
}

// FetchProfile loads the profile page of username. When the profile page
// cannot be read the live search page for the user's posts is tried
// instead. A profile with neither bio nor posts is ErrNoContent.
func (t *Twitter) FetchProfile(ctx context.Context, username string) (*Profile, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return nil, fmt.Errorf("empty username")
	}

	profile, err := t.fetchProfilePage(ctx, username)
	if err == nil {
		return profile, nil
	}

	t.client.log.Infow("profile page unavailable, trying search", "username", username, "error", err)
	profile, searchErr := t.fetchSearchPage(ctx, username)
	if searchErr != nil {
		return nil, fmt.Errorf("failed to fetch profile %s: %w", username, errors.Join(err, searchErr))
	}
	return profile, nil
}

func (t *Twitter) fetchProfilePage(ctx context.Context, username string) (*Profile, error) {
	doc, err := t.client.GetDocument(ctx, "profile", t.baseURL+"/"+url.PathEscape(username))
	if err != nil {
		return nil, err
	}

	profile := &Profile{
		Username: username,
		Name:     displayName(doc.Find("title").First().Text()),
		Bio:      strings.TrimSpace(doc.Find(`div[data-testid="UserDescription"]`).First().Text()),
		Posts:    t.parsePosts(doc),
	}

	// Some accounts only expose a bio; treat it as the sole post.
	if len(profile.Posts) == 0 && profile.Bio != "" {
		profile.Posts = []sentiment.TextUnit{{Text: profile.Bio}}
	}
	if len(profile.Posts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, username)
	}

	return profile, nil
}

func (t *Twitter) fetchSearchPage(ctx context.Context, username string) (*Profile, error) {
	q := url.Values{}
	q.Set("q", "from:"+username)
	q.Set("f", "live")

	doc, err := t.client.GetDocument(ctx, "search", t.baseURL+"/search?"+q.Encode())
	if err != nil {
		return nil, err
	}

	posts := t.parsePosts(doc)
	if len(posts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoContent, username)
	}

	return &Profile{Username: username, Posts: posts}, nil
}

func (t *Twitter) parsePosts(doc *goquery.Document) []sentiment.TextUnit {
	var posts []sentiment.TextUnit

	doc.Find(`article[data-testid="tweet"]`).EachWithBreak(func(i int, article *goquery.Selection) bool {
		text := strings.TrimSpace(article.Find(`div[data-testid="tweetText"]`).First().Text())
		if text == "" {
			return true
		}

		post := sentiment.TextUnit{Text: text}
		if ts, ok := article.Find("time[datetime]").First().Attr("datetime"); ok {
			post.Timestamp = ts
		}
		posts = append(posts, post)

		return len(posts) < t.maxPosts
	})

	return posts
}

// displayName extracts "Name" from titles like "Name (@handle) / X".
func displayName(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.Index(title, " (@"); i >= 0 {
		return strings.TrimSpace(title[:i])
	}
	return ""
}
