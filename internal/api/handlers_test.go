package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/crypto-analyser/internal/keywords"
	"github.com/user/crypto-analyser/internal/recommender"
	"github.com/user/crypto-analyser/internal/scraper"
	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/internal/storage"
	"github.com/user/crypto-analyser/pkg/config"
	"github.com/user/crypto-analyser/pkg/logger"
)

type fakeAnalyser struct {
	usernames []string
	delay     time.Duration
	feedURLs  []string
	text      recommender.TextRequest
	runsErr   error
	runErr    error
	discover  error
	health    map[string]string
}

func (f *fakeAnalyser) Health(context.Context) map[string]string {
	return f.health
}

func (f *fakeAnalyser) TopCryptocurrencies(_ context.Context, limit int) (*recommender.CatalogResult, error) {
	entries := keywords.FallbackCatalog()[:limit]
	return &recommender.CatalogResult{Count: len(entries), Fallback: true, Cryptocurrencies: entries}, nil
}

func (f *fakeAnalyser) DiscoverInfluencers(_ context.Context, url string) ([]scraper.Influencer, error) {
	if f.discover != nil {
		return nil, f.discover
	}
	return []scraper.Influencer{{Name: "Influencer 1", Handle: "alice"}}, nil
}

func (f *fakeAnalyser) AnalyzeProfile(_ context.Context, username string) sentiment.SubjectResult {
	return sentiment.NoData(username, errors.New("unreachable"))
}

func (f *fakeAnalyser) AnalyzeProfiles(_ context.Context, usernames []string, delay time.Duration) (*sentiment.Summary, error) {
	f.usernames = usernames
	f.delay = delay
	if len(usernames) == 0 {
		return nil, recommender.ErrNoSubjects
	}
	return &sentiment.Summary{SubjectsAttempted: len(usernames)}, nil
}

func (f *fakeAnalyser) AnalyzeFeeds(_ context.Context, urls []string) (*sentiment.Summary, error) {
	f.feedURLs = urls
	return &sentiment.Summary{SubjectsAttempted: len(urls)}, nil
}

func (f *fakeAnalyser) AnalyzeText(_ context.Context, req recommender.TextRequest) sentiment.SubjectResult {
	f.text = req
	return sentiment.SubjectResult{SubjectID: "text", PostCount: len(req.Posts)}
}

func (f *fakeAnalyser) Runs(_ context.Context, limit, offset int) ([]storage.AnalysisRun, error) {
	if f.runsErr != nil {
		return nil, f.runsErr
	}
	return []storage.AnalysisRun{}, nil
}

func (f *fakeAnalyser) Run(_ context.Context, id uint) (*recommender.RunReport, error) {
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &recommender.RunReport{ID: id, Kind: storage.RunFeeds, Summary: &sentiment.Summary{}}, nil
}

func newTestServer(t *testing.T, a Analyser) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.Analysis.DefaultDelay = 2 * time.Second
	return NewServer(a, cfg, logger.NewNop())
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)

	fa := &fakeAnalyser{health: map[string]string{"database": "ok", "cache": "error: connection refused"}}
	w = do(newTestServer(t, fa), http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "ok", resp.Components["database"])
}

func TestCORSPreflight(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodOptions, "/api/v1/analyse-text", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestTopCryptos(t *testing.T) {
	s := newTestServer(t, &fakeAnalyser{})

	w := do(s, http.MethodGet, "/api/v1/cryptos?limit=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp recommender.CatalogResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, "BTC", resp.Cryptocurrencies[0].Symbol)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/cryptos?limit=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/cryptos?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/cryptos?limit=5001", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/cryptos?limit=100000000", "").Code)
}

func TestInfluencers(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodGet, "/api/v1/influencers", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"handle":"alice"`)

	w = do(newTestServer(t, &fakeAnalyser{discover: errors.New("down")}), http.MethodGet, "/api/v1/influencers", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestAnalyseProfileNoDataIsOK(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodGet, "/api/v1/analyse/ghost", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp sentiment.SubjectResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ghost", resp.SubjectID)
	assert.NotEmpty(t, resp.Error)
}

func TestAnalyseMultipleQuery(t *testing.T) {
	fa := &fakeAnalyser{}
	w := do(newTestServer(t, fa), http.MethodPost, "/api/v1/analyse-multiple?usernames=alice,bob&usernames=carol&delay=0.5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"alice", "bob", "carol"}, fa.usernames)
	assert.Equal(t, 500*time.Millisecond, fa.delay)
}

func TestAnalyseMultipleBody(t *testing.T) {
	fa := &fakeAnalyser{}
	w := do(newTestServer(t, fa), http.MethodPost, "/api/v1/analyse-multiple", `{"usernames":["alice"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"alice"}, fa.usernames)
	assert.Equal(t, 2*time.Second, fa.delay)

	w = do(newTestServer(t, fa), http.MethodPost, "/api/v1/analyse-multiple", `{"usernames":["bob"],"delay":0}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Duration(0), fa.delay)
}

func TestAnalyseMultipleChunkedBody(t *testing.T) {
	fa := &fakeAnalyser{}
	s := newTestServer(t, fa)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyse-multiple", strings.NewReader(`{"usernames":["alice","bob"],"delay":1}`))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"alice", "bob"}, fa.usernames)
	assert.Equal(t, time.Second, fa.delay)

	// an empty chunked body is the same as no body
	req = httptest.NewRequest(http.MethodPost, "/api/v1/analyse-feeds", strings.NewReader(""))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnalyseMultipleErrors(t *testing.T) {
	s := newTestServer(t, &fakeAnalyser{})

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/analyse-multiple", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/analyse-multiple?usernames=a&delay=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/analyse-multiple?usernames=a&delay=soon", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/analyse-multiple", `{"usernames":`).Code)
}

func TestAnalyseText(t *testing.T) {
	fa := &fakeAnalyser{}
	s := newTestServer(t, fa)

	w := do(s, http.MethodPost, "/api/v1/analyse-text", `{"bio":"btc","posts":[{"text":"btc moon"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "btc", fa.text.Bio)
	require.Len(t, fa.text.Posts, 1)
	assert.Equal(t, "btc moon", fa.text.Posts[0].Text)

	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/analyse-text", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodPost, "/api/v1/analyse-text", `nope`).Code)
}

func TestAnalyseFeeds(t *testing.T) {
	fa := &fakeAnalyser{}
	s := newTestServer(t, fa)

	w := do(s, http.MethodPost, "/api/v1/analyse-feeds", `{"urls":["https://a.example/rss"]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"https://a.example/rss"}, fa.feedURLs)

	w = do(s, http.MethodPost, "/api/v1/analyse-feeds", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, fa.feedURLs)
}

func TestRuns(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodGet, "/api/v1/runs?limit=500", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limit":100`)

	w = do(newTestServer(t, &fakeAnalyser{runsErr: recommender.ErrStorageDisabled}), http.MethodGet, "/api/v1/runs", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetRun(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodGet, "/api/v1/runs/7", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":7`)

	s := newTestServer(t, &fakeAnalyser{runErr: recommender.ErrRunNotFound})
	assert.Equal(t, http.StatusNotFound, do(s, http.MethodGet, "/api/v1/runs/7", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(s, http.MethodGet, "/api/v1/runs/x", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	w := do(newTestServer(t, &fakeAnalyser{}), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " ", "c,"}))
	assert.Nil(t, splitList(nil))
}
