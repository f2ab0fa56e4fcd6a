// Package recommender orchestrates fetching, analysis, aggregation and
// persistence of crypto sentiment for social profiles and feeds.
package recommender

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/user/crypto-analyser/internal/analyzer"
	"github.com/user/crypto-analyser/internal/cache"
	"github.com/user/crypto-analyser/internal/keywords"
	"github.com/user/crypto-analyser/internal/llm"
	"github.com/user/crypto-analyser/internal/metrics"
	"github.com/user/crypto-analyser/internal/scraper"
	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/internal/storage"
	"github.com/user/crypto-analyser/pkg/logger"
)

var (
	// ErrStorageDisabled is returned by run history when no database is configured.
	ErrStorageDisabled = errors.New("storage is disabled")
	// ErrRunNotFound is returned when a stored run does not exist.
	ErrRunNotFound = errors.New("run not found")
	// ErrNoSubjects is returned when a multi-subject request names nobody.
	ErrNoSubjects = errors.New("no subjects given")
)

// ProfileFetcher loads a social profile.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (*scraper.Profile, error)
}

// FeedFetcher loads a feed as a subject.
type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*analyzer.FeedSubject, error)
}

// CatalogFetcher loads the ranked cryptocurrency catalog.
type CatalogFetcher interface {
	TopCryptocurrencies(ctx context.Context, limit int) ([]keywords.Entry, bool)
}

// InfluencerFinder discovers handles on a listing page.
type InfluencerFinder interface {
	Discover(ctx context.Context, url string) ([]scraper.Influencer, error)
}

// Store persists runs and catalog snapshots.
type Store interface {
	SaveRun(ctx context.Context, run *storage.AnalysisRun) error
	GetRun(ctx context.Context, id uint) (*storage.AnalysisRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]storage.AnalysisRun, error)
	UpsertCatalog(ctx context.Context, entries []keywords.Entry) error
}

// Cache holds fetched content between requests.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error
}

// Deps are the collaborators of an Engine. Store, Cache and LLM may be nil.
type Deps struct {
	Profiles    ProfileFetcher
	Feeds       FeedFetcher
	Catalog     CatalogFetcher
	Influencers InfluencerFinder
	Store       Store
	Cache       Cache
	LLM         llm.Provider
}

// Options tune the orchestration.
type Options struct {
	MaxConcurrency int
	UseLLM         bool
	CatalogLimit   int
	FeedSources    []string
	InfluencerURL  string
}

// Engine is the analysis orchestrator.
type Engine struct {
	core *sentiment.Engine
	deps Deps
	opts Options
	log  *logger.Logger
}

// NewEngine creates a new orchestrator around a core sentiment engine.
func NewEngine(core *sentiment.Engine, deps Deps, opts Options, log *logger.Logger) *Engine {
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.CatalogLimit <= 0 {
		opts.CatalogLimit = 100
	}
	return &Engine{
		core: core,
		deps: deps,
		opts: opts,
		log:  log.With("component", "recommender"),
	}
}

// CatalogResult is a fetched catalog.
type CatalogResult struct {
	Count            int              `json:"count"`
	Fallback         bool             `json:"fallback"`
	Cryptocurrencies []keywords.Entry `json:"cryptocurrencies"`
}

// TopCryptocurrencies returns up to limit ranked coins. Live results are
// cached and stored; the fallback catalog is neither.
func (e *Engine) TopCryptocurrencies(ctx context.Context, limit int) (*CatalogResult, error) {
	if limit <= 0 {
		limit = e.opts.CatalogLimit
	}

	key := cache.CatalogKey(limit)
	if e.deps.Cache != nil {
		var cached CatalogResult
		found, err := e.deps.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			e.log.Warnw("catalog cache read failed", "error", err)
		} else if found {
			return &cached, nil
		}
	}

	if e.deps.Catalog == nil {
		return nil, fmt.Errorf("catalog source is not configured")
	}

	entries, fallback := e.deps.Catalog.TopCryptocurrencies(ctx, limit)
	result := &CatalogResult{
		Count:            len(entries),
		Fallback:         fallback,
		Cryptocurrencies: entries,
	}
	if fallback {
		return result, nil
	}

	if e.deps.Cache != nil {
		if err := e.deps.Cache.SetJSON(ctx, key, result); err != nil {
			e.log.Warnw("catalog cache write failed", "error", err)
		}
	}
	if e.deps.Store != nil {
		if err := e.deps.Store.UpsertCatalog(ctx, entries); err != nil {
			e.log.Warnw("failed to store catalog", "error", err)
		}
	}

	return result, nil
}

// DiscoverInfluencers lists handles found on url, or on the configured
// listing when url is empty.
func (e *Engine) DiscoverInfluencers(ctx context.Context, url string) ([]scraper.Influencer, error) {
	if url == "" {
		url = e.opts.InfluencerURL
	}
	if e.deps.Influencers == nil {
		return nil, fmt.Errorf("influencer discovery is not configured")
	}
	return e.deps.Influencers.Discover(ctx, url)
}

// AnalyzeProfile fetches and analyses one profile. Fetch failures yield a
// NoData result rather than an error.
func (e *Engine) AnalyzeProfile(ctx context.Context, username string) sentiment.SubjectResult {
	username = normalizeUsername(username)

	profile, err := e.fetchProfile(ctx, username)
	if err != nil {
		e.log.Infow("profile unavailable", "username", username, "error", err)
		result := sentiment.NoData(username, err)
		e.record("profile", result)
		return result
	}

	result := e.core.AnalyzeSubject(username, profile.Bio, profile.Posts)
	e.attachOpinions(ctx, &result, profile.Posts)
	e.record("profile", result)
	return result
}

func (e *Engine) fetchProfile(ctx context.Context, username string) (*scraper.Profile, error) {
	if e.deps.Profiles == nil {
		return nil, fmt.Errorf("profile source is not configured")
	}

	key := cache.ProfileKey(username)
	if e.deps.Cache != nil {
		var cached scraper.Profile
		if found, err := e.deps.Cache.GetJSON(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	profile, err := e.deps.Profiles.FetchProfile(ctx, username)
	if err != nil {
		return nil, err
	}

	if e.deps.Cache != nil {
		if err := e.deps.Cache.SetJSON(ctx, key, profile); err != nil {
			e.log.Warnw("profile cache write failed", "username", username, "error", err)
		}
	}
	return profile, nil
}

// TextRequest is content supplied directly by the caller.
type TextRequest struct {
	SubjectID string               `json:"subject_id"`
	Bio       string               `json:"bio"`
	Posts     []sentiment.TextUnit `json:"posts"`
	Catalog   []keywords.Entry     `json:"catalog,omitempty"`
}

// AnalyzeText runs the core on caller-supplied text. A non-empty catalog
// replaces the default keyword index for this request only.
func (e *Engine) AnalyzeText(ctx context.Context, req TextRequest) sentiment.SubjectResult {
	core := e.core
	if len(req.Catalog) > 0 {
		core = sentiment.NewEngine(keywords.Build(req.Catalog), sentiment.DefaultLexicon())
	}

	subjectID := strings.TrimSpace(req.SubjectID)
	if subjectID == "" {
		subjectID = "text"
	}

	result := core.AnalyzeSubject(subjectID, req.Bio, req.Posts)
	e.attachOpinions(ctx, &result, req.Posts)
	e.record("text", result)
	return result
}

// RunReport is a stored run as served to clients.
type RunReport struct {
	ID   uint            `json:"id"`
	Kind storage.RunKind `json:"kind"`
	*sentiment.Summary
}

// Runs lists stored runs newest first.
func (e *Engine) Runs(ctx context.Context, limit, offset int) ([]storage.AnalysisRun, error) {
	if e.deps.Store == nil {
		return nil, ErrStorageDisabled
	}
	runs, err := e.deps.Store.ListRuns(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	if runs == nil {
		runs = []storage.AnalysisRun{}
	}
	return runs, nil
}

// Run loads one stored run in full.
func (e *Engine) Run(ctx context.Context, id uint) (*RunReport, error) {
	if e.deps.Store == nil {
		return nil, ErrStorageDisabled
	}
	run, err := e.deps.Store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load run %d: %w", id, err)
	}
	if run == nil {
		return nil, ErrRunNotFound
	}
	return &RunReport{ID: run.ID, Kind: run.Kind, Summary: run.Summary()}, nil
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// Health reports the state of the optional backing services as "ok",
// "disabled" or "error: <reason>".
func (e *Engine) Health(ctx context.Context) map[string]string {
	return map[string]string{
		"database": componentHealth(ctx, e.deps.Store),
		"cache":    componentHealth(ctx, e.deps.Cache),
	}
}

func componentHealth(ctx context.Context, dep any) string {
	if dep == nil {
		return "disabled"
	}
	hc, ok := dep.(healthChecker)
	if !ok {
		return "ok"
	}
	if err := hc.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}

// attachOpinions asks the LLM provider about every recommended symbol.
// Failures are logged and skipped; the keyword scores are never changed.
func (e *Engine) attachOpinions(ctx context.Context, result *sentiment.SubjectResult, posts []sentiment.TextUnit) {
	if !e.opts.UseLLM || e.deps.LLM == nil || !result.OK() || len(result.Recommendations) == 0 {
		return
	}

	texts := make([]string, 0, len(posts))
	for _, p := range posts {
		texts = append(texts, p.Text)
	}

	for _, rec := range result.Recommendations {
		resp, err := e.deps.LLM.AnalyzeSentiment(ctx, llm.SentimentRequest{Symbol: rec.Symbol, Posts: texts})
		if err != nil {
			e.log.Warnw("LLM opinion failed", "provider", e.deps.LLM.Name(), "symbol", rec.Symbol, "error", err)
			continue
		}
		result.Opinions = append(result.Opinions, llm.Opinion(e.deps.LLM.Name(), rec.Symbol, resp))
	}
}

func (e *Engine) record(kind string, result sentiment.SubjectResult) {
	recommended := make([]string, 0, len(result.Recommendations))
	for _, r := range result.Recommendations {
		recommended = append(recommended, r.Symbol)
	}
	metrics.RecordSubject(kind, result.OK(), result.MentionCount, recommended)
}

func normalizeUsername(username string) string {
	return strings.TrimPrefix(strings.TrimSpace(username), "@")
}
