package recommender

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/user/crypto-analyser/internal/metrics"
	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/internal/storage"
)

// AnalyzeProfiles analyses every username and aggregates the results.
// Subjects run in parallel, bounded by MaxConcurrency, and start at least
// delay apart. Results keep request order; a username repeated in any
// letter case is analysed once.
func (e *Engine) AnalyzeProfiles(ctx context.Context, usernames []string, delay time.Duration) (*sentiment.Summary, error) {
	subjects := uniqueSubjects(usernames, normalizeUsername, strings.ToLower)
	if len(subjects) == 0 {
		return nil, ErrNoSubjects
	}

	e.log.Infow("analysing profiles", "count", len(subjects), "delay", delay)
	return e.runBatch(ctx, storage.RunInfluencers, subjects, delay, e.AnalyzeProfile), nil
}

// AnalyzeFeeds analyses each feed as one subject identified by its URL.
// An empty list uses the configured feeds. Repeated URLs are analysed once.
func (e *Engine) AnalyzeFeeds(ctx context.Context, urls []string) (*sentiment.Summary, error) {
	if len(urls) == 0 {
		urls = e.opts.FeedSources
	}
	urls = uniqueSubjects(urls, strings.TrimSpace, func(s string) string { return s })
	if len(urls) == 0 {
		return nil, ErrNoSubjects
	}

	e.log.Infow("analysing feeds", "count", len(urls))
	return e.runBatch(ctx, storage.RunFeeds, urls, 0, e.analyzeFeed), nil
}

func (e *Engine) analyzeFeed(ctx context.Context, url string) sentiment.SubjectResult {
	if e.deps.Feeds == nil {
		return sentiment.NoData(url, nil)
	}

	feed, err := e.deps.Feeds.Fetch(ctx, url)
	if err != nil {
		e.log.Infow("feed unavailable", "url", url, "error", err)
		result := sentiment.NoData(url, err)
		e.record("feed", result)
		return result
	}

	result := e.core.AnalyzeSubject(url, feed.Bio, feed.Posts)
	e.attachOpinions(ctx, &result, feed.Posts)
	e.record("feed", result)
	return result
}

// runBatch fans out one task per subject and joins them all before
// aggregating, so the summary only ever sees complete results.
func (e *Engine) runBatch(
	ctx context.Context,
	kind storage.RunKind,
	subjects []string,
	delay time.Duration,
	analyse func(context.Context, string) sentiment.SubjectResult,
) *sentiment.Summary {
	start := time.Now()

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	pacer := rate.NewLimiter(limit, 1)

	results := make([]sentiment.SubjectResult, len(subjects))
	sem := make(chan struct{}, e.opts.MaxConcurrency)
	var wg sync.WaitGroup

	for i, subject := range subjects {
		wg.Add(1)
		go func(i int, subject string) {
			defer wg.Done()
			sem <- struct{}{}        // Acquire
			defer func() { <-sem }() // Release

			if err := pacer.Wait(ctx); err != nil {
				results[i] = sentiment.NoData(subject, err)
				return
			}
			results[i] = analyse(ctx, subject)
		}(i, subject)
	}

	wg.Wait()

	summary := sentiment.Summarize(results)
	summary.Timestamp = time.Now().UTC()
	metrics.RecordRun(string(kind), time.Since(start))

	e.log.Infow("run complete",
		"kind", kind,
		"attempted", summary.SubjectsAttempted,
		"analysed", summary.SubjectsAnalysed,
		"mentions", summary.TotalMentions,
		"duration", time.Since(start),
	)

	e.persist(ctx, kind, summary)
	return summary
}

func (e *Engine) persist(ctx context.Context, kind storage.RunKind, summary *sentiment.Summary) {
	if e.deps.Store == nil {
		return
	}
	if err := e.deps.Store.SaveRun(ctx, storage.NewAnalysisRun(kind, summary)); err != nil {
		e.log.Warnw("failed to persist run", "kind", kind, "error", err)
	}
}

// uniqueSubjects normalizes ids, drops blanks and keeps the first of each
// group of ids that share a key.
func uniqueSubjects(ids []string, normalize, key func(string) string) []string {
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		id = normalize(id)
		if id == "" {
			continue
		}
		k := key(id)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, id)
	}
	return out
}
