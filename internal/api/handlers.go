package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/crypto-analyser/internal/recommender"
	"github.com/user/crypto-analyser/internal/scraper"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth handles health check requests. A failing database or cache
// marks the service degraded; the API itself still answers.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := s.analyser.Health(ctx)
	status := "healthy"
	for _, state := range components {
		if strings.HasPrefix(state, "error") {
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	})
}

// handleTopCryptos returns the ranked catalog.
func (s *Server) handleTopCryptos(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 || limit > scraper.MaxCatalogLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("limit must be between 1 and %d", scraper.MaxCatalogLimit)})
		return
	}

	result, err := s.analyser.TopCryptocurrencies(c.Request.Context(), limit)
	if err != nil {
		s.log.Errorw("catalog fetch failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch cryptocurrencies"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleInfluencers lists handles found on a listing page.
func (s *Server) handleInfluencers(c *gin.Context) {
	influencers, err := s.analyser.DiscoverInfluencers(c.Request.Context(), c.Query("url"))
	if err != nil {
		s.log.Warnw("influencer discovery failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":       len(influencers),
		"influencers": influencers,
	})
}

// handleAnalyseProfile analyses a single profile. Unreachable profiles are
// reported inside the result, not as an HTTP error.
func (s *Server) handleAnalyseProfile(c *gin.Context) {
	username := strings.TrimSpace(c.Param("username"))
	if strings.TrimPrefix(username, "@") == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}

	c.JSON(http.StatusOK, s.analyser.AnalyzeProfile(c.Request.Context(), username))
}

// MultipleRequest is the body of a multi-profile analysis. Delay is in seconds.
type MultipleRequest struct {
	Usernames []string `json:"usernames"`
	Delay     *float64 `json:"delay"`
}

// handleAnalyseMultiple analyses several profiles. Usernames come from
// repeated or comma separated query parameters, a JSON body, or both.
func (s *Server) handleAnalyseMultiple(c *gin.Context) {
	var req MultipleRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	usernames := splitList(c.QueryArray("usernames"))
	usernames = append(usernames, splitList(req.Usernames)...)

	delay := s.defaultDelay
	if raw := c.Query("delay"); raw != "" {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delay must be a number of seconds"})
			return
		}
		req.Delay = &secs
	}
	if req.Delay != nil {
		if *req.Delay < 0 || math.IsNaN(*req.Delay) || math.IsInf(*req.Delay, 0) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delay must not be negative"})
			return
		}
		delay = time.Duration(*req.Delay * float64(time.Second))
	}

	summary, err := s.analyser.AnalyzeProfiles(c.Request.Context(), usernames, delay)
	if err != nil {
		if errors.Is(err, recommender.ErrNoSubjects) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one username is required"})
			return
		}
		s.log.Errorw("multi-profile analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleAnalyseText analyses caller-supplied text.
func (s *Server) handleAnalyseText(c *gin.Context) {
	var req recommender.TextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Bio) == "" && len(req.Posts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bio or posts are required"})
		return
	}

	c.JSON(http.StatusOK, s.analyser.AnalyzeText(c.Request.Context(), req))
}

// FeedsRequest is the body of a feed analysis. An empty list uses the
// configured sources.
type FeedsRequest struct {
	URLs []string `json:"urls"`
}

// handleAnalyseFeeds analyses RSS or Atom feeds.
func (s *Server) handleAnalyseFeeds(c *gin.Context) {
	var req FeedsRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	summary, err := s.analyser.AnalyzeFeeds(c.Request.Context(), splitList(req.URLs))
	if err != nil {
		if errors.Is(err, recommender.ErrNoSubjects) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "at least one feed url is required"})
			return
		}
		s.log.Errorw("feed analysis failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// handleListRuns lists stored runs.
func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := s.analyser.Runs(c.Request.Context(), limit, offset)
	if err != nil {
		s.runError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"limit":  limit,
		"offset": offset,
	})
}

// handleGetRun returns one stored run.
func (s *Server) handleGetRun(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	run, err := s.analyser.Run(c.Request.Context(), uint(id))
	if err != nil {
		s.runError(c, err)
		return
	}

	c.JSON(http.StatusOK, run)
}

func (s *Server) runError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, recommender.ErrStorageDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history requires a database"})
	case errors.Is(err, recommender.ErrRunNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
	default:
		s.log.Errorw("run lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load runs"})
	}
}

// bindOptionalJSON decodes the request body into dest when there is one.
// An empty body, chunked or not, counts as absent.
func bindOptionalJSON(c *gin.Context, dest any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// splitList flattens comma separated values and drops blanks.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
