// Package api provides the REST API server.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/crypto-analyser/internal/metrics"
	"github.com/user/crypto-analyser/internal/recommender"
	"github.com/user/crypto-analyser/internal/scraper"
	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/internal/storage"
	"github.com/user/crypto-analyser/pkg/config"
	"github.com/user/crypto-analyser/pkg/logger"
)

// Analyser is the behaviour the HTTP surface exposes.
type Analyser interface {
	TopCryptocurrencies(ctx context.Context, limit int) (*recommender.CatalogResult, error)
	DiscoverInfluencers(ctx context.Context, url string) ([]scraper.Influencer, error)
	AnalyzeProfile(ctx context.Context, username string) sentiment.SubjectResult
	AnalyzeProfiles(ctx context.Context, usernames []string, delay time.Duration) (*sentiment.Summary, error)
	AnalyzeFeeds(ctx context.Context, urls []string) (*sentiment.Summary, error)
	AnalyzeText(ctx context.Context, req recommender.TextRequest) sentiment.SubjectResult
	Runs(ctx context.Context, limit, offset int) ([]storage.AnalysisRun, error)
	Run(ctx context.Context, id uint) (*recommender.RunReport, error)
	Health(ctx context.Context) map[string]string
}

// Server represents the API server.
type Server struct {
	router       *gin.Engine
	analyser     Analyser
	defaultDelay time.Duration
	production   bool
	log          *logger.Logger
}

// NewServer creates a new API server.
func NewServer(analyser Analyser, cfg *config.Config, log *logger.Logger) *Server {
	s := &Server{
		analyser:     analyser,
		defaultDelay: cfg.Analysis.DefaultDelay,
		production:   cfg.IsProduction(),
		log:          log.With("component", "api"),
	}

	s.setupRouter()
	return s
}

// setupRouter sets up the Gin router with all routes.
func (s *Server) setupRouter() {
	if s.production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())
	r.Use(s.requestLogger())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", s.handleHealth)

		// Catalog and discovery
		api.GET("/cryptos", s.handleTopCryptos)
		api.GET("/influencers", s.handleInfluencers)

		// Analysis
		api.GET("/analyse/:username", s.handleAnalyseProfile)
		api.POST("/analyse-multiple", s.handleAnalyseMultiple)
		api.POST("/analyse-text", s.handleAnalyseText)
		api.POST("/analyse-feeds", s.handleAnalyseFeeds)

		// Run history
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
	}

	s.router = r
}

// Router returns the Gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// corsMiddleware adds CORS headers.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger logs each request and counts it by route and status.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()

		s.log.Debugw("request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
		)
	}
}
