// Package main is the entry point for the crypto analyser service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/crypto-analyser/internal/analyzer"
	"github.com/user/crypto-analyser/internal/api"
	"github.com/user/crypto-analyser/internal/cache"
	"github.com/user/crypto-analyser/internal/keywords"
	"github.com/user/crypto-analyser/internal/llm"
	"github.com/user/crypto-analyser/internal/metrics"
	"github.com/user/crypto-analyser/internal/recommender"
	"github.com/user/crypto-analyser/internal/scraper"
	"github.com/user/crypto-analyser/internal/sentiment"
	"github.com/user/crypto-analyser/internal/storage"
	"github.com/user/crypto-analyser/pkg/config"
	"github.com/user/crypto-analyser/pkg/logger"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatalf("%v", err)
	}
}

// run wires and serves the application until a shutdown signal.
func run(configPath string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	metrics.Init()

	fmt.Println("╔═══════════════════════════════════════════════════════════╗")
	fmt.Println("║                    Crypto Analyser                        ║")
	fmt.Println("║      Influencer & Feed Sentiment for Cryptocurrencies     ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := recommender.Deps{}

	// Initialize database
	var repo *storage.Repository
	if cfg.Database.Enabled {
		fmt.Println("→ Connecting to database...")
		repo, err = storage.NewRepository(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer repo.Close()
		deps.Store = repo
		fmt.Println("  ✓ Database connected")
	}

	// Initialize cache
	if cfg.Redis.Enabled {
		fmt.Println("→ Connecting to Redis...")
		rc, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Printf("  ⚠ Warning: Redis unavailable: %v", err)
			log.Println("  → Continuing without cache")
		} else {
			defer rc.Close()
			deps.Cache = rc
			fmt.Println("  ✓ Redis connected")
		}
	}

	// Keyword index
	fmt.Println("→ Building keyword index...")
	index, source := buildIndex(ctx, cfg, repo)
	for _, c := range index.Collisions() {
		lg.Debugw("keyword collision", "keyword", c.Keyword, "previous", c.Previous, "current", c.Current)
	}
	fmt.Printf("  ✓ %d keywords for %d symbols indexed (%s)\n", index.Len(), len(index.Symbols()), source)

	// Scrapers
	client := scraper.NewClient(scraper.Options{
		Timeout:    cfg.Scraper.Timeout,
		Delay:      cfg.Scraper.Delay,
		MaxRetries: cfg.Scraper.MaxRetries,
		UserAgent:  cfg.Scraper.UserAgent,
	}, lg)
	deps.Profiles = scraper.NewTwitter(client, cfg.Scraper.ProfileURL, cfg.Scraper.MaxPosts)
	deps.Catalog = scraper.NewCoinMarketCap(client, cfg.Catalog.BaseURL)
	deps.Influencers = scraper.NewInfluencers(client)
	deps.Feeds = analyzer.NewFeedSource(cfg.Scraper.UserAgent, cfg.Feeds.MaxItems, lg)

	// Initialize LLM provider
	if cfg.Analysis.UseLLM {
		fmt.Printf("→ Initializing LLM provider (%s)...\n", cfg.LLM.Provider)
		provider, err := llm.NewProvider(&cfg.LLM)
		switch {
		case err != nil:
			log.Printf("  ⚠ Warning: Failed to initialize LLM provider: %v", err)
			log.Println("  → Continuing with keyword sentiment analysis only")
		case !provider.IsAvailable(ctx):
			log.Printf("  ⚠ Warning: LLM provider %s is not reachable", provider.Name())
			log.Println("  → Continuing with keyword sentiment analysis only")
		default:
			deps.LLM = provider
			fmt.Printf("  ✓ LLM provider initialized (%s)\n", provider.Name())
		}
	}

	// Initialize analysis engine
	fmt.Println("→ Initializing analysis engine...")
	engine := recommender.NewEngine(
		sentiment.NewEngine(index, sentiment.DefaultLexicon()),
		deps,
		recommender.Options{
			MaxConcurrency: cfg.Analysis.MaxConcurrency,
			UseLLM:         cfg.Analysis.UseLLM,
			CatalogLimit:   cfg.Catalog.Limit,
			FeedSources:    cfg.Feeds.Sources,
			InfluencerURL:  cfg.Influencers.SourceURL,
		},
		lg,
	)
	fmt.Println("  ✓ Analysis engine ready")

	// Initialize API server
	fmt.Println("→ Starting API server...")
	server := api.NewServer(engine, cfg, lg)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	fmt.Printf("  ✓ Server running at http://localhost%s\n", addr)
	fmt.Println()
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		fmt.Println("\n→ Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}

// buildIndex picks the keyword catalog: a configured CSV file first, then
// the last catalog stored in the database, then the built-in list.
func buildIndex(ctx context.Context, cfg *config.Config, repo *storage.Repository) (*keywords.Index, string) {
	if cfg.Catalog.File != "" {
		entries, err := keywords.LoadCSV(cfg.Catalog.File)
		if err == nil && len(entries) > 0 {
			return keywords.Build(entries), cfg.Catalog.File
		}
		log.Printf("  ⚠ Warning: could not load catalog file %s: %v", cfg.Catalog.File, err)
	}

	if repo != nil {
		entries, err := repo.ListCatalog(ctx, cfg.Catalog.Limit)
		if err == nil && len(entries) > 0 {
			return keywords.Build(entries), "database"
		}
	}

	return keywords.Default(), "built-in"
}
