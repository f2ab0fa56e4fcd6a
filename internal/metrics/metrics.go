// Package metrics defines the Prometheus instruments for the analyser.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Scraping
	ScrapeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_analyser_scrape_requests_total",
			Help: "Total number of outbound page fetches",
		},
		[]string{"target", "status"}, // status: success|error|rate_limited
	)

	ScrapeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crypto_analyser_scrape_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"target"},
	)

	// Analysis
	SubjectsAnalysed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_analyser_subjects_total",
			Help: "Total number of analysed subjects",
		},
		[]string{"kind", "status"}, // status: success|no_data
	)

	MentionsCounted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_analyser_mentions_total",
			Help: "Cryptocurrency mentions found, by symbol",
		},
		[]string{"symbol"},
	)

	RecommendationsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_analyser_recommendations_total",
			Help: "Single-subject recommendations issued, by symbol",
		},
		[]string{"symbol"},
	)

	RunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crypto_analyser_run_duration_seconds",
			Help:    "Multi-subject run duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crypto_analyser_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"route", "code"},
	)
)

var registerOnce sync.Once

// Init registers all metrics with the default Prometheus registry.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(ScrapeRequests)
		prometheus.MustRegister(ScrapeDuration)
		prometheus.MustRegister(SubjectsAnalysed)
		prometheus.MustRegister(MentionsCounted)
		prometheus.MustRegister(RecommendationsIssued)
		prometheus.MustRegister(RunDuration)
		prometheus.MustRegister(HTTPRequests)
	})
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScrape records one outbound fetch.
func RecordScrape(target, status string, duration time.Duration) {
	ScrapeRequests.WithLabelValues(target, status).Inc()
	ScrapeDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordSubject records one subject analysis and its findings.
func RecordSubject(kind string, ok bool, mentions map[string]int, recommended []string) {
	status := "success"
	if !ok {
		status = "no_data"
	}
	SubjectsAnalysed.WithLabelValues(kind, status).Inc()

	for symbol, n := range mentions {
		MentionsCounted.WithLabelValues(symbol).Add(float64(n))
	}
	for _, symbol := range recommended {
		RecommendationsIssued.WithLabelValues(symbol).Inc()
	}
}

// RecordRun records the duration of a multi-subject run.
func RecordRun(kind string, duration time.Duration) {
	RunDuration.WithLabelValues(kind).Observe(duration.Seconds())
}
