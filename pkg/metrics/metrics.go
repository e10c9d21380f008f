// Package metrics holds the Prometheus collectors shared by the transport,
// retry executor, scraper and checkpoint stores, and serves them over HTTP.
//
// Request metrics (pkg/jira):
//   - jiradataset_requests_total{status} (Counter)
//   - jiradataset_request_duration_seconds (Histogram)
//
// Retry metrics (pkg/retry):
//   - jiradataset_retries_total{class} (Counter)
//   - jiradataset_retry_backoff_seconds{class} (Histogram)
//   - jiradataset_retry_exhausted_total{class} (Counter)
//
// Scrape metrics (pkg/scraper, pkg/checkpoint):
//   - jiradataset_pages_saved_total{project} (Counter)
//   - jiradataset_page_failures_total{project} (Counter)
//   - jiradataset_checkpoint_saves_total{backend} (Counter)
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jiradataset_requests_total",
		Help: "Total search API requests by outcome",
	}, []string{"status"})

	RequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "jiradataset_request_duration_seconds",
		Help:    "Search API request duration",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jiradataset_retries_total",
		Help: "Retry attempts by failure class",
	}, []string{"class"})

	RetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "jiradataset_retry_backoff_seconds",
		Help:    "Backoff waited before a retry by failure class",
		Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32, 60},
	}, []string{"class"})

	RetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jiradataset_retry_exhausted_total",
		Help: "Operations that used up their retry budget by failure class",
	}, []string{"class"})

	PagesSavedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jiradataset_pages_saved_total",
		Help: "Raw pages persisted by project",
	}, []string{"project"})

	PageFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jiradataset_page_failures_total",
		Help: "Pages that could not be fetched by project",
	}, []string{"project"})

	CheckpointSavesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jiradataset_checkpoint_saves_total",
		Help: "Checkpoint writes by backend",
	}, []string{"backend"})
)
