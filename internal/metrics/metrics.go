// Package metrics holds the Prometheus collectors of the ingestion pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestionJobs counts jobs reaching a state, labelled by status.
	IngestionJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingestion_jobs_total",
		Help: "Ingestion jobs by resulting status.",
	}, []string{"status"})

	// BooksInserted counts catalog rows committed by ingestion jobs.
	BooksInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingestion_books_inserted_total",
		Help: "Books committed by ingestion jobs.",
	})

	// IngestionDuration observes the execution time of a job.
	IngestionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingestion_job_duration_seconds",
		Help:    "Time spent executing one ingestion job.",
		Buckets: prometheus.DefBuckets,
	})

	// CatalogSearches counts external catalog searches by outcome: results, empty, error.
	CatalogSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_search_requests_total",
		Help: "External catalog searches by outcome.",
	}, []string{"outcome"})
)
