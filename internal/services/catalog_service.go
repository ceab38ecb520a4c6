package services

import (
	"context"
	"strings"

	"bookstore/internal/apperrors"
	"bookstore/internal/metrics"
	"bookstore/internal/models"
	"bookstore/internal/repositories"
)

// BookSearcher queries an external catalog.
type BookSearcher interface {
	Search(ctx context.Context, query string) ([]models.ExternalBook, error)
}

// CatalogService searches the external catalog and schedules ingestion of what it finds.
type CatalogService struct {
	searcher   BookSearcher
	dispatcher Dispatcher
	jobs       repositories.JobRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(searcher BookSearcher, dispatcher Dispatcher, jobs repositories.JobRepository) *CatalogService {
	return &CatalogService{
		searcher:   searcher,
		dispatcher: dispatcher,
		jobs:       jobs,
	}
}

// SearchAndIngest looks query up externally and enqueues the results. It returns a nil job when
// nothing was found; nothing is enqueued in that case.
func (s *CatalogService) SearchAndIngest(ctx context.Context, query string) (*models.IngestionJob, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.New(apperrors.ErrValidation, "query is required")
	}

	books, err := s.searcher.Search(ctx, query)
	if err != nil {
		metrics.CatalogSearches.WithLabelValues("error").Inc()
		return nil, err
	}
	if len(books) == 0 {
		metrics.CatalogSearches.WithLabelValues("empty").Inc()
		return nil, nil
	}
	metrics.CatalogSearches.WithLabelValues("results").Inc()
	return s.dispatcher.Enqueue(ctx, query, books)
}

// JobStatus returns the recorded state of an ingestion job.
func (s *CatalogService) JobStatus(ctx context.Context, id string) (*models.IngestionJob, error) {
	return s.jobs.Get(ctx, id)
}
