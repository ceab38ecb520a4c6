package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"bookstore/internal/metrics"
	"bookstore/internal/models"
	"bookstore/internal/repositories"
)

// IngestionWorker executes ingestion jobs: one all-or-nothing insert per job.
type IngestionWorker struct {
	books repositories.BookRepository
	jobs  repositories.JobRepository
	// Dedup stores google ids and skips rows already in the catalog.
	Dedup bool
}

// NewIngestionWorker creates a new IngestionWorker.
func NewIngestionWorker(books repositories.BookRepository, jobs repositories.JobRepository, dedup bool) *IngestionWorker {
	return &IngestionWorker{books: books, jobs: jobs, Dedup: dedup}
}

// DecodeIngestionMessage parses a queued message body.
func DecodeIngestionMessage(body []byte) (models.IngestionMessage, error) {
	var msg models.IngestionMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("invalid ingestion message: %w", err)
	}
	if msg.JobID == "" {
		return msg, fmt.Errorf("invalid ingestion message: missing job id")
	}
	return msg, nil
}

// Execute claims the job and persists its batch. Persistence failures end in JobFailed and are
// not returned. An error is returned only when the job could not be claimed, in which case
// nothing was written. A job already claimed elsewhere is skipped with an empty status.
func (w *IngestionWorker) Execute(ctx context.Context, msg models.IngestionMessage) (models.JobStatus, error) {
	job, claimed, err := w.jobs.Claim(ctx, msg.JobID)
	if err != nil {
		return "", fmt.Errorf("failed to claim job %s: %w", msg.JobID, err)
	}
	if !claimed {
		log.Printf("Ingestion job %s already claimed, skipping", msg.JobID)
		return "", nil
	}

	start := time.Now()
	metrics.IngestionJobs.WithLabelValues(string(models.JobRunning)).Inc()
	defer func() {
		metrics.IngestionDuration.Observe(time.Since(start).Seconds())
	}()

	inserted, err := w.books.BulkCreate(ctx, w.toBooks(msg.Books), w.Dedup)
	if err != nil {
		log.Printf("Ingestion job %s failed: %v", job.ID, err)
		if ferr := w.jobs.Fail(ctx, job.ID, err.Error()); ferr != nil {
			log.Printf("Failed to record failure of job %s: %v", job.ID, ferr)
		}
		metrics.IngestionJobs.WithLabelValues(string(models.JobFailed)).Inc()
		return models.JobFailed, nil
	}

	// Rows are committed at this point; a status write failure must not trigger a redelivery.
	if err := w.jobs.Complete(ctx, job.ID, inserted); err != nil {
		log.Printf("Failed to record completion of job %s: %v", job.ID, err)
	}
	metrics.IngestionJobs.WithLabelValues(string(models.JobCompleted)).Inc()
	metrics.BooksInserted.Add(float64(inserted))
	log.Printf("Ingestion job %s completed: %d of %d books inserted", job.ID, inserted, len(msg.Books))
	return models.JobCompleted, nil
}

func (w *IngestionWorker) toBooks(batch []models.ExternalBook) []models.Book {
	books := make([]models.Book, 0, len(batch))
	for _, eb := range batch {
		eb = eb.WithDefaults()
		book := models.Book{
			Title:         eb.Title,
			Author:        strings.Join(eb.Authors, ", "),
			Description:   eb.Description,
			PublishedDate: eb.PublishedDate,
			PageCount:     eb.PageCount,
			Source:        models.SourceGoogle,
		}
		if w.Dedup && eb.GoogleID != "" {
			gid := eb.GoogleID
			book.GoogleID = &gid
		}
		books = append(books, book)
	}
	return books
}
