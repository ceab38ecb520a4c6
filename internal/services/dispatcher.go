package services

import (
	"context"
	"encoding/json"
	"log"

	"bookstore/internal/apperrors"
	"bookstore/internal/metrics"
	"bookstore/internal/models"
	"bookstore/internal/repositories"

	"github.com/google/uuid"
)

// Dispatcher hands a batch of external books to background ingestion.
type Dispatcher interface {
	Enqueue(ctx context.Context, query string, batch []models.ExternalBook) (*models.IngestionJob, error)
}

// Publisher is a durable message sink. Publish returns only once the broker has taken the message.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// QueueDispatcher records a queued job and publishes its batch to the message broker.
type QueueDispatcher struct {
	publisher Publisher
	jobs      repositories.JobRepository
	newID     func() string
}

// NewQueueDispatcher creates a new QueueDispatcher.
func NewQueueDispatcher(publisher Publisher, jobs repositories.JobRepository) *QueueDispatcher {
	return &QueueDispatcher{
		publisher: publisher,
		jobs:      jobs,
		newID:     uuid.NewString,
	}
}

// Enqueue snapshots batch into a message and publishes it. The job record is written first so
// a worker never sees a message for a job it cannot find. A publish failure marks the job failed
// and returns ErrQueueUnavailable.
func (d *QueueDispatcher) Enqueue(ctx context.Context, query string, batch []models.ExternalBook) (*models.IngestionJob, error) {
	job := &models.IngestionJob{
		ID:        d.newID(),
		Query:     query,
		Status:    models.JobQueued,
		BatchSize: len(batch),
	}

	body, err := json.Marshal(models.IngestionMessage{
		JobID: job.ID,
		Query: query,
		Books: append([]models.ExternalBook(nil), batch...),
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrQueueUnavailable, err, "failed to encode ingestion batch")
	}

	if err := d.jobs.Create(ctx, job); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrQueueUnavailable, err, "failed to record ingestion job")
	}

	if err := d.publisher.Publish(ctx, body); err != nil {
		log.Printf("Failed to publish ingestion job %s: %v", job.ID, err)
		if ferr := d.jobs.Fail(ctx, job.ID, "enqueue failed"); ferr != nil {
			log.Printf("Failed to mark job %s failed: %v", job.ID, ferr)
		}
		metrics.IngestionJobs.WithLabelValues(string(models.JobFailed)).Inc()
		return nil, apperrors.Wrap(apperrors.ErrQueueUnavailable, err, "ingestion queue unavailable")
	}

	metrics.IngestionJobs.WithLabelValues(string(models.JobQueued)).Inc()
	log.Printf("Ingestion job %s queued with %d books", job.ID, job.BatchSize)
	return job, nil
}
