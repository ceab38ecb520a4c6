package repositories

import (
	"context"

	"bookstore/internal/models"
)

// JobRepository stores ingestion job status records.
type JobRepository interface {
	Create(ctx context.Context, job *models.IngestionJob) error
	// Claim moves a queued job to running. It returns false when the job was already
	// claimed, so at most one worker executes any given job id.
	Claim(ctx context.Context, id string) (*models.IngestionJob, bool, error)
	Complete(ctx context.Context, id string, inserted int64) error
	Fail(ctx context.Context, id string, reason string) error
	Get(ctx context.Context, id string) (*models.IngestionJob, error)
}
