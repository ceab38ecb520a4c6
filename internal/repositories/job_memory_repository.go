package repositories

import (
	"context"
	"sync"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"
)

// MemoryJobRepository is an in-memory implementation of JobRepository, used when Redis is not configured.
type MemoryJobRepository struct {
	jobs    map[string]models.IngestionJob
	claimed map[string]bool
	mu      sync.RWMutex
}

// NewMemoryJobRepository creates a new instance of MemoryJobRepository.
func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{
		jobs:    make(map[string]models.IngestionJob),
		claimed: make(map[string]bool),
	}
}

// Create stores a new job record.
func (r *MemoryJobRepository) Create(_ context.Context, job *models.IngestionJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = *job
	return nil
}

// Claim marks the job as running unless another caller already claimed it or it already
// reached a terminal status.
func (r *MemoryJobRepository) Claim(_ context.Context, id string) (*models.IngestionJob, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if r.claimed[id] || (ok && job.Status.Terminal()) {
		return nil, false, nil
	}
	r.claimed[id] = true

	if !ok {
		job = models.IngestionJob{ID: id, CreatedAt: time.Now().UTC()}
	}
	job.Status = models.JobRunning
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	r.jobs[id] = job
	return &job, true, nil
}

// Complete records a successful run.
func (r *MemoryJobRepository) Complete(_ context.Context, id string, inserted int64) error {
	return r.update(id, func(job *models.IngestionJob) {
		job.Status = models.JobCompleted
		job.Inserted = inserted
		job.Error = ""
	})
}

// Fail records a failed run.
func (r *MemoryJobRepository) Fail(_ context.Context, id string, reason string) error {
	return r.update(id, func(job *models.IngestionJob) {
		job.Status = models.JobFailed
		job.Error = reason
	})
}

// Get returns a job by its ID.
func (r *MemoryJobRepository) Get(_ context.Context, id string) (*models.IngestionJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrNotFound, "job not found")
	}
	return &job, nil
}

func (r *MemoryJobRepository) update(id string, fn func(*models.IngestionJob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return apperrors.New(apperrors.ErrNotFound, "job not found")
	}
	fn(&job)
	job.UpdatedAt = time.Now().UTC()
	r.jobs[id] = job
	return nil
}
