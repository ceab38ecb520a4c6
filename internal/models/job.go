package models

import "time"

// JobStatus is the lifecycle state of an ingestion job: queued -> running -> completed | failed.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no further transition is possible.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// IngestionJob tracks one batch of external books scheduled for persistence.
type IngestionJob struct {
	ID        string    `json:"id"`
	Query     string    `json:"query"`
	Status    JobStatus `json:"status"`
	BatchSize int       `json:"batch_size"`
	Inserted  int64     `json:"inserted"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IngestionMessage is the queued payload. Books are captured at enqueue time and never change afterwards.
type IngestionMessage struct {
	JobID string         `json:"job_id"`
	Query string         `json:"query"`
	Books []ExternalBook `json:"books"`
}
