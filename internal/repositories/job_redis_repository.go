package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisJobRepository keeps job status records as Redis hashes that expire after ttl.
type RedisJobRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisJobRepository creates a new instance of RedisJobRepository.
func NewRedisJobRepository(client *redis.Client, ttl time.Duration) *RedisJobRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create writes a queued job record.
func (r *RedisJobRepository) Create(ctx context.Context, job *models.IngestionJob) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	key := jobKey(job.ID)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, map[string]any{
			"id":         job.ID,
			"query":      job.Query,
			"status":     string(job.Status),
			"batch_size": strconv.Itoa(job.BatchSize),
			"inserted":   "0",
			"attempts":   "0",
			"error":      "",
			"created_at": now.Format(time.RFC3339Nano),
			"updated_at": now.Format(time.RFC3339Nano),
		})
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write job %s: %w", job.ID, err)
	}
	return nil
}

// claimScript sets claimed_at and marks the job running in one atomic step. It refuses jobs that
// were already claimed or reached a terminal status, and returns the claimed hash otherwise.
var claimScript = redis.NewScript(`
local key = KEYS[1]
if redis.call('HEXISTS', key, 'claimed_at') == 1 then
	return false
end
local status = redis.call('HGET', key, 'status')
if status == ARGV[5] or status == ARGV[6] then
	return false
end
redis.call('HSET', key, 'claimed_at', ARGV[1], 'id', ARGV[2], 'status', ARGV[4], 'updated_at', ARGV[1])
redis.call('HSETNX', key, 'created_at', ARGV[1])
redis.call('HINCRBY', key, 'attempts', 1)
redis.call('PEXPIRE', key, ARGV[3])
return redis.call('HGETALL', key)
`)

// Claim moves a queued job to running with a single script call, so a failed call leaves the
// job claimable. Already claimed or terminal jobs are refused.
func (r *RedisJobRepository) Claim(ctx context.Context, id string) (*models.IngestionJob, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	fields, err := claimScript.Run(ctx, r.client, []string{jobKey(id)},
		now, id, r.ttl.Milliseconds(),
		string(models.JobRunning), string(models.JobCompleted), string(models.JobFailed),
	).StringSlice()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim job %s: %w", id, err)
	}

	data := make(map[string]string, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		data[fields[i]] = fields[i+1]
	}
	return decodeJob(id, data), true, nil
}

// Complete records a successful run.
func (r *RedisJobRepository) Complete(ctx context.Context, id string, inserted int64) error {
	return r.finish(ctx, id, "status", string(models.JobCompleted), "inserted", strconv.FormatInt(inserted, 10), "error", "")
}

// Fail records a failed run.
func (r *RedisJobRepository) Fail(ctx context.Context, id string, reason string) error {
	return r.finish(ctx, id, "status", string(models.JobFailed), "error", reason)
}

// Get returns a job by its ID.
func (r *RedisJobRepository) Get(ctx context.Context, id string) (*models.IngestionJob, error) {
	data, err := r.client.HGetAll(ctx, jobKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job %s: %w", id, err)
	}
	if len(data) == 0 {
		return nil, apperrors.New(apperrors.ErrNotFound, "job not found")
	}
	return decodeJob(id, data), nil
}

func (r *RedisJobRepository) finish(ctx context.Context, id string, fields ...any) error {
	key := jobKey(id)
	fields = append(fields, "updated_at", time.Now().UTC().Format(time.RFC3339Nano))
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, fields...)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", id, err)
	}
	return nil
}

func jobKey(id string) string {
	return "ingest:job:" + id
}

func decodeJob(id string, data map[string]string) *models.IngestionJob {
	job := &models.IngestionJob{
		ID:     id,
		Query:  data["query"],
		Status: models.JobStatus(data["status"]),
		Error:  data["error"],
	}
	if n, err := strconv.Atoi(data["batch_size"]); err == nil {
		job.BatchSize = n
	}
	if n, err := strconv.ParseInt(data["inserted"], 10, 64); err == nil {
		job.Inserted = n
	}
	if n, err := strconv.Atoi(data["attempts"]); err == nil {
		job.Attempts = n
	}
	if t, err := time.Parse(time.RFC3339Nano, data["created_at"]); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, data["updated_at"]); err == nil {
		job.UpdatedAt = t
	}
	return job
}
