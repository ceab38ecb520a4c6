package repositories_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"
	"bookstore/internal/repositories"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobRepositories(t *testing.T) map[string]repositories.JobRepository {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]repositories.JobRepository{
		"memory": repositories.NewMemoryJobRepository(),
		"redis":  repositories.NewRedisJobRepository(client, time.Hour),
	}
}

func TestJobRepository_Lifecycle(t *testing.T) {
	for name, repo := range jobRepositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			job := &models.IngestionJob{ID: "job-1", Query: "dune", Status: models.JobQueued, BatchSize: 3}
			require.NoError(t, repo.Create(ctx, job))

			got, err := repo.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, models.JobQueued, got.Status)
			assert.Equal(t, "dune", got.Query)
			assert.Equal(t, 3, got.BatchSize)

			claimed, ok, err := repo.Claim(ctx, "job-1")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, models.JobRunning, claimed.Status)
			assert.Equal(t, 1, claimed.Attempts)

			_, ok, err = repo.Claim(ctx, "job-1")
			require.NoError(t, err)
			assert.False(t, ok, "a job may be claimed only once")

			require.NoError(t, repo.Complete(ctx, "job-1", 3))
			got, err = repo.Get(ctx, "job-1")
			require.NoError(t, err)
			assert.Equal(t, models.JobCompleted, got.Status)
			assert.EqualValues(t, 3, got.Inserted)
			assert.Empty(t, got.Error)
		})
	}
}

func TestJobRepository_Fail(t *testing.T) {
	for name, repo := range jobRepositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, &models.IngestionJob{ID: "job-2", Status: models.JobQueued}))
			_, _, err := repo.Claim(ctx, "job-2")
			require.NoError(t, err)

			require.NoError(t, repo.Fail(ctx, "job-2", "disk full"))
			got, err := repo.Get(ctx, "job-2")
			require.NoError(t, err)
			assert.Equal(t, models.JobFailed, got.Status)
			assert.Equal(t, "disk full", got.Error)
			assert.True(t, got.Status.Terminal())
		})
	}
}

func TestJobRepository_GetUnknown(t *testing.T) {
	for name, repo := range jobRepositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			_, err := repo.Get(context.Background(), "missing")
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
		})
	}
}

func TestJobRepository_ConcurrentClaim(t *testing.T) {
	for name, repo := range jobRepositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, &models.IngestionJob{ID: "job-3", Status: models.JobQueued}))

			var wins int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, ok, err := repo.Claim(ctx, "job-3"); err == nil && ok {
						atomic.AddInt32(&wins, 1)
					}
				}()
			}
			wg.Wait()
			assert.EqualValues(t, 1, wins)
		})
	}
}

func TestJobRepository_TerminalJobIsNotClaimable(t *testing.T) {
	for name, repo := range jobRepositories(t) {
		repo := repo
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, repo.Create(ctx, &models.IngestionJob{ID: "job-4", Status: models.JobQueued}))
			require.NoError(t, repo.Fail(ctx, "job-4", "enqueue failed"))

			job, ok, err := repo.Claim(ctx, "job-4")
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Nil(t, job)

			got, err := repo.Get(ctx, "job-4")
			require.NoError(t, err)
			assert.Equal(t, models.JobFailed, got.Status)
			assert.Equal(t, "enqueue failed", got.Error)
			assert.Zero(t, got.Attempts)
		})
	}
}

// failFirstClaim fails the first script call before it reaches the server.
type failFirstClaim struct {
	failed atomic.Bool
}

func (h *failFirstClaim) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *failFirstClaim) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if name := cmd.Name(); (name == "evalsha" || name == "eval") && h.failed.CompareAndSwap(false, true) {
			err := errors.New("connection reset")
			cmd.SetErr(err)
			return err
		}
		return next(ctx, cmd)
	}
}

func (h *failFirstClaim) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisJobRepository_FailedClaimStaysClaimable(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	client.AddHook(&failFirstClaim{})
	repo := repositories.NewRedisJobRepository(client, time.Hour)

	require.NoError(t, repo.Create(ctx, &models.IngestionJob{ID: "job-5", Status: models.JobQueued}))

	_, ok, err := repo.Claim(ctx, "job-5")
	require.Error(t, err)
	assert.False(t, ok)

	got, err := repo.Get(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, got.Status)

	// The redelivered message claims the job and can drive it to a terminal state
	claimed, ok, err := repo.Claim(ctx, "job-5")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.JobRunning, claimed.Status)
	assert.Equal(t, 1, claimed.Attempts)

	require.NoError(t, repo.Complete(ctx, "job-5", 2))
	got, err = repo.Get(ctx, "job-5")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, got.Status)
}
