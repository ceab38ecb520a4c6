package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"bookstore/internal/models"
	"bookstore/internal/repositories"
	"bookstore/internal/services"
	"bookstore/pkg/rabbitmq"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func newTestDeps(t *testing.T, checks map[string]HealthChecker) (appDeps, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Book{}))

	bookRepo := repositories.NewGORMBookRepository(db)
	jobRepo := repositories.NewMemoryJobRepository()
	auth := services.NewAuthService(repositories.NewGORMUserRepository(db), services.NewTokenService("test_jwt_secret", time.Hour))
	return appDeps{
		Auth:     auth,
		Books:    services.NewBookService(bookRepo),
		Payments: services.NewPaymentService(bookRepo, nil, "inr"),
		Catalog:  services.NewCatalogService(nil, nil, jobRepo),
		Checks:   checks,
	}, db
}

func TestRootAndMetrics(t *testing.T) {
	deps, _ := newTestDeps(t, nil)
	app := newApp(deps)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "BookStore API is Working....", body["message"])
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "ingestion_books_inserted_total"))
	resp.Body.Close()
}

func TestHealth(t *testing.T) {
	deps, _ := newTestDeps(t, map[string]HealthChecker{
		"database": func(ctx context.Context) error { return nil },
	})
	resp, err := newApp(deps).Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	deps, _ = newTestDeps(t, map[string]HealthChecker{
		"database": func(ctx context.Context) error { return nil },
		"redis":    func(ctx context.Context) error { return errors.New("connection refused") },
	})
	resp, err = newApp(deps).Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "ok", body.Dependencies["database"])
	assert.Equal(t, "connection refused", body.Dependencies["redis"])
}

func TestIngestionHandler(t *testing.T) {
	_, db := newTestDeps(t, nil)
	jobs := repositories.NewMemoryJobRepository()
	worker := services.NewIngestionWorker(repositories.NewGORMBookRepository(db), jobs, false)
	handler := ingestionHandler(worker)

	err := handler(context.Background(), amqp.Delivery{Body: []byte("{not json")})
	assert.True(t, errors.Is(err, rabbitmq.ErrReject))

	require.NoError(t, jobs.Create(context.Background(), &models.IngestionJob{ID: "job-1", Status: models.JobQueued, BatchSize: 1}))
	body, err := json.Marshal(models.IngestionMessage{JobID: "job-1", Query: "dune", Books: []models.ExternalBook{{Title: "Dune"}}})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), amqp.Delivery{Body: body}))

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobCompleted, job.Status)
	assert.Equal(t, int64(1), job.Inserted)
}
