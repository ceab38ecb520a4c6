package repositories

import (
	"context"

	"bookstore/internal/models"
)

// BookRepository defines the interface for catalog data access.
type BookRepository interface {
	Create(ctx context.Context, book *models.Book) error
	// BulkCreate persists all books in one transaction and returns the number of inserted rows.
	// With skipExisting, rows whose google_id already exists are skipped instead of failing the batch.
	BulkCreate(ctx context.Context, books []models.Book, skipExisting bool) (int64, error)
	Search(ctx context.Context, title, author string) ([]models.Book, error)
	GetByID(ctx context.Context, id uint) (*models.Book, error)
}
