package repositories

import (
	"context"
	"errors"
	"strings"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 100

// GORMBookRepository is a GORM implementation of BookRepository.
type GORMBookRepository struct {
	db *gorm.DB
	// BatchSize is the number of rows per INSERT statement inside a bulk transaction.
	BatchSize int
}

// NewGORMBookRepository creates a new instance of GORMBookRepository.
func NewGORMBookRepository(db *gorm.DB) *GORMBookRepository {
	return &GORMBookRepository{
		db:        db,
		BatchSize: defaultBatchSize,
	}
}

// Create inserts a single book.
func (r *GORMBookRepository) Create(ctx context.Context, book *models.Book) error {
	if err := r.db.WithContext(ctx).Create(book).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrPersistence, err, "failed to create book")
	}
	return nil
}

// BulkCreate inserts books inside a single transaction; any failure rolls back every row.
func (r *GORMBookRepository) BulkCreate(ctx context.Context, books []models.Book, skipExisting bool) (int64, error) {
	if len(books) == 0 {
		return 0, nil
	}
	batchSize := r.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if skipExisting {
			tx = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "google_id"}},
				DoNothing: true,
			})
		}
		res := tx.CreateInBatches(&books, batchSize)
		if res.Error != nil {
			return res.Error
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.ErrPersistence, err, "failed to bulk create books")
	}
	return inserted, nil
}

// Search matches title and author case-insensitively as substrings. Empty filters are ignored.
func (r *GORMBookRepository) Search(ctx context.Context, title, author string) ([]models.Book, error) {
	q := r.db.WithContext(ctx).Model(&models.Book{})
	if title != "" {
		q = q.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(title))
	}
	if author != "" {
		q = q.Where("LOWER(author) LIKE ? ESCAPE '\\'", likePattern(author))
	}

	var books []models.Book
	if err := q.Order("id").Find(&books).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err, "failed to search books")
	}
	return books, nil
}

// GetByID retrieves a single book by its ID from the database.
func (r *GORMBookRepository) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	if err := r.db.WithContext(ctx).First(&book, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "book not found")
		}
		return nil, apperrors.Wrap(apperrors.ErrPersistence, err, "failed to get book by ID")
	}
	return &book, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
