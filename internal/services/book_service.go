package services

import (
	"context"
	"log"
	"strings"

	"bookstore/internal/apperrors"
	"bookstore/internal/models"
	"bookstore/internal/repositories"
)

// PublishInput is the client-supplied part of a manually published book.
// Seller and owner are never taken from here; they come from the acting user.
type PublishInput struct {
	Title       string
	Author      string
	Price       *float64
	Description string
}

// BookService provides business logic for the catalog.
type BookService struct {
	bookRepo repositories.BookRepository
}

// NewBookService creates a new BookService.
func NewBookService(bookRepo repositories.BookRepository) *BookService {
	return &BookService{bookRepo: bookRepo}
}

// AuthorizePublish reports whether actor may publish. Only Author and Seller may.
func (s *BookService) AuthorizePublish(actor *models.User) error {
	if actor == nil {
		return apperrors.New(apperrors.ErrAuthentication, "authentication required")
	}
	if !actor.Role.CanPublish() {
		return apperrors.New(apperrors.ErrAuthorization, "only Authors or Sellers can publish books")
	}
	return nil
}

// Publish creates a manual catalog entry on behalf of actor.
func (s *BookService) Publish(ctx context.Context, actor *models.User, in PublishInput) (*models.Book, error) {
	if err := s.AuthorizePublish(actor); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(in.Title)
	author := strings.TrimSpace(in.Author)
	switch {
	case title == "":
		return nil, apperrors.New(apperrors.ErrValidation, "title is required")
	case author == "":
		return nil, apperrors.New(apperrors.ErrValidation, "author is required")
	case in.Price == nil:
		return nil, apperrors.New(apperrors.ErrValidation, "price is required")
	case *in.Price < 0:
		return nil, apperrors.New(apperrors.ErrValidation, "price must not be negative")
	}

	sellerID := actor.ID
	book := &models.Book{
		Title:       title,
		Author:      author,
		Price:       *in.Price,
		Description: in.Description,
		Source:      models.SourceManual,
		SellerID:    &sellerID,
	}
	if actor.Role == models.RoleAuthor {
		ownerID := actor.ID
		book.OwnerID = &ownerID
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}
	log.Printf("Book published: id=%d seller_id=%d", book.ID, sellerID)
	return book, nil
}

// Search matches books by case-insensitive substrings of title and author. Empty filters match all.
func (s *BookService) Search(ctx context.Context, title, author string) ([]models.Book, error) {
	return s.bookRepo.Search(ctx, strings.TrimSpace(title), strings.TrimSpace(author))
}

// GetByID returns a single book or ErrNotFound.
func (s *BookService) GetByID(ctx context.Context, id uint) (*models.Book, error) {
	return s.bookRepo.GetByID(ctx, id)
}
