package services

import (
	"context"
	"fmt"
	"log"
	"math"

	"bookstore/internal/apperrors"
	"bookstore/internal/repositories"
)

// Charge describes a card payment request in minor currency units.
type Charge struct {
	Amount      int64
	Currency    string
	Description string
}

// PaymentResult is the gateway's view of a confirmed charge.
type PaymentResult struct {
	IntentID string
	Status   string
}

// PaymentGateway charges a card.
type PaymentGateway interface {
	Charge(ctx context.Context, charge Charge) (*PaymentResult, error)
}

// PaymentReceipt is returned to the buyer.
type PaymentReceipt struct {
	Message         string  `json:"message"`
	BookID          uint    `json:"book_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Status          string  `json:"status"`
}

// PaymentService charges buyers for catalog books.
type PaymentService struct {
	bookRepo repositories.BookRepository
	gateway  PaymentGateway
	currency string
}

// NewPaymentService creates a new PaymentService. A nil gateway disables payments.
func NewPaymentService(bookRepo repositories.BookRepository, gateway PaymentGateway, currency string) *PaymentService {
	return &PaymentService{bookRepo: bookRepo, gateway: gateway, currency: currency}
}

// PayForBook charges the book's price through the gateway.
func (s *PaymentService) PayForBook(ctx context.Context, bookID uint) (*PaymentReceipt, error) {
	if s.gateway == nil {
		return nil, apperrors.New(apperrors.ErrUpstreamUnavailable, "payments are not configured")
	}
	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.Price <= 0 {
		return nil, apperrors.New(apperrors.ErrValidation, "book has no price set")
	}

	result, err := s.gateway.Charge(ctx, Charge{
		Amount:      int64(math.Round(book.Price * 100)),
		Currency:    s.currency,
		Description: fmt.Sprintf("Purchase of book %d", book.ID),
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Payment for book %d confirmed: intent=%s status=%s", book.ID, result.IntentID, result.Status)
	return &PaymentReceipt{
		Message:         "Payment successful!",
		BookID:          book.ID,
		Amount:          book.Price,
		Currency:        s.currency,
		PaymentIntentID: result.IntentID,
		Status:          result.Status,
	}, nil
}
