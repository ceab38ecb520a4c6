package handlers

import (
	"strconv"

	"bookstore/internal/apperrors"
	"bookstore/internal/middleware"
	"bookstore/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// BookHandler handles HTTP requests for the local catalog.
type BookHandler struct {
	bookService    *services.BookService
	paymentService *services.PaymentService
	validate       *validator.Validate
}

// NewBookHandler creates a new BookHandler.
func NewBookHandler(bookService *services.BookService, paymentService *services.PaymentService) *BookHandler {
	return &BookHandler{
		bookService:    bookService,
		paymentService: paymentService,
		validate:       validator.New(),
	}
}

// RegisterRoutes registers the book routes. authRequired guards publishing and payment.
func (h *BookHandler) RegisterRoutes(router fiber.Router, authRequired fiber.Handler) {
	bookRoutes := router.Group("/books")
	bookRoutes.Post("/", authRequired, h.HandlePublish)
	bookRoutes.Get("/search", h.HandleSearch)
	bookRoutes.Get("/:id", h.HandleGetBook)
	bookRoutes.Post("/:id/pay_with_card", authRequired, h.HandlePay)
}

// PublishRequest represents the request body for publishing a book.
// Seller and owner are deliberately absent; they are derived from the token.
type PublishRequest struct {
	Title       string   `json:"title" validate:"required"`
	Author      string   `json:"author" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Description string   `json:"description"`
}

// HandlePublish creates a manual catalog entry for the authenticated Author or Seller.
func (h *BookHandler) HandlePublish(c *fiber.Ctx) error {
	actor := middleware.CurrentUser(c)
	if err := h.bookService.AuthorizePublish(actor); err != nil {
		return writeError(c, err)
	}

	var req PublishRequest
	if err := bindJSON(c, h.validate, &req); err != nil {
		return writeError(c, err)
	}

	book, err := h.bookService.Publish(c.UserContext(), actor, services.PublishInput{
		Title:       req.Title,
		Author:      req.Author,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(book)
}

// HandleSearch filters the catalog by optional title and author substrings.
func (h *BookHandler) HandleSearch(c *fiber.Ctx) error {
	books, err := h.bookService.Search(c.UserContext(), c.Query("title"), c.Query("author"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(books)
}

// HandleGetBook retrieves a single book by its ID.
func (h *BookHandler) HandleGetBook(c *fiber.Ctx) error {
	id, err := bookID(c)
	if err != nil {
		return writeError(c, err)
	}
	book, err := h.bookService.GetByID(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(book)
}

// HandlePay charges the book's price to the test card.
func (h *BookHandler) HandlePay(c *fiber.Ctx) error {
	id, err := bookID(c)
	if err != nil {
		return writeError(c, err)
	}
	receipt, err := h.paymentService.PayForBook(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(receipt)
}

func bookID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Newf(apperrors.ErrValidation, "invalid book id %q", c.Params("id"))
	}
	return uint(id), nil
}
