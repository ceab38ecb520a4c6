package handlers

import (
	"bookstore/internal/services"

	"github.com/gofiber/fiber/v2"
)

// CatalogHandler handles external catalog searches and ingestion job lookups.
type CatalogHandler struct {
	service *services.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// RegisterRoutes registers the catalog routes with the Fiber app.
func (h *CatalogHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/google/books/search", h.HandleExternalSearch)
	router.Get("/ingestion/jobs/:id", h.HandleGetJob)
}

// HandleExternalSearch searches Google Books and queues the results for ingestion.
// The response is an acknowledgement, never the upstream payload.
func (h *CatalogHandler) HandleExternalSearch(c *fiber.Ctx) error {
	job, err := h.service.SearchAndIngest(c.UserContext(), c.Query("query"))
	if err != nil {
		return writeError(c, err)
	}
	if job == nil {
		return c.JSON(fiber.Map{
			"message": "No books found for this query.",
		})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"message": "Saving books in background.",
		"job_id":  job.ID,
		"status":  job.Status,
	})
}

// HandleGetJob reports the state of an ingestion job.
func (h *CatalogHandler) HandleGetJob(c *fiber.Ctx) error {
	job, err := h.service.JobStatus(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(job)
}
