package handlers

import (
	"errors"
	"fmt"
	"log"

	"bookstore/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch apperrors.KindOf(err) {
	case apperrors.ErrValidation:
		return fiber.StatusBadRequest
	case apperrors.ErrDuplicateEmail:
		return fiber.StatusConflict
	case apperrors.ErrAuthentication:
		return fiber.StatusUnauthorized
	case apperrors.ErrAuthorization:
		return fiber.StatusForbidden
	case apperrors.ErrNotFound:
		return fiber.StatusNotFound
	case apperrors.ErrPaymentDeclined:
		return fiber.StatusPaymentRequired
	case apperrors.ErrUpstreamUnavailable:
		return fiber.StatusBadGateway
	case apperrors.ErrQueueUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err with the caller-safe message only; internal causes go to the log.
func writeError(c *fiber.Ctx, err error) error {
	status := statusOf(err)
	if status >= fiber.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	body := fiber.Map{"message": apperrors.Message(err)}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		body["errors"] = errorMessages
	}
	return c.Status(status).JSON(body)
}

// bindJSON parses and validates the request body into out.
func bindJSON(c *fiber.Ctx, validate *validator.Validate, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, err, "Invalid request body")
	}
	if err := validate.Struct(out); err != nil {
		return apperrors.Wrap(apperrors.ErrValidation, err, "Validation failed")
	}
	return nil
}
