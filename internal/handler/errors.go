package handler

import (
	"errors"

	"go-pedidos-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

// statusForError maps the service error taxonomy to HTTP status codes.
// Anything unmapped is an internal storage/transport failure.
func statusForError(err error) int {
	switch {
	case service.IsValidation(err),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrNothingToCancel):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrComponentNotFound),
		errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrClientNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrProductInUse),
		errors.Is(err, service.ErrClientHasOrders):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func errorJSON(c *fiber.Ctx, err error) error {
	status := statusForError(err)
	if status == fiber.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
