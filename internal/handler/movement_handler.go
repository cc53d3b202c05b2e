package handler

import (
	"go-pedidos-api/internal/repository"

	"github.com/gofiber/fiber/v2"
)

type MovementHandler struct {
	movementRepo repository.MovementRepository
}

func NewMovementHandler(movementRepo repository.MovementRepository) *MovementHandler {
	return &MovementHandler{movementRepo: movementRepo}
}

// GetMovements returns the recent stock movement audit trail
// GET /api/v1/movements
func (h *MovementHandler) GetMovements(c *fiber.Ctx) error {
	movements, err := h.movementRepo.FindAll()
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch movements"})
	}
	return c.JSON(movements)
}

// GetProductMovements returns the movement history of one product
// GET /api/v1/products/:id/movements
func (h *MovementHandler) GetProductMovements(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	movements, err := h.movementRepo.FindByProduct(productID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch movements"})
	}
	return c.JSON(movements)
}

// GetOrderMovements returns every stock movement an order caused
// GET /api/v1/orders/:id/movements
func (h *MovementHandler) GetOrderMovements(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	movements, err := h.movementRepo.FindByOrder(orderID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch movements"})
	}
	return c.JSON(movements)
}
