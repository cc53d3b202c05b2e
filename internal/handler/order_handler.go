package handler

import (
	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/service"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	service service.OrderService
}

func NewOrderHandler(s service.OrderService) *OrderHandler {
	return &OrderHandler{service: s}
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var order model.Order
	if err := c.BodyParser(&order); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	created, err := h.service.CreateOrder(&order, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Order created", "data": created})
}

type updateOrderRequest struct {
	Items []model.OrderItem `json:"items"`
}

func (h *OrderHandler) UpdateOrder(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	var req updateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.service.UpdateOrder(orderID, req.Items, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Order updated", "data": updated})
}

func (h *OrderHandler) DeleteOrder(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	if err := h.service.DeleteOrder(orderID, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Order deleted, stock restored"})
}

func (h *OrderHandler) GetOrders(c *fiber.Ctx) error {
	if clientID := c.Query("client_id"); clientID != "" {
		id, err := parseUUID(clientID)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid client ID"})
		}
		orders, err := h.service.GetOrdersByClient(id)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(orders)
	}

	if section := c.Query("section"); section != "" {
		orders, err := h.service.GetOrdersBySection(section)
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(orders)
	}

	orders, err := h.service.GetAllOrders()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(orders)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	order, err := h.service.GetOrder(orderID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(order)
}

// GetOrderSnapshot returns the render-ready order view the document
// generators (remitos, reports) consume.
// GET /api/v1/orders/:id/snapshot
func (h *OrderHandler) GetOrderSnapshot(c *fiber.Ctx) error {
	orderID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid order ID"})
	}

	snapshot, err := h.service.Snapshot(orderID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(snapshot)
}
