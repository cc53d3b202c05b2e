package handler

import (
	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ProductHandler struct {
	catalog service.CatalogService
	stock   service.StockService
}

func NewProductHandler(catalog service.CatalogService, stock service.StockService) *ProductHandler {
	return &ProductHandler{catalog: catalog, stock: stock}
}

// Helper untuk ambil User Info dari JWT Context (set by auth middleware)
func getUserID(c *fiber.Ctx) string {
	userID := c.Locals("user_id")
	if userID == nil {
		return "system" // Fallback jika tidak ada (shouldn't happen in protected routes)
	}
	return userID.(string)
}

// Helper untuk parse UUID dari string
func parseUUID(id string) (uuid.UUID, error) {
	return uuid.Parse(id)
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	if err := h.catalog.CreateProduct(&product, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Product created", "data": product})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var product model.Product
	if err := c.BodyParser(&product); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}

	updated, err := h.catalog.UpdateProduct(productID, &product, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product updated", "data": updated})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	if err := h.catalog.DeleteProduct(productID, getUserID(c)); err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{"message": "Product deleted"})
}

func (h *ProductHandler) GetProducts(c *fiber.Ctx) error {
	if category := c.Query("category"); category != "" {
		products, err := h.catalog.GetProductsByCategory(model.ProductCategory(category))
		if err != nil {
			return errorJSON(c, err)
		}
		return c.JSON(products)
	}

	products, err := h.catalog.GetAllProducts()
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(products)
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := h.catalog.GetProduct(productID)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(product)
}

// GetComboExpansion returns the resolved components of a combo plus its
// computed component price sum.
func (h *ProductHandler) GetComboExpansion(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	components, err := h.catalog.ExpandCombo(productID)
	if err != nil {
		return errorJSON(c, err)
	}
	comboPrice, err := h.catalog.ComputeComboPrice(productID)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(fiber.Map{
		"components":      components,
		"component_price": comboPrice,
	})
}

// Sell registers a point-of-sale sale of one unit.
// POST /api/v1/products/:id/sell
func (h *ProductHandler) Sell(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := h.stock.Sell(productID, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale recorded", "data": product})
}

// CancelSale reverses one sale.
// POST /api/v1/products/:id/cancel-sale
func (h *ProductHandler) CancelSale(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	product, err := h.stock.Cancel(productID, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Sale cancelled", "data": product})
}

type adjustStockRequest struct {
	StockDelta int `json:"stock_delta"`
	SoldDelta  int `json:"sold_delta"`
}

// AdjustStock applies a manual signed delta.
// POST /api/v1/products/:id/adjust
func (h *ProductHandler) AdjustStock(c *fiber.Ctx) error {
	productID, err := parseUUID(c.Params("id"))
	if err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid product ID"})
	}

	var req adjustStockRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid JSON"})
	}
	if req.StockDelta == 0 && req.SoldDelta == 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Nothing to adjust"})
	}

	product, err := h.stock.Adjust(productID, req.StockDelta, req.SoldDelta, getUserID(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(fiber.Map{"message": "Stock adjusted", "data": product})
}
