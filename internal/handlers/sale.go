package handlers

import (
	"strconv"

	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// SaleHandler handles discount sales on posts
type SaleHandler struct {
	saleService *services.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService *services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// CreateSaleRequest is the body for attaching a sale to a post
type CreateSaleRequest struct {
	PostID          string  `json:"post_id"`
	Price           float64 `json:"price"`
	DiscountPercent float64 `json:"discount_percent"`
}

// Create attaches a sale to a post
// POST /api/sales
func (h *SaleHandler) Create(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req CreateSaleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	sale, err := h.saleService.CreateSale(c.Context(), req.PostID, userID, req.Price, req.DiscountPercent)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(sale)
}

// List pages through open sales
// GET /api/sales
func (h *SaleHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset", "0"), 10, 64)

	sales, err := h.saleService.ListActiveSales(c.Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"sales": sales})
}

// GetByPost fetches the sale attached to a post
// GET /api/posts/:id/sale
func (h *SaleHandler) GetByPost(c *fiber.Ctx) error {
	sale, err := h.saleService.GetSaleByPost(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// Buy purchases at the current discounted price
// POST /api/sales/:id/buy
func (h *SaleHandler) Buy(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	sale, err := h.saleService.Buy(c.Context(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}

// Close ends a sale
// POST /api/sales/:id/close
func (h *SaleHandler) Close(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	sale, err := h.saleService.CloseSale(c.Context(), c.Params("id"), userID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(sale)
}
